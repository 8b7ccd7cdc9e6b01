package model

import "time"

const (
	AccountEventCreated = "account.created"
	AccountEventLogin   = "account.login"
	AccountEventDeleted = "account.deleted"
)

// AccountEvent is an audit record of an account lifecycle change.
type AccountEvent struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	Type       string    `gorm:"size:32;not null;index" json:"type"`
	UserID     string    `gorm:"type:char(36);not null;index" json:"user_id"`
	Username   string    `gorm:"size:64;not null" json:"username"`
	ClientIP   string    `gorm:"size:64" json:"client_ip,omitempty"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
