package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UsernameIndex = "uk_users_username"
	EmailIndex    = "uk_users_email"
)

// User is an account. Usernames compare byte for byte, so "AB1" and "ab1" are
// distinct accounts.
type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	FullName     string    `gorm:"size:128;not null" json:"full_name"`
	Username     string    `gorm:"type:varchar(64) COLLATE utf8mb4_bin;not null;uniqueIndex:uk_users_username" json:"username"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
