package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopher-auth/internal/model"
)

type AccountEventRepository struct {
	db *gorm.DB
}

func NewAccountEventRepository(db *gorm.DB) *AccountEventRepository {
	return &AccountEventRepository{db: db}
}

// Create inserts the event, ignoring redeliveries of an already stored id.
func (r *AccountEventRepository) Create(ctx context.Context, event *model.AccountEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil || isDuplicateKey(err) {
		return nil
	}
	return fmt.Errorf("create account event failed: %w", err)
}
