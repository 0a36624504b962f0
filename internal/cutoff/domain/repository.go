package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB) (*Window, error)
	Create(ctx context.Context, db *gorm.DB, window Window) (bool, error)
	Update(ctx context.Context, db *gorm.DB, window Window, expectedVersion int64) (bool, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) error
	ListEvents(ctx context.Context, db *gorm.DB, limit int) ([]Event, error)
}
