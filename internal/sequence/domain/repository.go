package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Find returns nil when the domain has never issued a number.
	Find(ctx context.Context, db *gorm.DB, domain Domain) (*Counter, error)
	// Create inserts the first counter row. It reports false when another
	// writer created it first.
	Create(ctx context.Context, db *gorm.DB, counter Counter) (bool, error)
	// Advance moves the counter to (dateKey, lastNumber) only if its version
	// still equals expectedVersion.
	Advance(ctx context.Context, db *gorm.DB, domain Domain, dateKey string, lastNumber, expectedVersion int64, at time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB) ([]Counter, error)
}
