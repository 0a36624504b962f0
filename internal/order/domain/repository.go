package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

// StatusChange is a conditional status update. It applies only while the
// stored row still has From and ExpectedVersion.
type StatusChange struct {
	OrderID         snowflake.ID
	From            Status
	To              Status
	ExpectedVersion int64
	At              time.Time
	Reason          string
	LedgerID        *snowflake.ID
	LedgerNumber    *string
}

type ListFilter struct {
	Side           Side
	Status         Status
	Phase          Phase
	CounterpartyID *snowflake.ID
	PlacedFrom     *time.Time
	PlacedTo       *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Order, error)
	ApplyStatus(ctx context.Context, db *gorm.DB, change StatusChange) (bool, error)
}
