package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Direction      Direction
	Method         Method
	CounterpartyID *snowflake.ID
	OccurredFrom   *time.Time
	OccurredTo     *time.Time
}

type Repository interface {
	InsertTx(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Payment, error)
}
