package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Side           orderdomain.Side
	Phase          orderdomain.Phase
	CounterpartyID *snowflake.ID
	SettledFrom    *time.Time
	SettledTo      *time.Time
}

type Repository interface {
	InsertTx(ctx context.Context, db *gorm.DB, ledger *Ledger) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ledger, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Ledger, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Ledger, error)
}
