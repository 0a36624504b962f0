package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindTx returns nil when the counterparty has no balance on side.
	FindTx(ctx context.Context, db *gorm.DB, counterpartyID snowflake.ID, side Side) (*AccountBalance, error)
	InsertTx(ctx context.Context, db *gorm.DB, balance *AccountBalance) error
	// UpdateTx writes balance only if the stored version equals
	// expectedVersion, bumping it by one.
	UpdateTx(ctx context.Context, db *gorm.DB, balance AccountBalance, expectedVersion int64) (bool, error)
	List(ctx context.Context, db *gorm.DB, side Side) ([]AccountBalance, error)
}
