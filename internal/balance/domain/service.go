package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, counterpartyID snowflake.ID, side Side) (AccountBalance, error)
	List(ctx context.Context, side Side) ([]AccountBalance, error)

	// FindTx reads the balance inside the caller's transaction. It returns
	// nil when none exists yet.
	FindTx(ctx context.Context, tx *gorm.DB, counterpartyID snowflake.ID, side Side) (*AccountBalance, error)
	// SaveTx persists next. previous is what FindTx returned in the same
	// attempt: nil inserts, otherwise a versioned update.
	SaveTx(ctx context.Context, tx *gorm.DB, previous *AccountBalance, next AccountBalance) (AccountBalance, error)
}

var (
	ErrInvalidSide       = errs.New(errs.ErrInvalidInput, "invalid_balance_side")
	ErrBalanceNotFound   = errs.New(errs.ErrNotFound, "balance_not_found")
	ErrBalanceConflict   = errs.New(errs.ErrConflict, "balance_conflict")
	ErrInvariantViolated = errs.New(errs.ErrInvalidState, "balance_invariant_violated")
)
