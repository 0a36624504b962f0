package domain

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

type Service interface {
	// Next issues a number in its own transaction, retrying on contention.
	Next(ctx context.Context, domain Domain) (string, error)
	// NextTx issues a number inside the caller's transaction with a single
	// attempt. A lost race aborts the caller's unit of work with ErrConflict.
	NextTx(ctx context.Context, tx *gorm.DB, domain Domain) (string, error)
	// Peek reads the counter without issuing a number.
	Peek(ctx context.Context, domain Domain) (Counter, error)
	List(ctx context.Context) ([]Counter, error)
}

var (
	ErrUnknownDomain    = errs.New(errs.ErrInvalidInput, "unknown_sequence_domain")
	ErrSequenceConflict = errs.New(errs.ErrConflict, "sequence_conflict")
	ErrCounterNotFound  = errs.New(errs.ErrNotFound, "sequence_counter_not_found")
)
