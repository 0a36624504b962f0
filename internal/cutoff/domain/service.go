package domain

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

type Service interface {
	Open(ctx context.Context, by actor.Actor) (Snapshot, error)
	Close(ctx context.Context, by actor.Actor) (Snapshot, error)
	Reset(ctx context.Context, by actor.Actor) (Snapshot, error)
	Current(ctx context.Context) (Snapshot, error)
	// CurrentTx reads the window once inside the caller's transaction.
	CurrentTx(ctx context.Context, tx *gorm.DB) (Snapshot, error)
	History(ctx context.Context, limit int) ([]Event, error)
}

var (
	ErrWindowNotOpen  = errs.New(errs.ErrInvalidState, "cutoff_window_not_open")
	ErrWindowConflict = errs.New(errs.ErrConflict, "cutoff_window_conflict")
	ErrInvalidActor   = errs.New(errs.ErrInvalidInput, "invalid_actor")
)
