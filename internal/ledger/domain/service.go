package domain

import (
	"context"

	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	Ledgers []Ledger `json:"ledgers"`
}

type Service interface {
	Get(ctx context.Context, id string) (Ledger, error)
	GetByNumber(ctx context.Context, number string) (Ledger, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// RecordTx inserts a ledger with its lines inside the caller's
	// transaction. A second ledger for the same order is ErrAlreadyRecorded.
	RecordTx(ctx context.Context, tx *gorm.DB, ledger *Ledger) error
}

var (
	ErrInvalidID       = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrLedgerNotFound  = errs.New(errs.ErrNotFound, "ledger_not_found")
	ErrAlreadyRecorded = errs.New(errs.ErrConflict, "ledger_already_recorded")
)
