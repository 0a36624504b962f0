package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type PlaceLine struct {
	ProductID snowflake.ID    `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	// UnitPrice defaults to the catalog price when nil.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type PlaceRequest struct {
	Side           Side         `json:"side"`
	CounterpartyID snowflake.ID `json:"counterparty_id"`
	Lines          []PlaceLine  `json:"lines"`
	Note           string       `json:"note"`
	Actor          actor.Actor  `json:"-"`
}

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Order `json:"orders"`
}

type Service interface {
	Place(ctx context.Context, req PlaceRequest) (Order, error)
	Confirm(ctx context.Context, number string, by actor.Actor) (Order, error)
	Pend(ctx context.Context, number string, by actor.Actor, reason string) (Order, error)
	Resume(ctx context.Context, number string, by actor.Actor) (Order, error)
	Reject(ctx context.Context, number string, by actor.Actor, reason string) (Order, error)
	Cancel(ctx context.Context, number string, by actor.Actor, reason string) (Order, error)
	Get(ctx context.Context, number string) (Order, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)

	// GetTx reads the order with its lines inside the caller's transaction.
	GetTx(ctx context.Context, tx *gorm.DB, number string) (Order, error)
	// CompleteTx moves a confirmed order to completed and records its
	// ledger. A concurrent writer turns this into ErrOrderConflict.
	CompleteTx(ctx context.Context, tx *gorm.DB, order Order, ledgerID snowflake.ID, ledgerNumber string, at time.Time) error
}

var (
	ErrInvalidSide         = errs.New(errs.ErrInvalidInput, "invalid_order_side")
	ErrInvalidStatus       = errs.New(errs.ErrInvalidInput, "invalid_order_status")
	ErrInvalidPhase        = errs.New(errs.ErrInvalidInput, "invalid_order_phase")
	ErrInvalidCounterparty = errs.New(errs.ErrInvalidInput, "invalid_counterparty")
	ErrEmptyOrder          = errs.New(errs.ErrInvalidInput, "order_has_no_lines")
	ErrInvalidQuantity     = errs.New(errs.ErrInvalidInput, "invalid_quantity")
	ErrInvalidUnitPrice    = errs.New(errs.ErrInvalidInput, "invalid_unit_price")
	ErrInvalidProduct      = errs.New(errs.ErrInvalidInput, "invalid_product")
	ErrInvalidActor        = errs.New(errs.ErrInvalidInput, "invalid_actor")
	ErrCounterpartyKind    = errs.New(errs.ErrInvalidInput, "counterparty_kind_mismatch")
	ErrOrderNotFound       = errs.New(errs.ErrNotFound, "order_not_found")
	ErrProductNotFound     = errs.New(errs.ErrNotFound, "product_not_found")
	ErrInvalidTransition   = errs.New(errs.ErrInvalidState, "invalid_order_transition")
	ErrOrderConflict       = errs.New(errs.ErrConflict, "order_conflict")
)
