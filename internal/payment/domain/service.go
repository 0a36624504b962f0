package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
)

type RecordRequest struct {
	Direction      Direction       `json:"direction"`
	CounterpartyID snowflake.ID    `json:"counterparty_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         Method          `json:"method"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Note           string          `json:"note"`
	Actor          actor.Actor     `json:"-"`
}

type RecordResult struct {
	PaymentID      snowflake.ID                 `json:"payment_id"`
	DocumentNumber string                       `json:"document_number"`
	Balance        balancedomain.AccountBalance `json:"balance"`
}

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type Processor interface {
	RecordPayment(ctx context.Context, req RecordRequest) (RecordResult, error)
	Get(ctx context.Context, documentNumber string) (Payment, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidDirection    = errs.New(errs.ErrInvalidInput, "invalid_payment_direction")
	ErrInvalidCounterparty = errs.New(errs.ErrInvalidInput, "invalid_counterparty")
	ErrInvalidAmount       = errs.New(errs.ErrInvalidInput, "invalid_payment_amount")
	ErrInvalidMethod       = errs.New(errs.ErrInvalidInput, "invalid_payment_method")
	ErrInvalidOccurredAt   = errs.New(errs.ErrInvalidInput, "invalid_occurred_at")
	ErrInvalidActor        = errs.New(errs.ErrInvalidInput, "invalid_actor")
	ErrNoBalanceHistory    = errs.New(errs.ErrNotFound, "no_balance_history")
	ErrPaymentNotFound     = errs.New(errs.ErrNotFound, "payment_not_found")
	ErrNegativeBalance     = errs.New(errs.ErrInvalidState, "payment_exceeds_balance")
)

func (r RecordRequest) Validate() error {
	if !r.Direction.Valid() {
		return ErrInvalidDirection
	}
	if r.CounterpartyID == 0 {
		return ErrInvalidCounterparty
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !db.FitsNumeric(r.Amount) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, db.NumericScale)
	}
	if !r.Method.Valid() {
		return ErrInvalidMethod
	}
	if r.OccurredAt.IsZero() {
		return ErrInvalidOccurredAt
	}
	if !r.Actor.Valid() {
		return ErrInvalidActor
	}
	return nil
}
