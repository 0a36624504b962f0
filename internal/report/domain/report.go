package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/errs"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
)

type GroupBy string

const (
	GroupByCategory     GroupBy = "category"
	GroupBySupplier     GroupBy = "supplier"
	GroupByProduct      GroupBy = "product"
	GroupByCounterparty GroupBy = "counterparty"
	GroupByDay          GroupBy = "day"
)

func (g GroupBy) Valid() bool {
	switch g {
	case GroupByCategory, GroupBySupplier, GroupByProduct, GroupByCounterparty, GroupByDay:
		return true
	default:
		return false
	}
}

type Bucket struct {
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

func (b Bucket) Add(quantity, amount decimal.Decimal) Bucket {
	return Bucket{Quantity: b.Quantity.Add(quantity), Amount: b.Amount.Add(amount)}
}

type RollupRow struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Regular    Bucket `json:"regular"`
	Additional Bucket `json:"additional"`
	Total      Bucket `json:"total"`
}

type Rollup struct {
	Side       orderdomain.Side `json:"side"`
	GroupBy    GroupBy          `json:"group_by"`
	From       time.Time        `json:"from"`
	To         time.Time        `json:"to"`
	Rows       []RollupRow      `json:"rows"`
	Regular    Bucket           `json:"regular"`
	Additional Bucket           `json:"additional"`
	Total      Bucket           `json:"total"`
}

type RollupRequest struct {
	Side           orderdomain.Side
	From           time.Time
	To             time.Time
	CounterpartyID *snowflake.ID
	Category       string
	SupplierID     *snowflake.ID
	ProductID      *snowflake.ID
	GroupBy        GroupBy
}

type PaymentSummaryRequest struct {
	Direction      paymentdomain.Direction
	From           time.Time
	To             time.Time
	CounterpartyID *snowflake.ID
}

type MethodTotal struct {
	Method paymentdomain.Method `json:"method"`
	Count  int                  `json:"count"`
	Amount decimal.Decimal      `json:"amount"`
}

type PaymentSummary struct {
	Direction paymentdomain.Direction `json:"direction"`
	From      time.Time               `json:"from"`
	To        time.Time               `json:"to"`
	Methods   []MethodTotal           `json:"methods"`
	Count     int                     `json:"count"`
	Total     decimal.Decimal         `json:"total"`
}

type StatementRequest struct {
	CounterpartyID snowflake.ID
	Side           orderdomain.Side
	Start          time.Time
	End            time.Time
}

type Engine interface {
	RollupLedgers(ctx context.Context, req RollupRequest) (Rollup, error)
	RollupOrders(ctx context.Context, req RollupRequest) (Rollup, error)
	SummarizePayments(ctx context.Context, req PaymentSummaryRequest) (PaymentSummary, error)
	Statement(ctx context.Context, req StatementRequest) (Statement, error)
}

var (
	ErrInvalidRange        = errs.New(errs.ErrInvalidInput, "invalid_report_range")
	ErrInvalidGroupBy      = errs.New(errs.ErrInvalidInput, "invalid_group_by")
	ErrInvalidSide         = errs.New(errs.ErrInvalidInput, "invalid_report_side")
	ErrInvalidDirection    = errs.New(errs.ErrInvalidInput, "invalid_payment_direction")
	ErrInvalidCounterparty = errs.New(errs.ErrInvalidInput, "invalid_counterparty")
)

func (r RollupRequest) Validate() error {
	if !r.Side.Valid() {
		return ErrInvalidSide
	}
	if r.GroupBy != "" && !r.GroupBy.Valid() {
		return ErrInvalidGroupBy
	}
	return validateRange(r.From, r.To)
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return ErrInvalidRange
	}
	return nil
}
