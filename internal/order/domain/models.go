package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
)

// Side tells whether we sell to a customer or buy from a supplier.
type Side string

const (
	SideSales    Side = "sales"
	SidePurchase Side = "purchase"
)

func (s Side) Valid() bool {
	switch s {
	case SideSales, SidePurchase:
		return true
	default:
		return false
	}
}

func (s Side) OrderDomain() seqdomain.Domain {
	if s == SidePurchase {
		return seqdomain.DomainPurchaseOrder
	}
	return seqdomain.DomainSalesOrder
}

func (s Side) LedgerDomain() seqdomain.Domain {
	if s == SidePurchase {
		return seqdomain.DomainPurchaseLedger
	}
	return seqdomain.DomainSalesLedger
}

func (s Side) BalanceSide() balancedomain.Side {
	if s == SidePurchase {
		return balancedomain.SidePayable
	}
	return balancedomain.SideReceivable
}

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusPended    Status = "pended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusConfirmed, StatusCompleted,
		StatusCancelled, StatusRejected, StatusPended:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPlaced:
		switch to {
		case StatusConfirmed, StatusPended, StatusRejected, StatusCancelled:
			return true
		}
	case StatusPended:
		switch to {
		case StatusPlaced, StatusCancelled:
			return true
		}
	case StatusConfirmed:
		switch to {
		case StatusCompleted, StatusCancelled:
			return true
		}
	case StatusCompleted, StatusCancelled, StatusRejected:
		return false
	}
	return false
}

// Phase is fixed when the order is placed and never rewritten.
type Phase string

const (
	PhaseRegular    Phase = "regular"
	PhaseAdditional Phase = "additional"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseRegular, PhaseAdditional:
		return true
	default:
		return false
	}
}

// PhaseFor classifies an order placed while window is in effect. Only the
// closed flag matters, not how the order time relates to WindowStart.
func PhaseFor(window cutoffdomain.Snapshot) Phase {
	if window.IsClosed {
		return PhaseAdditional
	}
	return PhaseRegular
}

type Order struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderNumber    string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	Side           Side            `gorm:"type:varchar(16);not null;index" json:"side"`
	Status         Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	Phase          Phase           `gorm:"type:varchar(16);not null;index" json:"phase"`
	CounterpartyID snowflake.ID    `gorm:"not null;index" json:"counterparty_id"`
	TotalQuantity  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_quantity"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_amount"`
	LedgerID       *snowflake.ID   `json:"ledger_id,omitempty"`
	LedgerNumber   *string         `gorm:"type:varchar(32)" json:"ledger_number,omitempty"`
	Note           string          `gorm:"type:text" json:"note,omitempty"`
	Reason         string          `gorm:"type:text" json:"reason,omitempty"`
	PlacedBy       string          `gorm:"type:varchar(128);not null" json:"placed_by"`
	PlacedAt       time.Time       `gorm:"not null;index" json:"placed_at"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Version        int64           `gorm:"not null" json:"version"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
	Lines          []Line          `gorm:"foreignKey:OrderID" json:"lines"`
}

func (Order) TableName() string { return "orders" }

type Line struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID    `gorm:"not null;index" json:"order_id"`
	ProductID snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"line_total"`
}

func (Line) TableName() string { return "order_lines" }
