package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
)

// Ledger is the immutable record of one settled order.
type Ledger struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	LedgerNumber   string            `gorm:"type:varchar(32);not null;uniqueIndex" json:"ledger_number"`
	Side           orderdomain.Side  `gorm:"type:varchar(16);not null;index" json:"side"`
	OrderID        snowflake.ID      `gorm:"not null;uniqueIndex" json:"order_id"`
	OrderNumber    string            `gorm:"type:varchar(32);not null" json:"order_number"`
	CounterpartyID snowflake.ID      `gorm:"not null;index" json:"counterparty_id"`
	Phase          orderdomain.Phase `gorm:"type:varchar(16);not null;index" json:"phase"`
	TotalQuantity  decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"total_quantity"`
	TotalAmount    decimal.Decimal   `gorm:"type:numeric(20,4);not null" json:"total_amount"`
	SettledAt      time.Time         `gorm:"not null;index" json:"settled_at"`
	SettledBy      string            `gorm:"type:varchar(128);not null" json:"settled_by"`
	Lines          []Line            `gorm:"foreignKey:LedgerID" json:"lines"`
}

func (Ledger) TableName() string { return "ledgers" }

type Line struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	LedgerID    snowflake.ID    `gorm:"not null;index" json:"ledger_id"`
	ProductID   snowflake.ID    `gorm:"not null;index" json:"product_id"`
	ProductCode string          `gorm:"type:varchar(64)" json:"product_code"`
	Category    string          `gorm:"type:varchar(64);not null;index" json:"category"`
	SupplierID  *snowflake.ID   `gorm:"index" json:"supplier_id,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"line_total"`
}

func (Line) TableName() string { return "ledger_lines" }
