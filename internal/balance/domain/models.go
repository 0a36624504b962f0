package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Side separates what customers owe us from what we owe suppliers.
type Side string

const (
	SideReceivable Side = "receivable"
	SidePayable    Side = "payable"
)

func (s Side) Valid() bool {
	switch s {
	case SideReceivable, SidePayable:
		return true
	default:
		return false
	}
}

// AccountBalance is the running position of one counterparty on one side.
// CurrentBalance always equals TotalSettled minus TotalCollected.
type AccountBalance struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	CounterpartyID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_account_balances_counterparty_side,priority:1" json:"counterparty_id"`
	Side             Side            `gorm:"type:varchar(16);not null;uniqueIndex:ux_account_balances_counterparty_side,priority:2" json:"side"`
	TotalSettled     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_settled"`
	TotalCollected   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"total_collected"`
	CurrentBalance   decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"current_balance"`
	LastSettlementAt *time.Time      `json:"last_settlement_at,omitempty"`
	LastCollectionAt *time.Time      `json:"last_collection_at,omitempty"`
	Version          int64           `gorm:"not null" json:"version"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (AccountBalance) TableName() string { return "account_balances" }

// ApplySettlement returns b with amount added to the settled total.
func ApplySettlement(b AccountBalance, amount decimal.Decimal, at time.Time) AccountBalance {
	b.TotalSettled = b.TotalSettled.Add(amount)
	b.CurrentBalance = b.CurrentBalance.Add(amount)
	settledAt := at
	b.LastSettlementAt = &settledAt
	b.UpdatedAt = at
	return b
}

// ApplyCollection returns b with amount added to the collected total.
func ApplyCollection(b AccountBalance, amount decimal.Decimal, at time.Time) AccountBalance {
	b.TotalCollected = b.TotalCollected.Add(amount)
	b.CurrentBalance = b.CurrentBalance.Sub(amount)
	collectedAt := at
	b.LastCollectionAt = &collectedAt
	b.UpdatedAt = at
	return b
}

func (b AccountBalance) Verify() error {
	expected := b.TotalSettled.Sub(b.TotalCollected)
	if !b.CurrentBalance.Equal(expected) {
		return fmt.Errorf("%w: current %s, settled %s, collected %s",
			ErrInvariantViolated, b.CurrentBalance, b.TotalSettled, b.TotalCollected)
	}
	return nil
}
