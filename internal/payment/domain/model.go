package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
)

// Direction is money coming in from a customer or going out to a supplier.
type Direction string

const (
	DirectionCollection Direction = "collection"
	DirectionPayout     Direction = "payout"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionCollection, DirectionPayout:
		return true
	default:
		return false
	}
}

func (d Direction) BalanceSide() balancedomain.Side {
	if d == DirectionPayout {
		return balancedomain.SidePayable
	}
	return balancedomain.SideReceivable
}

func (d Direction) SequenceDomain() seqdomain.Domain {
	if d == DirectionPayout {
		return seqdomain.DomainPayout
	}
	return seqdomain.DomainCollection
}

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodGiro         Method = "giro"
	MethodCard         Method = "card"
	MethodOther        Method = "other"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodGiro, MethodCard, MethodOther:
		return true
	default:
		return false
	}
}

// Payment is an immutable collection or payout record.
type Payment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	DocumentNumber string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"document_number"`
	Direction      Direction       `gorm:"type:varchar(16);not null;index" json:"direction"`
	CounterpartyID snowflake.ID    `gorm:"not null;index" json:"counterparty_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Method         Method          `gorm:"type:varchar(32);not null" json:"method"`
	Note           string          `gorm:"type:text" json:"note,omitempty"`
	OccurredAt     time.Time       `gorm:"not null;index" json:"occurred_at"`
	ProcessedBy    string          `gorm:"type:varchar(128);not null" json:"processed_by"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
