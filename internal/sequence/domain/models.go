package domain

import "time"

type Domain string

const (
	DomainSalesOrder     Domain = "sales_order"
	DomainPurchaseOrder  Domain = "purchase_order"
	DomainSalesLedger    Domain = "sales_ledger"
	DomainPurchaseLedger Domain = "purchase_ledger"
	DomainCollection     Domain = "collection"
	DomainPayout         Domain = "payout"
)

// Domains lists every sequence domain in display order.
var Domains = []Domain{
	DomainSalesOrder,
	DomainPurchaseOrder,
	DomainSalesLedger,
	DomainPurchaseLedger,
	DomainCollection,
	DomainPayout,
}

func (d Domain) Valid() bool {
	switch d {
	case DomainSalesOrder, DomainPurchaseOrder, DomainSalesLedger,
		DomainPurchaseLedger, DomainCollection, DomainPayout:
		return true
	default:
		return false
	}
}

// DefaultPrefix is used unless the settlement policy overrides it.
func (d Domain) DefaultPrefix() string {
	switch d {
	case DomainSalesOrder:
		return "SO"
	case DomainPurchaseOrder:
		return "PO"
	case DomainSalesLedger:
		return "SL"
	case DomainPurchaseLedger:
		return "PL"
	case DomainCollection:
		return "CL"
	case DomainPayout:
		return "PY"
	default:
		return ""
	}
}

// Counter is the single row per domain holding the last issued number for
// DateKey. Version guards the read-modify-write.
type Counter struct {
	Domain     Domain    `gorm:"primaryKey;type:varchar(32)" json:"domain"`
	DateKey    string    `gorm:"type:varchar(6);not null" json:"date_key"`
	LastNumber int64     `gorm:"not null" json:"last_number"`
	Version    int64     `gorm:"not null" json:"version"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Counter) TableName() string { return "sequence_counters" }

// NextFor returns the number the counter would issue on dateKey.
func (c Counter) NextFor(dateKey string) int64 {
	if c.DateKey != dateKey {
		return 1
	}
	return c.LastNumber + 1
}
