package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code       string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	Category   string          `gorm:"type:varchar(64);not null;index" json:"category"`
	SupplierID *snowflake.ID   `gorm:"index" json:"supplier_id,omitempty"`
	Unit       string          `gorm:"type:varchar(16)" json:"unit,omitempty"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"unit_price"`
	Active     bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
