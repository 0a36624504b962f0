package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindSupplier:
		return true
	default:
		return false
	}
}

type Counterparty struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code      string            `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Name      string            `gorm:"type:varchar(255);not null" json:"name"`
	Kind      Kind              `gorm:"type:varchar(16);not null;index" json:"kind"`
	Active    bool              `gorm:"not null;default:true" json:"active"`
	Phone     string            `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Counterparty) TableName() string { return "counterparties" }
