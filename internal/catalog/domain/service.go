package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	SupplierID string          `json:"supplier_id"`
	Unit       string          `json:"unit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type ListFilter struct {
	Category   string
	SupplierID *snowflake.ID
	ActiveOnly bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
}

// Lookup resolves product metadata for a set of ids. Missing ids are simply
// absent from the result.
type Lookup interface {
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Product, error)
}

var (
	ErrInvalidCode     = errs.New(errs.ErrInvalidInput, "invalid_code")
	ErrInvalidName     = errs.New(errs.ErrInvalidInput, "invalid_name")
	ErrInvalidID       = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidPrice    = errs.New(errs.ErrInvalidInput, "invalid_unit_price")
	ErrInvalidSupplier = errs.New(errs.ErrInvalidInput, "invalid_supplier")
	ErrNotFound        = errs.New(errs.ErrNotFound, "product_not_found")
	ErrCodeTaken       = errs.New(errs.ErrConflict, "product_code_taken")
)
