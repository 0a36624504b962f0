package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Kind     Kind           `json:"kind"`
	Phone    string         `json:"phone"`
	Metadata map[string]any `json:"metadata"`
}

type ListRequest struct {
	pagination.Pagination
	Kind       Kind
	Name       string
	ActiveOnly bool
}

type ListFilter struct {
	Kind       Kind
	Name       string
	ActiveOnly bool
}

type ListResponse struct {
	pagination.PageInfo
	Counterparties []Counterparty `json:"counterparties"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Counterparty, error)
	GetByID(ctx context.Context, id string) (Counterparty, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	SetActive(ctx context.Context, id string, active bool) (Counterparty, error)
}

// Directory is the read-only view order placement and settlement need.
type Directory interface {
	// Lookup returns ErrNotFound when the counterparty does not exist.
	Lookup(ctx context.Context, tx *gorm.DB, id snowflake.ID) (Counterparty, error)
}

var (
	ErrInvalidName = errs.New(errs.ErrInvalidInput, "invalid_name")
	ErrInvalidKind = errs.New(errs.ErrInvalidInput, "invalid_counterparty_kind")
	ErrInvalidID   = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidCode = errs.New(errs.ErrInvalidInput, "invalid_code")
	ErrNotFound    = errs.New(errs.ErrNotFound, "counterparty_not_found")
	ErrCodeTaken   = errs.New(errs.ErrConflict, "counterparty_code_taken")
	ErrInactive    = errs.New(errs.ErrInvalidState, "counterparty_inactive")
)
