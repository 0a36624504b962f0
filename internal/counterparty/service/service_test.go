package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/testing/stack"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlugsCodeAndKeepsMetadata(t *testing.T) {
	s := stack.New(t)

	cp, err := s.Counterparties.Create(context.Background(), domain.CreateRequest{
		Name:     "  Toko Sinar Jaya ",
		Kind:     domain.KindCustomer,
		Phone:    " 0812 ",
		Metadata: map[string]any{"route": "north"},
	})
	require.NoError(t, err)
	assert.Equal(t, "toko-sinar-jaya", cp.Code)
	assert.Equal(t, "Toko Sinar Jaya", cp.Name)
	assert.Equal(t, "0812", cp.Phone)
	assert.True(t, cp.Active)

	got, err := s.Counterparties.GetByID(context.Background(), cp.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "north", got.Metadata["route"])
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	s := stack.New(t)
	s.Customer(t, "acme")

	_, err := s.Counterparties.Create(context.Background(), domain.CreateRequest{
		Code: "ACME", Name: "Acme again", Kind: domain.KindCustomer,
	})
	require.ErrorIs(t, err, domain.ErrCodeTaken)
	assert.True(t, errs.IsConflict(err))
}

func TestCreateValidatesInput(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()

	_, err := s.Counterparties.Create(ctx, domain.CreateRequest{Name: " ", Kind: domain.KindCustomer})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = s.Counterparties.Create(ctx, domain.CreateRequest{Name: "x", Kind: "broker"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestSetActiveAndListFilters(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	s.Supplier(t, "s1")

	_, err := s.Counterparties.SetActive(ctx, customer.ID.String(), false)
	require.NoError(t, err)

	all, err := s.Counterparties.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 10}})
	require.NoError(t, err)
	assert.Len(t, all.Counterparties, 2)

	active, err := s.Counterparties.List(ctx, domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 10},
		ActiveOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, active.Counterparties, 1)
	assert.Equal(t, domain.KindSupplier, active.Counterparties[0].Kind)

	_, err = s.Counterparties.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = s.Counterparties.SetActive(ctx, "12345", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
