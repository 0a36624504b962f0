package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/internal/testing/stack"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceUsesCatalogPriceAndNumbersBySide(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	supplier := s.Supplier(t, "s1")
	rice := s.Product(t, "rice", "staples", 12000)
	oil := s.Product(t, "oil", "staples", 25000)

	override := decimal.NewFromInt(11000)
	sales, err := s.Orders.Place(ctx, domain.PlaceRequest{
		Side:           domain.SideSales,
		CounterpartyID: customer.ID,
		Lines: []domain.PlaceLine{
			{ProductID: rice.ID, Quantity: decimal.NewFromInt(3)},
			{ProductID: oil.ID, Quantity: decimal.NewFromInt(2), UnitPrice: &override},
		},
		Note:  " weekly ",
		Actor: stack.Clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, "SO-260118-001", sales.OrderNumber)
	assert.Equal(t, domain.StatusPlaced, sales.Status)
	assert.Equal(t, domain.PhaseRegular, sales.Phase)
	assert.Equal(t, "weekly", sales.Note)
	assert.True(t, sales.TotalQuantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, sales.TotalAmount.Equal(decimal.NewFromInt(3*12000+2*11000)))

	purchase, err := s.Orders.Place(ctx, domain.PlaceRequest{
		Side:           domain.SidePurchase,
		CounterpartyID: supplier.ID,
		Lines:          []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(10)}},
		Actor:          stack.Clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-260118-001", purchase.OrderNumber)

	stored, err := s.Orders.Get(ctx, sales.OrderNumber)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.EqualValues(t, 1, stored.Version)
}

func TestPlaceRejectsInvalidRequests(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	supplier := s.Supplier(t, "s1")
	rice := s.Product(t, "rice", "staples", 12000)
	negative := decimal.NewFromInt(-1)
	tooFine := decimal.RequireFromString("0.00001")

	cases := []struct {
		name string
		req  domain.PlaceRequest
		want error
	}{
		{"no lines", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk}, domain.ErrEmptyOrder},
		{"bad side", domain.PlaceRequest{Side: "barter", CounterpartyID: customer.ID, Actor: stack.Clerk}, domain.ErrInvalidSide},
		{"zero quantity", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.Zero}}}, domain.ErrInvalidQuantity},
		{"negative price", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1), UnitPrice: &negative}}}, domain.ErrInvalidUnitPrice},
		{"quantity beyond 4 places", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.RequireFromString("1.00001")}}}, domain.ErrInvalidQuantity},
		{"price beyond 4 places", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1), UnitPrice: &tooFine}}}, domain.ErrInvalidUnitPrice},
		{"duplicate product", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}, {ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}}}, domain.ErrInvalidProduct},
		{"wrong kind", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: supplier.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}}}, domain.ErrCounterpartyKind},
		{"unknown counterparty", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: 42, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}}}, counterpartydomain.ErrNotFound},
		{"unknown product without price", domain.PlaceRequest{Side: domain.SideSales, CounterpartyID: customer.ID, Actor: stack.Clerk,
			Lines: []domain.PlaceLine{{ProductID: 42, Quantity: decimal.NewFromInt(1)}}}, domain.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Orders.Place(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	listed, err := s.Orders.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, listed.Orders)
}

func TestPlaceRejectsInactiveCounterparty(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	_, err := s.Counterparties.SetActive(ctx, customer.ID.String(), false)
	require.NoError(t, err)

	_, err = s.Orders.Place(ctx, domain.PlaceRequest{
		Side:           domain.SideSales,
		CounterpartyID: customer.ID,
		Lines:          []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}},
		Actor:          stack.Clerk,
	})
	require.ErrorIs(t, err, counterpartydomain.ErrInactive)
	assert.True(t, errs.IsInvalidState(err))
}

func TestPhaseIsFixedAtPlacement(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)

	_, err := s.Cutoff.Close(ctx, stack.Clerk)
	require.NoError(t, err)
	late, err := s.Orders.Place(ctx, domain.PlaceRequest{
		Side:           domain.SideSales,
		CounterpartyID: customer.ID,
		Lines:          []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}},
		Actor:          stack.Clerk,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAdditional, late.Phase)

	s.Clock.Advance(time.Hour)
	_, err = s.Cutoff.Open(ctx, stack.Clerk)
	require.NoError(t, err)

	confirmed, err := s.Orders.Confirm(ctx, late.OrderNumber, stack.Clerk)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAdditional, confirmed.Phase)

	s.Settle(t, late.OrderNumber)
	settled, err := s.Orders.Get(ctx, late.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, settled.Status)
	assert.Equal(t, domain.PhaseAdditional, settled.Phase)

	regular := s.ConfirmedOrder(t, domain.SideSales, customer.ID, rice.ID, 1)
	assert.Equal(t, domain.PhaseRegular, regular.Phase)

	additional, err := s.Orders.List(ctx, domain.ListRequest{ListFilter: domain.ListFilter{Phase: domain.PhaseAdditional}})
	require.NoError(t, err)
	require.Len(t, additional.Orders, 1)
	assert.Equal(t, late.OrderNumber, additional.Orders[0].OrderNumber)
}

func TestStatusTransitions(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)

	place := func() domain.Order {
		o, err := s.Orders.Place(ctx, domain.PlaceRequest{
			Side:           domain.SideSales,
			CounterpartyID: customer.ID,
			Lines:          []domain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}},
			Actor:          stack.Clerk,
		})
		require.NoError(t, err)
		return o
	}

	pended := place()
	o, err := s.Orders.Pend(ctx, pended.OrderNumber, stack.Clerk, " stock check ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPended, o.Status)
	assert.Equal(t, "stock check", o.Reason)
	_, err = s.Orders.Confirm(ctx, pended.OrderNumber, stack.Clerk)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	o, err = s.Orders.Resume(ctx, pended.OrderNumber, stack.Clerk)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPlaced, o.Status)
	o, err = s.Orders.Confirm(ctx, pended.OrderNumber, stack.Clerk)
	require.NoError(t, err)
	assert.NotNil(t, o.ConfirmedAt)
	assert.EqualValues(t, 4, o.Version)

	rejected := place()
	_, err = s.Orders.Reject(ctx, rejected.OrderNumber, stack.Clerk, "credit hold")
	require.NoError(t, err)
	_, err = s.Orders.Cancel(ctx, rejected.OrderNumber, stack.Clerk, "")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.True(t, errs.IsInvalidState(err))

	cancelled := place()
	_, err = s.Orders.Confirm(ctx, cancelled.OrderNumber, stack.Clerk)
	require.NoError(t, err)
	o, err = s.Orders.Cancel(ctx, cancelled.OrderNumber, stack.Clerk, "customer called")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	_, err = s.Orders.Confirm(ctx, "SO-260118-999", stack.Clerk)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	page, err := s.Orders.List(ctx, domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.True(t, page.HasMore)
}
