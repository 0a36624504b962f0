package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() orderdomain.Order {
	return orderdomain.Order{
		OrderNumber: "SO-260118-001",
		Status:      orderdomain.StatusConfirmed,
		Lines: []orderdomain.Line{
			{ProductID: 1, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(1500)},
			{ProductID: 2, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(9000)},
		},
	}
}

func TestBuildLinesShipsAsOrderedByDefault(t *testing.T) {
	supplier := snowflake.ID(77)
	products := map[snowflake.ID]catalogdomain.Product{
		1: {ID: 1, Code: "sugar", Category: "staples", SupplierID: &supplier},
	}

	lines, qty, amount, err := BuildLines(sampleOrder(), nil, products, "uncategorized")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "sugar", lines[0].ProductCode)
	assert.Equal(t, "staples", lines[0].Category)
	assert.Equal(t, &supplier, lines[0].SupplierID)
	assert.Equal(t, "uncategorized", lines[1].Category)
	assert.Empty(t, lines[1].ProductCode)

	assert.True(t, qty.Equal(decimal.NewFromInt(14)))
	assert.True(t, amount.Equal(decimal.NewFromInt(10*1500+4*9000)))
}

func TestBuildLinesPartialShipmentAndRepricing(t *testing.T) {
	price := decimal.NewFromInt(8500)
	shipped := []ShippedLine{
		{ProductID: 2, ShippedQty: decimal.NewFromInt(3), UnitPrice: &price},
		{ProductID: 1, ShippedQty: decimal.Zero},
	}

	lines, qty, amount, err := BuildLines(sampleOrder(), shipped, nil, "misc")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].UnitPrice.Equal(price))
	assert.True(t, lines[1].UnitPrice.Equal(decimal.NewFromInt(1500)))
	assert.True(t, lines[1].LineTotal.IsZero())
	assert.True(t, qty.Equal(decimal.NewFromInt(3)))
	assert.True(t, amount.Equal(decimal.NewFromInt(25500)))
}

func TestBuildLinesRejectsProductNotOnOrder(t *testing.T) {
	_, _, _, err := BuildLines(sampleOrder(), []ShippedLine{{ProductID: 9, ShippedQty: decimal.NewFromInt(1)}}, nil, "misc")
	require.ErrorIs(t, err, ErrProductNotOrdered)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValidateAndCheckSettleable(t *testing.T) {
	clerk := actor.Actor{ID: "u1"}
	negative := decimal.NewFromInt(-1)

	assert.ErrorIs(t, SettleRequest{Actor: clerk}.Validate(), ErrInvalidOrderNumber)
	assert.ErrorIs(t, SettleRequest{OrderNumber: "SO-1"}.Validate(), ErrInvalidActor)
	assert.ErrorIs(t, SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: negative},
	}}.Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: decimal.NewFromInt(1), UnitPrice: &negative},
	}}.Validate(), ErrInvalidUnitPrice)
	assert.ErrorIs(t, SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: decimal.NewFromInt(1)},
		{ProductID: 1, ShippedQty: decimal.NewFromInt(2)},
	}}.Validate(), ErrDuplicateProduct)

	fine := decimal.RequireFromString("1.00001")
	err := SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: fine},
	}}.Validate()
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, errs.IsInvalidInput(err))
	assert.ErrorIs(t, SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: decimal.NewFromInt(1), UnitPrice: &fine},
	}}.Validate(), ErrInvalidUnitPrice)
	fourPlaces := decimal.RequireFromString("1.2345000")
	assert.NoError(t, SettleRequest{OrderNumber: "SO-1", Actor: clerk, Lines: []ShippedLine{
		{ProductID: 1, ShippedQty: fourPlaces, UnitPrice: &fourPlaces},
	}}.Validate())

	order := sampleOrder()
	assert.NoError(t, CheckSettleable(order))
	order.Status = orderdomain.StatusCompleted
	assert.ErrorIs(t, CheckSettleable(order), ErrAlreadySettled)
	order.Status = orderdomain.StatusPlaced
	assert.ErrorIs(t, CheckSettleable(order), ErrOrderNotConfirmed)
}

func TestProductIDsAreDistinct(t *testing.T) {
	ids := ProductIDs(sampleOrder(), []ShippedLine{{ProductID: 2}, {ProductID: 3}})
	assert.Equal(t, []snowflake.ID{2, 3, 1}, ids)
}
