package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
)

// ShippedLine is the inspected quantity for one ordered product.
type ShippedLine struct {
	ProductID  snowflake.ID    `json:"product_id"`
	ShippedQty decimal.Decimal `json:"shipped_qty"`
	// UnitPrice falls back to the ordered price when nil.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SettleRequest struct {
	OrderNumber string        `json:"order_number"`
	Lines       []ShippedLine `json:"lines"`
	Actor       actor.Actor   `json:"-"`
}

type SettleResult struct {
	LedgerID     snowflake.ID                 `json:"ledger_id"`
	LedgerNumber string                       `json:"ledger_number"`
	OrderNumber  string                       `json:"order_number"`
	TotalAmount  decimal.Decimal              `json:"total_amount"`
	Balance      balancedomain.AccountBalance `json:"balance"`
}

type Coordinator interface {
	Settle(ctx context.Context, req SettleRequest) (SettleResult, error)
}

var (
	ErrInvalidOrderNumber = errs.New(errs.ErrInvalidInput, "invalid_order_number")
	ErrInvalidActor       = errs.New(errs.ErrInvalidInput, "invalid_actor")
	ErrInvalidQuantity    = errs.New(errs.ErrInvalidInput, "invalid_shipped_quantity")
	ErrInvalidUnitPrice   = errs.New(errs.ErrInvalidInput, "invalid_unit_price")
	ErrDuplicateProduct   = errs.New(errs.ErrInvalidInput, "duplicate_shipped_product")
	ErrProductNotOrdered  = errs.New(errs.ErrInvalidInput, "product_not_on_order")
	ErrOrderNotConfirmed  = errs.New(errs.ErrInvalidState, "order_not_confirmed")
	ErrAlreadySettled     = errs.New(errs.ErrConflict, "order_already_settled")
	ErrSettleInProgress   = errs.New(errs.ErrConflict, "settlement_in_progress")
)

// Validate checks everything that needs no I/O.
func (r SettleRequest) Validate() error {
	if strings.TrimSpace(r.OrderNumber) == "" {
		return ErrInvalidOrderNumber
	}
	if !r.Actor.Valid() {
		return ErrInvalidActor
	}
	seen := make(map[snowflake.ID]struct{}, len(r.Lines))
	for _, line := range r.Lines {
		if line.ShippedQty.IsNegative() || !db.FitsNumeric(line.ShippedQty) {
			return fmt.Errorf("%w: %s", ErrInvalidQuantity, line.ProductID)
		}
		if line.UnitPrice != nil && (line.UnitPrice.IsNegative() || !db.FitsNumeric(*line.UnitPrice)) {
			return fmt.Errorf("%w: %s", ErrInvalidUnitPrice, line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

// CheckSettleable maps the order status onto the settlement preconditions.
func CheckSettleable(order orderdomain.Order) error {
	switch order.Status {
	case orderdomain.StatusConfirmed:
		return nil
	case orderdomain.StatusCompleted:
		return fmt.Errorf("%w: %s", ErrAlreadySettled, order.OrderNumber)
	default:
		return fmt.Errorf("%w: %s is %s", ErrOrderNotConfirmed, order.OrderNumber, order.Status)
	}
}

// ProductIDs lists the distinct products a settlement will touch.
func ProductIDs(order orderdomain.Order, shipped []ShippedLine) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(order.Lines))
	seen := make(map[snowflake.ID]struct{}, len(order.Lines))
	add := func(id snowflake.ID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, line := range shipped {
		add(line.ProductID)
	}
	for _, line := range order.Lines {
		add(line.ProductID)
	}
	return ids
}

// BuildLines prices the shipped quantities. With no shipped lines every
// ordered line ships as ordered. Products missing from the catalog get the
// uncategorized label instead of failing the settlement.
func BuildLines(
	order orderdomain.Order,
	shipped []ShippedLine,
	products map[snowflake.ID]catalogdomain.Product,
	uncategorized string,
) ([]ledgerdomain.Line, decimal.Decimal, decimal.Decimal, error) {
	ordered := make(map[snowflake.ID]orderdomain.Line, len(order.Lines))
	for _, line := range order.Lines {
		ordered[line.ProductID] = line
	}

	if len(shipped) == 0 {
		shipped = make([]ShippedLine, 0, len(order.Lines))
		for _, line := range order.Lines {
			price := line.UnitPrice
			shipped = append(shipped, ShippedLine{
				ProductID:  line.ProductID,
				ShippedQty: line.Quantity,
				UnitPrice:  &price,
			})
		}
	}

	lines := make([]ledgerdomain.Line, 0, len(shipped))
	totalQty := decimal.Zero
	totalAmount := decimal.Zero
	for _, item := range shipped {
		orderedLine, ok := ordered[item.ProductID]
		if !ok {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s", ErrProductNotOrdered, item.ProductID)
		}
		price := orderedLine.UnitPrice
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}

		line := ledgerdomain.Line{
			ProductID: item.ProductID,
			Category:  uncategorized,
			Quantity:  item.ShippedQty,
			UnitPrice: price,
			LineTotal: item.ShippedQty.Mul(price),
		}
		if product, found := products[item.ProductID]; found {
			line.ProductCode = product.Code
			if product.Category != "" {
				line.Category = product.Category
			}
			line.SupplierID = product.SupplierID
		}

		lines = append(lines, line)
		totalQty = totalQty.Add(line.Quantity)
		totalAmount = totalAmount.Add(line.LineTotal)
	}
	return lines, totalQty, totalAmount, nil
}
