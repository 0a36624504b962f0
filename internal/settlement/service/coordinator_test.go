package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/events"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	"github.com/smallbiznis/tradebook/internal/lock"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/internal/settlement/domain"
	"github.com/smallbiznis/tradebook/internal/testing/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSettleWritesLedgerOrderAndBalanceTogether(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 5)

	res := s.Settle(t, order.OrderNumber)
	assert.Equal(t, "SL-260118-001", res.LedgerNumber)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(60000)))
	assert.True(t, res.Balance.CurrentBalance.Equal(decimal.NewFromInt(60000)))
	assert.EqualValues(t, 1, res.Balance.Version)

	ledger, err := s.Ledgers.GetByNumber(ctx, res.LedgerNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, ledger.OrderID)
	assert.Equal(t, orderdomain.PhaseRegular, ledger.Phase)
	assert.Equal(t, "clerk", ledger.SettledBy)
	require.Len(t, ledger.Lines, 1)
	assert.Equal(t, "staples", ledger.Lines[0].Category)

	completed, err := s.Orders.Get(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.LedgerNumber)
	assert.Equal(t, res.LedgerNumber, *completed.LedgerNumber)

	var outbox []events.Record
	require.NoError(t, s.DB.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Equal(t, events.EventSettlementCompleted, outbox[0].EventType)
	assert.Equal(t, "settlement:"+order.ID.String(), outbox[0].DedupeKey)
}

func TestSettleTwiceIsRejectedWithoutSideEffects(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 5)
	s.Settle(t, order.OrderNumber)

	_, err := s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: order.OrderNumber, Actor: stack.Clerk})
	require.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.True(t, errs.IsConflict(err))

	var ledgers int64
	require.NoError(t, s.DB.Model(&ledgerdomain.Ledger{}).Count(&ledgers).Error)
	assert.EqualValues(t, 1, ledgers)

	balance, err := s.Balances.Get(ctx, customer.ID, balancedomain.SideReceivable)
	require.NoError(t, err)
	assert.True(t, balance.TotalSettled.Equal(decimal.NewFromInt(60000)))
	assert.EqualValues(t, 1, balance.Version)
}

func TestConcurrentSettlesProduceOneLedger(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 2)

	const workers = 6
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: order.OrderNumber, Actor: stack.Clerk})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errs.IsConflict(err), "unexpected %v", err)
	}
	assert.Equal(t, 1, succeeded)

	balance, err := s.Balances.Get(ctx, customer.ID, balancedomain.SideReceivable)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(24000)))
}

func TestSettleRequiresConfirmedOrder(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	placed, err := s.Orders.Place(ctx, orderdomain.PlaceRequest{
		Side:           orderdomain.SideSales,
		CounterpartyID: customer.ID,
		Lines:          []orderdomain.PlaceLine{{ProductID: rice.ID, Quantity: decimal.NewFromInt(1)}},
		Actor:          stack.Clerk,
	})
	require.NoError(t, err)

	_, err = s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: placed.OrderNumber, Actor: stack.Clerk})
	require.ErrorIs(t, err, domain.ErrOrderNotConfirmed)
	assert.True(t, errs.IsInvalidState(err))

	_, err = s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: "SO-260118-404", Actor: stack.Clerk})
	require.ErrorIs(t, err, orderdomain.ErrOrderNotFound)

	counters, err := s.Sequence.List(ctx)
	require.NoError(t, err)
	for _, c := range counters {
		assert.NotEqual(t, "sales_ledger", string(c.Domain), "failed settle must not consume a ledger number")
	}
}

func TestSettleFallsBackToUncategorized(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	supplier := s.Supplier(t, "s1")
	price := decimal.NewFromInt(4000)
	placed, err := s.Orders.Place(ctx, orderdomain.PlaceRequest{
		Side:           orderdomain.SidePurchase,
		CounterpartyID: supplier.ID,
		Lines:          []orderdomain.PlaceLine{{ProductID: 987654321, Quantity: decimal.NewFromInt(3), UnitPrice: &price}},
		Actor:          stack.Clerk,
	})
	require.NoError(t, err)
	_, err = s.Orders.Confirm(ctx, placed.OrderNumber, stack.Clerk)
	require.NoError(t, err)

	res := s.Settle(t, placed.OrderNumber)
	assert.Equal(t, "PL-260118-001", res.LedgerNumber)
	assert.Equal(t, balancedomain.SidePayable, res.Balance.Side)

	ledger, err := s.Ledgers.GetByNumber(ctx, res.LedgerNumber)
	require.NoError(t, err)
	require.Len(t, ledger.Lines, 1)
	assert.Equal(t, "uncategorized", ledger.Lines[0].Category)
	assert.True(t, ledger.TotalAmount.Equal(decimal.NewFromInt(12000)))
}

func TestSettlePartialShipment(t *testing.T) {
	s := stack.New(t)
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 5)

	res, err := s.Settlement.Settle(ctx, domain.SettleRequest{
		OrderNumber: order.OrderNumber,
		Lines:       []domain.ShippedLine{{ProductID: rice.ID, ShippedQty: decimal.NewFromInt(4)}},
		Actor:       stack.Clerk,
	})
	require.NoError(t, err)
	assert.True(t, res.TotalAmount.Equal(decimal.NewFromInt(48000)))

	_, err = s.Settlement.Settle(ctx, domain.SettleRequest{
		OrderNumber: order.OrderNumber,
		Lines:       []domain.ShippedLine{{ProductID: 1, ShippedQty: decimal.NewFromInt(1)}},
		Actor:       stack.Clerk,
	})
	require.Error(t, err)
}

func TestSettleRejectsWhileAnotherProcessHoldsTheOrder(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewLocker(client)

	s := stack.New(t, stack.WithSettlementLock(lock.NewSettlementLock(locker)))
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 5)

	token, ok, err := locker.TryLock(ctx, "settle:order:"+order.OrderNumber, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: order.OrderNumber, Actor: stack.Clerk})
	require.ErrorIs(t, err, domain.ErrSettleInProgress)
	assert.True(t, errs.IsConflict(err))

	var ledgers, outbox int64
	require.NoError(t, s.DB.Model(&ledgerdomain.Ledger{}).Count(&ledgers).Error)
	require.NoError(t, s.DB.Model(&events.Record{}).Count(&outbox).Error)
	assert.Zero(t, ledgers)
	assert.Zero(t, outbox)

	current, err := s.Orders.Get(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusConfirmed, current.Status)

	_, err = s.Balances.Get(ctx, customer.ID, balancedomain.SideReceivable)
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, locker.Release(ctx, "settle:order:"+order.OrderNumber, token))
	res := s.Settle(t, order.OrderNumber)
	assert.Equal(t, "SL-260118-001", res.LedgerNumber)
	assert.False(t, srv.Exists(lock.Namespace+"settle:order:"+order.OrderNumber))
}

type brokenCatalog struct{ err error }

func (b brokenCatalog) FindByIDs(context.Context, *gorm.DB, []snowflake.ID) (map[snowflake.ID]catalogdomain.Product, error) {
	return nil, b.err
}

func TestSettleAbortsWhenCatalogLookupFails(t *testing.T) {
	lookupErr := errors.New("catalog unavailable")
	s := stack.New(t, stack.WithSettlementCatalog(func(catalogdomain.Lookup) catalogdomain.Lookup {
		return brokenCatalog{err: lookupErr}
	}))
	ctx := context.Background()
	customer := s.Customer(t, "c1")
	rice := s.Product(t, "rice", "staples", 12000)
	order := s.ConfirmedOrder(t, orderdomain.SideSales, customer.ID, rice.ID, 5)

	_, err := s.Settlement.Settle(ctx, domain.SettleRequest{OrderNumber: order.OrderNumber, Actor: stack.Clerk})
	require.ErrorIs(t, err, lookupErr)

	var ledgers, outbox int64
	require.NoError(t, s.DB.Model(&ledgerdomain.Ledger{}).Count(&ledgers).Error)
	require.NoError(t, s.DB.Model(&events.Record{}).Count(&outbox).Error)
	assert.Zero(t, ledgers)
	assert.Zero(t, outbox)

	current, err := s.Orders.Get(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusConfirmed, current.Status)
}
