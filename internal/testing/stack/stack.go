// Package stack assembles every service over a sqlite database for
// cross-module tests, mirroring what the fx graph wires in production.
package stack

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	balancerepo "github.com/smallbiznis/tradebook/internal/balance/repository"
	balanceservice "github.com/smallbiznis/tradebook/internal/balance/service"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/tradebook/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/tradebook/internal/catalog/service"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	counterpartyrepo "github.com/smallbiznis/tradebook/internal/counterparty/repository"
	counterpartyservice "github.com/smallbiznis/tradebook/internal/counterparty/service"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	cutoffrepo "github.com/smallbiznis/tradebook/internal/cutoff/repository"
	cutoffservice "github.com/smallbiznis/tradebook/internal/cutoff/service"
	"github.com/smallbiznis/tradebook/internal/events"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/tradebook/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/tradebook/internal/ledger/service"
	"github.com/smallbiznis/tradebook/internal/lock"
	"github.com/smallbiznis/tradebook/internal/migration"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	orderrepo "github.com/smallbiznis/tradebook/internal/order/repository"
	orderservice "github.com/smallbiznis/tradebook/internal/order/service"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/tradebook/internal/payment/repository"
	paymentservice "github.com/smallbiznis/tradebook/internal/payment/service"
	reportdomain "github.com/smallbiznis/tradebook/internal/report/domain"
	reportservice "github.com/smallbiznis/tradebook/internal/report/service"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	seqrepo "github.com/smallbiznis/tradebook/internal/sequence/repository"
	seqservice "github.com/smallbiznis/tradebook/internal/sequence/service"
	settlementdomain "github.com/smallbiznis/tradebook/internal/settlement/domain"
	settlementservice "github.com/smallbiznis/tradebook/internal/settlement/service"
	"github.com/smallbiznis/tradebook/internal/testing/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Start is the fake clock's initial instant, mid-morning in Jakarta.
var Start = time.Date(2026, 1, 18, 2, 0, 0, 0, time.UTC)

// Clerk is the actor used by the helpers.
var Clerk = actor.Actor{ID: "usr_clerk", Name: "clerk", Role: "clerk"}

type Stack struct {
	DB     *gorm.DB
	Clock  *clock.FakeClock
	Node   *snowflake.Node
	Policy *config.SettlementPolicyHolder
	Config config.Config

	Sequence       seqdomain.Service
	Cutoff         cutoffdomain.Service
	Counterparties counterpartydomain.Service
	Products       catalogdomain.Service
	Balances       balancedomain.Service
	Orders         orderdomain.Service
	Ledgers        ledgerdomain.Service
	Settlement     settlementdomain.Coordinator
	Payments       paymentdomain.Processor
	Reports        reportdomain.Engine
}

type settings struct {
	policy     config.SettlementPolicy
	settleLock *lock.SettlementLock
	lookup     func(catalogdomain.Lookup) catalogdomain.Lookup
}

type Option func(*settings)

// WithNegativeBalances sets whether payments may overshoot the balance.
func WithNegativeBalances(allow bool) Option {
	return func(s *settings) { s.policy.Payment.AllowNegativeBalance = allow }
}

// WithSettlementLock guards settlement with l instead of database
// concurrency control alone.
func WithSettlementLock(l *lock.SettlementLock) Option {
	return func(s *settings) { s.settleLock = l }
}

// WithSettlementCatalog wraps the product lookup the settlement
// coordinator sees.
func WithSettlementCatalog(wrap func(catalogdomain.Lookup) catalogdomain.Lookup) Option {
	return func(s *settings) { s.lookup = wrap }
}

func New(t testing.TB, opts ...Option) *Stack {
	t.Helper()

	set := settings{policy: config.DefaultSettlementPolicy()}
	for _, opt := range opts {
		opt(&set)
	}
	policy := set.policy

	conn := dbtest.Open(t, migration.Models()...)
	log := zap.NewNop()
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(Start)
	holder := config.NewStaticPolicyHolder(policy)
	cfg := config.Config{DBType: "sqlite", Timezone: "Asia/Jakarta"}
	metrics := obsmetrics.NewNoop()

	sequence := seqservice.New(seqservice.Params{
		DB: conn, Log: log, Clock: clk, Config: cfg, Repo: seqrepo.Provide(), Policy: holder, Metrics: metrics,
	})
	cutoff := cutoffservice.New(cutoffservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: cutoffrepo.Provide(), Policy: holder, Metrics: metrics,
	})
	counterparties := counterpartyservice.New(counterpartyservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: counterpartyrepo.Provide(),
	})
	products := catalogservice.New(catalogservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: catalogrepo.Provide(),
	})
	balances := balanceservice.New(balanceservice.Params{
		DB: conn, Log: log, GenID: node, Repo: balancerepo.Provide(),
	})
	orders := orderservice.New(orderservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: orderrepo.Provide(),
		Directory: counterparties, Catalog: products, Cutoff: cutoff, Sequence: sequence,
		Policy: holder, Metrics: metrics,
	})
	ledgers := ledgerservice.NewService(ledgerservice.Params{
		DB: conn, Log: log, Repo: ledgerrepo.Provide(),
	})
	outbox := events.NewOutbox(node, clk)
	var lookup catalogdomain.Lookup = products
	if set.lookup != nil {
		lookup = set.lookup(products)
	}
	settlement := settlementservice.New(settlementservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
		Orders: orders, Catalog: lookup, Balances: balances, Ledgers: ledgers, Sequence: sequence,
		Outbox: outbox, Lock: set.settleLock, Policy: holder, Metrics: metrics,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide(),
		Balances: balances, Sequence: sequence, Outbox: outbox, Policy: holder, Metrics: metrics,
	})
	reports := reportservice.New(reportservice.Params{
		DB: conn, Log: log, Clock: clk, Config: cfg, Catalog: products, Balances: balances, Directory: counterparties, Policy: holder,
	})

	return &Stack{
		DB:             conn,
		Clock:          clk,
		Node:           node,
		Policy:         holder,
		Config:         cfg,
		Sequence:       sequence,
		Cutoff:         cutoff,
		Counterparties: counterparties,
		Products:       products,
		Balances:       balances,
		Orders:         orders,
		Ledgers:        ledgers,
		Settlement:     settlement,
		Payments:       payments,
		Reports:        reports,
	}
}

func (s *Stack) Customer(t testing.TB, code string) counterpartydomain.Counterparty {
	t.Helper()
	cp, err := s.Counterparties.Create(context.Background(), counterpartydomain.CreateRequest{
		Code: code, Name: "Customer " + code, Kind: counterpartydomain.KindCustomer,
	})
	require.NoError(t, err)
	return cp
}

func (s *Stack) Supplier(t testing.TB, code string) counterpartydomain.Counterparty {
	t.Helper()
	cp, err := s.Counterparties.Create(context.Background(), counterpartydomain.CreateRequest{
		Code: code, Name: "Supplier " + code, Kind: counterpartydomain.KindSupplier,
	})
	require.NoError(t, err)
	return cp
}

func (s *Stack) Product(t testing.TB, code, category string, price int64) catalogdomain.Product {
	t.Helper()
	p, err := s.Products.Create(context.Background(), catalogdomain.CreateRequest{
		Code: code, Name: code, Category: category, Unit: "pcs", UnitPrice: decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return p
}

// ConfirmedOrder places and confirms a single-line order at the product's
// catalog price.
func (s *Stack) ConfirmedOrder(t testing.TB, side orderdomain.Side, counterparty snowflake.ID, product snowflake.ID, qty int64) orderdomain.Order {
	t.Helper()
	ctx := context.Background()
	placed, err := s.Orders.Place(ctx, orderdomain.PlaceRequest{
		Side:           side,
		CounterpartyID: counterparty,
		Lines:          []orderdomain.PlaceLine{{ProductID: product, Quantity: decimal.NewFromInt(qty)}},
		Actor:          Clerk,
	})
	require.NoError(t, err)
	confirmed, err := s.Orders.Confirm(ctx, placed.OrderNumber, Clerk)
	require.NoError(t, err)
	return confirmed
}

// Settle ships the order as ordered.
func (s *Stack) Settle(t testing.TB, orderNumber string) settlementdomain.SettleResult {
	t.Helper()
	res, err := s.Settlement.Settle(context.Background(), settlementdomain.SettleRequest{
		OrderNumber: orderNumber,
		Actor:       Clerk,
	})
	require.NoError(t, err)
	return res
}
