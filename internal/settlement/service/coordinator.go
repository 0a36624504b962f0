package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/events"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	"github.com/smallbiznis/tradebook/internal/lock"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	"github.com/smallbiznis/tradebook/internal/settlement/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const operation = "settlement.settle"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Orders   orderdomain.Service
	Catalog  catalogdomain.Lookup
	Balances balancedomain.Service
	Ledgers  ledgerdomain.Service
	Sequence seqdomain.Service
	Outbox   *events.Outbox                 `optional:"true"`
	Lock     *lock.SettlementLock           `optional:"true"`
	Policy   *config.SettlementPolicyHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics            `optional:"true"`
	TxMetric *obsmetrics.TxMetrics          `optional:"true"`
}

type Coordinator struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	orders   orderdomain.Service
	catalog  catalogdomain.Lookup
	balances balancedomain.Service
	ledgers  ledgerdomain.Service
	sequence seqdomain.Service
	outbox   *events.Outbox
	lock     *lock.SettlementLock
	policy   *config.SettlementPolicyHolder
	metrics  *obsmetrics.Metrics
	txMetric *obsmetrics.TxMetrics
}

func New(p Params) domain.Coordinator {
	return &Coordinator{
		db:       p.DB,
		log:      p.Log.Named("settlement.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		orders:   p.Orders,
		catalog:  p.Catalog,
		balances: p.Balances,
		ledgers:  p.Ledgers,
		sequence: p.Sequence,
		outbox:   p.Outbox,
		lock:     p.Lock,
		policy:   p.Policy,
		metrics:  p.Metrics,
		txMetric: p.TxMetric,
	}
}

func (c *Coordinator) Settle(ctx context.Context, req domain.SettleRequest) (domain.SettleResult, error) {
	req.OrderNumber = strings.TrimSpace(req.OrderNumber)
	if err := req.Validate(); err != nil {
		return domain.SettleResult{}, err
	}
	policy := c.policy.Get().Settlement

	token, acquired, err := c.lock.TryLockOrder(ctx, req.OrderNumber, policy.LockTTL)
	switch {
	case err != nil:
		c.log.Warn("settle lock unavailable, relying on database",
			zap.String("order_number", req.OrderNumber),
			zap.Error(err),
		)
	case !acquired:
		c.metrics.RecordConflict(ctx, operation)
		return domain.SettleResult{}, domain.ErrSettleInProgress
	default:
		defer func() {
			if releaseErr := c.lock.ReleaseOrder(context.WithoutCancel(ctx), req.OrderNumber, token); releaseErr != nil {
				c.log.Warn("settle lock release failed", zap.String("order_number", req.OrderNumber), zap.Error(releaseErr))
			}
		}()
	}

	var (
		result domain.SettleResult
		phase  orderdomain.Phase
		side   orderdomain.Side
	)
	attempts, err := db.RetryOnConflict(ctx, policy.MaxAttempts, func(ctx context.Context, attempt int) error {
		return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, side, phase, err = c.settleTx(ctx, tx, req, policy.UncategorizedLabel)
			if err != nil && attempt > 1 {
				c.log.Debug("settle retry failed",
					zap.String("order_number", req.OrderNumber),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return err
		})
	})
	c.txMetric.ObserveAttempts(operation, attempts)
	if err != nil {
		if errs.IsConflict(err) {
			c.metrics.RecordConflict(ctx, operation)
			c.txMetric.IncConflict(operation, err)
			if errors.Is(err, domain.ErrAlreadySettled) {
				c.txMetric.IncOutcome(operation, obsmetrics.OutcomeRejected)
			} else {
				c.txMetric.IncOutcome(operation, obsmetrics.OutcomeExhausted)
			}
		} else {
			c.txMetric.IncOutcome(operation, obsmetrics.OutcomeRejected)
		}
		c.log.Warn("settlement failed",
			zap.String("order_number", req.OrderNumber),
			zap.Int("attempts", attempts),
			zap.String("error_code", errs.Code(err)),
			zap.Error(err),
		)
		return domain.SettleResult{}, err
	}

	c.txMetric.IncOutcome(operation, obsmetrics.OutcomeCommitted)
	c.metrics.RecordSettlement(ctx, string(side), string(phase))
	c.log.Info("order settled",
		zap.String("order_number", result.OrderNumber),
		zap.String("ledger_number", result.LedgerNumber),
		zap.String("ledger_id", result.LedgerID.String()),
		zap.String("total_amount", result.TotalAmount.String()),
		zap.String("current_balance", result.Balance.CurrentBalance.String()),
		zap.String("actor_id", req.Actor.ID),
		zap.Int("attempts", attempts),
	)
	return result, nil
}

// settleTx is one attempt. Every read happens before the first write.
func (c *Coordinator) settleTx(
	ctx context.Context,
	tx *gorm.DB,
	req domain.SettleRequest,
	uncategorized string,
) (domain.SettleResult, orderdomain.Side, orderdomain.Phase, error) {
	order, err := c.orders.GetTx(ctx, tx, req.OrderNumber)
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}
	if err := domain.CheckSettleable(order); err != nil {
		return domain.SettleResult{}, "", "", db.Permanent(err)
	}

	products, err := c.catalog.FindByIDs(ctx, tx, domain.ProductIDs(order, req.Lines))
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}
	balanceSide := order.Side.BalanceSide()
	current, err := c.balances.FindTx(ctx, tx, order.CounterpartyID, balanceSide)
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}

	lines, totalQty, totalAmount, err := domain.BuildLines(order, req.Lines, products, uncategorized)
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}
	for _, line := range lines {
		if _, found := products[line.ProductID]; !found {
			c.log.Warn("product metadata missing, settling as uncategorized",
				zap.String("order_number", order.OrderNumber),
				zap.String("product_id", line.ProductID.String()),
			)
		}
	}

	ledgerNumber, err := c.sequence.NextTx(ctx, tx, order.Side.LedgerDomain())
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}

	now := c.clock.Now()
	ledgerID := c.genID.Generate()
	for i := range lines {
		lines[i].ID = c.genID.Generate()
		lines[i].LedgerID = ledgerID
	}
	ledger := ledgerdomain.Ledger{
		ID:             ledgerID,
		LedgerNumber:   ledgerNumber,
		Side:           order.Side,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CounterpartyID: order.CounterpartyID,
		Phase:          order.Phase,
		TotalQuantity:  totalQty,
		TotalAmount:    totalAmount,
		SettledAt:      now,
		SettledBy:      req.Actor.Label(),
		Lines:          lines,
	}
	if err := c.ledgers.RecordTx(ctx, tx, &ledger); err != nil {
		return domain.SettleResult{}, "", "", err
	}
	if err := c.orders.CompleteTx(ctx, tx, order, ledgerID, ledgerNumber, now); err != nil {
		return domain.SettleResult{}, "", "", err
	}

	base := balancedomain.AccountBalance{
		CounterpartyID: order.CounterpartyID,
		Side:           balanceSide,
		CreatedAt:      now,
	}
	if current != nil {
		base = *current
	}
	balance, err := c.balances.SaveTx(ctx, tx, current, balancedomain.ApplySettlement(base, totalAmount, now))
	if err != nil {
		return domain.SettleResult{}, "", "", err
	}

	if err := c.outbox.PublishTx(ctx, tx, events.Event{
		Type:        events.EventSettlementCompleted,
		AggregateID: ledgerID,
		DedupeKey:   "settlement:" + order.ID.String(),
		Payload: map[string]any{
			"ledger_id":       ledgerID.String(),
			"ledger_number":   ledgerNumber,
			"order_number":    order.OrderNumber,
			"counterparty_id": order.CounterpartyID.String(),
			"total_amount":    totalAmount.String(),
		},
	}); err != nil {
		return domain.SettleResult{}, "", "", err
	}

	return domain.SettleResult{
		LedgerID:     ledgerID,
		LedgerNumber: ledgerNumber,
		OrderNumber:  order.OrderNumber,
		TotalAmount:  totalAmount,
		Balance:      balance,
	}, order.Side, order.Phase, nil
}
