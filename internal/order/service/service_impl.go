package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebook/internal/actor"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"github.com/smallbiznis/tradebook/internal/order/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Directory counterpartydomain.Directory
	Catalog   catalogdomain.Lookup
	Cutoff    cutoffdomain.Service
	Sequence  seqdomain.Service
	Policy    *config.SettlementPolicyHolder `optional:"true"`
	Metrics   *obsmetrics.Metrics            `optional:"true"`
	TxMetric  *obsmetrics.TxMetrics          `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	directory counterpartydomain.Directory
	catalog   catalogdomain.Lookup
	cutoff    cutoffdomain.Service
	sequence  seqdomain.Service
	policy    *config.SettlementPolicyHolder
	metrics   *obsmetrics.Metrics
	txMetric  *obsmetrics.TxMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		directory: p.Directory,
		catalog:   p.Catalog,
		cutoff:    p.Cutoff,
		sequence:  p.Sequence,
		policy:    p.Policy,
		metrics:   p.Metrics,
		txMetric:  p.TxMetric,
	}
}

func (s *Service) Place(ctx context.Context, req domain.PlaceRequest) (domain.Order, error) {
	if err := validatePlace(req); err != nil {
		return domain.Order{}, err
	}

	var placed domain.Order
	attempts, err := db.RetryOnConflict(ctx, s.policy.Get().Order.MaxAttempts, func(ctx context.Context, _ int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			placed, err = s.placeTx(ctx, tx, req)
			return err
		})
	})
	s.txMetric.ObserveAttempts("order.place", attempts)
	if err != nil {
		s.recordFailure(ctx, "order.place", err)
		return domain.Order{}, err
	}
	s.txMetric.IncOutcome("order.place", obsmetrics.OutcomeCommitted)
	s.metrics.RecordOrderPlaced(ctx, string(placed.Side), string(placed.Phase))

	s.log.Info("order placed",
		zap.String("order_number", placed.OrderNumber),
		zap.String("side", string(placed.Side)),
		zap.String("phase", string(placed.Phase)),
		zap.String("counterparty_id", placed.CounterpartyID.String()),
		zap.String("total_amount", placed.TotalAmount.String()),
	)
	return placed, nil
}

// placeTx performs every read before the first write: counterparty,
// catalog prices, then the cutoff window.
func (s *Service) placeTx(ctx context.Context, tx *gorm.DB, req domain.PlaceRequest) (domain.Order, error) {
	counterparty, err := s.directory.Lookup(ctx, tx, req.CounterpartyID)
	if err != nil {
		return domain.Order{}, err
	}
	if !counterparty.Active {
		return domain.Order{}, counterpartydomain.ErrInactive
	}
	if !kindMatches(req.Side, counterparty.Kind) {
		return domain.Order{}, domain.ErrCounterpartyKind
	}

	productIDs := make([]snowflake.ID, 0, len(req.Lines))
	for _, line := range req.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	products, err := s.catalog.FindByIDs(ctx, tx, productIDs)
	if err != nil {
		return domain.Order{}, err
	}

	window, err := s.cutoff.CurrentTx(ctx, tx)
	if err != nil {
		return domain.Order{}, err
	}

	orderID := s.genID.Generate()
	lines := make([]domain.Line, 0, len(req.Lines))
	totalQty := decimal.Zero
	totalAmount := decimal.Zero
	for _, item := range req.Lines {
		var price decimal.Decimal
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		} else {
			product, ok := products[item.ProductID]
			if !ok {
				return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.ProductID)
			}
			price = product.UnitPrice
		}
		lineTotal := item.Quantity.Mul(price)
		lines = append(lines, domain.Line{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
			LineTotal: lineTotal,
		})
		totalQty = totalQty.Add(item.Quantity)
		totalAmount = totalAmount.Add(lineTotal)
	}

	number, err := s.sequence.NextTx(ctx, tx, req.Side.OrderDomain())
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:             orderID,
		OrderNumber:    number,
		Side:           req.Side,
		Status:         domain.StatusPlaced,
		Phase:          domain.PhaseFor(window),
		CounterpartyID: req.CounterpartyID,
		TotalQuantity:  totalQty,
		TotalAmount:    totalAmount,
		Note:           strings.TrimSpace(req.Note),
		PlacedBy:       req.Actor.Label(),
		PlacedAt:       now,
		Version:        1,
		UpdatedAt:      now,
		Lines:          lines,
	}
	if err := s.repo.Insert(ctx, tx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Service) Confirm(ctx context.Context, number string, by actor.Actor) (domain.Order, error) {
	return s.transition(ctx, number, by, domain.StatusConfirmed, "")
}

func (s *Service) Pend(ctx context.Context, number string, by actor.Actor, reason string) (domain.Order, error) {
	return s.transition(ctx, number, by, domain.StatusPended, reason)
}

func (s *Service) Resume(ctx context.Context, number string, by actor.Actor) (domain.Order, error) {
	return s.transition(ctx, number, by, domain.StatusPlaced, "")
}

func (s *Service) Reject(ctx context.Context, number string, by actor.Actor, reason string) (domain.Order, error) {
	return s.transition(ctx, number, by, domain.StatusRejected, reason)
}

func (s *Service) Cancel(ctx context.Context, number string, by actor.Actor, reason string) (domain.Order, error) {
	return s.transition(ctx, number, by, domain.StatusCancelled, reason)
}

func (s *Service) Get(ctx context.Context, number string) (domain.Order, error) {
	return s.GetTx(ctx, s.db, number)
}

func (s *Service) GetTx(ctx context.Context, tx *gorm.DB, number string) (domain.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := s.repo.FindByNumber(ctx, tx, number)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Side != "" && !req.Side.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidSide
	}
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.Phase != "" && !req.Phase.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidPhase
	}

	items, err := s.repo.List(ctx, s.db, req.ListFilter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, req.Pagination, func(o domain.Order) pagination.Cursor {
		return pagination.Cursor{ID: int64(o.ID), At: o.PlacedAt}
	})
	return domain.ListResponse{PageInfo: pageInfo, Orders: items}, nil
}

func (s *Service) CompleteTx(ctx context.Context, tx *gorm.DB, order domain.Order, ledgerID snowflake.ID, ledgerNumber string, at time.Time) error {
	if !domain.CanTransition(order.Status, domain.StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, domain.StatusCompleted)
	}
	updated, err := s.repo.ApplyStatus(ctx, tx, domain.StatusChange{
		OrderID:         order.ID,
		From:            order.Status,
		To:              domain.StatusCompleted,
		ExpectedVersion: order.Version,
		At:              at,
		LedgerID:        &ledgerID,
		LedgerNumber:    &ledgerNumber,
	})
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%w: %s changed concurrently", domain.ErrOrderConflict, order.OrderNumber)
	}
	return nil
}

// transition re-reads the order on every attempt, so a lost race surfaces
// as ErrInvalidTransition once the winner's status is visible.
func (s *Service) transition(ctx context.Context, number string, by actor.Actor, to domain.Status, reason string) (domain.Order, error) {
	if !by.Valid() {
		return domain.Order{}, domain.ErrInvalidActor
	}

	var result domain.Order
	operation := "order." + string(to)
	attempts, err := db.RetryOnConflict(ctx, s.policy.Get().Order.MaxAttempts, func(ctx context.Context, _ int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			order, err := s.GetTx(ctx, tx, number)
			if err != nil {
				return err
			}
			if !domain.CanTransition(order.Status, to) {
				return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, to)
			}

			now := s.clock.Now()
			updated, err := s.repo.ApplyStatus(ctx, tx, domain.StatusChange{
				OrderID:         order.ID,
				From:            order.Status,
				To:              to,
				ExpectedVersion: order.Version,
				At:              now,
				Reason:          strings.TrimSpace(reason),
			})
			if err != nil {
				return err
			}
			if !updated {
				return fmt.Errorf("%w: %s changed concurrently", domain.ErrOrderConflict, order.OrderNumber)
			}

			order.Status = to
			order.Version++
			order.UpdatedAt = now
			switch to {
			case domain.StatusConfirmed:
				order.ConfirmedAt = &now
			case domain.StatusPended, domain.StatusRejected, domain.StatusCancelled:
				order.Reason = strings.TrimSpace(reason)
			}
			result = order
			return nil
		})
	})
	s.txMetric.ObserveAttempts(operation, attempts)
	if err != nil {
		s.recordFailure(ctx, operation, err)
		return domain.Order{}, err
	}
	s.txMetric.IncOutcome(operation, obsmetrics.OutcomeCommitted)

	s.log.Info("order status changed",
		zap.String("order_number", result.OrderNumber),
		zap.String("status", string(result.Status)),
		zap.String("actor_id", by.ID),
	)
	return result, nil
}

func (s *Service) recordFailure(ctx context.Context, operation string, err error) {
	if errs.IsConflict(err) {
		s.metrics.RecordConflict(ctx, operation)
		s.txMetric.IncConflict(operation, err)
		s.txMetric.IncOutcome(operation, obsmetrics.OutcomeExhausted)
		return
	}
	s.txMetric.IncOutcome(operation, obsmetrics.OutcomeRejected)
}

func validatePlace(req domain.PlaceRequest) error {
	if !req.Side.Valid() {
		return domain.ErrInvalidSide
	}
	if req.CounterpartyID == 0 {
		return domain.ErrInvalidCounterparty
	}
	if !req.Actor.Valid() {
		return domain.ErrInvalidActor
	}
	if len(req.Lines) == 0 {
		return domain.ErrEmptyOrder
	}

	seen := make(map[snowflake.ID]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == 0 {
			return domain.ErrInvalidProduct
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("%w: %s listed twice", domain.ErrInvalidProduct, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
		if !line.Quantity.IsPositive() || !db.FitsNumeric(line.Quantity) {
			return domain.ErrInvalidQuantity
		}
		if line.UnitPrice != nil && (line.UnitPrice.IsNegative() || !db.FitsNumeric(*line.UnitPrice)) {
			return domain.ErrInvalidUnitPrice
		}
	}
	return nil
}

func kindMatches(side domain.Side, kind counterpartydomain.Kind) bool {
	switch side {
	case domain.SideSales:
		return kind == counterpartydomain.KindCustomer
	case domain.SidePurchase:
		return kind == counterpartydomain.KindSupplier
	default:
		return false
	}
}
