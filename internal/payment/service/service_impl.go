package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/errs"
	"github.com/smallbiznis/tradebook/internal/events"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"github.com/smallbiznis/tradebook/internal/payment/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	"github.com/smallbiznis/tradebook/pkg/db"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const operation = "payment.record"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Balances balancedomain.Service
	Sequence seqdomain.Service
	Outbox   *events.Outbox                 `optional:"true"`
	Policy   *config.SettlementPolicyHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics            `optional:"true"`
	TxMetric *obsmetrics.TxMetrics          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	balances balancedomain.Service
	sequence seqdomain.Service
	outbox   *events.Outbox
	policy   *config.SettlementPolicyHolder
	metrics  *obsmetrics.Metrics
	txMetric *obsmetrics.TxMetrics
}

func NewService(p Params) domain.Processor {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		balances: p.Balances,
		sequence: p.Sequence,
		outbox:   p.Outbox,
		policy:   p.Policy,
		metrics:  p.Metrics,
		txMetric: p.TxMetric,
	}
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordRequest) (domain.RecordResult, error) {
	if err := req.Validate(); err != nil {
		return domain.RecordResult{}, err
	}
	req.OccurredAt = req.OccurredAt.UTC()
	req.Note = strings.TrimSpace(req.Note)
	policy := s.policy.Get().Payment

	var result domain.RecordResult
	attempts, err := db.RetryOnConflict(ctx, policy.MaxAttempts, func(ctx context.Context, _ int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.recordTx(ctx, tx, req, policy.AllowNegativeBalance)
			return err
		})
	})
	s.txMetric.ObserveAttempts(operation, attempts)
	if err != nil {
		if errs.IsConflict(err) {
			s.metrics.RecordConflict(ctx, operation)
			s.txMetric.IncConflict(operation, err)
			s.txMetric.IncOutcome(operation, obsmetrics.OutcomeExhausted)
		} else {
			s.txMetric.IncOutcome(operation, obsmetrics.OutcomeRejected)
		}
		return domain.RecordResult{}, err
	}

	s.txMetric.IncOutcome(operation, obsmetrics.OutcomeCommitted)
	s.metrics.RecordPayment(ctx, string(req.Direction), string(req.Method))
	s.log.Info("payment recorded",
		zap.String("document_number", result.DocumentNumber),
		zap.String("direction", string(req.Direction)),
		zap.String("counterparty_id", req.CounterpartyID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("current_balance", result.Balance.CurrentBalance.String()),
		zap.String("actor_id", req.Actor.ID),
	)
	return result, nil
}

func (s *Service) recordTx(ctx context.Context, tx *gorm.DB, req domain.RecordRequest, allowNegative bool) (domain.RecordResult, error) {
	current, err := s.balances.FindTx(ctx, tx, req.CounterpartyID, req.Direction.BalanceSide())
	if err != nil {
		return domain.RecordResult{}, err
	}
	if current == nil {
		return domain.RecordResult{}, fmt.Errorf("%w: counterparty %s", domain.ErrNoBalanceHistory, req.CounterpartyID)
	}

	now := s.clock.Now()
	next := balancedomain.ApplyCollection(*current, req.Amount, now)
	if !allowNegative && next.CurrentBalance.IsNegative() {
		return domain.RecordResult{}, fmt.Errorf("%w: outstanding %s, paying %s",
			domain.ErrNegativeBalance, current.CurrentBalance, req.Amount)
	}

	number, err := s.sequence.NextTx(ctx, tx, req.Direction.SequenceDomain())
	if err != nil {
		return domain.RecordResult{}, err
	}

	payment := domain.Payment{
		ID:             s.genID.Generate(),
		DocumentNumber: number,
		Direction:      req.Direction,
		CounterpartyID: req.CounterpartyID,
		Amount:         req.Amount,
		Method:         req.Method,
		Note:           req.Note,
		OccurredAt:     req.OccurredAt,
		ProcessedBy:    req.Actor.Label(),
		CreatedAt:      now,
	}
	if err := s.repo.InsertTx(ctx, tx, &payment); err != nil {
		return domain.RecordResult{}, err
	}

	balance, err := s.balances.SaveTx(ctx, tx, current, next)
	if err != nil {
		return domain.RecordResult{}, err
	}

	if err := s.outbox.PublishTx(ctx, tx, events.Event{
		Type:        events.EventPaymentRecorded,
		AggregateID: payment.ID,
		DedupeKey:   "payment:" + payment.ID.String(),
		Payload: map[string]any{
			"payment_id":      payment.ID.String(),
			"document_number": number,
			"direction":       string(payment.Direction),
			"counterparty_id": payment.CounterpartyID.String(),
			"amount":          payment.Amount.String(),
		},
	}); err != nil {
		return domain.RecordResult{}, err
	}

	return domain.RecordResult{
		PaymentID:      payment.ID,
		DocumentNumber: number,
		Balance:        balance,
	}, nil
}

func (s *Service) Get(ctx context.Context, documentNumber string) (domain.Payment, error) {
	payment, err := s.repo.FindByNumber(ctx, s.db, strings.TrimSpace(documentNumber))
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return *payment, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Direction != "" && !req.Direction.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidDirection
	}
	if req.Method != "" && !req.Method.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidMethod
	}
	items, err := s.repo.List(ctx, s.db, req.ListFilter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, req.Pagination, func(p domain.Payment) pagination.Cursor {
		return pagination.Cursor{ID: int64(p.ID), At: p.OccurredAt}
	})
	return domain.ListResponse{PageInfo: pageInfo, Payments: items}, nil
}
