package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/errs"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"github.com/smallbiznis/tradebook/internal/sequence/domain"
	"github.com/smallbiznis/tradebook/internal/sequence/format"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Config   config.Config
	Repo     domain.Repository
	Policy   *config.SettlementPolicyHolder `optional:"true"`
	Metrics  *obsmetrics.Metrics            `optional:"true"`
	TxMetric *obsmetrics.TxMetrics          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	loc      *time.Location
	repo     domain.Repository
	policy   *config.SettlementPolicyHolder
	metrics  *obsmetrics.Metrics
	txMetric *obsmetrics.TxMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("sequence.service"),
		clock:    p.Clock,
		loc:      p.Config.Location(),
		repo:     p.Repo,
		policy:   p.Policy,
		metrics:  p.Metrics,
		txMetric: p.TxMetric,
	}
}

func (s *Service) Next(ctx context.Context, d domain.Domain) (string, error) {
	if !d.Valid() {
		return "", domain.ErrUnknownDomain
	}

	var number string
	attempts, err := db.RetryOnConflict(ctx, s.policy.Get().Sequence.MaxAttempts, func(ctx context.Context, attempt int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = s.NextTx(ctx, tx, d)
			return err
		})
	})
	s.txMetric.ObserveAttempts("sequence.next", attempts)
	if err != nil {
		if errs.IsConflict(err) {
			s.txMetric.IncOutcome("sequence.next", obsmetrics.OutcomeExhausted)
			s.log.Warn("sequence retries exhausted",
				zap.String("domain", string(d)),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			return "", fmt.Errorf("%w: %s after %d attempts", domain.ErrSequenceConflict, d, attempts)
		}
		return "", err
	}
	s.txMetric.IncOutcome("sequence.next", obsmetrics.OutcomeCommitted)
	return number, nil
}

func (s *Service) NextTx(ctx context.Context, tx *gorm.DB, d domain.Domain) (string, error) {
	if !d.Valid() {
		return "", domain.ErrUnknownDomain
	}

	now := s.clock.Now()
	dateKey := format.DateKey(now, s.loc)

	current, err := s.repo.Find(ctx, tx, d)
	if err != nil {
		return "", err
	}

	var next int64
	if current == nil {
		next = 1
		created, err := s.repo.Create(ctx, tx, domain.Counter{
			Domain:     d,
			DateKey:    dateKey,
			LastNumber: next,
			Version:    1,
			UpdatedAt:  now,
		})
		if err != nil {
			return "", s.conflictOr(ctx, d, err)
		}
		if !created {
			return "", s.conflict(ctx, d, errors.New("counter created concurrently"))
		}
	} else {
		next = current.NextFor(dateKey)
		advanced, err := s.repo.Advance(ctx, tx, d, dateKey, next, current.Version, now)
		if err != nil {
			return "", s.conflictOr(ctx, d, err)
		}
		if !advanced {
			return "", s.conflict(ctx, d, fmt.Errorf("counter version %d is stale", current.Version))
		}
	}

	number, err := format.FormatNumber(format.DefaultTemplate, s.prefix(d), now, s.loc, next)
	if err != nil {
		return "", err
	}
	s.metrics.RecordSequenceIssued(ctx, string(d))
	return number, nil
}

func (s *Service) Peek(ctx context.Context, d domain.Domain) (domain.Counter, error) {
	if !d.Valid() {
		return domain.Counter{}, domain.ErrUnknownDomain
	}
	current, err := s.repo.Find(ctx, s.db.WithContext(ctx), d)
	if err != nil {
		return domain.Counter{}, err
	}
	if current == nil {
		return domain.Counter{}, domain.ErrCounterNotFound
	}
	return *current, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Counter, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) prefix(d domain.Domain) string {
	if prefix, ok := s.policy.Get().Sequence.Prefixes[string(d)]; ok && prefix != "" {
		return prefix
	}
	return d.DefaultPrefix()
}

func (s *Service) conflict(ctx context.Context, d domain.Domain, cause error) error {
	err := fmt.Errorf("%w: %s: %v", domain.ErrSequenceConflict, d, cause)
	s.metrics.RecordConflict(ctx, "sequence")
	s.txMetric.IncConflict("sequence", err)
	return err
}

func (s *Service) conflictOr(ctx context.Context, d domain.Domain, err error) error {
	if classified := db.Classify(err); errs.IsConflict(classified) {
		return s.conflict(ctx, d, err)
	}
	return err
}
