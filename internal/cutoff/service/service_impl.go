package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	"github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/smallbiznis/tradebook/internal/errs"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"github.com/smallbiznis/tradebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Policy  *config.SettlementPolicyHolder `optional:"true"`
	Metrics *obsmetrics.Metrics            `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	policy  *config.SettlementPolicyHolder
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("cutoff.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		policy:  p.Policy,
		metrics: p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, by actor.Actor) (domain.Snapshot, error) {
	return s.transition(ctx, domain.ActionOpen, by)
}

func (s *Service) Close(ctx context.Context, by actor.Actor) (domain.Snapshot, error) {
	return s.transition(ctx, domain.ActionClose, by)
}

func (s *Service) Reset(ctx context.Context, by actor.Actor) (domain.Snapshot, error) {
	return s.transition(ctx, domain.ActionReset, by)
}

func (s *Service) Current(ctx context.Context) (domain.Snapshot, error) {
	return s.CurrentTx(ctx, s.db)
}

// CurrentTx reports a window that was never initialized as open since the
// beginning of time, so the first orders of a fresh install are regular.
func (s *Service) CurrentTx(ctx context.Context, tx *gorm.DB) (domain.Snapshot, error) {
	window, err := s.repo.Find(ctx, tx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if window == nil {
		return domain.Window{}.Snapshot(), nil
	}
	return window.Snapshot(), nil
}

func (s *Service) History(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return s.repo.ListEvents(ctx, s.db, limit)
}

func (s *Service) transition(ctx context.Context, action domain.Action, by actor.Actor) (domain.Snapshot, error) {
	if !by.Valid() {
		return domain.Snapshot{}, domain.ErrInvalidActor
	}

	var snapshot domain.Snapshot
	_, err := db.RetryOnConflict(ctx, s.policy.Get().Cutoff.MaxAttempts, func(ctx context.Context, _ int) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.repo.Find(ctx, tx)
			if err != nil {
				return err
			}

			now := s.clock.Now()
			next, err := apply(current, action, by, now)
			if err != nil {
				return err
			}

			if current == nil {
				next.Version = 1
				created, err := s.repo.Create(ctx, tx, next)
				if err != nil {
					return err
				}
				if !created {
					return domain.ErrWindowConflict
				}
			} else {
				updated, err := s.repo.Update(ctx, tx, next, current.Version)
				if err != nil {
					return err
				}
				if !updated {
					return domain.ErrWindowConflict
				}
				next.Version = current.Version + 1
			}

			if err := s.repo.InsertEvent(ctx, tx, &domain.Event{
				ID:          s.genID.Generate(),
				Action:      action,
				Actor:       by.Label(),
				WindowStart: next.WindowStart,
				ClosedAt:    next.ClosedAt,
				OccurredAt:  now,
			}); err != nil {
				return err
			}

			snapshot = next.Snapshot()
			return nil
		})
	})
	if err != nil {
		if errs.IsConflict(err) {
			s.metrics.RecordConflict(ctx, "cutoff."+string(action))
		}
		return domain.Snapshot{}, err
	}

	s.metrics.RecordCutoffTransition(ctx, string(action))
	s.log.Info("cutoff window transitioned",
		zap.String("action", string(action)),
		zap.String("state", string(snapshot.State)),
		zap.Time("window_start", snapshot.WindowStart),
		zap.String("actor_id", by.ID),
	)
	return snapshot, nil
}

// apply computes the next window state. current is nil when the window has
// never been initialized, which counts as open.
func apply(current *domain.Window, action domain.Action, by actor.Actor, now time.Time) (domain.Window, error) {
	next := domain.Window{ID: domain.WindowID, UpdatedAt: now}
	if current != nil {
		next = *current
		next.UpdatedAt = now
	}

	switch action {
	case domain.ActionOpen, domain.ActionReset:
		next.WindowStart = now
		next.IsClosed = false
		next.ClosedAt = nil
		next.ClosedBy = nil
	case domain.ActionClose:
		if current != nil && current.IsClosed {
			return domain.Window{}, domain.ErrWindowNotOpen
		}
		if current == nil {
			next.WindowStart = now
		}
		closedAt := now
		closedBy := by.Label()
		next.IsClosed = true
		next.ClosedAt = &closedAt
		next.ClosedBy = &closedBy
	default:
		return domain.Window{}, fmt.Errorf("unknown cutoff action %q", action)
	}
	return next, nil
}
