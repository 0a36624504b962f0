package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/clock"
	"github.com/smallbiznis/tradebook/internal/config"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/smallbiznis/tradebook/internal/events"
	"github.com/smallbiznis/tradebook/internal/lock"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	AppConfig config.Config
	Relay     *events.Relay
	CutoffSvc cutoffdomain.Service
	Locker    *lock.Locker          `optional:"true"`
	TxMetric  *obsmetrics.TxMetrics `optional:"true"`
	Config    Config                `optional:"true"`
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	loc       *time.Location
	genID     *snowflake.Node
	clock     clock.Clock
	relay     *events.Relay
	cutoffSvc cutoffdomain.Service
	locker    *lock.Locker
	txMetric  *obsmetrics.TxMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Relay == nil || p.CutoffSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		loc:       p.AppConfig.Location(),
		genID:     p.GenID,
		clock:     p.Clock,
		relay:     p.Relay,
		cutoffSvc: p.CutoffSvc,
		locker:    p.Locker,
		txMetric:  p.TxMetric,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	release, acquired := s.acquireJobLock(ctx, name, timeout)
	if !acquired {
		return nil
	}
	defer release()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.txMetric.IncJobRun(name)

	err := fn(ctx)
	s.txMetric.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errors == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	s.txMetric.IncJobError(name, err)
	// a deadline is a soft timeout; the next tick picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobCutoffReset, s.cfg.CutoffAutoReset && s.isJobEnabled(JobCutoffReset), func(ctx context.Context) error {
			return s.runJob(ctx, JobCutoffReset, 1, s.cfg.JobTimeout, s.CutoffResetJob)
		}},
		{JobOutboxRelay, s.isJobEnabled(JobOutboxRelay), func(ctx context.Context) error {
			return s.runJob(ctx, JobOutboxRelay, s.cfg.RelayBatchSize, s.cfg.JobTimeout, s.OutboxRelayJob)
		}},
		{JobOutboxBacklog, s.isJobEnabled(JobOutboxBacklog), func(ctx context.Context) error {
			return s.runJob(ctx, JobOutboxBacklog, 1, s.cfg.JobTimeout, s.OutboxBacklogJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// OutboxRelayJob drains pending outbox rows batch by batch until a pass
// publishes nothing.
func (s *Scheduler) OutboxRelayJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	var jobErr error
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		published, err := s.relay.RunOnce(ctx, s.cfg.RelayBatchSize)
		run.AddProcessed(published)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(ctx, run, "scheduler.outbox.relay.failed", JobOutboxRelay, err)
			return jobErr
		}
		if published < s.cfg.RelayBatchSize {
			return jobErr
		}
	}
}
