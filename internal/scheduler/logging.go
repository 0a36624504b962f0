package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/tradebook/internal/actor"
	obscontext "github.com/smallbiznis/tradebook/internal/observability/context"
	obslogger "github.com/smallbiznis/tradebook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// jobRun tracks one execution of a job. Jobs reach it through the context
// so nested helpers can count their work.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time
	processed int
	errors    int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r != nil && count > 0 {
		r.processed += count
	}
}

func (r *jobRun) IncError() {
	if r != nil {
		r.errors++
	}
}

// fields are shared by the start and finish lines.
func (r *jobRun) fields() []zap.Field {
	return []zap.Field{zap.String("job", r.job), zap.String("run_id", r.runID)}
}

// ensureJobRun starts a run unless ctx already carries one. owner reports
// whether the caller started it and must log its finish. Scheduled work
// always acts as the system actor.
func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (_ context.Context, run *jobRun, owner bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run = &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithCorrelationID(ctx, run.runID)
	return actor.WithActor(ctx, actor.System), run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Debug("scheduler.job.start", append(run.fields(), zap.Int("batch_size", run.batchSize))...)
}

// logJobFinish stays at debug for idle runs so a quiet outbox does not
// flood the log every tick.
func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	level := zapcore.DebugLevel
	switch {
	case run.errors > 0:
		level = zapcore.WarnLevel
	case run.processed > 0:
		level = zapcore.InfoLevel
	}
	if ce := s.logger(ctx).Check(level, "scheduler.job.finish"); ce != nil {
		ce.Write(append(run.fields(),
			zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
			zap.Int("processed_count", run.processed),
			zap.Int("error_count", run.errors),
		)...)
	}
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, job string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	run.IncError()
	s.logger(ctx).Error(msg, append([]zap.Field{
		zap.String("job", job),
		zap.String("reason", obsmetrics.ClassifyReason(err)),
		zap.Error(err),
	}, fields...)...)
}
