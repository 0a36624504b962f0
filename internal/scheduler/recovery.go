package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/tradebook/internal/actor"
	"github.com/smallbiznis/tradebook/internal/events"
	"go.uber.org/zap"
)

// CutoffResetJob reopens the cutoff window once per business day. A window
// that started before today's local midnight is reset, whether it was left
// closed or never closed at all. A never-initialized window is left alone.
func (s *Scheduler) CutoffResetJob(ctx context.Context) error {
	snap, err := s.cutoffSvc.Current(ctx)
	if err != nil {
		return err
	}
	if snap.Version == 0 {
		return nil
	}

	midnight := startOfDay(s.clock.Now(), s.loc)
	if !snap.WindowStart.Before(midnight) {
		return nil
	}

	next, err := s.cutoffSvc.Reset(ctx, actor.System)
	if err != nil {
		s.logSchedulerError(ctx, jobRunFromContext(ctx), "scheduler.cutoff.reset.failed", JobCutoffReset, err)
		return err
	}
	jobRunFromContext(ctx).AddProcessed(1)
	s.logger(ctx).Info("scheduler.cutoff.reset",
		zap.Bool("was_closed", snap.IsClosed),
		zap.Time("previous_window_start", snap.WindowStart),
		zap.Time("window_start", next.WindowStart),
		zap.Int64("version", next.Version),
	)
	return nil
}

// OutboxBacklogJob warns when events sit unpublished past the threshold,
// which usually means the publisher is failing.
func (s *Scheduler) OutboxBacklogJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.BacklogThreshold)

	var stale struct {
		Count       int64
		MaxAttempts int
	}
	if err := s.db.WithContext(ctx).
		Model(&events.Record{}).
		Select("COUNT(*) AS count, COALESCE(MAX(attempts), 0) AS max_attempts").
		Where("published_at IS NULL AND created_at < ?", cutoff).
		Scan(&stale).Error; err != nil {
		return err
	}
	if stale.Count == 0 {
		return nil
	}

	jobRunFromContext(ctx).AddProcessed(int(stale.Count))
	s.logger(ctx).Warn("scheduler.outbox.backlog",
		zap.Int64("stale_events", stale.Count),
		zap.Int("max_attempts", stale.MaxAttempts),
		zap.Duration("threshold", s.cfg.BacklogThreshold),
	)
	return nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
