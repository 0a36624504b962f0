package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const jobLockPrefix = "scheduler:job:"

// acquireJobLock keeps a job single-runner across processes. Without redis
// every process runs every job and the database serializes the writes.
func (s *Scheduler) acquireJobLock(ctx context.Context, job string, ttl time.Duration) (func(), bool) {
	key := jobLockPrefix + job
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	if err != nil {
		s.log.Warn("scheduler.lock.failed", zap.String("job", job), zap.Error(err))
		return func() {}, false
	}
	if !ok {
		s.log.Debug("scheduler.lock.held", zap.String("job", job))
		return func() {}, false
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.log.Warn("scheduler.lock.release_failed", zap.String("job", job), zap.Error(err))
		}
	}, true
}
