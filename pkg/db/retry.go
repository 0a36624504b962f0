package db

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/smallbiznis/tradebook/internal/errs"
)

// RetryOnConflict runs fn until it succeeds, fails with a non-conflict
// error, or maxAttempts is reached. Every attempt must redo its reads from
// scratch. The returned int is the number of attempts made.
func RetryOnConflict(ctx context.Context, maxAttempts int, fn func(ctx context.Context, attempt int) error) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}
		err = fn(ctx, attempt)
		var stop *permanentError
		if errors.As(err, &stop) {
			return attempt, stop.err
		}
		err = Classify(err)
		if err == nil || !errs.IsRetryable(err) {
			return attempt, err
		}
		if attempt == maxAttempts {
			return attempt, err
		}
		if waitErr := backoff(ctx, attempt); waitErr != nil {
			return attempt, waitErr
		}
	}
	return maxAttempts, err
}

func backoff(ctx context.Context, attempt int) error {
	base := time.Duration(attempt) * 5 * time.Millisecond
	jitter := time.Duration(rand.Int64N(int64(5 * time.Millisecond)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so RetryOnConflict returns it at once, even when it
// is a conflict. Use it for conflicts a fresh read cannot resolve.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
