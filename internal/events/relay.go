package events

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/smallbiznis/tradebook/internal/clock"
	obsmetrics "github.com/smallbiznis/tradebook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	relayJob          = "outbox.relay"
	defaultBatchLimit = 100
	maxErrorLength    = 512
)

type RelayParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Publisher Publisher
	TxMetric  *obsmetrics.TxMetrics `optional:"true"`
}

// Relay moves committed outbox rows to the Publisher. Delivery is at least
// once: a crash between Publish and the published_at update repeats it.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	publisher Publisher
	txMetric  *obsmetrics.TxMetrics
}

func NewRelay(p RelayParams) *Relay {
	return &Relay{
		db:        p.DB,
		log:       p.Log.Named("events.relay"),
		clock:     p.Clock,
		publisher: p.Publisher,
		txMetric:  p.TxMetric,
	}
}

// RunOnce publishes up to limit pending events in creation order and
// returns how many were delivered.
func (r *Relay) RunOnce(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	started := r.clock.Now()
	r.txMetric.IncJobRun(relayJob)
	defer func() { r.txMetric.ObserveJobDuration(relayJob, r.clock.Now().Sub(started)) }()

	var pending []Record
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		r.txMetric.IncJobError(relayJob, err)
		return 0, err
	}

	published := 0
	var failures error
	for _, record := range pending {
		if err := r.publisher.Publish(ctx, record); err != nil {
			failures = errors.Join(failures, err)
			r.txMetric.IncJobError(relayJob, err)
			r.log.Warn("event publish failed",
				zap.String("event_id", record.ID.String()),
				zap.String("event_type", record.EventType),
				zap.Error(err),
			)
			if markErr := r.markFailed(ctx, record, err); markErr != nil {
				return published, markErr
			}
			continue
		}
		if err := r.markPublished(ctx, record); err != nil {
			return published, err
		}
		published++
	}
	return published, failures
}

func (r *Relay) markPublished(ctx context.Context, record Record) error {
	return r.db.WithContext(ctx).
		Model(&Record{}).
		Where("id = ? AND published_at IS NULL", record.ID).
		Updates(map[string]any{
			"published_at": r.clock.Now(),
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
}

func (r *Relay) markFailed(ctx context.Context, record Record, cause error) error {
	msg := truncateError(cause.Error(), maxErrorLength)
	return r.db.WithContext(ctx).
		Model(&Record{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

// truncateError cuts msg to at most n bytes without splitting a rune.
func truncateError(msg string, n int) string {
	if len(msg) <= n {
		return msg
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
