package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tradebook/internal/errs"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonDeadlock             = "deadlock"
	ReasonUniqueViolation      = "unique_violation"
	ReasonVersionMismatch      = "version_mismatch"
	ReasonNotFound             = "not_found"
	ReasonInvalidState         = "invalid_state"
	ReasonInvalidInput         = "invalid_input"
	ReasonForbidden            = "forbidden"
	ReasonUnknown              = "unknown"
)

const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeExhausted = "exhausted"
)

// TxMetrics tracks the retry loops around optimistic writes and the
// background jobs that drain the outbox.
type TxMetrics struct {
	attempts    *prometheus.HistogramVec
	conflicts   *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobErrors   *prometheus.CounterVec
}

var (
	txMetricsOnce sync.Once
	txMetrics     *TxMetrics
)

// Tx returns the process-wide transaction metrics registry.
func Tx() *TxMetrics {
	return TxWithConfig(Config{})
}

// TxWithConfig returns the singleton registry using config labels.
func TxWithConfig(cfg Config) *TxMetrics {
	txMetricsOnce.Do(func() {
		txMetrics = newTxMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return txMetrics
}

func newTxMetrics(registerer prometheus.Registerer, cfg Config) *TxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "tradebook"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &TxMetrics{
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tradebook_tx_attempts",
			Help:        "Attempts needed per unit of work before it committed or gave up.",
			Buckets:     []float64{1, 2, 3, 4, 5, 8},
			ConstLabels: constLabels,
		}, []string{"operation"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradebook_tx_conflicts_total",
			Help:        "Write conflicts by operation and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"operation", "reason"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradebook_tx_outcomes_total",
			Help:        "Final outcome of retried units of work.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradebook_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "tradebook_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "tradebook_scheduler_job_errors_total",
			Help:        "Scheduler job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
	}

	registerer.MustRegister(
		m.attempts,
		m.conflicts,
		m.outcomes,
		m.jobRuns,
		m.jobDuration,
		m.jobErrors,
	)
	return m
}

func (m *TxMetrics) ObserveAttempts(operation string, attempts int) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(operation).Observe(float64(attempts))
}

func (m *TxMetrics) IncConflict(operation string, err error) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation, ClassifyReason(err)).Inc()
}

func (m *TxMetrics) IncOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *TxMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *TxMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *TxMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyReason(err)).Inc()
}

// ClassifyReason maps an error to a bounded label value.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case hasPGCode(err, "40P01"):
		return ReasonDeadlock
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case errs.IsConflict(err):
		return ReasonVersionMismatch
	case errs.IsNotFound(err):
		return ReasonNotFound
	case errs.IsInvalidState(err):
		return ReasonInvalidState
	case errs.IsInvalidInput(err):
		return ReasonInvalidInput
	case errors.Is(err, errs.ErrForbidden):
		return ReasonForbidden
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
