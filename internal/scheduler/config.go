package scheduler

import (
	"time"

	"github.com/smallbiznis/tradebook/internal/config"
)

const (
	JobOutboxRelay   = "outbox_relay"
	JobCutoffReset   = "cutoff_reset"
	JobOutboxBacklog = "outbox_backlog"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval      time.Duration
	RelayBatchSize   int
	JobTimeout       time.Duration
	BacklogThreshold time.Duration
	CutoffAutoReset  bool
	// EnabledJobs empty means every job runs.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      5 * time.Second,
		RelayBatchSize:   100,
		JobTimeout:       30 * time.Second,
		BacklogThreshold: 15 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:     cfg.RelayInterval,
		CutoffAutoReset: cfg.CutoffAutoReset,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RelayBatchSize <= 0 {
		c.RelayBatchSize = defaults.RelayBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BacklogThreshold <= 0 {
		c.BacklogThreshold = defaults.BacklogThreshold
	}
	return c
}
