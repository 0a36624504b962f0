package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("OUTBOX_RELAY_INTERVAL", "2s")
	t.Setenv("DATABASE_SLOW_QUERY", "1s")
	t.Setenv("SCHEDULER_ENABLED", "off")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, 2*time.Second, cfg.RelayInterval)
	assert.Equal(t, time.Second, cfg.SlowQuery)
	assert.False(t, cfg.SchedulerEnabled)
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "3")
	t.Setenv("OUTBOX_RELAY_INTERVAL", "-1s")
	t.Setenv("SNOWFLAKE_NODE", "x")

	cfg := Load()
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.Equal(t, 5*time.Second, cfg.RelayInterval)
	assert.EqualValues(t, 1, cfg.SnowflakeNode)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Config{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, "Asia/Jakarta", Config{Timezone: "Asia/Jakarta"}.Location().String())
}
