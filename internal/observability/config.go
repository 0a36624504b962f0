package observability

import (
	"strings"

	"github.com/smallbiznis/tradebook/internal/config"
)

// Config is the slice of config.Config the logger, tracer and meter share.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelSamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "tradebook"
	}
	return Config{
		ServiceName:       name,
		Environment:       cfg.Environment,
		Version:           cfg.AppVersion,
		LogLevel:          cfg.LogLevel,
		LogFormat:         cfg.LogFormat,
		OtelEnabled:       cfg.OtelEnabled,
		OTLPEndpoint:      cfg.OTLPEndpoint,
		OTLPProtocol:      cfg.OTLPProtocol,
		OtelSamplingRatio: cfg.OtelSamplingRatio,
	}
}

// Debug turns on development logging and gin debug mode.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
