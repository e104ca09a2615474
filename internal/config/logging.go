package config

import (
	"github.com/hashicorp/go-hclog"
)

// NewLogger builds the process root logger from the configuration.
// Production output is JSON for log shippers; development output is human
// readable. Component loggers are derived with logger.Named.
func NewLogger(cfg *Config) hclog.Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "opentab",
		Level:      level,
		JSONFormat: cfg.IsProduction(),
	})
}
