package main

import (
	"errors"

	"github.com/kelseyhightower/envconfig"

	"github.com/23skdu/hlm/internal/logging"
	"github.com/23skdu/hlm/internal/workload"
)

// Config validation errors
var (
	ErrInvalidLogFormat = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn, or error")
)

// Config is the stress tool configuration, read from HLMSTRESS_* variables.
// Lock manager sizing is read separately from HLM_* variables.
type Config struct {
	Logging  logging.Config  `ignored:"true"`
	Workload workload.Config `ignored:"true"`

	// MetricsAddr serves Prometheus metrics when set, e.g. "0.0.0.0:9090".
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Logging:     logging.DefaultConfig(),
		Workload:    workload.DefaultConfig(),
		MetricsAddr: "",
	}
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	for _, spec := range []interface{}{&cfg, &cfg.Logging, &cfg.Workload} {
		if err := envconfig.Process("HLMSTRESS", spec); err != nil {
			return cfg, err
		}
	}
	return cfg, ValidateConfig(&cfg)
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return ErrInvalidLogFormat
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return cfg.Workload.Validate()
}
