package hlm

import (
	"errors"

	"github.com/kelseyhightower/envconfig"
)

// Config validation errors
var (
	ErrInvalidLeafBuckets = errors.New("leaf_buckets must be positive")
	ErrInvalidMidShards   = errors.New("mid_shards must be positive")
)

// Config holds lock manager sizing. Loaded from HLM_* environment variables.
type Config struct {
	// LeafBuckets is the number of striped page locks. A prime spreads
	// sequential page ids evenly.
	LeafBuckets int `envconfig:"LEAF_BUCKETS" default:"1021"`
	// MidShards bounds spinlock contention when creating mid-level locks.
	MidShards int `envconfig:"MID_SHARDS" default:"3"`
	// StrictMidCheck panics when a page is locked without holding its mid lock.
	StrictMidCheck bool `envconfig:"STRICT_MID_CHECK" default:"true"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		LeafBuckets:    1021,
		MidShards:      3,
		StrictMidCheck: true,
	}
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.LeafBuckets <= 0 {
		return ErrInvalidLeafBuckets
	}
	if cfg.MidShards <= 0 {
		return ErrInvalidMidShards
	}
	return nil
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("HLM", &cfg); err != nil {
		return cfg, err
	}
	return cfg, ValidateConfig(&cfg)
}
