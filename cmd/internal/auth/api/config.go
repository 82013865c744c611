package authapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls auth API behavior and abuse limits.
type Config struct {
	// TrustProxy honours X-Forwarded-For / X-Real-IP when keying rate limits.
	TrustProxy   bool  `env:"TASKER_AUTH_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"TASKER_AUTH_MAX_BODY_BYTES" envDefault:"1048576"`

	// RatePerSecond and RateBurst bound register/login attempts per client IP.
	// A non-positive rate disables the limiter.
	RatePerSecond float64       `env:"TASKER_AUTH_RATE_PER_SECOND" envDefault:"1"`
	RateBurst     int           `env:"TASKER_AUTH_RATE_BURST" envDefault:"10"`
	RateIdleTTL   time.Duration `env:"TASKER_AUTH_RATE_IDLE_TTL" envDefault:"10m"`
}

// DefaultConfig returns the defaults used when no env is set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:  1 << 20,
		RatePerSecond: 1,
		RateBurst:     10,
		RateIdleTTL:   10 * time.Minute,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("authapi config: %w", err)
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.RateIdleTTL <= 0 {
		cfg.RateIdleTTL = 10 * time.Minute
	}
	return cfg, nil
}
