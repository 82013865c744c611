package password

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used unless overridden.
const DefaultCost = 10

// bcryptMaxBytes is the longest input bcrypt reads.
const bcryptMaxBytes = 72

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int `env:"TASKER_PASSWORD_MIN_LEN" envDefault:"1"`
	MaxBytes  int `env:"TASKER_PASSWORD_MAX_BYTES" envDefault:"72"`
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool `env:"TASKER_PASSWORD_REJECT_VERY_WEAK" envDefault:"false"`
}

// Config is the single configuration surface for this package.
type Config struct {
	Cost   int `env:"TASKER_BCRYPT_COST" envDefault:"10"`
	Policy Policy
}

// DefaultConfig returns the production baseline.
func DefaultConfig() Config {
	return Config{
		Cost: DefaultCost,
		Policy: Policy{
			MinLength: 1,
			MaxBytes:  bcryptMaxBytes,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - TASKER_BCRYPT_COST (4..31)
// - TASKER_PASSWORD_MIN_LEN
// - TASKER_PASSWORD_MAX_BYTES (<= 72)
// - TASKER_PASSWORD_REJECT_VERY_WEAK (true/false)
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return fmt.Errorf("TASKER_BCRYPT_COST: out of range [%d..%d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Policy.MinLength < 1 {
		return fmt.Errorf("TASKER_PASSWORD_MIN_LEN: must be >= 1")
	}
	if c.Policy.MaxBytes < 1 || c.Policy.MaxBytes > bcryptMaxBytes {
		return fmt.Errorf("TASKER_PASSWORD_MAX_BYTES: out of range [1..%d]", bcryptMaxBytes)
	}
	if c.Policy.MinLength > c.Policy.MaxBytes {
		return fmt.Errorf(
			"password policy invalid: min_len(%d) > max_bytes(%d)",
			c.Policy.MinLength,
			c.Policy.MaxBytes,
		)
	}
	return nil
}
