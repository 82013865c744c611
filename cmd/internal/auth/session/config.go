package session

import (
	"fmt"
	"time"

	"tasker/cmd/security/token"

	"github.com/caarlos0/env/v11"
)

// Config defines runtime configuration for token issuance and verification.
type Config struct {
	// Issuer is the value set in the "iss" claim. Empty disables the claim and its check.
	Issuer string `env:"TASKER_AUTH_ISSUER" envDefault:"tasker"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `env:"TASKER_AUTH_TOKEN_TTL" envDefault:"1h"`

	// Leeway tolerates clock skew between replicas when checking exp/iat.
	Leeway time.Duration `env:"TASKER_AUTH_LEEWAY" envDefault:"0s"`

	// SigningKey is the HS256 secret. It is never logged.
	SigningKey []byte `env:"-"`
}

// DefaultConfig returns the baseline configuration without a signing key.
func DefaultConfig() Config {
	return Config{
		Issuer:   "tasker",
		TokenTTL: time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - TASKER_JWT_SECRET (>= 32 bytes)
//
// Optional:
//   - TASKER_AUTH_ISSUER
//   - TASKER_AUTH_TOKEN_TTL
//   - TASKER_AUTH_LEEWAY
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	key, err := token.SigningKeyFromEnv(token.MinSigningKeyBytes)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, token.SigningKeyEnv, err)
	}
	cfg.SigningKey = key

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks TTL, leeway and key length.
func (c Config) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrConfig)
	}
	if c.Leeway < 0 {
		return fmt.Errorf("%w: leeway must not be negative", ErrConfig)
	}
	if len(c.SigningKey) < token.MinSigningKeyBytes {
		return fmt.Errorf("%w: signing key must be at least %d bytes", ErrConfig, token.MinSigningKeyBytes)
	}
	return nil
}
