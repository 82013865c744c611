package token

import (
	"os"
	"strings"
	"time"

	"tasker/cmd/identity/ids"
)

const (
	// SigningKeyEnv is the env var name for the token signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SigningKeyEnv = "TASKER_JWT_SECRET"

	// MinSigningKeyBytes is the minimum HMAC-SHA256 key size.
	MinSigningKeyBytes = 32
)

// SigningKeyFromEnv returns the configured key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSigningKeyMissing.
// If too short -> ErrSigningKeyTooShort.
func SigningKeyFromEnv(minBytes int) ([]byte, error) {
	return SigningKey(os.Getenv(SigningKeyEnv), minBytes)
}

// SigningKey applies the same checks as SigningKeyFromEnv to raw.
// Length is measured in bytes, not runes, because the key is used as raw bytes.
func SigningKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSigningKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSigningKeyTooShort
	}
	return b, nil
}

// NewTokenID returns a unique, time-ordered token id (jti).
func NewTokenID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
