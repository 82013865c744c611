package authapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("TASKER_AUTH_TRUST_PROXY", "true")
	t.Setenv("TASKER_AUTH_RATE_PER_SECOND", "2.5")
	t.Setenv("TASKER_AUTH_RATE_BURST", "0")
	t.Setenv("TASKER_AUTH_RATE_IDLE_TTL", "30s")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)
	assert.InDelta(t, 2.5, cfg.RatePerSecond, 1e-9)
	assert.Equal(t, 1, cfg.RateBurst)
	assert.Equal(t, 30*time.Second, cfg.RateIdleTTL)
}

func TestLoadConfigFromEnv_BadValue(t *testing.T) {
	t.Setenv("TASKER_AUTH_RATE_BURST", "many")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}
