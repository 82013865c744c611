package realtime

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls the websocket gateway and the broadcast pipeline.
type Config struct {
	// Origin policy. Browsers always send Origin, so the allowlist guards them;
	// non-browser observers may connect without one unless OriginRequired is set.
	OriginRequired bool     `env:"TASKER_WS_ORIGIN_REQUIRED" envDefault:"false"`
	AllowedOrigins []string `env:"TASKER_WS_ALLOWED_ORIGINS" envDefault:"http://localhost,http://127.0.0.1" envSeparator:","`

	// DevInsecure disables websocket.Accept's origin verification entirely.
	DevInsecure bool `env:"TASKER_WS_DEV_INSECURE" envDefault:"false"`

	// RequireAuth demands a valid bearer token (header or ?token=) at handshake.
	RequireAuth bool `env:"TASKER_WS_REQUIRE_AUTH" envDefault:"false"`

	WriteTimeout  time.Duration `env:"TASKER_WS_WRITE_TIMEOUT" envDefault:"5s"`
	SendQueueSize int           `env:"TASKER_WS_SEND_QUEUE" envDefault:"256"`

	HeartbeatInterval time.Duration `env:"TASKER_WS_HEARTBEAT_INTERVAL" envDefault:"25s"`
	HeartbeatTimeout  time.Duration `env:"TASKER_WS_HEARTBEAT_TIMEOUT" envDefault:"5s"`

	// Inbound frames per connection per window.
	RateEvents int           `env:"TASKER_WS_RATE_EVENTS" envDefault:"120"`
	RateWindow time.Duration `env:"TASKER_WS_RATE_WINDOW" envDefault:"10s"`

	// IntakeQueueSize bounds events waiting for the dispatcher.
	IntakeQueueSize int `env:"TASKER_BROADCAST_QUEUE" envDefault:"1024"`

	// RedisChannel is the Pub/Sub channel used when a Redis relay is configured.
	RedisChannel string `env:"TASKER_REDIS_CHANNEL" envDefault:"tasker:changes"`
}

const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 4 << 10

	minSendQueueSize = 16
	wsCloseGrace     = 1 * time.Second

	wsMaxPingFailures = 3
)

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:    []string{"http://localhost", "http://127.0.0.1"},
		WriteTimeout:      5 * time.Second,
		SendQueueSize:     256,
		HeartbeatInterval: 25 * time.Second,
		HeartbeatTimeout:  5 * time.Second,
		RateEvents:        120,
		RateWindow:        10 * time.Second,
		IntakeQueueSize:   1024,
		RedisChannel:      "tasker:changes",
	}
}

// LoadConfigFromEnv parses TASKER_WS_* / TASKER_BROADCAST_* variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("realtime config: %w", err)
	}
	return cfg.normalized(), nil
}

// normalized clamps non-positive values back to defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.SendQueueSize < minSendQueueSize {
		c.SendQueueSize = minSendQueueSize
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if c.RateEvents <= 0 {
		c.RateEvents = def.RateEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = def.RateWindow
	}
	if c.IntakeQueueSize <= 0 {
		c.IntakeQueueSize = def.IntakeQueueSize
	}
	if c.RedisChannel == "" {
		c.RedisChannel = def.RedisChannel
	}
	return c
}
