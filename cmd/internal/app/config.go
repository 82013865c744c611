package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string `env:"TASKER_HTTP_ADDR" envDefault:"0.0.0.0:8080"`

	LogLevel  string `env:"TASKER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TASKER_LOG_FORMAT" envDefault:"json"`
	// LogFile appends logs to a file instead of stdout when set.
	LogFile  string `env:"TASKER_LOG_FILE"`
	LogColor bool   `env:"TASKER_LOG_COLOR" envDefault:"true"`

	ReadHeaderTimeout time.Duration `env:"TASKER_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"TASKER_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"TASKER_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"TASKER_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"TASKER_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"TASKER_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DatabaseURL selects the store: empty is in-memory SQLite, sqlite:<path> a SQLite file, postgres:// Postgres.
	DatabaseURL string `env:"TASKER_DATABASE_URL"`
	DBMaxConns  int32  `env:"TASKER_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"TASKER_DB_MIN_CONNS" envDefault:"0"`

	// RedisURL enables cross-instance fan-out of change events.
	RedisURL string `env:"TASKER_REDIS_URL"`

	OTelEndpoint string `env:"TASKER_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"TASKER_OTEL_ENABLED" envDefault:"true"`

	MetricsEnabled bool `env:"TASKER_METRICS_ENABLED" envDefault:"true"`
}

// LoadConfig loads an optional .env file, then parses Config from the environment.
// Variables already present in the environment win over .env entries.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse app config: %w", err)
	}
	return cfg, nil
}
