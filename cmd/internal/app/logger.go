package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger builds the process logger from cfg and installs it as slog's default.
// The returned close func releases the log file, if any.
func NewLogger(cfg Config) (*slog.Logger, func() error, error) {
	out := io.Writer(os.Stdout)
	closeFn := func() error { return nil }
	color := cfg.LogColor

	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
		color = false
	}

	log := slog.New(newHandler(out, cfg.LogFormat, parseLogLevel(cfg.LogLevel), color))
	slog.SetDefault(log)
	return log, closeFn, nil
}

func newHandler(w io.Writer, format string, level slog.Level, color bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: true}
	if strings.EqualFold(strings.TrimSpace(format), "pretty") {
		return newPrettyHandler(w, opts, color)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
