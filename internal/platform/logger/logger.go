package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"semaforo/internal/platform/config"
)

// New returns a structured logger writing to stdout.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter builds the logger against an arbitrary sink.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("service", "semaforo")
}

func parseLevel(level string) slog.Level {
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
