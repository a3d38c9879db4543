package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console slog.Logger filtered to the provided level string.
// Unknown or empty levels fall back to info, which is what the engine
// wants in production where per-domain debug output is noisy.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler)
}

// Component derives a child logger tagged for one subsystem.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = New("")
	}
	return base.With("component", name)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
