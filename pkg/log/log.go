// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default slog logger on stderr. LOG_FORMAT=json switches
// from the text handler to JSON for log shippers.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule returns the default logger tagged with the calling module's
// name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
