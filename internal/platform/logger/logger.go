// Package logger builds the process-wide structured logger. Output is JSON
// so log pipelines can index tenant_id and run_id fields; operators can drop
// to text locally with ROSTER_LOG_FORMAT=text.
package logger

import (
	"log/slog"
	"os"
)

// New returns the root logger. Level and format come straight from the
// environment rather than the config file: logging must work before, and
// during, config loading.
//
// ROSTER_LOG_LEVEL accepts debug, info, warn and error (default info).
// ROSTER_LOG_FORMAT accepts json and text (default json).
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("ROSTER_LOG_LEVEL")),
	}

	var handler slog.Handler
	if os.Getenv("ROSTER_LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
