// Package logging provides structured logging configuration using log/slog.
//
// Run IDs are attached to context via WithRunID and picked up automatically
// by FromContext, giving every log line emitted during a pipeline run a
// common correlation key without threading it through every call site.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey int

const runIDKey contextKey = iota

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithRunID returns a context carrying a run id that FromContext will pick
// up and attach to every subsequent log entry for that context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run id stored in ctx, if any.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns a logger enriched with the run id carried in ctx, if
// any. This enables correlation of all log entries for a single pipeline
// run.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("processing center", "center", centerID)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step process.
//
// Usage:
//
//	centerLogger := logging.WithFields(ctx, "center", centerID)
//	centerLogger.Info("validation started")
//	// ... later ...
//	centerLogger.Info("validation completed", "files", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
