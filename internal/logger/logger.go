// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and carries a cycle
// number through context.Context so every record of one pipeline cycle can
// be correlated.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const cycleKey ctxKey = "cycle"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps a config string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithCycle stores the cycle number in the context for downstream records.
func WithCycle(ctx context.Context, n int64) context.Context {
	return context.WithValue(ctx, cycleKey, n)
}

// Cycle extracts the cycle number from context. Returns -1 if not set.
func Cycle(ctx context.Context) int64 {
	if v, ok := ctx.Value(cycleKey).(int64); ok {
		return v
	}
	return -1
}

// CycleAttrs returns slog attributes including the cycle number from
// context. Usage: slog.Info("msg", logger.CycleAttrs(ctx)...)
func CycleAttrs(ctx context.Context) []any {
	n := Cycle(ctx)
	if n < 0 {
		return nil
	}
	return []any{slog.Int64("cycle", n)}
}
