package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is the key used to store the logger in the context.
// Using a custom type prevents collisions.
type contextKey string

const loggerKey = contextKey("logger")

// NewRunContext returns a context carrying a logger enriched with a fresh
// run id. Every run of the engine gets its own id so log lines from
// repeated runs over the same books can be told apart.
func NewRunContext(ctx context.Context, baseLogger *slog.Logger) context.Context {
	runLogger := baseLogger.With(slog.String("run_id", uuid.NewString()))
	return context.WithValue(ctx, loggerKey, runLogger)
}

// WithLogger stores the given logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromCtx retrieves the run-scoped logger from the context.
// It returns the default logger if none is found.
func FromCtx(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
