package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.QueryID != "" {
		logger = logger.With().Str("query_id", tc.QueryID).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// Detach returns a context that keeps ctx's tracing values and span but is
// never cancelled. Pipelines run on a detached context so a caller hanging up
// does not abort in-flight reasoning or tool calls.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
