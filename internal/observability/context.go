package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	reviewIDKey  contextKey = "review_id"
)

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the logger from context, or a disabled logger
// when none was stored.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// ContextWithRequestID stores a request ID in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithReviewID stores a review session ID in the context.
func ContextWithReviewID(ctx context.Context, reviewID string) context.Context {
	return context.WithValue(ctx, reviewIDKey, reviewID)
}

// ReviewIDFromContext retrieves the review session ID from context.
func ReviewIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(reviewIDKey).(string); ok {
		return id
	}
	return ""
}
