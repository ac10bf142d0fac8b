package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "trace", level: "trace", want: zerolog.TraceLevel},
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "info", level: "info", want: zerolog.InfoLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "warning alias", level: "warning", want: zerolog.WarnLevel},
		{name: "error", level: "error", want: zerolog.ErrorLevel},
		{name: "mixed case", level: "DeBuG", want: zerolog.DebugLevel},
		{name: "unknown defaults to info", level: "verbose", want: zerolog.InfoLevel},
		{name: "empty defaults to info", level: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(DefaultLoggingConfig())
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLogger(LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ReviewIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-123")
	ctx = ContextWithReviewID(ctx, "rev-456")

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Equal(t, "rev-456", ReviewIDFromContext(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	ctx := context.Background()

	nop := LoggerFromContext(ctx)
	assert.Equal(t, zerolog.Disabled, nop.GetLevel())

	logger := NewLogger(DefaultLoggingConfig())
	ctx = ContextWithLogger(ctx, logger)
	assert.Equal(t, logger.GetLevel(), LoggerFromContext(ctx).GetLevel())
}
