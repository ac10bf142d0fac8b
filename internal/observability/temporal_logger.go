package observability

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalLogger adapts zerolog for the Temporal SDK logging interface.
type TemporalLogger struct {
	logger zerolog.Logger
}

var _ log.Logger = (*TemporalLogger)(nil)

// NewTemporalLogger creates a Temporal SDK logger backed by zerolog.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal").Logger()}
}

// Debug logs a debug message.
func (t *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	t.emit(t.logger.Debug(), msg, keyvals)
}

// Info logs an info message.
func (t *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	t.emit(t.logger.Info(), msg, keyvals)
}

// Warn logs a warning message.
func (t *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	t.emit(t.logger.Warn(), msg, keyvals)
}

// Error logs an error message.
func (t *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	t.emit(t.logger.Error(), msg, keyvals)
}

func (t *TemporalLogger) emit(event *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, keyvals[i+1])
	}
	event.Msg(msg)
}
