// Package events publishes review progress events to Kafka so downstream
// consumers can follow a review run through its pipeline stages.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// Publisher emits review progress events. Publishing is best effort from
// the pipeline's point of view; callers log failures and continue.
type Publisher interface {
	// Publish sends a progress event to the stream.
	Publish(ctx context.Context, event *domain.ProgressEvent) error

	// Close flushes and releases the underlying transport.
	Close() error
}

// messageWriter is the subset of kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic progress events are published to.
	Topic string
}

// Compile-time interface verification.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*NopPublisher)(nil)
)

// KafkaPublisher publishes progress events to a Kafka topic. Messages are
// keyed by review ID so events for one review stay on one partition and
// arrive in order.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to the configured topic.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends a progress event to the stream.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.ProgressEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ReviewID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("review_id", event.ReviewID.String()).
		Msg("published progress event")
	return nil
}

// Close flushes and closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards all events. Used when event publishing is disabled.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that discards all events.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

// Publish discards the event.
func (p *NopPublisher) Publish(_ context.Context, _ *domain.ProgressEvent) error {
	return nil
}

// Close is a no-op.
func (p *NopPublisher) Close() error {
	return nil
}
