package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for review progress events.
const (
	EventTypeReviewStarted   = "review.started"
	EventTypeReviewCompleted = "review.completed"
	EventTypeReviewFailed    = "review.failed"
	EventTypeStageCompleted  = "review.stage_completed"
)

// Pipeline stage names used in progress events.
const (
	StageSearch    = "search"
	StageFilter    = "filter"
	StageDedup     = "dedup"
	StageScreening = "screening"
)

// ProgressEvent is the envelope published to the event stream as a review
// run moves through the pipeline.
type ProgressEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	ReviewID  uuid.UUID `json:"review_id"`
	Payload   []byte    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProgressEvent creates a new progress event with a JSON-serialized payload.
func NewProgressEvent(eventType string, reviewID uuid.UUID, payload interface{}) (*ProgressEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &ProgressEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		ReviewID:  reviewID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// ReviewStartedPayload is the payload for review.started events.
type ReviewStartedPayload struct {
	Question    string `json:"question"`
	TargetCount int    `json:"target_count"`
}

// StageCompletedPayload is the payload for review.stage_completed events.
type StageCompletedPayload struct {
	Stage     string  `json:"stage"`
	Surviving int     `json:"surviving"`
	Removed   int     `json:"removed"`
	Seconds   float64 `json:"seconds"`
}

// ReviewCompletedPayload is the payload for review.completed events.
type ReviewCompletedPayload struct {
	Funnel Funnel `json:"funnel"`
}

// ReviewFailedPayload is the payload for review.failed events.
type ReviewFailedPayload struct {
	Error string `json:"error"`
}
