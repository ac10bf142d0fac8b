// Package activities defines the Temporal activities backing review
// workflows.
package activities

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
)

// ReviewRunner executes a review run for an already created session.
type ReviewRunner interface {
	Run(ctx context.Context, req domain.ReviewRequest) (*domain.ReviewResult, error)
}

// ExecuteReviewOutput is the activity result. The full article lists are
// persisted by the runner; only the funnel summary travels through the
// workflow history to stay clear of payload size limits.
type ExecuteReviewOutput struct {
	Funnel    domain.Funnel `json:"funnel"`
	QueryText string        `json:"query_text"`
}

// ReviewActivities runs the review pipeline inside a Temporal activity.
type ReviewActivities struct {
	runner ReviewRunner
	logger zerolog.Logger
}

// NewReviewActivities creates the activity set.
func NewReviewActivities(runner ReviewRunner, logger zerolog.Logger) *ReviewActivities {
	return &ReviewActivities{
		runner: runner,
		logger: logger.With().Str("component", "review_activity").Logger(),
	}
}

// ExecuteReview runs the full pipeline for one review session. The runner
// owns status transitions, result persistence and progress events; the
// activity reports only the funnel back to the workflow.
func (a *ReviewActivities) ExecuteReview(ctx context.Context, req domain.ReviewRequest) (*ExecuteReviewOutput, error) {
	a.logger.Info().Str("review_id", req.ID.String()).Msg("review activity started")

	result, err := a.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return &ExecuteReviewOutput{
		Funnel:    result.Funnel,
		QueryText: result.QueryText,
	}, nil
}
