package temporal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/store"
	"github.com/helixir/systematic-review-service/internal/temporal/workflows"
)

// WorkflowRunner hands review requests to Temporal instead of running
// them in-process. Run blocks until the workflow completes, then loads
// the full result from the session store; only the funnel summary
// travels through workflow history.
type WorkflowRunner struct {
	client   *ReviewWorkflowClient
	sessions store.SessionStore
	logger   zerolog.Logger
}

// NewWorkflowRunner creates a WorkflowRunner.
func NewWorkflowRunner(client *ReviewWorkflowClient, sessions store.SessionStore, logger zerolog.Logger) *WorkflowRunner {
	return &WorkflowRunner{
		client:   client,
		sessions: sessions,
		logger:   logger.With().Str("component", "workflow_runner").Logger(),
	}
}

// Run starts a review workflow and waits for it to finish.
func (r *WorkflowRunner) Run(ctx context.Context, req domain.ReviewRequest) (*domain.ReviewResult, error) {
	workflowID, runID, err := r.client.StartReviewWorkflow(ctx, req.ID.String(), workflows.ReviewWorkflow, workflows.ReviewWorkflowInput{Request: req})
	if err != nil {
		return nil, fmt.Errorf("start review workflow: %w", err)
	}

	r.logger.Info().
		Str("review_id", req.ID.String()).
		Str("workflow_id", workflowID).
		Str("run_id", runID).
		Msg("review workflow started")

	var summary workflows.ReviewWorkflowResult
	if err := r.client.GetWorkflowResult(ctx, workflowID, runID, &summary); err != nil {
		return nil, fmt.Errorf("await review workflow: %w", err)
	}

	result, err := r.sessions.GetResult(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load review result: %w", err)
	}
	return result, nil
}
