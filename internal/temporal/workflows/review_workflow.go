// Package workflows defines the Temporal workflow orchestrating review
// runs.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/temporal/activities"
)

// reviewActivityTimeout bounds one pipeline execution. A review can
// legitimately run for minutes when sources are slow, so the ceiling
// sits above the runner's own wall-clock limit.
const reviewActivityTimeout = 15 * time.Minute

// ReviewWorkflowInput carries the review request into the workflow.
type ReviewWorkflowInput struct {
	Request domain.ReviewRequest `json:"request"`
}

// ReviewWorkflowResult is the workflow outcome summary. The full result
// is read from the session store by review ID.
type ReviewWorkflowResult struct {
	ReviewID  string        `json:"review_id"`
	Funnel    domain.Funnel `json:"funnel"`
	QueryText string        `json:"query_text"`
}

// ProgressQuery is the query name exposing workflow progress.
const ProgressQuery = "review_progress"

// ProgressState is returned by the progress query.
type ProgressState struct {
	ReviewID string        `json:"review_id"`
	Phase    string        `json:"phase"`
	Funnel   domain.Funnel `json:"funnel"`
}

// ReviewWorkflow executes a review run as a single durable activity.
// The pipeline itself is not resumable mid-stage, so retries restart the
// whole run; the session store keeps this idempotent because the result
// upsert overwrites any prior partial state.
func ReviewWorkflow(ctx workflow.Context, input ReviewWorkflowInput) (*ReviewWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("review workflow started", "review_id", input.Request.ID.String())

	progress := ProgressState{
		ReviewID: input.Request.ID.String(),
		Phase:    "executing",
	}
	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (ProgressState, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: reviewActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    2,
		},
	})

	var act *activities.ReviewActivities
	var out activities.ExecuteReviewOutput
	if err := workflow.ExecuteActivity(ctx, act.ExecuteReview, input.Request).Get(ctx, &out); err != nil {
		progress.Phase = "failed"
		logger.Error("review workflow failed", "review_id", input.Request.ID.String(), "error", err)
		return nil, err
	}

	progress.Phase = "completed"
	progress.Funnel = out.Funnel

	logger.Info("review workflow completed",
		"review_id", input.Request.ID.String(),
		"included", out.Funnel.ScreenedIn,
	)
	return &ReviewWorkflowResult{
		ReviewID:  input.Request.ID.String(),
		Funnel:    out.Funnel,
		QueryText: out.QueryText,
	}, nil
}
