package workflows

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/systematic-review-service/internal/domain"
	"github.com/helixir/systematic-review-service/internal/temporal/activities"
)

func newTestInput() ReviewWorkflowInput {
	return ReviewWorkflowInput{
		Request: domain.ReviewRequest{
			ID:          uuid.New(),
			Question:    "do statins reduce cardiovascular events",
			TargetCount: 50,
			CreatedAt:   time.Now().UTC(),
		},
	}
}

func TestReviewWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	input := newTestInput()

	var act *activities.ReviewActivities
	env.OnActivity(act.ExecuteReview, mock.Anything, mock.Anything).Return(
		&activities.ExecuteReviewOutput{
			Funnel: domain.Funnel{
				Identified: 120,
				Merged:     90,
				ScreenedIn: 50,
			},
			QueryText: "statins cardiovascular events",
		}, nil,
	)

	env.ExecuteWorkflow(ReviewWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ReviewWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, input.Request.ID.String(), result.ReviewID)
	assert.Equal(t, 50, result.Funnel.ScreenedIn)
	assert.Equal(t, "statins cardiovascular events", result.QueryText)

	env.AssertExpectations(t)
}

func TestReviewWorkflow_ProgressQuery(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	input := newTestInput()

	var act *activities.ReviewActivities
	env.OnActivity(act.ExecuteReview, mock.Anything, mock.Anything).Return(
		&activities.ExecuteReviewOutput{
			Funnel:    domain.Funnel{Identified: 40, ScreenedIn: 10},
			QueryText: "statins cardiovascular events",
		}, nil,
	)

	env.ExecuteWorkflow(ReviewWorkflow, input)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	value, err := env.QueryWorkflow(ProgressQuery)
	require.NoError(t, err)

	var state ProgressState
	require.NoError(t, value.Get(&state))
	assert.Equal(t, input.Request.ID.String(), state.ReviewID)
	assert.Equal(t, "completed", state.Phase)
	assert.Equal(t, 10, state.Funnel.ScreenedIn)
}

func TestReviewWorkflow_ActivityFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var act *activities.ReviewActivities
	env.OnActivity(act.ExecuteReview, mock.Anything, mock.Anything).Return(
		nil, errors.New("all sources unreachable"),
	)

	env.ExecuteWorkflow(ReviewWorkflow, newTestInput())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all sources unreachable")
}
