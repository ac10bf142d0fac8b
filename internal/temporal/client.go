// Package temporal wraps the Temporal SDK client for durable review
// execution. When Temporal orchestration is enabled, review runs execute
// inside a workflow so a worker crash mid-review resumes instead of
// stranding the session.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// Default timeout constants for workflow execution and health checks.
const (
	// DefaultWorkflowExecutionTimeout is the maximum time a review
	// workflow is allowed to run, including retries.
	DefaultWorkflowExecutionTimeout = time.Hour

	// DefaultHealthCheckTimeout is the timeout for Temporal server health checks.
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Sentinel errors for workflow operations.
var (
	// ErrWorkflowNotFound indicates the workflow execution was not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyStarted indicates a workflow with the same ID is already running.
	ErrWorkflowAlreadyStarted = errors.New("workflow already started")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrConnectionFailed indicates a connection failure to the Temporal server.
	ErrConnectionFailed = errors.New("connection failed")
)

// WorkflowError wraps a Temporal SDK error with operation context.
type WorkflowError struct {
	Op         string
	Kind       error
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.WorkflowID != "" {
		msg += fmt.Sprintf(" [workflowID=%s]", e.WorkflowID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// wrapWorkflowError converts a Temporal SDK error to a WorkflowError.
func wrapWorkflowError(op string, err error, workflowID string) error {
	if err == nil {
		return nil
	}

	we := &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}

	var notFoundErr *serviceerror.NotFound
	var alreadyStartedErr *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &notFoundErr):
		we.Kind = ErrWorkflowNotFound
	case errors.As(err, &alreadyStartedErr):
		we.Kind = ErrWorkflowAlreadyStarted
	default:
		we.Kind = ErrConnectionFailed
	}

	return we
}

// ClientConfig contains configuration for the Temporal client.
type ClientConfig struct {
	// HostPort is the Temporal server address (e.g. "localhost:7233").
	HostPort string

	// Namespace is the Temporal namespace to use.
	Namespace string

	// TaskQueue is the task queue review workflows are started on.
	TaskQueue string

	// HealthCheckTimeout bounds health check calls. 0 uses the default.
	HealthCheckTimeout time.Duration

	// Logger receives Temporal SDK log output. Nil uses the SDK default.
	Logger log.Logger
}

// NewClient creates a new Temporal client with the given configuration.
func NewClient(cfg ClientConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create Temporal client: %w", err)
	}
	return c, nil
}

// ReviewWorkflowClient starts and manages review workflows.
type ReviewWorkflowClient struct {
	mu                 sync.RWMutex
	client             client.Client
	taskQueue          string
	healthCheckTimeout time.Duration
	closed             bool
}

// NewReviewWorkflowClient creates a new ReviewWorkflowClient.
func NewReviewWorkflowClient(c client.Client, cfg ClientConfig) *ReviewWorkflowClient {
	healthTimeout := cfg.HealthCheckTimeout
	if healthTimeout == 0 {
		healthTimeout = DefaultHealthCheckTimeout
	}
	return &ReviewWorkflowClient{
		client:             c,
		taskQueue:          cfg.TaskQueue,
		healthCheckTimeout: healthTimeout,
	}
}

// Close closes the underlying Temporal client connection.
func (c *ReviewWorkflowClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && !c.closed {
		c.client.Close()
	}
	c.closed = true
}

func (c *ReviewWorkflowClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Health checks the connection health to the Temporal server.
func (c *ReviewWorkflowClient) Health(ctx context.Context) error {
	if c.isClosed() {
		return &WorkflowError{Op: "Health", Kind: ErrClientClosed}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.healthCheckTimeout)
	defer cancel()

	if _, err := c.client.CheckHealth(checkCtx, &client.CheckHealthRequest{}); err != nil {
		return wrapWorkflowError("Health", err, "")
	}
	return nil
}

// WorkflowIDForReview derives the deterministic workflow ID for a review.
// One review session maps to at most one running workflow.
func WorkflowIDForReview(reviewID string) string {
	return "review-" + reviewID
}

// StartReviewWorkflow starts a review workflow for the given review ID.
// The workflow function must be registered with a worker separately.
func (c *ReviewWorkflowClient) StartReviewWorkflow(ctx context.Context, reviewID string, workflowFunc interface{}, input interface{}) (workflowID, runID string, err error) {
	if c.isClosed() {
		return "", "", &WorkflowError{Op: "StartReviewWorkflow", Kind: ErrClientClosed}
	}

	workflowID = WorkflowIDForReview(reviewID)
	options := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: DefaultWorkflowExecutionTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, workflowFunc, input)
	if err != nil {
		return "", "", wrapWorkflowError("StartReviewWorkflow", err, workflowID)
	}
	return workflowID, run.GetRunID(), nil
}

// CancelWorkflow cancels a running review workflow.
func (c *ReviewWorkflowClient) CancelWorkflow(ctx context.Context, workflowID, runID string) error {
	if c.isClosed() {
		return &WorkflowError{Op: "CancelWorkflow", Kind: ErrClientClosed, WorkflowID: workflowID}
	}

	if err := c.client.CancelWorkflow(ctx, workflowID, runID); err != nil {
		return wrapWorkflowError("CancelWorkflow", err, workflowID)
	}
	return nil
}

// GetWorkflowResult waits for a workflow to complete and decodes its result.
func (c *ReviewWorkflowClient) GetWorkflowResult(ctx context.Context, workflowID, runID string, result interface{}) error {
	if c.isClosed() {
		return &WorkflowError{Op: "GetWorkflowResult", Kind: ErrClientClosed, WorkflowID: workflowID}
	}

	run := c.client.GetWorkflow(ctx, workflowID, runID)
	if err := run.Get(ctx, result); err != nil {
		return wrapWorkflowError("GetWorkflowResult", err, workflowID)
	}
	return nil
}

// TaskQueue returns the configured task queue name.
func (c *ReviewWorkflowClient) TaskQueue() string {
	return c.taskQueue
}
