package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivityExecutionSize is the maximum concurrent
	// activity executions. A review activity runs a full pipeline, so
	// this bounds concurrent reviews per worker. Default: 4.
	MaxConcurrentActivityExecutionSize int

	// MaxConcurrentWorkflowTaskExecutionSize is the maximum concurrent
	// workflow task executions. Default: 50.
	MaxConcurrentWorkflowTaskExecutionSize int
}

func (c *WorkerConfig) applyDefaults() {
	if c.MaxConcurrentActivityExecutionSize == 0 {
		c.MaxConcurrentActivityExecutionSize = 4
	}
	if c.MaxConcurrentWorkflowTaskExecutionSize == 0 {
		c.MaxConcurrentWorkflowTaskExecutionSize = 50
	}
}

// NewWorker creates a Temporal worker polling the configured task queue.
// Workflows and activities must be registered on the returned worker
// before it is started.
func NewWorker(c client.Client, cfg WorkerConfig) (worker.Worker, error) {
	if cfg.TaskQueue == "" {
		return nil, fmt.Errorf("task queue is required")
	}
	cfg.applyDefaults()

	return worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.MaxConcurrentActivityExecutionSize,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxConcurrentWorkflowTaskExecutionSize,
	}), nil
}

// StartWorker runs the worker until the context is cancelled or the
// worker fails.
func StartWorker(ctx context.Context, w worker.Worker) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(worker.InterruptCh())
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
