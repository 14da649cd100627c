// Package temporal runs optimizations as Temporal workflows.
package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/workflows"
)

// Executor implements ports.RunExecutor by starting OptimizationWorkflow
// and waiting for its result.
type Executor struct {
	client    client.Client
	taskQueue string
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace, taskQueue string) (*Executor, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return NewExecutor(c, taskQueue), nil
}

// NewExecutor wraps an existing client.
func NewExecutor(c client.Client, taskQueue string) *Executor {
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}
	return &Executor{client: c, taskQueue: taskQueue}
}

// Optimize implements ports.RunExecutor.
func (e *Executor) Optimize(ctx context.Context, runID string, region domain.RegionDescriptor) (domain.ResultDescriptor, error) {
	opts := client.StartWorkflowOptions{
		ID:        "optimization-" + runID,
		TaskQueue: e.taskQueue,
	}
	run, err := e.client.ExecuteWorkflow(ctx, opts, workflows.OptimizationWorkflow, workflows.OptimizationInput{
		RunID:  runID,
		Region: region,
	})
	if err != nil {
		return domain.ResultDescriptor{}, fmt.Errorf("start workflow: %w", err)
	}

	var res domain.ResultDescriptor
	if err := run.Get(ctx, &res); err != nil {
		return domain.ResultDescriptor{}, fmt.Errorf("workflow %s: %w", run.GetID(), err)
	}
	return res, nil
}

// Close releases the client.
func (e *Executor) Close() {
	e.client.Close()
}
