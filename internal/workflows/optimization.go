package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// TaskQueue is the default queue the optimizer worker polls.
const TaskQueue = "qgrid-optimizer"

// OptimizationInput is the input for the optimization workflow.
type OptimizationInput struct {
	RunID  string
	Region domain.RegionDescriptor
}

// OptimizationWorkflow derives the result for a region, then enriches it with
// the solar plants inside the region. A failed plant lookup does not fail the
// run; the result is returned without plant counts.
func OptimizationWorkflow(ctx workflow.Context, input OptimizationInput) (domain.ResultDescriptor, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting optimization workflow", "runID", input.RunID, "areaKm2", input.Region.AreaKm2)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Derive microgrid count, utilization and output
	var res domain.ResultDescriptor
	if err := workflow.ExecuteActivity(ctx, "DeriveResult", input.Region).Get(ctx, &res); err != nil {
		return domain.ResultDescriptor{}, err
	}

	// Step 2: Count catalog plants inside the region
	var summary domain.PlantSummary
	if err := workflow.ExecuteActivity(ctx, "SummarizePlants", input.Region.Region).Get(ctx, &summary); err != nil {
		logger.Warn("plant summary failed, returning result without plants", "error", err)
	} else {
		res.SolarPlants = summary.Count
		res.PlantCapacityMw = summary.CapacityMw
	}

	res.RegionID = input.Region.ID
	res.CompletedAt = workflow.Now(ctx).UTC()

	logger.Info("Optimization complete", "runID", input.RunID, "microgrids", res.MicrogridCount)
	return res, nil
}
