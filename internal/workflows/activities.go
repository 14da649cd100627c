package workflows

import (
	"context"
	"fmt"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/usecases"
)

// OptimizationActivities holds the activity implementations for the optimization workflow.
type OptimizationActivities struct {
	Pipeline *usecases.Pipeline
	Plants   *usecases.PlantService
}

// DeriveResult applies the derivation policy to a region.
func (a *OptimizationActivities) DeriveResult(ctx context.Context, region domain.RegionDescriptor) (domain.ResultDescriptor, error) {
	if a.Pipeline == nil {
		return domain.ResultDescriptor{}, fmt.Errorf("pipeline not configured")
	}
	return a.Pipeline.Derive(region), nil
}

// SummarizePlants counts the plants inside a region and totals their capacity.
func (a *OptimizationActivities) SummarizePlants(ctx context.Context, region domain.BoundingRegion) (domain.PlantSummary, error) {
	if a.Plants == nil {
		return domain.PlantSummary{}, nil
	}
	sum, err := a.Plants.Summarize(ctx, region)
	if err != nil {
		return domain.PlantSummary{}, fmt.Errorf("summarize plants: %w", err)
	}
	return sum, nil
}
