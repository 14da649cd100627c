package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

type stubPlants struct {
	plants []domain.SolarPlant
	err    error
}

func (s *stubPlants) UpsertBatch(ctx context.Context, plants []domain.SolarPlant) error { return nil }
func (s *stubPlants) List(ctx context.Context) ([]domain.SolarPlant, error)             { return s.plants, s.err }
func (s *stubPlants) FindInRegion(ctx context.Context, r domain.BoundingRegion) ([]domain.SolarPlant, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.SolarPlant
	for _, p := range s.plants {
		if r.Contains(p.Location) {
			out = append(out, p)
		}
	}
	return out, nil
}

func testInput() OptimizationInput {
	region := geospatial.NewEstimator(140, 500).Describe(
		domain.GeoPoint{Lon: 100.4, Lat: 13.7},
		domain.GeoPoint{Lon: 100.7, Lat: 13.95},
	)
	region.ID = "region-1"
	return OptimizationInput{RunID: "run-1", Region: region}
}

func runWorkflow(t *testing.T, plants *stubPlants) domain.ResultDescriptor {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	pipeline := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, nil)
	env.RegisterActivity(&OptimizationActivities{
		Pipeline: pipeline,
		Plants:   usecases.NewPlantService(plants, nil),
	})

	env.ExecuteWorkflow(OptimizationWorkflow, testInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res domain.ResultDescriptor
	require.NoError(t, env.GetWorkflowResult(&res))
	return res
}

func TestOptimizationWorkflow(t *testing.T) {
	res := runWorkflow(t, &stubPlants{plants: []domain.SolarPlant{
		{ID: "16", Name: "Nonthaburi Solar", Location: domain.GeoPoint{Lon: 100.5144, Lat: 13.8622}, CapacityMw: 15},
		{ID: "7", Name: "Chonburi Solar Farm", Location: domain.GeoPoint{Lon: 100.9847, Lat: 13.3611}, CapacityMw: 156},
	}})

	in := testInput()
	assert.Equal(t, "region-1", res.RegionID)
	assert.Equal(t, usecases.MicrogridCount(in.Region.AreaKm2, 8), res.MicrogridCount)
	assert.Equal(t, "linear", res.Scorer)
	assert.Equal(t, 1, res.SolarPlants)
	assert.Equal(t, 15.0, res.PlantCapacityMw)
	assert.False(t, res.CompletedAt.IsZero())
}

func TestOptimizationWorkflow_PlantFailureIsNotFatal(t *testing.T) {
	res := runWorkflow(t, &stubPlants{err: errors.New("db down")})
	assert.Equal(t, 0, res.SolarPlants)
	assert.GreaterOrEqual(t, res.MicrogridCount, 1)
}
