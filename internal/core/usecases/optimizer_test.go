package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

// --- Mock PlantRepository ---

type mockPlantRepo struct {
	plants []domain.SolarPlant
	err    error
	calls  int
}

func (m *mockPlantRepo) UpsertBatch(ctx context.Context, plants []domain.SolarPlant) error {
	m.plants = append(m.plants, plants...)
	return m.err
}

func (m *mockPlantRepo) List(ctx context.Context) ([]domain.SolarPlant, error) {
	m.calls++
	return m.plants, m.err
}

func (m *mockPlantRepo) FindInRegion(ctx context.Context, region domain.BoundingRegion) ([]domain.SolarPlant, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.SolarPlant
	for _, p := range m.plants {
		if region.Contains(p.Location) {
			out = append(out, p)
		}
	}
	return out, nil
}

func regionWithArea(area float64) domain.RegionDescriptor {
	return domain.RegionDescriptor{
		ID:      "r1",
		Region:  geospatial.Normalize(domain.GeoPoint{Lon: 100, Lat: 13}, domain.GeoPoint{Lon: 100.1, Lat: 13.1}),
		AreaKm2: area,
	}
}

// --- Tests ---

func TestMicrogridCount(t *testing.T) {
	tests := []struct {
		area float64
		want int
	}{
		{0, 1},
		{3.9, 1},
		{8, 1},
		{12, 2},
		{40, 5},
		{11980.6, 1498},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usecases.MicrogridCount(tt.area, 8), "area %v", tt.area)
	}
	assert.Equal(t, 5, usecases.MicrogridCount(40, 0), "non-positive density falls back to default")
}

func TestPipeline_Derive_Scenarios(t *testing.T) {
	p := usecases.NewPipeline(8, usecases.SeededScorer{Seed: 1, MwPerKm2: 2.5, JitterMw: 20}, nil)

	res := p.Derive(regionWithArea(8))
	assert.Equal(t, 1, res.MicrogridCount)
	assert.Equal(t, "r1", res.RegionID)
	assert.Equal(t, "seeded", res.Scorer)

	res = p.Derive(regionWithArea(40))
	assert.Equal(t, 5, res.MicrogridCount)
	assert.GreaterOrEqual(t, res.OutputMw, 100.0)
	assert.LessOrEqual(t, res.OutputMw, 120.0)

	degenerate := domain.RegionDescriptor{Region: geospatial.Normalize(domain.GeoPoint{Lon: 100, Lat: 13}, domain.GeoPoint{Lon: 100, Lat: 13})}
	res = p.Derive(degenerate)
	assert.Equal(t, 1, res.MicrogridCount)
	assert.GreaterOrEqual(t, res.OutputMw, 0.0)
}

func TestSeededScorer_BoundsAndDeterminism(t *testing.T) {
	s := usecases.SeededScorer{Seed: 42, MwPerKm2: 2.5, JitterMw: 20}

	for i := 0; i < 200; i++ {
		lon := 97 + float64(i)*0.03
		r := geospatial.NewEstimator(140, 500).Describe(
			domain.GeoPoint{Lon: lon, Lat: 12},
			domain.GeoPoint{Lon: lon + 0.2, Lat: 12.3},
		)
		score := s.Score(r)
		assert.GreaterOrEqual(t, score.UtilizationPct, 60.0)
		assert.LessOrEqual(t, score.UtilizationPct, 95.0)
		assert.GreaterOrEqual(t, score.OutputMw, r.AreaKm2*2.5-0.05)
		assert.LessOrEqual(t, score.OutputMw, r.AreaKm2*2.5+20.05)
		assert.Equal(t, score, s.Score(r), "same region and seed must score the same")
	}
}

func TestSeededScorer_SeedChangesResult(t *testing.T) {
	r := regionWithArea(40)
	a := usecases.SeededScorer{Seed: 1, MwPerKm2: 2.5, JitterMw: 20}.Score(r)
	b := usecases.SeededScorer{Seed: 2, MwPerKm2: 2.5, JitterMw: 20}.Score(r)
	assert.NotEqual(t, a, b)
}

func TestLinearScorer(t *testing.T) {
	s := usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}
	assert.Equal(t, "linear", s.Name())

	score := s.Score(regionWithArea(100))
	assert.Equal(t, 77.5, score.UtilizationPct)
	assert.Equal(t, 250.0, score.OutputMw)

	score = s.Score(regionWithArea(0))
	assert.Equal(t, 60.0, score.UtilizationPct)
	assert.Equal(t, 0.0, score.OutputMw)
}

func TestPipeline_Optimize_CountsPlants(t *testing.T) {
	repo := &mockPlantRepo{plants: []domain.SolarPlant{
		{ID: "in-1", Location: domain.GeoPoint{Lon: 100.05, Lat: 13.05}, CapacityMw: 12.5},
		{ID: "in-2", Location: domain.GeoPoint{Lon: 100.02, Lat: 13.08}, CapacityMw: 7.25},
		{ID: "out", Location: domain.GeoPoint{Lon: 102, Lat: 15}, CapacityMw: 90},
	}}
	p := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, repo)

	res, err := p.Optimize(context.Background(), regionWithArea(120))
	require.NoError(t, err)
	assert.Equal(t, 2, res.SolarPlants)
	assert.Equal(t, 19.8, res.PlantCapacityMw)
	assert.Equal(t, 15, res.MicrogridCount)
	assert.False(t, res.CompletedAt.IsZero())
}

func TestPipeline_Optimize_PlantLookupFailure(t *testing.T) {
	repo := &mockPlantRepo{err: errors.New("db down")}
	p := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, repo)

	res, err := p.Optimize(context.Background(), regionWithArea(40))
	require.NoError(t, err)
	assert.Equal(t, 0, res.SolarPlants)
	assert.Equal(t, 5, res.MicrogridCount)
}

func TestLocalExecutor_HonoursContext(t *testing.T) {
	p := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, nil)
	exec := usecases.NewLocalExecutor(p, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Optimize(ctx, "run-1", regionWithArea(40))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalExecutor_NoDelay(t *testing.T) {
	p := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, nil)
	res, err := usecases.NewLocalExecutor(p, 0).Optimize(context.Background(), "run-1", regionWithArea(40))
	require.NoError(t, err)
	assert.Equal(t, 5, res.MicrogridCount)
}

func TestSummarizePlants(t *testing.T) {
	sum := usecases.SummarizePlants([]domain.SolarPlant{{CapacityMw: 1.04}, {CapacityMw: 2.02}})
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, 3.1, sum.CapacityMw)

	assert.Equal(t, domain.PlantSummary{}, usecases.SummarizePlants(nil))
}

func TestNewScorer(t *testing.T) {
	s, err := usecases.NewScorer("", 7, 2.5, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, "seeded", s.Name())

	s, err = usecases.NewScorer("linear", 7, 2.5, 20, 100)
	require.NoError(t, err)
	assert.Equal(t, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, s)

	_, err = usecases.NewScorer("annealing", 7, 2.5, 20, 100)
	assert.Error(t, err)
}
