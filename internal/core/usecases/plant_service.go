package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/pkg/metrics"
)

// PlantService handles solar plant catalog queries.
type PlantService struct {
	plants ports.PlantRepository
	cache  ports.CacheService
}

// NewPlantService creates a new PlantService. cache may be nil.
func NewPlantService(plants ports.PlantRepository, cache ports.CacheService) *PlantService {
	return &PlantService{plants: plants, cache: cache}
}

// List returns the whole catalog.
func (s *PlantService) List(ctx context.Context) ([]domain.SolarPlant, error) {
	const cacheKey = "plants:all"
	if plants, ok := s.cached(ctx, cacheKey); ok {
		return plants, nil
	}

	plants, err := s.plants.List(ctx)
	if err != nil {
		return nil, err
	}

	// The catalog only changes on ingest.
	s.store(ctx, cacheKey, plants, 600)
	return plants, nil
}

// FindInRegion returns plants whose location lies inside region.
func (s *PlantService) FindInRegion(ctx context.Context, region domain.BoundingRegion) ([]domain.SolarPlant, error) {
	cacheKey := fmt.Sprintf("plants:region:%.4f:%.4f:%.4f:%.4f",
		region.SouthWest.Lon, region.SouthWest.Lat, region.NorthEast.Lon, region.NorthEast.Lat)
	if plants, ok := s.cached(ctx, cacheKey); ok {
		return plants, nil
	}

	plants, err := s.plants.FindInRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	s.store(ctx, cacheKey, plants, 300)
	return plants, nil
}

// Summarize counts the plants inside region and totals their capacity.
func (s *PlantService) Summarize(ctx context.Context, region domain.BoundingRegion) (domain.PlantSummary, error) {
	plants, err := s.FindInRegion(ctx, region)
	if err != nil {
		return domain.PlantSummary{}, err
	}
	return SummarizePlants(plants), nil
}

// Import validates and upserts a batch of plants.
func (s *PlantService) Import(ctx context.Context, plants []domain.SolarPlant) error {
	for i, p := range plants {
		if p.ID == "" {
			return fmt.Errorf("plant %d: missing id", i)
		}
		if p.CapacityMw < 0 || math.IsNaN(p.CapacityMw) {
			return fmt.Errorf("plant %s: invalid capacity %v", p.ID, p.CapacityMw)
		}
	}
	if err := s.plants.UpsertBatch(ctx, plants); err != nil {
		return fmt.Errorf("upsert plants: %w", err)
	}
	metrics.PlantsIngested.Add(float64(len(plants)))
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "plants:all")
	}
	return nil
}

func (s *PlantService) cached(ctx context.Context, key string) ([]domain.SolarPlant, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var plants []domain.SolarPlant
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, false
	}
	return plants, true
}

func (s *PlantService) store(ctx context.Context, key string, plants []domain.SolarPlant, ttl int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(plants); err == nil {
		_ = s.cache.Set(ctx, key, data, ttl)
	}
}

// SummarizePlants totals a set of plants. Capacity is rounded to 0.1 MW.
func SummarizePlants(plants []domain.SolarPlant) domain.PlantSummary {
	var total float64
	for _, p := range plants {
		total += p.CapacityMw
	}
	return domain.PlantSummary{Count: len(plants), CapacityMw: round1(total)}
}
