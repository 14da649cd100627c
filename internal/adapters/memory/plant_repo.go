// Package memory holds in-process adapters backed by the embedded plant catalog.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

//go:embed solar_plants.csv
var defaultCatalog []byte

// DefaultCatalog returns the bundled central-Thailand plant catalog as CSV.
func DefaultCatalog() []byte {
	return append([]byte(nil), defaultCatalog...)
}

type plantRow struct {
	ID         string  `csv:"id"`
	Name       string  `csv:"name"`
	Longitude  float64 `csv:"longitude"`
	Latitude   float64 `csv:"latitude"`
	CapacityMw float64 `csv:"capacity_mw"`
}

// ParsePlantsCSV decodes a catalog with header id,name,longitude,latitude,capacity_mw.
func ParsePlantsCSV(r io.Reader) ([]domain.SolarPlant, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	var rows []plantRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	plants := make([]domain.SolarPlant, 0, len(rows))
	for i, row := range rows {
		if row.ID == "" {
			return nil, fmt.Errorf("row %d: missing id", i+2)
		}
		if math.Abs(row.Longitude) > 180 || math.Abs(row.Latitude) > 90 {
			return nil, fmt.Errorf("row %d: coordinate out of range", i+2)
		}
		plants = append(plants, domain.SolarPlant{
			ID:         row.ID,
			Name:       row.Name,
			Location:   domain.GeoPoint{Lon: row.Longitude, Lat: row.Latitude},
			CapacityMw: row.CapacityMw,
		})
	}
	return plants, nil
}

// LoadPlants reads a catalog file, or the bundled catalog when path is empty.
func LoadPlants(path string) ([]domain.SolarPlant, error) {
	if path == "" {
		return ParsePlantsCSV(bytes.NewReader(defaultCatalog))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	plants, err := ParsePlantsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plants, nil
}

// PlantRepo implements ports.PlantRepository in memory.
type PlantRepo struct {
	mu     sync.RWMutex
	plants map[string]domain.SolarPlant
}

// NewPlantRepo creates a repo seeded with plants.
func NewPlantRepo(plants []domain.SolarPlant) *PlantRepo {
	r := &PlantRepo{plants: make(map[string]domain.SolarPlant, len(plants))}
	for _, p := range plants {
		r.plants[p.ID] = p
	}
	return r
}

// NewDefaultPlantRepo creates a repo holding the bundled catalog.
func NewDefaultPlantRepo() (*PlantRepo, error) {
	return OpenPlantRepo("")
}

// OpenPlantRepo creates a repo holding the catalog at path, or the bundled
// one when path is empty.
func OpenPlantRepo(path string) (*PlantRepo, error) {
	plants, err := LoadPlants(path)
	if err != nil {
		return nil, fmt.Errorf("plant catalog: %w", err)
	}
	return NewPlantRepo(plants), nil
}

// UpsertBatch inserts or replaces plants by ID.
func (r *PlantRepo) UpsertBatch(ctx context.Context, plants []domain.SolarPlant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range plants {
		r.plants[p.ID] = p
	}
	return nil
}

// List returns every plant ordered by name.
func (r *PlantRepo) List(ctx context.Context) ([]domain.SolarPlant, error) {
	return r.filter(func(domain.SolarPlant) bool { return true }), nil
}

// FindInRegion returns plants inside the region, edges included.
func (r *PlantRepo) FindInRegion(ctx context.Context, region domain.BoundingRegion) ([]domain.SolarPlant, error) {
	return r.filter(func(p domain.SolarPlant) bool { return region.Contains(p.Location) }), nil
}

func (r *PlantRepo) filter(keep func(domain.SolarPlant) bool) []domain.SolarPlant {
	r.mu.RLock()
	out := make([]domain.SolarPlant, 0, len(r.plants))
	for _, p := range r.plants {
		if keep(p) {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
