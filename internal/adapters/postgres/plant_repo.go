package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// PlantRepo implements ports.PlantRepository with pgx and PostGIS.
type PlantRepo struct {
	db *DB
}

// NewPlantRepo creates a new PlantRepo.
func NewPlantRepo(db *DB) *PlantRepo {
	return &PlantRepo{db: db}
}

// UpsertBatch inserts or updates many plants using pgx.Batch.
func (r *PlantRepo) UpsertBatch(ctx context.Context, plants []domain.SolarPlant) error {
	batch := &pgx.Batch{}
	for _, p := range plants {
		batch.Queue(`
			INSERT INTO solar_plants (plant_id, name, location, capacity_mw)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
			ON CONFLICT (plant_id) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location,
			    capacity_mw = EXCLUDED.capacity_mw
		`, p.ID, p.Name, p.Location.Lon, p.Location.Lat, p.CapacityMw)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range plants {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// List returns every plant ordered by name.
func (r *PlantRepo) List(ctx context.Context) ([]domain.SolarPlant, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT plant_id, name,
		       ST_X(location::geometry) AS lon,
		       ST_Y(location::geometry) AS lat,
		       capacity_mw, created_at
		FROM solar_plants
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return scanPlants(rows)
}

// FindInRegion returns plants covered by the region, edges included.
func (r *PlantRepo) FindInRegion(ctx context.Context, region domain.BoundingRegion) ([]domain.SolarPlant, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT plant_id, name,
		       ST_X(location::geometry) AS lon,
		       ST_Y(location::geometry) AS lat,
		       capacity_mw, created_at
		FROM solar_plants
		WHERE ST_Covers(ST_MakeEnvelope($1, $2, $3, $4, 4326), location::geometry)
		ORDER BY name
	`, region.SouthWest.Lon, region.SouthWest.Lat, region.NorthEast.Lon, region.NorthEast.Lat)
	if err != nil {
		return nil, err
	}
	return scanPlants(rows)
}

func scanPlants(rows pgx.Rows) ([]domain.SolarPlant, error) {
	defer rows.Close()

	var plants []domain.SolarPlant
	for rows.Next() {
		var p domain.SolarPlant
		if err := rows.Scan(&p.ID, &p.Name, &p.Location.Lon, &p.Location.Lat, &p.CapacityMw, &p.CreatedAt); err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}
