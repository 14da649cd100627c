package ports

import (
	"context"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// PlantRepository persists the solar plant catalog.
type PlantRepository interface {
	UpsertBatch(ctx context.Context, plants []domain.SolarPlant) error
	List(ctx context.Context) ([]domain.SolarPlant, error)
	FindInRegion(ctx context.Context, region domain.BoundingRegion) ([]domain.SolarPlant, error)
}

// RunHistoryRepository persists completed optimization runs.
type RunHistoryRepository interface {
	Insert(ctx context.Context, rec *domain.RunRecord) error
	List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error)
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)
}

// SessionStore keeps session snapshots outside process memory.
type SessionStore interface {
	Save(ctx context.Context, snap *domain.SessionSnapshot) error
	Load(ctx context.Context, id string) (*domain.SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
}
