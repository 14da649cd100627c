package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/pkg/metrics"
)

// HistoryService records and lists completed optimization runs.
type HistoryService struct {
	runs ports.RunHistoryRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(runs ports.RunHistoryRepository) *HistoryService {
	return &HistoryService{runs: runs}
}

// Record stores a completed run. Redelivered records are upserted by run ID.
func (s *HistoryService) Record(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil || rec.RunID == "" {
		return fmt.Errorf("run record missing run id")
	}
	if err := s.runs.Insert(ctx, rec); err != nil {
		metrics.RunsRecorded.WithLabelValues("error").Inc()
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	metrics.RunsRecorded.WithLabelValues("ok").Inc()
	return nil
}

// List returns a page of runs, newest first, and the total count.
func (s *HistoryService) List(ctx context.Context, offset, limit int) ([]domain.RunRecord, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.runs.List(ctx, offset, limit)
}

// GetByID returns one run.
func (s *HistoryService) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return s.runs.GetByID(ctx, runID)
}
