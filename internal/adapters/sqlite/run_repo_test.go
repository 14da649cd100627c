package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

func newTestRepo(t *testing.T) *RunRepo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() }) //nolint:errcheck
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func runAt(id string, completed time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:     id,
		SessionID: "s-1",
		Region: domain.RegionDescriptor{
			ID:      "r-" + id,
			AreaKm2: 40,
		},
		Result: domain.ResultDescriptor{
			RegionID:       "r-" + id,
			MicrogridCount: 5,
			UtilizationPct: 81.2,
			OutputMw:       113.4,
		},
		StartedAt:   completed.Add(-3 * time.Second),
		CompletedAt: completed,
	}
}

func TestRunRepo_InsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

	require.NoError(t, repo.Insert(ctx, runAt("a", now)))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "r-a", got.Region.ID)
	assert.Equal(t, 5, got.Result.MicrogridCount)
	assert.True(t, now.Equal(got.CompletedAt))
}

func TestRunRepo_GetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunRepo_InsertIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rec := runAt("a", time.Now().UTC())

	require.NoError(t, repo.Insert(ctx, rec))
	require.NoError(t, repo.Insert(ctx, rec))

	_, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRunRepo_ListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, runAt(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	page, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "run-4", page[0].RunID)
	assert.Equal(t, "run-3", page[1].RunID)

	page, _, err = repo.List(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "run-0", page[0].RunID)
}
