package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunStorageSaveAndGet(t *testing.T) {
	db := newTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	run := &models.HarvestRun{
		ID:            "run_1",
		SourceID:      "src-1",
		Status:        models.RunStatusGathering,
		GatherStarted: time.Now().UTC(),
	}
	require.NoError(t, storage.SaveRun(ctx, run))

	got, err := storage.GetRun(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, "src-1", got.SourceID)
	assert.Equal(t, models.RunStatusGathering, got.Status)

	_, err = storage.GetRun(ctx, "run_missing")
	assert.Error(t, err)
}

func TestLastErrorFreeRunPicksNewestClean(t *testing.T) {
	db := newTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	runs := []*models.HarvestRun{
		{ID: "run_clean_old", SourceID: "src-1", Status: models.RunStatusCompleted, GatherStarted: base},
		{ID: "run_clean_new", SourceID: "src-1", Status: models.RunStatusCompleted, GatherStarted: base.Add(2 * time.Hour)},
		{ID: "run_with_errors", SourceID: "src-1", Status: models.RunStatusCompleted, GatherStarted: base.Add(3 * time.Hour), ErrorCount: 2},
		{ID: "run_failed", SourceID: "src-1", Status: models.RunStatusFailed, GatherStarted: base.Add(4 * time.Hour), GatherError: "boom"},
		{ID: "run_other_source", SourceID: "src-2", Status: models.RunStatusCompleted, GatherStarted: base.Add(5 * time.Hour)},
	}
	for _, run := range runs {
		require.NoError(t, storage.SaveRun(ctx, run))
	}

	got, err := storage.LastErrorFreeRun(ctx, "src-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run_clean_new", got.ID)
}

func TestLastErrorFreeRunNone(t *testing.T) {
	db := newTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())

	got, err := storage.LastErrorFreeRun(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveRun(t *testing.T) {
	db := newTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.SaveRun(ctx, &models.HarvestRun{
		ID: "run_done", SourceID: "src-1", Status: models.RunStatusCompleted, GatherStarted: time.Now().UTC(),
	}))

	got, err := storage.ActiveRun(ctx, "src-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, storage.SaveRun(ctx, &models.HarvestRun{
		ID: "run_live", SourceID: "src-1", Status: models.RunStatusImporting, GatherStarted: time.Now().UTC(),
	}))

	got, err = storage.ActiveRun(ctx, "src-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run_live", got.ID)
}

func TestListRunsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	storage := NewRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run_a", "run_b", "run_c"} {
		require.NoError(t, storage.SaveRun(ctx, &models.HarvestRun{
			ID: id, SourceID: "src-1", Status: models.RunStatusCompleted,
			GatherStarted: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := storage.ListRuns(ctx, "src-1", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_c", runs[0].ID)
	assert.Equal(t, "run_b", runs[1].ID)
}
