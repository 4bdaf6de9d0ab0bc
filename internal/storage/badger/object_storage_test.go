package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
)

func TestObjectStorageLifecycle(t *testing.T) {
	db := newTestDB(t)
	storage := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	obj := &models.HarvestObject{
		ID:        "obj_1",
		RunID:     "run_1",
		SourceID:  "src-1",
		GUID:      "ds-1",
		Content:   []byte(`{"id": "ds-1"}`),
		State:     models.ObjectStatePending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, storage.SaveObject(ctx, obj))

	got, err := storage.GetObject(ctx, "obj_1")
	require.NoError(t, err)
	assert.Equal(t, "ds-1", got.GUID)
	assert.Equal(t, models.ObjectStatePending, got.State)

	record, err := got.Record()
	require.NoError(t, err)
	assert.Equal(t, "ds-1", record.ID())

	got.State = models.ObjectStateImported
	got.FinishedAt = time.Now().UTC()
	require.NoError(t, storage.UpdateObject(ctx, got))

	updated, err := storage.GetObject(ctx, "obj_1")
	require.NoError(t, err)
	assert.Equal(t, models.ObjectStateImported, updated.State)
}

func TestPendingObjectsOrderedAndScoped(t *testing.T) {
	db := newTestDB(t)
	storage := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	objects := []*models.HarvestObject{
		{ID: "obj_b", RunID: "run_1", GUID: "ds-b", State: models.ObjectStatePending, CreatedAt: base.Add(time.Minute)},
		{ID: "obj_a", RunID: "run_1", GUID: "ds-a", State: models.ObjectStatePending, CreatedAt: base},
		{ID: "obj_done", RunID: "run_1", GUID: "ds-c", State: models.ObjectStateImported, CreatedAt: base},
		{ID: "obj_other", RunID: "run_2", GUID: "ds-d", State: models.ObjectStatePending, CreatedAt: base},
	}
	for _, obj := range objects {
		require.NoError(t, storage.SaveObject(ctx, obj))
	}

	pending, err := storage.PendingObjects(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "obj_a", pending[0].ID)
	assert.Equal(t, "obj_b", pending[1].ID)
}

func TestCountByState(t *testing.T) {
	db := newTestDB(t)
	storage := NewObjectStorage(db, arbor.NewLogger())
	ctx := context.Background()

	states := []models.ObjectState{
		models.ObjectStateImported,
		models.ObjectStateImported,
		models.ObjectStateSkipped,
		models.ObjectStateErrored,
	}
	for i, state := range states {
		require.NoError(t, storage.SaveObject(ctx, &models.HarvestObject{
			ID: string(rune('a'+i)) + "_obj", RunID: "run_1", State: state, CreatedAt: time.Now().UTC(),
		}))
	}

	imported, err := storage.CountByState(ctx, "run_1", models.ObjectStateImported)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	errored, err := storage.CountByState(ctx, "run_1", models.ObjectStateErrored)
	require.NoError(t, err)
	assert.Equal(t, 1, errored)
}
