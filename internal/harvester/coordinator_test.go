package harvester

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

type testStack struct {
	coordinator *Coordinator
	runs        interfaces.RunStorage
	objects     interfaces.ObjectStorage
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runs := badger.NewRunStorage(db, logger)
	objects := badger.NewObjectStorage(db, logger)
	local := badger.NewCatalogStorage(db, logger)

	harvesterCfg := &common.HarvesterConfig{
		PageSize:       100,
		RequestTimeout: 5 * time.Second,
		RateLimit:      1000,
		ImportWorkers:  2,
	}

	return &testStack{
		coordinator: NewCoordinator(runs, objects, local, harvesterCfg, logger),
		runs:        runs,
		objects:     objects,
	}
}

// newRemoteCatalog serves a fixed corpus with incremental searches finding
// nothing changed.
func newRemoteCatalog(t *testing.T, corpus []map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/3/action/package_search", r.URL.Path)

		page := []map[string]interface{}{}
		if !strings.Contains(r.URL.Query().Get("fq"), "metadata_modified:") {
			start, _ := strconv.Atoi(r.URL.Query().Get("start"))
			rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))
			if start < len(corpus) {
				end := start + rows
				if end > len(corpus) {
					end = len(corpus)
				}
				page = corpus[start:end]
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"results": page},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunSourceEndToEnd(t *testing.T) {
	corpus := []map[string]interface{}{
		{"id": "ds-0", "name": "rainfall"},
		{"id": "ds-1", "name": "other-harvester", "type": "harvest"},
		{"id": "ds-2", "name": "tides"},
	}
	server := newRemoteCatalog(t, corpus)
	stack := newTestStack(t)

	source := &models.HarvestSource{
		ID:       "src-1",
		Name:     "test",
		URL:      server.URL,
		OwnerOrg: "local-org",
	}

	run, err := stack.coordinator.RunSource(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.ObjectCount)
	assert.Equal(t, 2, run.ImportedCount)
	assert.Equal(t, 1, run.SkippedCount)
	assert.Equal(t, 0, run.ErrorCount)
	assert.True(t, run.ErrorFree())

	imported, err := stack.objects.CountByState(context.Background(), run.ID, models.ObjectStateImported)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	pending, err := stack.objects.PendingObjects(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Empty(t, pending, "every object must reach a terminal state")

	// The second run finds the first as its baseline and nothing changed
	// remotely: a clean empty run.
	second, err := stack.coordinator.RunSource(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, second.Status)
	assert.Equal(t, 0, second.ObjectCount)
	assert.True(t, second.ErrorFree())
}

func TestRunSourceRejectsOverlap(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	require.NoError(t, stack.runs.SaveRun(ctx, &models.HarvestRun{
		ID:            "run_live",
		SourceID:      "src-1",
		Status:        models.RunStatusImporting,
		GatherStarted: time.Now().UTC(),
	}))

	source := &models.HarvestSource{ID: "src-1", URL: "http://remote.invalid"}
	_, err := stack.coordinator.RunSource(ctx, source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active run")
}

func TestRunSourceConfigErrorFailsRun(t *testing.T) {
	stack := newTestStack(t)

	source := &models.HarvestSource{
		ID:     "src-1",
		URL:    "http://remote.invalid",
		Config: `{"remote_groups": "bogus"}`,
	}

	run, err := stack.coordinator.RunSource(context.Background(), source)
	require.Error(t, err)

	var configErr *models.ConfigError
	assert.ErrorAs(t, err, &configErr)

	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.GatherError)
	assert.False(t, run.ErrorFree())
}

func TestRunSourceEmptyCatalogFailsRun(t *testing.T) {
	server := newRemoteCatalog(t, nil)
	stack := newTestStack(t)

	source := &models.HarvestSource{ID: "src-1", URL: server.URL, OwnerOrg: "local-org"}

	run, err := stack.coordinator.RunSource(context.Background(), source)
	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)

	// A failed run is not a baseline: the next run searches in full again.
	stored, err := stack.runs.LastErrorFreeRun(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
