package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

func TestGroupCreateAndShowByIDOrName(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	created, err := storage.GroupCreate(ctx, &models.GroupCreate{ID: "g-1", Name: "coastal", Title: "Coastal"})
	require.NoError(t, err)
	assert.Equal(t, "g-1", created.ID)

	byID, err := storage.GroupShow(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "coastal", byID.Name)

	byName, err := storage.GroupShow(ctx, "coastal")
	require.NoError(t, err)
	assert.Equal(t, "g-1", byName.ID)

	_, err = storage.GroupShow(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestOrganizationsAndGroupsAreSeparate(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	_, err := storage.GroupCreate(ctx, &models.GroupCreate{Name: "shared-name"})
	require.NoError(t, err)

	// A group must not satisfy an organization lookup.
	_, err = storage.OrganizationShow(ctx, "shared-name")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	org, err := storage.OrganizationCreate(ctx, &models.OrganizationCreate{Name: "shared-name"})
	require.NoError(t, err)

	found, err := storage.OrganizationShow(ctx, "shared-name")
	require.NoError(t, err)
	assert.Equal(t, org.ID, found.ID)
}

func TestGroupCreateGeneratesID(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger())

	created, err := storage.GroupCreate(context.Background(), &models.GroupCreate{Name: "no-id"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = storage.GroupCreate(context.Background(), &models.GroupCreate{})
	var validationErr *interfaces.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpsertDatasetCreatedThenUpdated(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	record := models.RemoteRecord{"id": "ds-1", "name": "rainfall", "owner_org": "o-1"}

	created, err := storage.UpsertDataset(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)

	record["name"] = "rainfall-v2"
	created, err = storage.UpsertDataset(ctx, record)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUpsertDatasetValidation(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	var validationErr *interfaces.ValidationError

	_, err := storage.UpsertDataset(ctx, models.RemoteRecord{"owner_org": "o-1"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = storage.UpsertDataset(ctx, models.RemoteRecord{"id": "ds-1"})
	assert.ErrorAs(t, err, &validationErr)
}

func TestUserLifecycle(t *testing.T) {
	db := newTestDB(t)
	storage := NewCatalogStorage(db, arbor.NewLogger()).(*CatalogStorage)
	ctx := context.Background()

	assert.ErrorIs(t, storage.UserShow(ctx, "harvester"), interfaces.ErrNotFound)

	require.NoError(t, storage.EnsureUser(ctx, "harvester"))
	assert.NoError(t, storage.UserShow(ctx, "harvester"))
}
