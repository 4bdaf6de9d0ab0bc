package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ObjectStorage implements the ObjectStorage interface for Badger
type ObjectStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewObjectStorage creates a new ObjectStorage instance
func NewObjectStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ObjectStorage {
	return &ObjectStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ObjectStorage) SaveObject(ctx context.Context, obj *models.HarvestObject) error {
	if obj.ID == "" {
		return fmt.Errorf("object ID is required")
	}

	if err := s.db.Store().Upsert(obj.ID, obj); err != nil {
		return fmt.Errorf("failed to save object: %w", err)
	}
	return nil
}

func (s *ObjectStorage) UpdateObject(ctx context.Context, obj *models.HarvestObject) error {
	return s.SaveObject(ctx, obj)
}

func (s *ObjectStorage) GetObject(ctx context.Context, objectID string) (*models.HarvestObject, error) {
	var obj models.HarvestObject
	if err := s.db.Store().Get(objectID, &obj); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("object not found: %s", objectID)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &obj, nil
}

// PendingObjects returns the run's objects awaiting import, oldest first so
// import order follows gather order.
func (s *ObjectStorage) PendingObjects(ctx context.Context, runID string) ([]*models.HarvestObject, error) {
	query := badgerhold.Where("RunID").Eq(runID).
		And("State").Eq(models.ObjectStatePending).
		SortBy("CreatedAt")

	var objects []models.HarvestObject
	if err := s.db.Store().Find(&objects, query); err != nil {
		return nil, fmt.Errorf("failed to query pending objects: %w", err)
	}

	result := make([]*models.HarvestObject, len(objects))
	for i := range objects {
		result[i] = &objects[i]
	}
	return result, nil
}

func (s *ObjectStorage) CountByState(ctx context.Context, runID string, state models.ObjectState) (int, error) {
	var objects []models.HarvestObject
	query := badgerhold.Where("RunID").Eq(runID).And("State").Eq(state)
	if err := s.db.Store().Find(&objects, query); err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return len(objects), nil
}
