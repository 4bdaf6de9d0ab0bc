package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// RunStorage persists harvest runs.
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.HarvestRun) error
	GetRun(ctx context.Context, runID string) (*models.HarvestRun, error)

	// LastErrorFreeRun returns the most recent completed run for the source
	// with no gather error and zero record errors, or nil when none exists.
	LastErrorFreeRun(ctx context.Context, sourceID string) (*models.HarvestRun, error)

	// ActiveRun returns the currently gathering/importing run for the
	// source, or nil. Used to prevent overlapping scheduled runs.
	ActiveRun(ctx context.Context, sourceID string) (*models.HarvestRun, error)

	ListRuns(ctx context.Context, sourceID string, limit int) ([]*models.HarvestRun, error)
}

// ObjectStorage persists pending-work units between gather and import.
type ObjectStorage interface {
	SaveObject(ctx context.Context, obj *models.HarvestObject) error
	UpdateObject(ctx context.Context, obj *models.HarvestObject) error
	GetObject(ctx context.Context, objectID string) (*models.HarvestObject, error)

	// PendingObjects returns the run's objects still awaiting import.
	PendingObjects(ctx context.Context, runID string) ([]*models.HarvestObject, error)

	CountByState(ctx context.Context, runID string, state models.ObjectState) (int, error)
}
