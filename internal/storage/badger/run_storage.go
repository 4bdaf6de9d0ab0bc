package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStorage implements the RunStorage interface for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunStorage) SaveRun(ctx context.Context, run *models.HarvestRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.HarvestRun, error) {
	var run models.HarvestRun
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// LastErrorFreeRun returns the newest completed run for the source that
// finished without a gather error and with zero record errors, or nil.
func (s *RunStorage) LastErrorFreeRun(ctx context.Context, sourceID string) (*models.HarvestRun, error) {
	query := badgerhold.Where("SourceID").Eq(sourceID).
		And("Status").Eq(models.RunStatusCompleted).
		And("GatherError").Eq("").
		And("ErrorCount").Eq(0).
		SortBy("GatherStarted").Reverse().Limit(1)

	var runs []models.HarvestRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to query error-free runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ActiveRun returns the run currently gathering or importing for the source,
// or nil when the source is idle.
func (s *RunStorage) ActiveRun(ctx context.Context, sourceID string) (*models.HarvestRun, error) {
	query := badgerhold.Where("SourceID").Eq(sourceID).
		And("Status").In(models.RunStatusGathering, models.RunStatusImporting).
		Limit(1)

	var runs []models.HarvestRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to query active runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (s *RunStorage) ListRuns(ctx context.Context, sourceID string, limit int) ([]*models.HarvestRun, error) {
	query := badgerhold.Where("SourceID").Eq(sourceID).
		SortBy("GatherStarted").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.HarvestRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.HarvestRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}
