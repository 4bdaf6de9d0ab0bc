// Package harvester runs the two-stage harvest pipeline: gather candidate
// records from the remote catalog into pending objects, then import each
// object into the local catalog.
package harvester

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/catalog"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/gather"
	"github.com/ternarybob/colligo/internal/httpclient"
	"github.com/ternarybob/colligo/internal/importer"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/spatial"
	"github.com/ternarybob/colligo/internal/worker"
)

// Coordinator owns the run lifecycle for every harvest source.
type Coordinator struct {
	runs    interfaces.RunStorage
	objects interfaces.ObjectStorage
	local   interfaces.LocalCatalog
	config  *common.HarvesterConfig
	logger  arbor.ILogger
}

// NewCoordinator creates a coordinator over the given storage and catalog.
func NewCoordinator(runs interfaces.RunStorage, objects interfaces.ObjectStorage, local interfaces.LocalCatalog, config *common.HarvesterConfig, logger arbor.ILogger) *Coordinator {
	return &Coordinator{
		runs:    runs,
		objects: objects,
		local:   local,
		config:  config,
		logger:  logger,
	}
}

// RunSource executes one full harvest run for the source. The returned run
// reflects the persisted final state; the error is the run-fatal cause when
// the run failed before producing pending work.
func (c *Coordinator) RunSource(ctx context.Context, source *models.HarvestSource) (*models.HarvestRun, error) {
	active, err := c.runs.ActiveRun(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("could not check for active runs: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("source %s already has an active run (%s)", source.ID, active.ID)
	}

	run := &models.HarvestRun{
		ID:            common.NewRunID(),
		SourceID:      source.ID,
		Status:        models.RunStatusGathering,
		GatherStarted: time.Now().UTC(),
	}
	if err := c.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not persist run: %w", err)
	}

	log := c.logger.WithCorrelationId(run.ID)
	log.Info().
		Str("source_id", source.ID).
		Str("url", source.URL).
		Msg("Harvest run started")

	cfg, err := models.ParseHarvestConfig(source.Config)
	if err != nil {
		return c.failRun(ctx, run, log, err)
	}
	if err := cfg.ResolveDefaults(&localLookup{ctx: ctx, local: c.local}); err != nil {
		return c.failRun(ctx, run, log, err)
	}

	// The geometry filter is resolved once per run so a filter file is read
	// a single time, not once per search.
	spatialWKT, hasSpatial, err := spatial.Resolve(cfg)
	if err != nil {
		return c.failRun(ctx, run, log, err)
	}
	if hasSpatial {
		log.Info().Str("source_id", source.ID).Msg("Spatial filter active for this run")
	}

	fetcher := httpclient.NewContentFetcher(c.config.RequestTimeout, log)
	client := catalog.NewClient(cfg.APIKey,
		catalog.WithFetcher(fetcher),
		catalog.WithLogger(log),
		catalog.WithRateLimit(c.config.RateLimit),
		catalog.WithActionAPIVersion(cfg.ActionAPIVersion),
	)
	planner := gather.NewPlanner(client, log, c.config.PageSize)

	baseline, err := c.runs.LastErrorFreeRun(ctx, source.ID)
	if err != nil {
		return c.failRun(ctx, run, log, err)
	}

	records, err := planner.Gather(ctx, source, cfg, spatialWKT, baseline)
	if err != nil {
		return c.failRun(ctx, run, log, err)
	}

	count, err := c.persistObjects(ctx, run, source, records, log)
	if err != nil {
		return c.failRun(ctx, run, log, err)
	}
	run.ObjectCount = count

	if count == 0 {
		// Valid empty incremental run: still a baseline for the next run.
		run.Status = models.RunStatusCompleted
		run.FinishedAt = time.Now().UTC()
		if err := c.runs.SaveRun(ctx, run); err != nil {
			return run, err
		}
		log.Info().Str("source_id", source.ID).Msg("Harvest run completed, nothing to import")
		return run, nil
	}

	run.Status = models.RunStatusImporting
	if err := c.runs.SaveRun(ctx, run); err != nil {
		return run, err
	}

	engine := importer.NewEngine(c.local, client, log)
	if err := c.importPending(ctx, run, source, cfg, engine, log); err != nil {
		return c.failRun(ctx, run, log, err)
	}

	run.Status = models.RunStatusCompleted
	run.FinishedAt = time.Now().UTC()
	if err := c.runs.SaveRun(ctx, run); err != nil {
		return run, err
	}

	log.Info().
		Str("source_id", source.ID).
		Int("objects", run.ObjectCount).
		Int("imported", run.ImportedCount).
		Int("skipped", run.SkippedCount).
		Int("errors", run.ErrorCount).
		Bool("error_free", run.ErrorFree()).
		Msg("Harvest run completed")

	return run, nil
}

// persistObjects stores one pending object per gathered record. The gather
// stage already weeds duplicates per search, but an incremental search that
// fell back to a full one can surface the same record twice, so records are
// deduplicated once more on the way into storage.
func (c *Coordinator) persistObjects(ctx context.Context, run *models.HarvestRun, source *models.HarvestSource, records []models.RemoteRecord, log arbor.ILogger) (int, error) {
	seen := make(map[string]struct{}, len(records))
	count := 0
	for _, record := range records {
		guid := record.ID()
		if _, dup := seen[guid]; dup {
			log.Info().
				Str("dataset_id", guid).
				Msg("Discarding duplicate dataset before import")
			continue
		}
		seen[guid] = struct{}{}

		content, err := record.Encode()
		if err != nil {
			return count, err
		}

		obj := &models.HarvestObject{
			ID:        common.NewObjectID(),
			RunID:     run.ID,
			SourceID:  source.ID,
			GUID:      guid,
			Content:   content,
			State:     models.ObjectStatePending,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.objects.SaveObject(ctx, obj); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// importPending runs the merge engine over the run's pending objects with a
// bounded worker pool, recording each object's terminal state and updating
// the run counters.
func (c *Coordinator) importPending(ctx context.Context, run *models.HarvestRun, source *models.HarvestSource, cfg *models.HarvestConfig, engine *importer.Engine, log arbor.ILogger) error {
	pending, err := c.objects.PendingObjects(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("could not load pending objects: %w", err)
	}

	runCtx := importer.RunContext{Source: source, RunID: run.ID}

	var mu sync.Mutex
	pool := worker.NewPool(ctx, c.config.ImportWorkers, log)
	pool.Start()

	for _, obj := range pending {
		obj := obj
		err := pool.Submit(func(jobCtx context.Context) error {
			result := engine.Import(jobCtx, obj, cfg, runCtx)

			obj.FinishedAt = time.Now().UTC()
			switch result.Outcome {
			case importer.OutcomeCreated, importer.OutcomeUpdated:
				obj.State = models.ObjectStateImported
			case importer.OutcomeSkipped:
				obj.State = models.ObjectStateSkipped
				log.Info().
					Str("dataset_id", obj.GUID).
					Str("reason", result.Reason).
					Msg("Record skipped")
			case importer.OutcomeErrored:
				obj.State = models.ObjectStateErrored
				obj.Error = result.Reason
				log.Error().
					Str("dataset_id", obj.GUID).
					Str("reason", result.Reason).
					Msg("Record import failed")
			}
			if err := c.objects.UpdateObject(jobCtx, obj); err != nil {
				return fmt.Errorf("could not update object %s: %w", obj.ID, err)
			}

			mu.Lock()
			switch obj.State {
			case models.ObjectStateImported:
				run.ImportedCount++
			case models.ObjectStateSkipped:
				run.SkippedCount++
			case models.ObjectStateErrored:
				run.ErrorCount++
			}
			mu.Unlock()
			return nil
		})
		if err != nil {
			break
		}
	}

	pool.Wait()

	// Storage failures inside workers count as record errors so the run is
	// not mistaken for an error-free baseline.
	if poolErrs := pool.Errors(); len(poolErrs) > 0 {
		mu.Lock()
		run.ErrorCount += len(poolErrs)
		mu.Unlock()
	}

	return nil
}

// failRun records a run-fatal failure. A failed run produced no importable
// work and is never used as an incremental baseline.
func (c *Coordinator) failRun(ctx context.Context, run *models.HarvestRun, log arbor.ILogger, cause error) (*models.HarvestRun, error) {
	run.Status = models.RunStatusFailed
	run.GatherError = cause.Error()
	run.FinishedAt = time.Now().UTC()

	if err := c.runs.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Could not persist failed run")
	}

	log.Error().
		Str("source_id", run.SourceID).
		Err(cause).
		Msg("Harvest run failed")

	return run, cause
}

// localLookup adapts the local catalog to the narrow lookup the config
// resolution step needs.
type localLookup struct {
	ctx   context.Context
	local interfaces.LocalCatalog
}

func (l *localLookup) GroupShow(idOrName string) (*models.Group, error) {
	return l.local.GroupShow(l.ctx, idOrName)
}

func (l *localLookup) UserExists(username string) error {
	return l.local.UserShow(l.ctx, username)
}
