// Package gather decides which remote records are candidates for a harvest
// run: incremental-vs-full search, filter terms, spatial narrowing, and
// id-sorted pagination with duplicate weeding.
package gather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/catalog"
	"github.com/ternarybob/colligo/internal/models"
)

// DefaultPageSize is the fixed search page size.
const DefaultPageSize = 100

// incrementalBackoff absorbs clock skew between the two catalogs: the
// modified-since search reaches back an hour before the baseline run start.
const incrementalBackoff = time.Hour

// GatherError is a run-level gather failure: no pending work was produced
// and the run cannot be an incremental baseline.
type GatherError struct {
	Reason string
	Err    error
}

func (e *GatherError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gather failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("gather failed: %s", e.Reason)
}

func (e *GatherError) Unwrap() error {
	return e.Err
}

// Planner drives the gather phase for one run.
type Planner struct {
	client   *catalog.Client
	logger   arbor.ILogger
	pageSize int
}

// NewPlanner creates a planner around the given catalog client.
func NewPlanner(client *catalog.Client, logger arbor.ILogger, pageSize int) *Planner {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Planner{
		client:   client,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Gather returns the remote records that are candidates for this run.
// spatialWKT is the pre-resolved geometry filter, empty when none is
// configured. lastErrorFree is the incremental baseline run, nil when the
// source has never completed without record errors.
//
// An incremental search that succeeds with zero records is the valid
// "nothing changed" outcome: empty result, no error. A full search that
// returns nothing is a GatherError, because an initial sync finding no
// datasets usually means a misconfigured source.
func (p *Planner) Gather(ctx context.Context, source *models.HarvestSource, cfg *models.HarvestConfig, spatialWKT string, lastErrorFree *models.HarvestRun) ([]models.RemoteRecord, error) {
	baseURL := strings.TrimRight(source.URL, "/")
	fqTerms := BuildFilterTerms(cfg)

	getAll := true
	var records []models.RemoteRecord

	if lastErrorFree != nil && !cfg.ForceAll {
		getAll = false

		// Request only datasets modified since the last error-free run.
		since := lastErrorFree.GatherStarted.UTC().Add(-incrementalBackoff)
		sinceTerm := fmt.Sprintf("metadata_modified:[%sZ TO *]", since.Format("2006-01-02T15:04:05"))

		p.logger.Info().
			Str("source_id", source.ID).
			Str("since", since.Format(time.RFC3339)).
			Msg("Searching for datasets modified since last error-free run")

		incremental, err := p.search(ctx, baseURL, cfg, append(append([]string{}, fqTerms...), sinceTerm), spatialWKT)
		if err != nil {
			var searchErr *catalog.SearchError
			if !errors.As(err, &searchErr) {
				return nil, err
			}
			p.logger.Info().
				Str("source_id", source.ID).
				Err(err).
				Msg("Incremental search failed, falling back to full search")
			getAll = true
		} else if len(incremental) == 0 {
			p.logger.Info().
				Str("source_id", source.ID).
				Msg("No datasets updated on the remote catalog since the last harvest")
			return nil, nil
		} else {
			records = incremental
		}
	}

	if getAll {
		full, err := p.search(ctx, baseURL, cfg, fqTerms, spatialWKT)
		if err != nil {
			return nil, &GatherError{
				Reason: fmt.Sprintf("unable to search remote catalog %s (terms: %v)", baseURL, fqTerms),
				Err:    err,
			}
		}
		if len(full) == 0 {
			return nil, &GatherError{Reason: fmt.Sprintf("no datasets found at %s", baseURL)}
		}
		records = full
	}

	return records, nil
}

// search pages through the remote dataset search and returns all matching
// records. Pages are sorted by id: records are only missed when some are
// removed mid-run, which is rarer than additions; additions can surface a
// record twice across pages, so ids already seen this run are weeded out.
func (p *Planner) search(ctx context.Context, baseURL string, cfg *models.HarvestConfig, fqTerms []string, spatialWKT string) ([]models.RemoteRecord, error) {
	var spatialIDs map[string]struct{}
	if spatialWKT != "" {
		ids, err := p.client.SpatialSearch(ctx, baseURL, spatialWKT, cfg.SpatialCRS)
		if err != nil {
			return nil, err
		}
		spatialIDs = ids
		p.logger.Debug().
			Int("matches", len(ids)).
			Msg("Spatial search resolved matching dataset ids")
	}

	var all []models.RemoteRecord
	seen := make(map[string]struct{})
	var previousRaw []byte
	start := 0

	for {
		page, err := p.client.SearchPage(ctx, baseURL, fqTerms, start, p.pageSize, cfg.UseDefaultSchema)
		if err != nil {
			return nil, err
		}

		// A page identical to the previous one means the cursor is not
		// advancing; fail rather than loop forever.
		if previousRaw != nil && bytes.Equal(previousRaw, page.Raw) {
			return nil, &catalog.SearchError{Reason: fmt.Sprintf("paging does not advance at start=%d", start)}
		}
		previousRaw = page.Raw

		var kept []models.RemoteRecord
		for _, record := range page.Records {
			id := record.ID()
			if id == "" {
				p.logger.Warn().Msg("Discarding remote record with no id")
				continue
			}
			if _, dup := seen[id]; dup {
				p.logger.Info().
					Str("dataset_id", id).
					Msg("Discarding duplicate dataset - remote records changed while paging")
				continue
			}
			seen[id] = struct{}{}

			if spatialIDs != nil {
				if _, match := spatialIDs[id]; !match {
					continue
				}
			}

			if cfg.ForcePackageType != "" && record.Type() != "" {
				record.SetType(cfg.ForcePackageType)
			}

			kept = append(kept, record)
		}

		all = append(all, kept...)

		if len(kept) == 0 {
			break
		}

		start += p.pageSize
	}

	return all, nil
}
