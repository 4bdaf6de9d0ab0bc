// Package importer turns gathered harvest objects into local catalog
// datasets: tag and extras merging, group and organization reconciliation,
// resource sanitation, then the idempotent upsert.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/catalog"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// RunContext carries the run-scoped values the engine needs beyond the
// record itself: the owning source and the run id, used for the extras
// placeholders and the owner-organization fallback.
type RunContext struct {
	Source *models.HarvestSource
	RunID  string
}

// Engine merges one remote record at a time into the local catalog.
type Engine struct {
	local  interfaces.LocalCatalog
	remote *catalog.Client
	logger arbor.ILogger
}

// NewEngine creates a merge engine. The remote client is only used when a
// create policy needs the full remote group or organization definition.
func NewEngine(local interfaces.LocalCatalog, remote *catalog.Client, logger arbor.ILogger) *Engine {
	return &Engine{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Import merges the object's stored record and upserts it locally. Failures
// are per-record: the returned result carries the outcome and the coordinator
// decides nothing beyond counting.
func (e *Engine) Import(ctx context.Context, obj *models.HarvestObject, cfg *models.HarvestConfig, run RunContext) *ImportResult {
	record, err := obj.Record()
	if err != nil {
		return errored(obj.GUID, fmt.Sprintf("could not decode stored content: %v", err))
	}

	// Never import another catalog's harvest sources as datasets.
	if record.Type() == "harvest" {
		e.logger.Info().
			Str("dataset_id", record.ID()).
			Msg("Remote dataset is a harvest source, ignoring")
		return skipped(obj.GUID, "remote dataset is a harvest source")
	}

	if cfg.ReadOnly {
		return skipped(obj.GUID, "source is read-only")
	}

	e.mergeTags(record, cfg)

	baseURL := strings.TrimRight(run.Source.URL, "/")

	if err := e.mergeGroups(ctx, record, cfg, baseURL); err != nil {
		return errored(obj.GUID, err.Error())
	}

	if err := e.mergeOwnerOrg(ctx, record, cfg, run.Source, baseURL); err != nil {
		return errored(obj.GUID, err.Error())
	}

	e.mergeDefaultGroups(record, cfg)
	e.mergeDefaultExtras(record, cfg, obj, run)
	record.SanitizeResources()

	created, err := e.local.UpsertDataset(ctx, record)
	if err != nil {
		var validationErr *interfaces.ValidationError
		if errors.As(err, &validationErr) {
			return errored(obj.GUID, fmt.Sprintf("invalid package with GUID %s: %s", obj.GUID, validationErr.Reason))
		}
		return errored(obj.GUID, fmt.Sprintf("upsert failed: %v", err))
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	return &ImportResult{GUID: obj.GUID, Outcome: outcome}
}

// mergeTags appends each configured default tag unless the record already
// carries a tag of the same name.
func (e *Engine) mergeTags(record models.RemoteRecord, cfg *models.HarvestConfig) {
	if len(cfg.DefaultTags) == 0 {
		return
	}

	existing := make(map[string]struct{})
	for _, name := range record.TagNames() {
		existing[name] = struct{}{}
	}

	for _, tag := range cfg.DefaultTags {
		if _, ok := existing[tag.Name]; ok {
			continue
		}
		record.AddTag(tag)
		existing[tag.Name] = struct{}{}
	}
}

// mergeGroups reconciles the record's remote group associations against the
// local catalog according to the configured policy. With no policy the
// associations are stripped; with only_local the ones that resolve locally
// are kept; with create, missing groups are copied from the remote catalog.
func (e *Engine) mergeGroups(ctx context.Context, record models.RemoteRecord, cfg *models.HarvestConfig, baseURL string) error {
	if cfg.RemoteGroups != models.GroupPolicyOnlyLocal && cfg.RemoteGroups != models.GroupPolicyCreate {
		record.StripGroups()
		return nil
	}

	var validated []models.GroupRef
	for _, ref := range record.Groups() {
		group, err := e.lookupLocalGroup(ctx, ref)
		if err == nil {
			validated = append(validated, models.GroupRef{ID: group.ID, Name: group.Name})
			continue
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return fmt.Errorf("local group lookup failed: %w", err)
		}

		e.logger.Info().
			Str("group", ref.Name).
			Msg("Group is not available locally")

		if cfg.RemoteGroups != models.GroupPolicyCreate {
			continue
		}

		idOrName := ref.ID
		if idOrName == "" {
			idOrName = ref.Name
		}
		remoteGroup, err := e.remote.GetGroup(ctx, baseURL, idOrName)
		if err != nil {
			var resourceErr *catalog.RemoteResourceError
			if errors.As(err, &resourceErr) {
				e.logger.Error().
					Str("group", ref.Name).
					Err(err).
					Msg("Could not get remote group, skipping association")
				continue
			}
			return err
		}

		created, err := e.local.GroupCreate(ctx, remoteGroup.ToGroupCreate())
		if err != nil {
			return fmt.Errorf("could not create group %s: %w", remoteGroup.Name, err)
		}
		e.logger.Info().
			Str("group", created.Name).
			Msg("Created group from remote definition")
		validated = append(validated, models.GroupRef{ID: created.ID, Name: created.Name})
	}

	record.SetGroups(validated)
	return nil
}

// lookupLocalGroup resolves a group reference by id first, then by name.
func (e *Engine) lookupLocalGroup(ctx context.Context, ref models.GroupRef) (*models.Group, error) {
	if ref.ID != "" {
		group, err := e.local.GroupShow(ctx, ref.ID)
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
	}
	if ref.Name != "" {
		return e.local.GroupShow(ctx, ref.Name)
	}
	return nil, interfaces.ErrNotFound
}

// mergeOwnerOrg decides the dataset's local owner organization. Whatever the
// policy and whatever goes wrong remotely, the record always ends up with a
// non-empty owner: the source's own organization is the fallback.
func (e *Engine) mergeOwnerOrg(ctx context.Context, record models.RemoteRecord, cfg *models.HarvestConfig, source *models.HarvestSource, baseURL string) error {
	if cfg.RemoteOrgs != models.OrgPolicyOnlyLocal && cfg.RemoteOrgs != models.OrgPolicyCreate {
		record.SetOwnerOrg(source.OwnerOrg)
		return nil
	}

	validated := ""
	if remoteOrg := record.OwnerOrg(); remoteOrg != "" {
		org, err := e.local.OrganizationShow(ctx, remoteOrg)
		switch {
		case err == nil:
			validated = org.ID
		case errors.Is(err, interfaces.ErrNotFound):
			if cfg.RemoteOrgs == models.OrgPolicyCreate {
				id, createErr := e.createOrganizationFromRemote(ctx, baseURL, remoteOrg)
				if createErr != nil {
					return createErr
				}
				validated = id
			}
		default:
			return fmt.Errorf("local organization lookup failed: %w", err)
		}
	}

	if validated == "" {
		validated = source.OwnerOrg
	}
	record.SetOwnerOrg(validated)
	return nil
}

// createOrganizationFromRemote copies the remote organization definition into
// the local catalog. Older remote catalogs expose organizations only through
// the group API, so a failed organization fetch retries as a group fetch.
// Fetch and validation failures are logged and yield an empty id so the
// caller falls back to the source organization; they are not record errors.
func (e *Engine) createOrganizationFromRemote(ctx context.Context, baseURL, idOrName string) (string, error) {
	remoteOrg, err := e.remote.GetOrganization(ctx, baseURL, idOrName)
	if err != nil {
		var resourceErr *catalog.RemoteResourceError
		if !errors.As(err, &resourceErr) {
			return "", err
		}
		e.logger.Info().
			Str("organization", idOrName).
			Msg("Could not fetch remote organization, retrying as group")
		remoteOrg, err = e.remote.GetGroup(ctx, baseURL, idOrName)
		if err != nil {
			if errors.As(err, &resourceErr) {
				e.logger.Error().
					Str("organization", idOrName).
					Err(err).
					Msg("Could not get remote org, using the source organization instead")
				return "", nil
			}
			return "", err
		}
	}

	created, err := e.local.OrganizationCreate(ctx, remoteOrg.ToOrganizationCreate())
	if err != nil {
		var validationErr *interfaces.ValidationError
		if errors.As(err, &validationErr) {
			e.logger.Error().
				Str("organization", idOrName).
				Err(err).
				Msg("Could not create remote org, using the source organization instead")
			return "", nil
		}
		return "", err
	}

	e.logger.Info().
		Str("organization", created.Name).
		Msg("Created organization from remote definition")
	return created.ID, nil
}

// mergeDefaultGroups appends the resolved default groups the record is not
// already a member of. Membership is compared by group id.
func (e *Engine) mergeDefaultGroups(record models.RemoteRecord, cfg *models.HarvestConfig) {
	if len(cfg.DefaultGroupRecords) == 0 {
		return
	}

	refs := record.Groups()
	existing := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		existing[ref.ID] = struct{}{}
	}

	for _, group := range cfg.DefaultGroupRecords {
		if _, ok := existing[group.ID]; ok {
			continue
		}
		refs = append(refs, models.GroupRef{ID: group.ID, Name: group.Name})
		existing[group.ID] = struct{}{}
	}
	record.SetGroups(refs)
}

// mergeDefaultExtras applies the configured default extras. An extra already
// on the record wins unless override_extras is set. String values may carry
// {placeholder} references resolved against the run context. Keys are applied
// in sorted order so repeated imports produce identical extras lists.
func (e *Engine) mergeDefaultExtras(record models.RemoteRecord, cfg *models.HarvestConfig, obj *models.HarvestObject, run RunContext) {
	if len(cfg.DefaultExtras) == 0 {
		return
	}

	values := map[string]string{
		"harvest_source_id":    run.Source.ID,
		"harvest_source_url":   strings.TrimRight(run.Source.URL, "/"),
		"harvest_source_title": run.Source.Title,
		"harvest_job_id":       run.RunID,
		"harvest_object_id":    obj.ID,
		"dataset_id":           record.ID(),
	}

	keys := make([]string, 0, len(cfg.DefaultExtras))
	for key := range cfg.DefaultExtras {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	extras := record.Extras()
	for _, key := range keys {
		value := cfg.DefaultExtras[key]

		existingAt := -1
		for i, extra := range extras {
			if extra.Key == key {
				existingAt = i
				break
			}
		}
		if existingAt >= 0 {
			if !cfg.OverrideExtras {
				continue
			}
			extras = append(extras[:existingAt], extras[existingAt+1:]...)
		}

		if s, ok := value.(string); ok {
			value = common.ReplacePlaceholders(s, values, e.logger)
		}
		extras = append(extras, models.Extra{Key: key, Value: value})
	}
	record.SetExtras(extras)
}
