package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// GroupPolicy controls how remote group associations are reconciled.
type GroupPolicy string

const (
	GroupPolicyIgnore    GroupPolicy = ""           // strip remote groups
	GroupPolicyOnlyLocal GroupPolicy = "only_local" // keep groups that resolve locally
	GroupPolicyCreate    GroupPolicy = "create"     // create missing groups from the remote definition
)

// OrgPolicy controls how the remote owner organization is reconciled.
type OrgPolicy string

const (
	OrgPolicyNone      OrgPolicy = ""           // always assign the source's local organization
	OrgPolicyOnlyLocal OrgPolicy = "only_local" // use the remote org when it exists locally
	OrgPolicyCreate    OrgPolicy = "create"     // create the remote org locally when missing
)

// FieldFilter is a single field:value search filter entry.
type FieldFilter struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Tag is a dataset tag as exchanged with the catalog API.
type Tag struct {
	Name       string `json:"name" validate:"required"`
	Vocabulary string `json:"vocabulary_id,omitempty"`
}

// HarvestConfig holds the per-source harvest settings. It is parsed once per
// run from the source's JSON config document and is immutable afterwards;
// every component receives it as a value, never through shared state.
type HarvestConfig struct {
	APIKey           string `json:"api_key,omitempty"`
	APIVersion       int    `json:"api_version,omitempty"`
	ActionAPIVersion int    `json:"action_api_version,omitempty" validate:"omitempty,oneof=1 2 3"`

	DefaultTags   []Tag                  `json:"default_tags,omitempty" validate:"dive"`
	DefaultGroups []string               `json:"default_groups,omitempty"`
	DefaultExtras map[string]interface{} `json:"default_extras,omitempty"`

	// DefaultGroupRecords caches the full local group records resolved from
	// DefaultGroups at validation time, so the import stage does not need a
	// lookup per record. Mirrors the config's internal default_group_dicts key.
	DefaultGroupRecords []Group `json:"default_group_dicts,omitempty"`

	OverrideExtras bool `json:"override_extras,omitempty"`

	OrganizationsFilterInclude []string      `json:"organizations_filter_include,omitempty"`
	OrganizationsFilterExclude []string      `json:"organizations_filter_exclude,omitempty"`
	GroupsFilterInclude        []string      `json:"groups_filter_include,omitempty"`
	GroupsFilterExclude        []string      `json:"groups_filter_exclude,omitempty"`
	FieldFilterInclude         []FieldFilter `json:"field_filter_include,omitempty" validate:"dive"`
	FieldFilterExclude         []FieldFilter `json:"field_filter_exclude,omitempty" validate:"dive"`

	SpatialFilter     string `json:"spatial_filter,omitempty"`
	SpatialFilterFile string `json:"spatial_filter_file,omitempty"`
	SpatialCRS        int    `json:"spatial_crs,omitempty"`

	RemoteGroups GroupPolicy `json:"remote_groups,omitempty" validate:"omitempty,oneof=only_local create"`
	RemoteOrgs   OrgPolicy   `json:"remote_orgs,omitempty" validate:"omitempty,oneof=only_local create"`

	ForcePackageType string `json:"force_package_type,omitempty"`
	ReadOnly         bool   `json:"read_only,omitempty"`
	ForceAll         bool   `json:"force_all,omitempty"`
	User             string `json:"user,omitempty"`
	UseDefaultSchema bool   `json:"use_default_schema,omitempty"`
}

// ConfigError reports malformed or contradictory harvest configuration.
// It is fatal to the run and must surface before any gathering starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("harvest config: %s", e.Reason)
}

var configValidator = validator.New()

// ParseHarvestConfig parses a source's JSON config document and applies
// defaults. An empty document yields the default configuration.
func ParseHarvestConfig(raw string) (*HarvestConfig, error) {
	cfg := &HarvestConfig{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), cfg); err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("not valid JSON: %v", err)}
		}
	}

	if cfg.APIVersion == 0 {
		cfg.APIVersion = 2
	}
	if cfg.ActionAPIVersion == 0 {
		cfg.ActionAPIVersion = 3
	}
	if cfg.SpatialCRS == 0 {
		cfg.SpatialCRS = 4326
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the struct tag rules plus the cross-field constraints
// that tags cannot express: include/exclude lists are mutually exclusive per
// dimension, and the spatial filter comes from at most one place.
func (c *HarvestConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return &ConfigError{Reason: err.Error()}
	}

	if len(c.OrganizationsFilterInclude) > 0 && len(c.OrganizationsFilterExclude) > 0 {
		return &ConfigError{Reason: "cannot contain both organizations_filter_include and organizations_filter_exclude"}
	}
	if len(c.GroupsFilterInclude) > 0 && len(c.GroupsFilterExclude) > 0 {
		return &ConfigError{Reason: "cannot contain both groups_filter_include and groups_filter_exclude"}
	}
	if len(c.FieldFilterInclude) > 0 && len(c.FieldFilterExclude) > 0 {
		return &ConfigError{Reason: "cannot contain both field_filter_include and field_filter_exclude"}
	}
	if c.SpatialFilter != "" && c.SpatialFilterFile != "" {
		return &ConfigError{Reason: "cannot contain both spatial_filter and spatial_filter_file"}
	}

	return nil
}

// ResolveDefaults resolves default_groups against the local catalog and
// caches the full group records, and verifies the configured user exists.
// Called once at run start; a missing group or user is a ConfigError.
func (c *HarvestConfig) ResolveDefaults(lookup LocalLookup) error {
	if len(c.DefaultGroups) > 0 {
		c.DefaultGroupRecords = c.DefaultGroupRecords[:0]
		for _, nameOrID := range c.DefaultGroups {
			group, err := lookup.GroupShow(nameOrID)
			if err != nil {
				return &ConfigError{Reason: fmt.Sprintf("default group not found: %s", nameOrID)}
			}
			c.DefaultGroupRecords = append(c.DefaultGroupRecords, *group)
		}
	}

	if c.User != "" {
		if err := lookup.UserExists(c.User); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("user not found: %s", c.User)}
		}
	}

	return nil
}

// LocalLookup is the subset of the local catalog needed at validation time.
type LocalLookup interface {
	GroupShow(idOrName string) (*Group, error)
	UserExists(username string) error
}
