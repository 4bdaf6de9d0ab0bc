package models

// HarvestSource describes one remote catalog to harvest from. Sources are
// loaded from definition files (TOML or YAML) in the configured sources
// directory; Config carries the JSON harvest configuration verbatim and is
// parsed per run.
type HarvestSource struct {
	ID    string `json:"id" toml:"id" yaml:"id"`
	Name  string `json:"name" toml:"name" yaml:"name"`
	Title string `json:"title" toml:"title" yaml:"title"`
	URL   string `json:"url" toml:"url" yaml:"url"`

	// Config is the per-source harvest configuration JSON document.
	Config string `json:"config,omitempty" toml:"config" yaml:"config"`

	// Schedule is a cron expression for recurring harvests; empty means
	// on-demand only.
	Schedule string `json:"schedule,omitempty" toml:"schedule" yaml:"schedule"`

	// OwnerOrg is the local organization that owns this source. It is the
	// fallback owner for every imported dataset.
	OwnerOrg string `json:"owner_org,omitempty" toml:"owner_org" yaml:"owner_org"`
}
