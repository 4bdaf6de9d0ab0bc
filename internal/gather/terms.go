package gather

import (
	"fmt"
	"strings"

	"github.com/ternarybob/colligo/internal/models"
)

// BuildFilterTerms translates the config's include/exclude lists into search
// filter terms. An include list becomes a single disjunctive term
// ("dim:a OR dim:b"); an exclude list becomes one negated term per value.
// Config validation guarantees include and exclude are never both set for
// the same dimension.
func BuildFilterTerms(cfg *models.HarvestConfig) []string {
	var terms []string

	if len(cfg.OrganizationsFilterInclude) > 0 {
		terms = append(terms, disjunction("organization", cfg.OrganizationsFilterInclude))
	} else {
		for _, org := range cfg.OrganizationsFilterExclude {
			terms = append(terms, "-organization:"+org)
		}
	}

	if len(cfg.GroupsFilterInclude) > 0 {
		terms = append(terms, disjunction("groups", cfg.GroupsFilterInclude))
	} else {
		for _, group := range cfg.GroupsFilterExclude {
			terms = append(terms, "-groups:"+group)
		}
	}

	if len(cfg.FieldFilterInclude) > 0 {
		parts := make([]string, len(cfg.FieldFilterInclude))
		for i, item := range cfg.FieldFilterInclude {
			parts[i] = fmt.Sprintf("%s:%s", item.Field, item.Value)
		}
		terms = append(terms, strings.Join(parts, " OR "))
	} else {
		for _, item := range cfg.FieldFilterExclude {
			terms = append(terms, fmt.Sprintf("-%s:%s", item.Field, item.Value))
		}
	}

	return terms
}

func disjunction(dimension string, values []string) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = dimension + ":" + value
	}
	return strings.Join(parts, " OR ")
}
