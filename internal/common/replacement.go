// Package common provides shared utilities for the harvest pipeline.
//
// The {key-name} syntax allows configured extra values to reference
// run-scoped context. At apply time these references are replaced with the
// actual values for the current source, run, object and dataset.
//
// Example:
//   Input:  "harvested from {harvest_source_url}"
//   Values: {"harvest_source_url": "https://data.example.org"}
//   Output: "harvested from https://data.example.org"
//
// Replacement is case-sensitive. Missing keys are logged as warnings but not
// treated as errors; the reference is left unchanged.
package common

import (
	"regexp"

	"github.com/ternarybob/arbor"
)

// placeholderPattern matches {key-name} references in strings
// Allows alphanumeric characters, hyphens, and underscores
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplacePlaceholders replaces all {key-name} references in the input string
// with values from the provided map. If a key is not found, the reference is
// left unchanged and a warning is logged.
func ReplacePlaceholders(input string, values map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	logUnresolvedPlaceholders(input, values, logger)

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract key name (remove braces)
		keyName := match[1 : len(match)-1]

		if value, exists := values[keyName]; exists {
			return value
		}

		// Key not found - return unchanged
		return match
	})
}

// logUnresolvedPlaceholders finds all {key-name} references and logs warnings for missing keys
func logUnresolvedPlaceholders(input string, values map[string]string, logger arbor.ILogger) {
	if logger == nil {
		return
	}
	matches := placeholderPattern.FindAllStringSubmatch(input, -1)
	for _, match := range matches {
		if len(match) > 1 {
			keyName := match[1]
			if _, exists := values[keyName]; !exists {
				logger.Warn().
					Str("reference", match[0]).
					Str("key", keyName).
					Msg("Unresolved placeholder - key not in run context")
			}
		}
	}
}
