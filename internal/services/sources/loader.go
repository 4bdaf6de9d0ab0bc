// Package sources loads harvest source definitions from files.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadFromDir loads all harvest source definitions from TOML and YAML files
// in the given directory. Malformed files are logged and skipped so one bad
// definition never blocks the rest.
func LoadFromDir(dir string, logger arbor.ILogger) ([]*models.HarvestSource, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug().Str("dir", dir).Msg("Sources directory does not exist, skipping")
		return nil, nil
	}

	logger.Info().Str("dir", dir).Msg("Loading harvest sources from files")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources directory: %w", err)
	}

	var loaded []*models.HarvestSource
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		filePath := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read source definition file")
			continue
		}

		source, err := parseSource(data, ext)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse source definition")
			continue
		}

		applyDefaults(source, entry.Name())
		if err := validateSource(source); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Invalid source definition")
			continue
		}

		if previous, dup := seen[source.ID]; dup {
			logger.Warn().
				Str("source_id", source.ID).
				Str("file", entry.Name()).
				Str("defined_in", previous).
				Msg("Duplicate source id, keeping the first definition")
			continue
		}
		seen[source.ID] = entry.Name()

		logger.Info().
			Str("source_id", source.ID).
			Str("url", source.URL).
			Str("file", entry.Name()).
			Msg("Harvest source loaded from file")
		loaded = append(loaded, source)
	}

	if len(loaded) > 0 {
		logger.Info().Int("count", len(loaded)).Msg("Harvest sources loaded from files")
	} else {
		logger.Debug().Msg("No harvest sources loaded from files")
	}

	return loaded, nil
}

func parseSource(data []byte, ext string) (*models.HarvestSource, error) {
	source := &models.HarvestSource{}
	if ext == ".toml" {
		if err := toml.Unmarshal(data, source); err != nil {
			return nil, err
		}
		return source, nil
	}
	if err := yaml.Unmarshal(data, source); err != nil {
		return nil, err
	}
	return source, nil
}

// applyDefaults fills the id and name from the file name when absent.
func applyDefaults(source *models.HarvestSource, fileName string) {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if source.Name == "" {
		source.Name = base
	}
	if source.ID == "" {
		source.ID = source.Name
	}
	if source.Title == "" {
		source.Title = source.Name
	}
}

func validateSource(source *models.HarvestSource) error {
	if source.URL == "" {
		return fmt.Errorf("source %s has no url", source.ID)
	}
	if source.Config != "" {
		if _, err := models.ParseHarvestConfig(source.Config); err != nil {
			return fmt.Errorf("source %s: %w", source.ID, err)
		}
	}
	return nil
}
