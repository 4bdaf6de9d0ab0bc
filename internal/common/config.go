package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Sources     SourcesConfig   `toml:"sources"`
	Harvester   HarvesterConfig `toml:"harvester"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// SourcesConfig contains configuration for harvest source definition files
type SourcesConfig struct {
	Dir string `toml:"dir"` // Directory containing source definition files (TOML/YAML)
}

// HarvesterConfig contains the gather/import pipeline settings
type HarvesterConfig struct {
	PageSize       int           `toml:"page_size"`       // Remote search page size
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	RateLimit      int           `toml:"rate_limit"`      // Max remote requests per second
	ImportWorkers  int           `toml:"import_workers"`  // Concurrent import workers per run
}

// SchedulerConfig contains recurring-harvest settings
type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewDefaultConfig returns the configuration defaults. File and environment
// values are layered on top of these.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/colligo",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Sources: SourcesConfig{
			Dir: "./sources",
		},
		Harvester: HarvesterConfig{
			PageSize:       100, // id-sorted pagination contract assumes a fixed page size
			RequestTimeout: 30 * time.Second,
			RateLimit:      10,
			ImportWorkers:  4,
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if badgerPath := os.Getenv("COLLIGO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("COLLIGO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("COLLIGO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if dir := os.Getenv("COLLIGO_SOURCES_DIR"); dir != "" {
		config.Sources.Dir = dir
	}

	if pageSize := os.Getenv("COLLIGO_HARVESTER_PAGE_SIZE"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			config.Harvester.PageSize = ps
		}
	}
	if timeout := os.Getenv("COLLIGO_HARVESTER_REQUEST_TIMEOUT"); timeout != "" {
		if rt, err := time.ParseDuration(timeout); err == nil {
			config.Harvester.RequestTimeout = rt
		}
	}
	if rateLimit := os.Getenv("COLLIGO_HARVESTER_RATE_LIMIT"); rateLimit != "" {
		if rl, err := strconv.Atoi(rateLimit); err == nil && rl > 0 {
			config.Harvester.RateLimit = rl
		}
	}
	if workers := os.Getenv("COLLIGO_HARVESTER_IMPORT_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Harvester.ImportWorkers = w
		}
	}

	if enabled := os.Getenv("COLLIGO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
}
