package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/harvester"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/scheduler"
	"github.com/ternarybob/colligo/internal/services/sources"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	sourceID     = flag.String("source", "", "Harvest source id (with -run-once: the source to harvest)")
	runOnce      = flag.Bool("run-once", false, "Run a single harvest and exit instead of starting the scheduler")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Colligo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence:
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	// 4. Wire storage, sources and the coordinator

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("colligo.toml"); err == nil {
			configFiles = append(configFiles, "colligo.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.LoadVersionFromFile())

	logger.Info().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("sources_dir", config.Sources.Dir).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
		os.Exit(1)
	}
	defer db.Close()

	runStorage := badger.NewRunStorage(db, logger)
	objectStorage := badger.NewObjectStorage(db, logger)
	localCatalog := badger.NewCatalogStorage(db, logger)

	coordinator := harvester.NewCoordinator(runStorage, objectStorage, localCatalog, &config.Harvester, logger)

	loaded, err := sources.LoadFromDir(config.Sources.Dir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load harvest sources")
		os.Exit(1)
	}
	if len(loaded) == 0 {
		logger.Fatal().Str("dir", config.Sources.Dir).Msg("No harvest sources defined")
		os.Exit(1)
	}

	if *runOnce {
		source := pickSource(loaded, *sourceID, logger)

		run, err := coordinator.RunSource(context.Background(), source)
		if err != nil {
			logger.Error().Err(err).Str("source_id", source.ID).Msg("Harvest failed")
			os.Exit(1)
		}
		logger.Info().
			Str("run_id", run.ID).
			Int("objects", run.ObjectCount).
			Int("imported", run.ImportedCount).
			Int("skipped", run.SkippedCount).
			Int("errors", run.ErrorCount).
			Msg("Harvest finished")
		if run.ErrorCount > 0 {
			os.Exit(1)
		}
		return
	}

	if !config.Scheduler.Enabled {
		logger.Fatal().Msg("Scheduler is disabled and -run-once was not given, nothing to do")
		os.Exit(1)
	}

	sched := scheduler.NewService(coordinator, logger)
	for _, source := range loaded {
		if err := sched.RegisterSource(source); err != nil {
			logger.Error().Err(err).Str("source_id", source.ID).Msg("Could not register source")
		}
	}
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().Msg("Scheduler running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	if err := sched.Stop(); err != nil {
		logger.Error().Err(err).Msg("Scheduler shutdown failed")
	}
	logger.Info().Msg("Stopped")
}

// pickSource selects the source to harvest for -run-once: the -source flag
// when given, otherwise the only defined source.
func pickSource(loaded []*models.HarvestSource, id string, logger arbor.ILogger) *models.HarvestSource {
	if id == "" {
		if len(loaded) == 1 {
			return loaded[0]
		}
		logger.Fatal().Msg("Multiple sources defined, -source is required with -run-once")
		os.Exit(1)
	}
	for _, source := range loaded {
		if source.ID == id || source.Name == id {
			return source
		}
	}
	logger.Fatal().Str("source_id", id).Msg("Source not found")
	os.Exit(1)
	return nil
}
