// Package scheduler triggers recurring harvest runs from per-source cron
// expressions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/harvester"
	"github.com/ternarybob/colligo/internal/models"
)

// sourceEntry represents a registered source with scheduling metadata
type sourceEntry struct {
	source    *models.HarvestSource
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
}

// Service schedules recurring harvest runs
type Service struct {
	coordinator *harvester.Coordinator
	cron        *cron.Cron
	logger      arbor.ILogger
	mu          sync.Mutex // Protects sources map and entry state
	sources     map[string]*sourceEntry
	running     bool
}

// NewService creates a new scheduler service
func NewService(coordinator *harvester.Coordinator, logger arbor.ILogger) *Service {
	return &Service{
		coordinator: coordinator,
		cron:        cron.New(),
		logger:      logger,
		sources:     make(map[string]*sourceEntry),
	}
}

// RegisterSource registers a source for recurring harvests. Sources without
// a schedule are on-demand only and are not registered.
func (s *Service) RegisterSource(source *models.HarvestSource) error {
	if source.Schedule == "" {
		s.logger.Debug().
			Str("source_id", source.ID).
			Msg("Source has no schedule, on-demand only")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[source.ID]; exists {
		return fmt.Errorf("source %s already registered", source.ID)
	}

	entry := &sourceEntry{source: source}

	sourceID := source.ID
	cronID, err := s.cron.AddFunc(source.Schedule, func() {
		s.executeHarvest(sourceID)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule for source %s: %w", source.ID, err)
	}

	entry.cronID = cronID
	s.sources[source.ID] = entry

	s.logger.Info().
		Str("source_id", source.ID).
		Str("schedule", source.Schedule).
		Msg("Source registered for recurring harvests")

	return nil
}

// Start begins the scheduler
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.mu.Lock()
	count := len(s.sources)
	s.mu.Unlock()

	s.logger.Info().Int("sources", count).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler. In-flight harvest runs finish on their own.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	s.cron.Stop()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	return s.running
}

// TriggerSource manually triggers a harvest for a registered source
func (s *Service) TriggerSource(sourceID string) error {
	s.mu.Lock()
	entry, exists := s.sources[sourceID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("source %s not found", sourceID)
	}
	if entry.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("source %s is already running", sourceID)
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("source_id", sourceID).
		Msg("Manually triggering harvest")

	go s.executeHarvest(sourceID)
	return nil
}

// executeHarvest wraps a harvest run with overlap skipping, panic recovery
// and status tracking
func (s *Service) executeHarvest(sourceID string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("source_id", sourceID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in harvest execution")

			s.mu.Lock()
			if entry, exists := s.sources[sourceID]; exists {
				entry.isRunning = false
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.mu.Unlock()
		}
	}()

	s.mu.Lock()
	entry, exists := s.sources[sourceID]
	if !exists {
		s.mu.Unlock()
		s.logger.Warn().Str("source_id", sourceID).Msg("Source not found")
		return
	}
	if entry.isRunning {
		s.mu.Unlock()
		s.logger.Info().
			Str("source_id", sourceID).
			Msg("Previous harvest still running, skipping this cycle")
		return
	}
	entry.isRunning = true
	source := entry.source
	s.mu.Unlock()

	started := time.Now()
	s.logger.Info().
		Str("source_id", sourceID).
		Msg("Scheduled harvest started")

	_, err := s.coordinator.RunSource(context.Background(), source)

	completionTime := time.Now()
	s.mu.Lock()
	entry.isRunning = false
	entry.lastRun = &completionTime
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("source_id", sourceID).
			Err(err).
			Str("duration", time.Since(started).String()).
			Msg("Scheduled harvest failed")
	} else {
		s.logger.Info().
			Str("source_id", sourceID).
			Str("duration", time.Since(started).String()).
			Msg("Scheduled harvest completed")
	}
}
