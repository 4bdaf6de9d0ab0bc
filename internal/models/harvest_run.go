package models

import "time"

// RunStatus represents the state of a harvest run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusGathering RunStatus = "gathering"
	RunStatusImporting RunStatus = "importing"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// HarvestRun is one gather+import invocation against a source. Runs are
// persisted so the next run can find its incremental baseline: the most
// recent completed run with zero record errors and no gather error.
type HarvestRun struct {
	ID       string    `json:"id"`
	SourceID string    `json:"source_id"`
	Status   RunStatus `json:"status"`

	// GatherStarted is the incremental reference point for the next run.
	// Remote search works against this timestamp minus a one hour back-off.
	GatherStarted time.Time `json:"gather_started"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`

	// GatherError is the run-level failure reason. A run with a gather error
	// produced no pending work and is never an incremental baseline.
	GatherError string `json:"gather_error,omitempty"`

	ObjectCount   int `json:"object_count"`
	ImportedCount int `json:"imported_count"`
	SkippedCount  int `json:"skipped_count"`
	ErrorCount    int `json:"error_count"`
}

// ErrorFree reports whether this run qualifies as the incremental baseline
// for the next run.
func (r *HarvestRun) ErrorFree() bool {
	return r.Status == RunStatusCompleted && r.GatherError == "" && r.ErrorCount == 0
}
