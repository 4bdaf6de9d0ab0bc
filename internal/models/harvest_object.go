package models

import "time"

// ObjectState is the lifecycle of one pending-work unit: created during
// gather, consumed once during import, then terminal.
type ObjectState string

const (
	ObjectStatePending  ObjectState = "pending"
	ObjectStateImported ObjectState = "imported"
	ObjectStateSkipped  ObjectState = "skipped"
	ObjectStateErrored  ObjectState = "errored"
)

// HarvestObject is one unit of gather output: the remote record id plus the
// serialized payload captured during the search. The import stage works from
// Content alone and never re-fetches.
type HarvestObject struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	SourceID string `json:"source_id"`

	// GUID is the remote record's stable identifier.
	GUID string `json:"guid"`

	Content []byte `json:"content"`

	State ObjectState `json:"state"`
	Error string      `json:"error,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Record decodes the stored payload.
func (o *HarvestObject) Record() (RemoteRecord, error) {
	return DecodeRemoteRecord(o.Content)
}
