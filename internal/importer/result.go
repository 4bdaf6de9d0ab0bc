package importer

import "fmt"

// Outcome classifies what the merge engine did with one record.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeErrored Outcome = "errored"
)

// ImportResult is the typed per-record result the coordinator aggregates.
// Errors never abort the batch; they are recorded against the record alone.
type ImportResult struct {
	GUID    string
	Outcome Outcome
	Reason  string
}

func skipped(guid, reason string) *ImportResult {
	return &ImportResult{GUID: guid, Outcome: OutcomeSkipped, Reason: reason}
}

func errored(guid, reason string) *ImportResult {
	return &ImportResult{GUID: guid, Outcome: OutcomeErrored, Reason: reason}
}

// RecordError reports a single record that failed merge or upsert.
type RecordError struct {
	GUID   string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %s", e.GUID, e.Reason)
}
