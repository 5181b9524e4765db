package models

import (
	"time"

	discovery "ballotwatch/internal/discovery/models"
)

// DiscoveredIDPrefix marks registry records created by the pipeline rather
// than entered by campaign staff.
const DiscoveredIDPrefix = "disc-"

// Record is one entry in the externally maintained candidate registry. The
// registry is owned by campaign staff; this pipeline only ever creates
// records or updates individual fields, never deletes.
//
// PartyLocked is a permanent veto: no automated process may change Party on
// a locked record. This is the central trust invariant of the subsystem.
type Record struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	District    int               `json:"district"`
	Chamber     discovery.Chamber `json:"chamber"`
	Party       string            `json:"party,omitempty"`
	PartyLocked bool              `json:"party_locked"`
	Confidence  float64           `json:"confidence"`
	LastUpdated time.Time         `json:"last_updated"`
	Source      string            `json:"source"`
}

// MachineDiscovered reports whether this record was created by the pipeline.
func (r Record) MachineDiscovered() bool {
	return len(r.ID) >= len(DiscoveredIDPrefix) && r.ID[:len(DiscoveredIDPrefix)] == DiscoveredIDPrefix
}

// UpdateFields lists the non-identity fields sync may change on an existing
// record. Nil means leave untouched.
type UpdateFields struct {
	Party      *string
	Confidence *float64
	Source     *string
}

// Skip reasons recorded on SyncResult entries.
const (
	SkipReasonLocked          = "locked"
	SkipReasonLowerConfidence = "lower confidence"
)

// SkippedRecord is a registry record sync deliberately left alone.
type SkippedRecord struct {
	Record Record `json:"record"`
	Reason string `json:"reason"`
}

// SyncError traces one candidate that could not be reconciled.
type SyncError struct {
	Candidate discovery.MergedCandidate `json:"candidate"`
	Reason    string                    `json:"reason"`
}

// SyncResult is the outcome of reconciling one aggregation result against
// the registry.
type SyncResult struct {
	Added   []Record        `json:"added"`
	Updated []Record        `json:"updated"`
	Skipped []SkippedRecord `json:"skipped"`
	Errors  []SyncError     `json:"errors"`
}

// TotalProcessed counts every candidate that reached an explicit outcome.
func (r SyncResult) TotalProcessed() int {
	return len(r.Added) + len(r.Updated) + len(r.Skipped) + len(r.Errors)
}

// SuccessRate is the fraction of candidates reconciled without error.
func (r SyncResult) SuccessRate() float64 {
	total := r.TotalProcessed()
	if total == 0 {
		return 1
	}
	return float64(total-len(r.Errors)) / float64(total)
}
