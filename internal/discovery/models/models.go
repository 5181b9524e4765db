package models

import (
	"fmt"
	"strings"
	"time"
)

// Chamber identifies which legislative body a district belongs to.
type Chamber string

const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
)

// ParseChamber validates a raw chamber string.
func ParseChamber(raw string) (Chamber, error) {
	switch Chamber(strings.ToLower(raw)) {
	case ChamberHouse:
		return ChamberHouse, nil
	case ChamberSenate:
		return ChamberSenate, nil
	default:
		return "", fmt.Errorf("unknown chamber %q", raw)
	}
}

// RawCandidate is one source's claim about one candidate. Immutable once
// produced by an adapter. Party is empty when the source made no claim.
type RawCandidate struct {
	Name           string    `json:"name"`
	District       int       `json:"district"`
	Chamber        Chamber   `json:"chamber"`
	Party          string    `json:"party,omitempty"`
	SourceName     string    `json:"source_name"`
	SourcePriority int       `json:"source_priority"`
	FetchedAt      time.Time `json:"fetched_at"`
	EvidenceURL    string    `json:"evidence_url,omitempty"`
}

// SourceResult is the outcome of invoking one adapter for one run.
type SourceResult struct {
	SourceName      string         `json:"source_name"`
	Success         bool           `json:"success"`
	Candidates      []RawCandidate `json:"candidates"`
	Error           string         `json:"error,omitempty"`
	PartialCoverage bool           `json:"partial_coverage"`
	Duration        time.Duration  `json:"duration_ms"`
}

// CandidateCount reports how many raw mentions the source produced.
func (r SourceResult) CandidateCount() int {
	return len(r.Candidates)
}

// MergedCandidate is one reconciled candidate identity built from one or more
// raw mentions. Mutated only by the conflict detector (HasConflict,
// ResolvedParty); never after a run completes.
type MergedCandidate struct {
	CanonicalName       string         `json:"canonical_name"`
	District            int            `json:"district"`
	Chamber             Chamber        `json:"chamber"`
	ResolvedParty       string         `json:"resolved_party,omitempty"`
	ContributingRecords []RawCandidate `json:"contributing_records"`
	HasConflict         bool           `json:"has_conflict"`
	Confidence          float64        `json:"confidence"`
}

// Sources lists the distinct source names contributing to this identity.
func (m MergedCandidate) Sources() []string {
	seen := make(map[string]struct{}, len(m.ContributingRecords))
	out := make([]string, 0, len(m.ContributingRecords))
	for _, rec := range m.ContributingRecords {
		if _, ok := seen[rec.SourceName]; !ok {
			seen[rec.SourceName] = struct{}{}
			out = append(out, rec.SourceName)
		}
	}
	return out
}

// Conflict is a flagged disagreement between sources about one candidate.
// Consumed by a human reviewer or downstream reporting; never auto-deleted.
type Conflict struct {
	Candidate      MergedCandidate   `json:"candidate"`
	PartyValues    map[string]string `json:"party_values"`
	RequiresReview bool              `json:"requires_review"`
	Notes          string            `json:"notes"`
}

// AggregationResult is one pipeline run's output.
type AggregationResult struct {
	Candidates        []MergedCandidate `json:"candidates"`
	SourceStats       []SourceResult    `json:"source_stats"`
	Conflicts         []Conflict        `json:"conflicts"`
	TotalRaw          int               `json:"total_raw"`
	TotalDeduplicated int               `json:"total_deduplicated"`
}

// SuccessfulSources returns the names of sources that completed.
func (a AggregationResult) SuccessfulSources() []string {
	var out []string
	for _, s := range a.SourceStats {
		if s.Success {
			out = append(out, s.SourceName)
		}
	}
	return out
}

// FailedSources returns the names of sources that did not complete.
func (a AggregationResult) FailedSources() []string {
	var out []string
	for _, s := range a.SourceStats {
		if !s.Success {
			out = append(out, s.SourceName)
		}
	}
	return out
}

// DeduplicationRatio reports merged identities per raw mention. Zero raw
// mentions yields zero rather than dividing by zero.
func (a AggregationResult) DeduplicationRatio() float64 {
	if a.TotalRaw == 0 {
		return 0
	}
	return float64(a.TotalDeduplicated) / float64(a.TotalRaw)
}

// ConflictCount reports how many disagreements the run flagged.
func (a AggregationResult) ConflictCount() int {
	return len(a.Conflicts)
}
