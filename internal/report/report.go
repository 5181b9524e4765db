// Package report renders one pipeline run as the operator-facing summary.
package report

import (
	"time"

	discovery "ballotwatch/internal/discovery/models"
	registry "ballotwatch/internal/registry/models"
)

// SourceSummary is one source's line in the run report.
type SourceSummary struct {
	Name            string        `json:"name"`
	Success         bool          `json:"success"`
	Candidates      int           `json:"candidates"`
	PartialCoverage bool          `json:"partial_coverage"`
	Duration        time.Duration `json:"duration_ms"`
	Error           string        `json:"error,omitempty"`
}

// Report is the human-facing output of one run.
type Report struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`

	TotalDistricts   int     `json:"total_districts"`
	DistrictsCovered int     `json:"districts_covered"`
	CoveragePercent  float64 `json:"coverage_percent"`

	TotalRaw          int `json:"total_raw"`
	TotalDeduplicated int `json:"total_deduplicated"`

	CandidatesByParty  map[string]int `json:"candidates_by_party"`
	CandidatesBySource map[string]int `json:"candidates_by_source"`

	NewCandidates          int `json:"new_candidates"`
	UpdatedCandidates      int `json:"updated_candidates"`
	SkippedCandidates      int `json:"skipped_candidates"`
	SyncErrors             int `json:"sync_errors"`
	ConflictsPendingReview int `json:"conflicts_pending_review"`

	Sources []SourceSummary `json:"sources"`
}

// Build assembles the report for one run. totalDistricts maps each chamber
// the run covered to its district count; a candidate in district N of either
// chamber marks that chamber-district pair covered.
func Build(
	runID string,
	agg *discovery.AggregationResult,
	syncResult *registry.SyncResult,
	totalDistricts map[discovery.Chamber]int,
	completedAt time.Time,
) Report {
	r := Report{
		RunID:              runID,
		CompletedAt:        completedAt,
		TotalRaw:           agg.TotalRaw,
		TotalDeduplicated:  agg.TotalDeduplicated,
		CandidatesByParty:  make(map[string]int),
		CandidatesBySource: make(map[string]int),
	}

	covered := make(map[struct {
		chamber  discovery.Chamber
		district int
	}]struct{})
	for _, mc := range agg.Candidates {
		covered[struct {
			chamber  discovery.Chamber
			district int
		}{mc.Chamber, mc.District}] = struct{}{}

		party := mc.ResolvedParty
		if party == "" {
			party = "unknown"
		}
		r.CandidatesByParty[party]++
		for _, src := range mc.Sources() {
			r.CandidatesBySource[src]++
		}
	}

	for _, count := range totalDistricts {
		r.TotalDistricts += count
	}
	r.DistrictsCovered = len(covered)
	if r.TotalDistricts > 0 {
		r.CoveragePercent = 100 * float64(r.DistrictsCovered) / float64(r.TotalDistricts)
	}

	for _, c := range agg.Conflicts {
		if c.RequiresReview {
			r.ConflictsPendingReview++
		}
	}

	if syncResult != nil {
		r.NewCandidates = len(syncResult.Added)
		r.UpdatedCandidates = len(syncResult.Updated)
		r.SkippedCandidates = len(syncResult.Skipped)
		r.SyncErrors = len(syncResult.Errors)
	}

	for _, sr := range agg.SourceStats {
		r.Sources = append(r.Sources, SourceSummary{
			Name:            sr.SourceName,
			Success:         sr.Success,
			Candidates:      sr.CandidateCount(),
			PartialCoverage: sr.PartialCoverage,
			Duration:        sr.Duration,
			Error:           sr.Error,
		})
	}

	return r
}
