package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	discovery "ballotwatch/internal/discovery/models"
	registry "ballotwatch/internal/registry/models"
)

func TestBuild(t *testing.T) {
	agg := &discovery.AggregationResult{
		Candidates: []discovery.MergedCandidate{
			{
				CanonicalName: "JA Moore",
				District:      15,
				Chamber:       discovery.ChamberHouse,
				ResolvedParty: "Democratic",
				ContributingRecords: []discovery.RawCandidate{
					{SourceName: "ethics"},
					{SourceName: "ballotpedia"},
				},
			},
			{
				CanonicalName: "Jane Doe",
				District:      88,
				Chamber:       discovery.ChamberHouse,
				ResolvedParty: "Republican",
				ContributingRecords: []discovery.RawCandidate{
					{SourceName: "ballotpedia"},
				},
			},
			{
				CanonicalName: "John Smith",
				District:      42,
				Chamber:       discovery.ChamberHouse,
				ContributingRecords: []discovery.RawCandidate{
					{SourceName: "scdp"}, {SourceName: "scgop"},
				},
			},
		},
		SourceStats: []discovery.SourceResult{
			{SourceName: "ethics", Success: true},
			{SourceName: "ballotpedia", Success: true},
			{SourceName: "scraper", Success: false, Error: "timeout"},
		},
		Conflicts: []discovery.Conflict{
			{RequiresReview: true},
			{RequiresReview: false},
		},
		TotalRaw:          5,
		TotalDeduplicated: 3,
	}
	syncResult := &registry.SyncResult{
		Added:   []registry.Record{{ID: "disc-1"}},
		Updated: []registry.Record{{ID: "r1"}},
		Skipped: []registry.SkippedRecord{{Reason: registry.SkipReasonLocked}},
	}

	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Build("run-1", agg, syncResult,
		map[discovery.Chamber]int{discovery.ChamberHouse: 124}, completed)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 124, r.TotalDistricts)
	assert.Equal(t, 3, r.DistrictsCovered)
	assert.InDelta(t, 100*3.0/124.0, r.CoveragePercent, 1e-9)
	assert.Equal(t, 1, r.CandidatesByParty["Democratic"])
	assert.Equal(t, 1, r.CandidatesByParty["Republican"])
	assert.Equal(t, 1, r.CandidatesByParty["unknown"])
	assert.Equal(t, 2, r.CandidatesBySource["ballotpedia"])
	assert.Equal(t, 1, r.NewCandidates)
	assert.Equal(t, 1, r.UpdatedCandidates)
	assert.Equal(t, 1, r.SkippedCandidates)
	assert.Equal(t, 1, r.ConflictsPendingReview, "auto-resolved conflicts are not pending")
	assert.Len(t, r.Sources, 3)
}

func TestBuildWithoutSync(t *testing.T) {
	agg := &discovery.AggregationResult{}
	r := Build("run-2", agg, nil, nil, time.Now())

	assert.Zero(t, r.NewCandidates)
	assert.Zero(t, r.CoveragePercent)
}
