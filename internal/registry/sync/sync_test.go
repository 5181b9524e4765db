package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	discovery "ballotwatch/internal/discovery/models"
	"ballotwatch/internal/registry/models"
	"ballotwatch/internal/registry/store"
)

type SyncServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
}

func TestSyncServiceSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceSuite))
}

func (s *SyncServiceSuite) SetupTest() {
	s.store = store.NewInMemory()

	var err error
	s.service, err = New(s.store)
	s.Require().NoError(err)
}

func registryRecord(id, name string, district int, party string, locked bool, confidence float64) models.Record {
	return models.Record{
		ID:          id,
		Name:        name,
		District:    district,
		Chamber:     discovery.ChamberHouse,
		Party:       party,
		PartyLocked: locked,
		Confidence:  confidence,
		LastUpdated: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Source:      "staff",
	}
}

func candidate(name string, district int, party string, confidence float64) discovery.MergedCandidate {
	return discovery.MergedCandidate{
		CanonicalName: name,
		District:      district,
		Chamber:       discovery.ChamberHouse,
		ResolvedParty: party,
		Confidence:    confidence,
		ContributingRecords: []discovery.RawCandidate{{
			Name:           name,
			District:       district,
			Chamber:        discovery.ChamberHouse,
			Party:          party,
			SourceName:     "ethics",
			SourcePriority: 1,
			FetchedAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
}

func (s *SyncServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
	})
}

func (s *SyncServiceSuite) TestCreatesUnmatchedCandidate() {
	ctx := context.Background()

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("Jane Doe", 88, "Republican", 0.9),
	})
	s.Require().NoError(err)

	s.Require().Len(result.Added, 1)
	added := result.Added[0]
	s.True(strings.HasPrefix(added.ID, models.DiscoveredIDPrefix))
	s.True(added.MachineDiscovered())
	s.False(added.PartyLocked)
	s.Equal("Jane Doe", added.Name)
	s.Equal("Republican", added.Party)
	s.Equal("ethics", added.Source)
	s.Empty(result.Updated)
	s.Empty(result.Skipped)
	s.Empty(result.Errors)
}

// A locked record is never modified, whatever the discovery claims: it
// always lands in skipped with the lock reason.
func (s *SyncServiceSuite) TestLockedRecordAlwaysSkipped() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "JA Moore", 15, "Democratic", true, 0.5))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("JA Moore", 15, "Republican", 1.0),
	})
	s.Require().NoError(err)

	s.Require().Len(result.Skipped, 1)
	s.Equal(models.SkipReasonLocked, result.Skipped[0].Reason)
	s.Equal("r1", result.Skipped[0].Record.ID)
	s.Empty(result.Added)
	s.Empty(result.Updated)

	all, err := s.store.ReadAll(ctx)
	s.Require().NoError(err)
	s.Equal("Democratic", all[0].Party, "locked party attribution unchanged")
}

func (s *SyncServiceSuite) TestLowerConfidenceSkipped() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "JA Moore", 15, "Democratic", false, 0.95))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("JA Moore", 15, "Republican", 0.6),
	})
	s.Require().NoError(err)

	s.Require().Len(result.Skipped, 1)
	s.Equal(models.SkipReasonLowerConfidence, result.Skipped[0].Reason)

	all, err := s.store.ReadAll(ctx)
	s.Require().NoError(err)
	s.Equal("Democratic", all[0].Party)
}

func (s *SyncServiceSuite) TestUpdatesUnlockedMatch() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "JA Moore", 15, "", false, 0.5))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("J.A. Moore", 15, "Democratic", 0.9),
	})
	s.Require().NoError(err)

	s.Require().Len(result.Updated, 1)
	updated := result.Updated[0]
	s.Equal("r1", updated.ID)
	s.Equal("Democratic", updated.Party)
	s.InDelta(0.9, updated.Confidence, 1e-9)
	s.Equal("JA Moore", updated.Name, "identity fields stay staff-owned")
}

// A candidate pending conflict review carries no resolved party; the update
// must not blank out an existing attribution.
func (s *SyncServiceSuite) TestUpdateWithoutResolvedPartyKeepsExisting() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "John Smith", 42, "Democratic", false, 0.5))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("John Smith", 42, "", 0.9),
	})
	s.Require().NoError(err)

	s.Require().Len(result.Updated, 1)
	s.Equal("Democratic", result.Updated[0].Party)
}

func (s *SyncServiceSuite) TestFuzzyMatchFindsFormattedVariant() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "Jonathan Smith", 42, "", false, 0.5))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("Jonathon Smith", 42, "Democratic", 0.9),
	})
	s.Require().NoError(err)

	s.Len(result.Updated, 1)
	s.Empty(result.Added, "near-identical spelling must not create a duplicate")
}

func (s *SyncServiceSuite) TestMatchScopedToDistrict() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "John Smith", 42, "Democratic", false, 0.5))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("John Smith", 43, "Democratic", 0.9),
	})
	s.Require().NoError(err)

	s.Len(result.Added, 1, "same name in another district is another person")
	s.Empty(result.Updated)
}

// failingStore errors on every write to exercise per-record isolation.
type failingStore struct {
	*store.InMemoryStore
}

func (f *failingStore) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	return models.Record{}, errors.New("registry unreachable")
}

func (s *SyncServiceSuite) TestPerRecordErrorsDoNotStopRun() {
	ctx := context.Background()

	svc, err := New(&failingStore{InMemoryStore: s.store})
	s.Require().NoError(err)

	result, err := svc.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("Jane Doe", 88, "Republican", 0.9),
		candidate("Pat Brown", 7, "Democratic", 0.9),
	})
	s.Require().NoError(err)

	s.Len(result.Errors, 2, "every failed candidate is traceable")
	s.Equal(2, result.TotalProcessed())
	s.InDelta(0.0, result.SuccessRate(), 1e-9)
}

func (s *SyncServiceSuite) TestUnmatchedCandidates() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "JA Moore", 15, "Democratic", false, 0.5))

	unmatched, err := s.service.UnmatchedCandidates(ctx, []discovery.MergedCandidate{
		candidate("J.A. Moore", 15, "Democratic", 0.9),
		candidate("Jane Doe", 88, "Republican", 0.9),
	})
	s.Require().NoError(err)

	s.Require().Len(unmatched, 1)
	s.Equal("Jane Doe", unmatched[0].CanonicalName)
}

func (s *SyncServiceSuite) TestCandidatesNeedingParty() {
	ctx := context.Background()
	s.store.Seed(
		registryRecord("r1", "JA Moore", 15, "", false, 0.5),
		registryRecord("r2", "Jane Doe", 88, "Republican", false, 0.5),
		registryRecord("r3", "Pat Brown", 7, "", true, 0.5),
	)

	needing, err := s.service.CandidatesNeedingParty(ctx)
	s.Require().NoError(err)

	s.Require().Len(needing, 1)
	s.Equal("r1", needing[0].ID, "locked records are staff business even when partyless")
}

func (s *SyncServiceSuite) TestEqualConfidenceStillUpdates() {
	ctx := context.Background()
	s.store.Seed(registryRecord("r1", "JA Moore", 15, "", false, 0.9))

	result, err := s.service.SyncDiscoveredCandidates(ctx, []discovery.MergedCandidate{
		candidate("JA Moore", 15, "Democratic", 0.9),
	})
	s.Require().NoError(err)

	s.Len(result.Updated, 1, "confidence not lower than recorded is accepted")
}
