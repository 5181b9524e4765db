// Package sync reconciles discovered candidates against the externally
// maintained registry without destroying manually verified data. It is the
// only code path with write access to the registry.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ballotwatch/internal/discovery/matching"
	discovery "ballotwatch/internal/discovery/models"
	"ballotwatch/internal/platform/runlock"
	"ballotwatch/internal/registry/models"
	"ballotwatch/internal/registry/store"
)

// lockKey guards the whole registry: the locked-field invariant depends on
// reconciling against one consistent snapshot, so two syncs never overlap.
const lockKey = "ballotwatch:registry-sync"

// lockTTL bounds how long a crashed sync can block the next run.
const lockTTL = 15 * time.Minute

// Service reconciles merged candidates into the registry.
type Service struct {
	store     store.Store
	locker    runlock.Locker
	threshold float64
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithLocker sets the cross-process run lock; defaults to in-process.
func WithLocker(locker runlock.Locker) Option {
	return func(s *Service) { s.locker = locker }
}

// WithThreshold overrides the fuzzy-match threshold used for registry
// lookups.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// New builds a sync service over the external registry store.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("registry store is required")
	}

	svc := &Service{
		store:     st,
		locker:    runlock.NewInMemory(),
		threshold: matching.DefaultThreshold,
		logger:    slog.Default(),
		newID:     func() string { return models.DiscoveredIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// index is a normalized-name lookup over one registry snapshot, bucketed by
// (district, chamber) so fuzzy comparison only ever scans one district.
type index struct {
	byDistrict map[indexKey][]indexedRecord
}

type indexKey struct {
	district int
	chamber  discovery.Chamber
}

type indexedRecord struct {
	normalized string
	record     models.Record
}

func buildIndex(records []models.Record) *index {
	idx := &index{byDistrict: make(map[indexKey][]indexedRecord)}
	for _, rec := range records {
		k := indexKey{district: rec.District, chamber: rec.Chamber}
		idx.byDistrict[k] = append(idx.byDistrict[k], indexedRecord{
			normalized: matching.Normalize(rec.Name),
			record:     rec,
		})
	}
	return idx
}

// find locates an existing record for a candidate: exact normalized match
// first, then the best fuzzy match above the threshold.
func (idx *index) find(mc discovery.MergedCandidate, threshold float64) (models.Record, bool) {
	k := indexKey{district: mc.District, chamber: mc.Chamber}
	normalized := matching.Normalize(mc.CanonicalName)

	for _, entry := range idx.byDistrict[k] {
		if entry.normalized == normalized {
			return entry.record, true
		}
	}

	best := -1.0
	var found models.Record
	for _, entry := range idx.byDistrict[k] {
		if s := matching.Similarity(mc.CanonicalName, entry.record.Name); s >= threshold && s > best {
			best = s
			found = entry.record
		}
	}
	return found, best >= 0
}

// SyncDiscoveredCandidates reconciles one run's merged candidates against
// the registry. Per-record failures are recorded in the result and never
// stop the remaining candidates. The registry snapshot is read once at the
// start and not re-validated mid-run.
func (s *Service) SyncDiscoveredCandidates(ctx context.Context, candidates []discovery.MergedCandidate) (*models.SyncResult, error) {
	tracer := otel.Tracer("ballotwatch/sync")
	ctx, span := tracer.Start(ctx, "registry.sync")
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("registry sync already running: %w", err)
	}
	defer release()

	snapshot, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry snapshot: %w", err)
	}
	idx := buildIndex(snapshot)

	result := &models.SyncResult{}
	for _, mc := range candidates {
		s.syncOne(ctx, idx, mc, result)
	}

	span.SetAttributes(
		attribute.Int("sync.added", len(result.Added)),
		attribute.Int("sync.updated", len(result.Updated)),
		attribute.Int("sync.skipped", len(result.Skipped)),
		attribute.Int("sync.errors", len(result.Errors)),
	)
	s.logger.InfoContext(ctx, "registry sync finished",
		"added", len(result.Added),
		"updated", len(result.Updated),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
	)
	return result, nil
}

// syncOne reconciles a single candidate. Every outcome, including failure,
// lands in exactly one bucket of the result.
func (s *Service) syncOne(ctx context.Context, idx *index, mc discovery.MergedCandidate, result *models.SyncResult) {
	existing, found := idx.find(mc, s.threshold)
	if !found {
		created, err := s.store.Create(ctx, s.newRecord(mc))
		if err != nil {
			result.Errors = append(result.Errors, models.SyncError{
				Candidate: mc,
				Reason:    fmt.Sprintf("create: %v", err),
			})
			return
		}
		result.Added = append(result.Added, created)
		return
	}

	// The lock is a permanent veto on party attribution; no confidence
	// level overrides it.
	if existing.PartyLocked {
		result.Skipped = append(result.Skipped, models.SkippedRecord{
			Record: existing,
			Reason: models.SkipReasonLocked,
		})
		return
	}

	if mc.Confidence < existing.Confidence {
		result.Skipped = append(result.Skipped, models.SkippedRecord{
			Record: existing,
			Reason: models.SkipReasonLowerConfidence,
		})
		return
	}

	fields := models.UpdateFields{Confidence: &mc.Confidence}
	if mc.ResolvedParty != "" {
		fields.Party = &mc.ResolvedParty
	}
	if src := primarySource(mc); src != "" {
		fields.Source = &src
	}

	updated, err := s.store.Update(ctx, existing.ID, fields)
	if err != nil {
		result.Errors = append(result.Errors, models.SyncError{
			Candidate: mc,
			Reason:    fmt.Sprintf("update %s: %v", existing.ID, err),
		})
		return
	}
	result.Updated = append(result.Updated, updated)
}

// UnmatchedCandidates returns the discovered candidates with no registry
// match, for operator triage. Read-only.
func (s *Service) UnmatchedCandidates(ctx context.Context, candidates []discovery.MergedCandidate) ([]discovery.MergedCandidate, error) {
	snapshot, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry snapshot: %w", err)
	}
	idx := buildIndex(snapshot)

	var out []discovery.MergedCandidate
	for _, mc := range candidates {
		if _, found := idx.find(mc, s.threshold); !found {
			out = append(out, mc)
		}
	}
	return out, nil
}

// CandidatesNeedingParty returns unlocked registry records with no party
// attribution, for operator triage. Read-only.
func (s *Service) CandidatesNeedingParty(ctx context.Context) ([]models.Record, error) {
	snapshot, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry snapshot: %w", err)
	}

	var out []models.Record
	for _, rec := range snapshot {
		if !rec.PartyLocked && rec.Party == "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// newRecord builds a machine-discovered registry record. The synthetic ID
// prefix distinguishes it from human-entered records; PartyLocked starts
// false so staff can still correct it.
func (s *Service) newRecord(mc discovery.MergedCandidate) models.Record {
	return models.Record{
		ID:          s.newID(),
		Name:        mc.CanonicalName,
		District:    mc.District,
		Chamber:     mc.Chamber,
		Party:       mc.ResolvedParty,
		PartyLocked: false,
		Confidence:  mc.Confidence,
		Source:      primarySource(mc),
	}
}

// primarySource names the most trusted contributing source; records are
// sorted most-trusted first by the deduplicator.
func primarySource(mc discovery.MergedCandidate) string {
	if len(mc.ContributingRecords) == 0 {
		return ""
	}
	return mc.ContributingRecords[0].SourceName
}
