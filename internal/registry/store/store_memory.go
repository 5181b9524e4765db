package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ballotwatch/internal/registry/models"
	"ballotwatch/pkg/platform/sentinel"
)

// InMemoryStore keeps registry records in a mutex-guarded map. It backs unit
// tests and local development; production deployments point at Postgres.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
	now     func() time.Time
}

// NewInMemory creates an empty in-memory registry store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]models.Record),
		now:     time.Now,
	}
}

// Seed loads records without touching timestamps, for test setup.
func (s *InMemoryStore) Seed(records ...models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
}

// ReadAll returns every record, ordered by ID for deterministic snapshots.
func (s *InMemoryStore) ReadAll(ctx context.Context) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create inserts a new record.
func (s *InMemoryStore) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return models.Record{}, fmt.Errorf("record %s: %w", rec.ID, sentinel.ErrConflict)
	}
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = s.now()
	}
	s.records[rec.ID] = rec
	return rec, nil
}

// Update changes non-identity fields. Changing Party on a locked record is
// refused with sentinel.ErrLocked even if a buggy caller skips its own
// check.
func (s *InMemoryStore) Update(ctx context.Context, id string, fields models.UpdateFields) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return models.Record{}, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	if fields.Party != nil && rec.PartyLocked {
		return models.Record{}, fmt.Errorf("record %s party: %w", id, sentinel.ErrLocked)
	}

	if fields.Party != nil {
		rec.Party = *fields.Party
	}
	if fields.Confidence != nil {
		rec.Confidence = *fields.Confidence
	}
	if fields.Source != nil {
		rec.Source = *fields.Source
	}
	rec.LastUpdated = s.now()

	s.records[id] = rec
	return rec, nil
}
