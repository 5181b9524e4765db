package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	discovery "ballotwatch/internal/discovery/models"
	"ballotwatch/internal/registry/models"
	"ballotwatch/pkg/platform/sentinel"
)

func record(id, name string, district int, party string, locked bool) models.Record {
	return models.Record{
		ID:          id,
		Name:        name,
		District:    district,
		Chamber:     discovery.ChamberHouse,
		Party:       party,
		PartyLocked: locked,
		Confidence:  0.9,
		LastUpdated: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Source:      "staff",
	}
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestInMemoryCreateAndReadAll(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	created, err := s.Create(ctx, record("b", "Jane Doe", 88, "Republican", false))
	require.NoError(t, err)
	assert.Equal(t, "b", created.ID)

	_, err = s.Create(ctx, record("a", "JA Moore", 15, "Democratic", true))
	require.NoError(t, err)

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID, "snapshot is ordered by ID")
}

func TestInMemoryCreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, err := s.Create(ctx, record("a", "JA Moore", 15, "", false))
	require.NoError(t, err)

	_, err = s.Create(ctx, record("a", "Someone Else", 15, "", false))
	assert.True(t, errors.Is(err, sentinel.ErrConflict))
}

func TestInMemoryUpdateFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	s.Seed(record("a", "JA Moore", 15, "", false))

	updated, err := s.Update(ctx, "a", models.UpdateFields{
		Party:      strPtr("Democratic"),
		Confidence: floatPtr(0.95),
	})
	require.NoError(t, err)
	assert.Equal(t, "Democratic", updated.Party)
	assert.InDelta(t, 0.95, updated.Confidence, 1e-9)
	assert.Equal(t, "JA Moore", updated.Name, "identity fields untouched")
}

func TestInMemoryUpdateMissingRecord(t *testing.T) {
	s := NewInMemory()
	_, err := s.Update(context.Background(), "nope", models.UpdateFields{})
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

// The store refuses party writes on locked records even when a caller skips
// its own lock check.
func TestInMemoryUpdateRefusesLockedParty(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	s.Seed(record("a", "JA Moore", 15, "Democratic", true))

	_, err := s.Update(ctx, "a", models.UpdateFields{Party: strPtr("Republican")})
	assert.True(t, errors.Is(err, sentinel.ErrLocked))

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Democratic", all[0].Party)
}

// Non-party fields on a locked record stay writable; the lock only vetoes
// party attribution.
func TestInMemoryUpdateLockedRecordNonPartyFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	s.Seed(record("a", "JA Moore", 15, "Democratic", true))

	updated, err := s.Update(ctx, "a", models.UpdateFields{Confidence: floatPtr(0.99)})
	require.NoError(t, err)
	assert.InDelta(t, 0.99, updated.Confidence, 1e-9)
	assert.Equal(t, "Democratic", updated.Party)
}
