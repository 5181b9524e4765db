// Package store provides access to the external candidate registry. The
// pipeline treats the registry as an abstract record store behind a
// three-method interface; campaign staff own the data.
package store

import (
	"context"

	"ballotwatch/internal/registry/models"
)

// Store is the full external registry interface. Sync is its only caller.
type Store interface {
	// ReadAll returns the complete registry state. Sync takes one snapshot
	// at the start of a run and reconciles against it.
	ReadAll(ctx context.Context) ([]models.Record, error)

	// Create inserts a new record and returns it as stored.
	Create(ctx context.Context, rec models.Record) (models.Record, error)

	// Update changes non-identity fields on an existing record. Attempts to
	// change Party on a locked record fail with sentinel.ErrLocked.
	Update(ctx context.Context, id string, fields models.UpdateFields) (models.Record, error)
}
