package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ballotwatch/internal/registry/models"
	"ballotwatch/pkg/platform/sentinel"
)

// Schema creates the registry table. Applied by deploy tooling or the
// integration test harness, not at service startup.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_candidates (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	district     INTEGER NOT NULL,
	chamber      TEXT NOT NULL,
	party        TEXT NOT NULL DEFAULT '',
	party_locked BOOLEAN NOT NULL DEFAULT FALSE,
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	source       TEXT NOT NULL DEFAULT ''
);
`

// PostgresStore persists registry records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the registry schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure registry schema: %w", err)
	}
	return nil
}

// ReadAll returns the complete registry state ordered by ID.
func (s *PostgresStore) ReadAll(ctx context.Context) ([]models.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, district, chamber, party, party_locked, confidence, last_updated, source
		FROM registry_candidates
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.District, &rec.Chamber, &rec.Party,
			&rec.PartyLocked, &rec.Confidence, &rec.LastUpdated, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan registry record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return out, nil
}

// Create inserts a new record and returns it as stored.
func (s *PostgresStore) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO registry_candidates (id, name, district, chamber, party, party_locked, confidence, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, name, district, chamber, party, party_locked, confidence, last_updated, source`,
		rec.ID, rec.Name, rec.District, rec.Chamber, rec.Party, rec.PartyLocked, rec.Confidence, rec.Source)

	var stored models.Record
	if err := row.Scan(&stored.ID, &stored.Name, &stored.District, &stored.Chamber, &stored.Party,
		&stored.PartyLocked, &stored.Confidence, &stored.LastUpdated, &stored.Source); err != nil {
		return models.Record{}, fmt.Errorf("create registry record: %w", err)
	}
	return stored, nil
}

// Update changes non-identity fields on an existing record. The WHERE clause
// on party updates enforces the lock at the database level too, so a locked
// record can never lose its party attribution to a racing writer.
func (s *PostgresStore) Update(ctx context.Context, id string, fields models.UpdateFields) (models.Record, error) {
	if fields.Party != nil {
		var locked bool
		err := s.pool.QueryRow(ctx,
			`SELECT party_locked FROM registry_candidates WHERE id = $1`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Record{}, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
		}
		if err != nil {
			return models.Record{}, fmt.Errorf("check party lock: %w", err)
		}
		if locked {
			return models.Record{}, fmt.Errorf("record %s party: %w", id, sentinel.ErrLocked)
		}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE registry_candidates
		SET party        = COALESCE($2, party),
		    confidence   = COALESCE($3, confidence),
		    source       = COALESCE($4, source),
		    last_updated = now()
		WHERE id = $1
		  AND ($2 IS NULL OR NOT party_locked)
		RETURNING id, name, district, chamber, party, party_locked, confidence, last_updated, source`,
		id, fields.Party, fields.Confidence, fields.Source)

	var stored models.Record
	err := row.Scan(&stored.ID, &stored.Name, &stored.District, &stored.Chamber, &stored.Party,
		&stored.PartyLocked, &stored.Confidence, &stored.LastUpdated, &stored.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Record{}, fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("update registry record: %w", err)
	}
	return stored, nil
}
