package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ballotwatch/internal/scheduler"
)

// Schema is the single-row table holding the last successful run.
const Schema = `
CREATE TABLE IF NOT EXISTS discovery_run_state (
    id          SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    last_run_at TIMESTAMPTZ NOT NULL,
    last_run_id TEXT NOT NULL
);`

// PostgresStateStore persists run state in postgres via database/sql.
type PostgresStateStore struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStateStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &PostgresStateStore{db: db}, nil
}

// EnsureSchema creates the run-state table if it does not exist.
func (s *PostgresStateStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// Load reads the persisted state; a missing row means no run has completed.
func (s *PostgresStateStore) Load(ctx context.Context) (scheduler.RunState, error) {
	var state scheduler.RunState
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run_at, last_run_id FROM discovery_run_state WHERE id = 1`,
	).Scan(&state.LastRunAt, &state.LastRunID)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.RunState{}, nil
	}
	if err != nil {
		return scheduler.RunState{}, fmt.Errorf("store: load run state: %w", err)
	}
	return state, nil
}

// Save upserts the single run-state row.
func (s *PostgresStateStore) Save(ctx context.Context, state scheduler.RunState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discovery_run_state (id, last_run_at, last_run_id)
		 VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET last_run_at = $1, last_run_id = $2`,
		state.LastRunAt, state.LastRunID)
	if err != nil {
		return fmt.Errorf("store: save run state: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStateStore) Close() error {
	return s.db.Close()
}
