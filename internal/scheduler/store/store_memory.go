// Package store persists the scheduler's run state. The in-memory store
// backs tests and single-process deployments; postgres and redis variants
// survive restarts.
package store

import (
	"context"
	"sync"

	"ballotwatch/internal/scheduler"
)

// InMemoryStateStore keeps run state in process memory.
type InMemoryStateStore struct {
	mu    sync.RWMutex
	state scheduler.RunState
}

// NewInMemory creates an empty in-memory state store.
func NewInMemory() *InMemoryStateStore {
	return &InMemoryStateStore{}
}

// Load returns the stored state; the zero value means no run has completed.
func (s *InMemoryStateStore) Load(ctx context.Context) (scheduler.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Save replaces the stored state.
func (s *InMemoryStateStore) Save(ctx context.Context, state scheduler.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}
