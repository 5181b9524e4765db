// Package events publishes pipeline lifecycle events for downstream
// reporting. A publish failure is logged by callers and never fails a run.
package events

import (
	"context"
	"sync"
	"time"
)

// Kind discriminates pipeline events.
type Kind string

const (
	// KindRunCompleted fires once per completed discovery run.
	KindRunCompleted Kind = "run_completed"

	// KindConflictFlagged fires for every disagreement needing review.
	KindConflictFlagged Kind = "conflict_flagged"
)

// Event is one pipeline lifecycle notification.
type Event struct {
	Kind       Kind      `json:"kind"`
	RunID      string    `json:"run_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Body       any       `json:"body,omitempty"`
}

// Publisher ships events somewhere downstream consumers can see them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MemoryPublisher collects events in memory for tests and for deployments
// with no broker configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates an in-memory publisher.
func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event.
func (p *MemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
