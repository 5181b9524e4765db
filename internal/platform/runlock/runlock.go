// Package runlock guards operations that must never run concurrently
// against one shared resource, such as a registry sync whose locked-field
// invariant depends on reconciling against a consistent snapshot.
package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ballotwatch/pkg/platform/sentinel"
)

// Locker hands out exclusive named locks. Acquire fails fast with
// sentinel.ErrConflict when the lock is held; callers retry on the next
// scheduling check rather than queueing.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// InMemoryLocker scopes exclusion to one process. Suitable for tests and
// single-instance deployments.
type InMemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewInMemory creates an in-process locker.
func NewInMemory() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]struct{})}
}

// Acquire takes the named lock or fails with sentinel.ErrConflict. The TTL
// is ignored in-process; release is explicit.
func (l *InMemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[key]; taken {
		return nil, fmt.Errorf("lock %s: %w", key, sentinel.ErrConflict)
	}
	l.held[key] = struct{}{}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}
