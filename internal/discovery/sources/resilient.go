package sources

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ballotwatch/internal/discovery/models"
)

// breaker tracks consecutive fetch failures for one source:
// - open after failureThreshold consecutive failures; while open, fetches
//   fail fast with ErrCircuitOpen,
// - a half-open probe is allowed once cooldown has elapsed,
// - close again after successThreshold consecutive successes.
type breaker struct {
	mu               sync.Mutex
	open             bool
	openedAt         time.Time
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

func newBreaker() *breaker {
	return &breaker{
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         2 * time.Minute,
		now:              time.Now,
	}
}

// allow reports whether a fetch may be attempted.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	return b.now().Sub(b.openedAt) >= b.cooldown
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.successCount = 0
	if !b.open && b.failureCount >= b.failureThreshold {
		b.open = true
	}
	if b.open {
		b.openedAt = b.now()
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.open = false
			b.failureCount = 0
			b.successCount = 0
		}
		return
	}
	b.failureCount = 0
}

// Resilient wraps an adapter with exponential-backoff retries for transient
// failures and a circuit breaker across runs. The aggregator only ever sees
// the final outcome of a fetch.
type Resilient struct {
	inner      Adapter
	breaker    *breaker
	maxRetries uint64
	initial    time.Duration
}

// ResilientOption configures a Resilient wrapper.
type ResilientOption func(*Resilient)

// WithMaxRetries overrides how many times a transient failure is retried.
func WithMaxRetries(n uint64) ResilientOption {
	return func(r *Resilient) { r.maxRetries = n }
}

// WithInitialInterval overrides the first backoff delay, mainly for tests.
func WithInitialInterval(d time.Duration) ResilientOption {
	return func(r *Resilient) { r.initial = d }
}

// Resilience wraps an adapter with retry and circuit-breaking behavior.
func Resilience(inner Adapter, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		inner:      inner,
		breaker:    newBreaker(),
		maxRetries: 3,
		initial:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resilient) Name() string  { return r.inner.Name() }
func (r *Resilient) Priority() int { return r.inner.Priority() }

// Fetch retries transient failures with exponential backoff. Permanent
// failures (bad data, auth) are surfaced immediately.
func (r *Resilient) Fetch(ctx context.Context, q Query) ([]models.RawCandidate, error) {
	if !r.breaker.allow() {
		return nil, NewAdapterError(ErrorOutage, r.inner.Name(), "circuit open", ErrCircuitOpen)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial

	var out []models.RawCandidate
	operation := func() error {
		candidates, err := r.inner.Fetch(ctx, q)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = candidates
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx))
	if err != nil {
		r.breaker.recordFailure()
		return nil, err
	}

	r.breaker.recordSuccess()
	return out, nil
}
