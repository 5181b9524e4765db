package sources

import (
	"context"
	"sync"
	"time"

	"ballotwatch/internal/discovery/models"
)

// DefaultRequestsPerMinute is the per-source rate limit applied when the
// configuration does not override it.
const DefaultRequestsPerMinute = 30

// Limiter is an in-memory sliding-window rate limiter. Each source gets its
// own Limiter, so one slow or chatty source never starves another.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	limit      int
	window     time.Duration
	now        func() time.Time
}

// NewLimiter creates a limiter allowing limit requests per window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window, now: time.Now}
}

// Allow reports whether a request may proceed right now, consuming a slot if
// so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)
	if len(l.timestamps) >= l.limit {
		return false
	}
	l.timestamps = append(l.timestamps, now)
	return true
}

// Wait blocks until a slot is available or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}

		l.mu.Lock()
		var sleep time.Duration
		if len(l.timestamps) > 0 {
			sleep = time.Until(l.timestamps[0].Add(l.window))
		}
		l.mu.Unlock()
		if sleep <= 0 {
			sleep = 10 * time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cleanup removes timestamps that have slid out of the window. Must be
// called while holding l.mu.
func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.timestamps); i++ {
		if l.timestamps[i].After(cutoff) {
			break
		}
	}
	l.timestamps = l.timestamps[i:]
}

// Throttled wraps an adapter with a per-source rate limit. The orchestrator
// never sees the limiter; throttling is the adapter wrapper's concern.
type Throttled struct {
	inner   Adapter
	limiter *Limiter
}

// Throttle wraps an adapter with a requests-per-minute budget. A
// non-positive budget falls back to the default.
func Throttle(inner Adapter, requestsPerMinute int) *Throttled {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &Throttled{
		inner:   inner,
		limiter: NewLimiter(requestsPerMinute, time.Minute),
	}
}

func (t *Throttled) Name() string  { return t.inner.Name() }
func (t *Throttled) Priority() int { return t.inner.Priority() }

// Fetch waits for a rate-limit slot before delegating.
func (t *Throttled) Fetch(ctx context.Context, q Query) ([]models.RawCandidate, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, NewAdapterError(ErrorRateLimited, t.inner.Name(), "rate limit wait aborted", err)
	}
	return t.inner.Fetch(ctx, q)
}
