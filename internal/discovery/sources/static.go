package sources

import (
	"context"
	"time"

	"ballotwatch/internal/discovery/models"
)

// StaticAdapter serves a fixed candidate list, scoped to the query. It backs
// tests and local development wiring; production adapters live outside this
// module behind the same interface.
type StaticAdapter struct {
	name       string
	priority   int
	candidates []models.RawCandidate
	err        error
	now        func() time.Time
}

// NewStatic builds a fixture-backed adapter.
func NewStatic(name string, priority int, candidates []models.RawCandidate) *StaticAdapter {
	return &StaticAdapter{
		name:       name,
		priority:   priority,
		candidates: candidates,
		now:        time.Now,
	}
}

// Fail makes every Fetch return err instead of candidates.
func (s *StaticAdapter) Fail(err error) *StaticAdapter {
	s.err = err
	return s
}

func (s *StaticAdapter) Name() string  { return s.name }
func (s *StaticAdapter) Priority() int { return s.priority }

// Fetch returns the fixture records matching the query, stamped with this
// source's identity.
func (s *StaticAdapter) Fetch(ctx context.Context, q Query) ([]models.RawCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.RawCandidate
	for _, c := range s.candidates {
		if !matchesQuery(c, q) {
			continue
		}
		c.SourceName = s.name
		c.SourcePriority = s.priority
		if c.FetchedAt.IsZero() {
			c.FetchedAt = s.now()
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesQuery(c models.RawCandidate, q Query) bool {
	if len(q.Chambers) > 0 {
		found := false
		for _, ch := range q.Chambers {
			if c.Chamber == ch {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Districts) > 0 {
		found := false
		for _, d := range q.Districts {
			if c.District == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
