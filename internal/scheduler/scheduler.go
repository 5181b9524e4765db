// Package scheduler decides when discovery runs and drives the full
// aggregate-sync-report pipeline when one is due.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ballotwatch/internal/discovery/models"
	"ballotwatch/internal/platform/config"
	"ballotwatch/internal/platform/events"
	registry "ballotwatch/internal/registry/models"
	"ballotwatch/internal/report"
)

// State is the scheduler's view of the pipeline.
type State string

const (
	StateIdle      State = "idle"
	StateDue       State = "due"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// RunState is the persisted record of the most recent successful run. A
// failed run never advances it, so the next check immediately retries.
type RunState struct {
	LastRunAt time.Time `json:"last_run_at"`
	LastRunID string    `json:"last_run_id"`
}

// StateStore persists RunState across process restarts.
type StateStore interface {
	Load(ctx context.Context) (RunState, error)
	Save(ctx context.Context, state RunState) error
}

// Aggregator produces one run's reconciled candidates.
type Aggregator interface {
	AggregateAll(ctx context.Context, chambers []models.Chamber) (*models.AggregationResult, error)
}

// Syncer merges reconciled candidates into the registry.
type Syncer interface {
	SyncDiscoveredCandidates(ctx context.Context, candidates []models.MergedCandidate) (*registry.SyncResult, error)
}

// Service owns the run lifecycle for the discovery pipeline.
type Service struct {
	cfg        config.Discovery
	aggregator Aggregator
	syncer     Syncer
	store      StateStore
	publisher  events.Publisher
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string

	mu            sync.Mutex
	state         State
	lastReport    *report.Report
	lastConflicts []models.Conflict
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher attaches an event publisher; publish failures are logged,
// never fatal to a run.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs the scheduler.
func New(cfg config.Discovery, agg Aggregator, syncer Syncer, store StateStore, opts ...Option) (*Service, error) {
	if agg == nil {
		return nil, fmt.Errorf("scheduler: aggregator is required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("scheduler: syncer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("scheduler: state store is required")
	}

	s := &Service{
		cfg:        cfg,
		aggregator: agg,
		syncer:     syncer,
		store:      store,
		publisher:  events.NewMemory(),
		logger:     slog.Default(),
		now:        time.Now,
		newRunID:   uuid.NewString,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State reports the most recent lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastReport returns the report from the most recent completed run, or nil
// if no run has completed since the process started.
func (s *Service) LastReport() *report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// LastConflicts returns the disagreements flagged by the most recent
// completed run.
func (s *Service) LastConflicts() []models.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conflict, len(s.lastConflicts))
	copy(out, s.lastConflicts)
	return out
}

// Check reports whether a run is due. Disabled pipelines are never due,
// force makes a run due unconditionally, and a manual frequency is due only
// when forced.
func (s *Service) Check(ctx context.Context) (State, error) {
	if !s.cfg.Enabled {
		return StateIdle, nil
	}
	if s.cfg.Force {
		return StateDue, nil
	}

	interval := s.cfg.Frequency.Interval()
	if interval == 0 {
		return StateIdle, nil
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		return StateIdle, fmt.Errorf("scheduler: load run state: %w", err)
	}
	if state.LastRunAt.IsZero() || s.now().Sub(state.LastRunAt) >= interval {
		return StateDue, nil
	}
	return StateIdle, nil
}

// RunIfDue executes the pipeline only when Check says a run is due. It
// returns a nil report when nothing was due.
func (s *Service) RunIfDue(ctx context.Context) (*report.Report, error) {
	state, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	if state != StateDue {
		return nil, nil
	}
	return s.RunNow(ctx)
}

// RunNow executes one full pipeline run regardless of schedule. The run
// timestamp is persisted only on success so that a failed run retries at the
// next check instead of waiting out a full interval.
func (s *Service) RunNow(ctx context.Context) (*report.Report, error) {
	runID := s.newRunID()
	startedAt := s.now()
	s.setState(StateRunning)

	s.logger.Info("discovery run starting", "run_id", runID)

	agg, err := s.aggregator.AggregateAll(ctx, []models.Chamber{models.ChamberHouse, models.ChamberSenate})
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("scheduler: aggregate: %w", err)
	}

	syncResult, err := s.syncer.SyncDiscoveredCandidates(ctx, agg.Candidates)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("scheduler: registry sync: %w", err)
	}

	completedAt := s.now()
	rep := report.Build(runID, agg, syncResult, map[models.Chamber]int{
		models.ChamberHouse:  s.cfg.HouseDistricts,
		models.ChamberSenate: s.cfg.SenateDistricts,
	}, completedAt)

	// Persist before announcing: a run only counts as completed once its
	// timestamp is durable. On failure the timestamp never advanced, so the
	// next check retries immediately.
	if err := s.store.Save(ctx, RunState{LastRunAt: startedAt, LastRunID: runID}); err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("scheduler: persist run state: %w", err)
	}

	s.publish(ctx, runID, agg, &rep)

	s.mu.Lock()
	s.state = StateCompleted
	s.lastReport = &rep
	s.lastConflicts = agg.Conflicts
	s.mu.Unlock()

	s.logger.Info("discovery run completed",
		"run_id", runID,
		"raw", agg.TotalRaw,
		"deduplicated", agg.TotalDeduplicated,
		"conflicts_pending_review", rep.ConflictsPendingReview,
		"new", rep.NewCandidates,
		"updated", rep.UpdatedCandidates,
		"duration", completedAt.Sub(startedAt))

	return &rep, nil
}

func (s *Service) publish(ctx context.Context, runID string, agg *models.AggregationResult, rep *report.Report) {
	occurredAt := s.now()
	for _, c := range agg.Conflicts {
		if !c.RequiresReview {
			continue
		}
		event := events.Event{
			Kind:       events.KindConflictFlagged,
			RunID:      runID,
			OccurredAt: occurredAt,
			Body:       c,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish conflict event",
				"run_id", runID, "candidate", c.Candidate.CanonicalName, "error", err)
		}
	}

	event := events.Event{
		Kind:       events.KindRunCompleted,
		RunID:      runID,
		OccurredAt: occurredAt,
		Body:       rep,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish run event", "run_id", runID, "error", err)
	}
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
