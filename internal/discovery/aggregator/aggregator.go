// Package aggregator orchestrates one discovery run: fan out to every
// source adapter, fan in their results, deduplicate, and apply the conflict
// policy. Source failures are isolated per adapter and never abort a run.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ballotwatch/internal/discovery/conflict"
	"ballotwatch/internal/discovery/dedupe"
	"ballotwatch/internal/discovery/metrics"
	"ballotwatch/internal/discovery/models"
	"ballotwatch/internal/discovery/sources"
)

const defaultMaxConcurrent = 4

// Service runs the aggregation pipeline over a fixed adapter set.
type Service struct {
	adapters      []sources.Adapter
	dedupe        *dedupe.Deduplicator
	detector      *conflict.Detector
	logger        *slog.Logger
	metrics       *metrics.Metrics
	maxConcurrent int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxConcurrent bounds the adapter fan-out.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// New builds an aggregator over adapters, which must already be in ascending
// priority order (most trusted first), as returned by Registry.Select.
func New(adapters []sources.Adapter, dd *dedupe.Deduplicator, det *conflict.Detector, opts ...Option) (*Service, error) {
	if dd == nil {
		return nil, fmt.Errorf("deduplicator is required")
	}
	if det == nil {
		return nil, fmt.Errorf("conflict detector is required")
	}

	svc := &Service{
		adapters:      adapters,
		dedupe:        dd,
		detector:      det,
		logger:        slog.Default(),
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AggregateAll runs every adapter for the requested chambers and reconciles
// the union of their results. A run with zero successful sources still
// produces a result with full per-source stats; it never returns an error
// for source failures.
func (s *Service) AggregateAll(ctx context.Context, chambers []models.Chamber) (*models.AggregationResult, error) {
	return s.aggregate(ctx, sources.Query{Chambers: chambers})
}

// AggregateForDistrict restricts the adapter query scope to one district but
// uses the identical merge and conflict logic.
func (s *Service) AggregateForDistrict(ctx context.Context, chamber models.Chamber, district int) (*models.AggregationResult, error) {
	return s.aggregate(ctx, sources.Query{
		Chambers:  []models.Chamber{chamber},
		Districts: []int{district},
	})
}

func (s *Service) aggregate(ctx context.Context, q sources.Query) (*models.AggregationResult, error) {
	tracer := otel.Tracer("ballotwatch/aggregator")
	ctx, span := tracer.Start(ctx, "discovery.aggregate")
	defer span.End()
	span.SetAttributes(attribute.Int("sources.count", len(s.adapters)))

	stats := make([]models.SourceResult, len(s.adapters))

	// Fan out, then wait for every adapter to complete or fail: canonical
	// name selection compares trust across all available sources, so
	// deduplication cannot start on a partial source set.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, adapter := range s.adapters {
		g.Go(func() error {
			stats[i] = s.fetchOne(gctx, adapter, q)
			return nil
		})
	}
	// Goroutines never return errors; failures land in stats.
	_ = g.Wait()

	var raw []models.RawCandidate
	for _, sr := range stats {
		if sr.Success {
			raw = append(raw, sr.Candidates...)
		}
	}

	merged := s.dedupe.Merge(raw)

	var conflicts []models.Conflict
	for i := range merged {
		if c := s.detector.Inspect(&merged[i]); c != nil {
			conflicts = append(conflicts, *c)
			s.metrics.ObserveConflict(c.RequiresReview)
		}
	}

	result := &models.AggregationResult{
		Candidates:        merged,
		SourceStats:       stats,
		Conflicts:         conflicts,
		TotalRaw:          len(raw),
		TotalDeduplicated: len(merged),
	}

	s.metrics.ObserveRun(result.TotalRaw, result.TotalDeduplicated)
	span.SetAttributes(
		attribute.Int("candidates.raw", result.TotalRaw),
		attribute.Int("candidates.merged", result.TotalDeduplicated),
		attribute.Int("conflicts", len(conflicts)),
	)
	s.logger.InfoContext(ctx, "aggregation run finished",
		"raw", result.TotalRaw,
		"merged", result.TotalDeduplicated,
		"conflicts", len(conflicts),
		"failed_sources", result.FailedSources(),
	)

	return result, nil
}

// fetchOne invokes a single adapter with panic isolation. Whatever happens
// inside the adapter, the run gets a SourceResult.
func (s *Service) fetchOne(ctx context.Context, adapter sources.Adapter, q sources.Query) (sr models.SourceResult) {
	// Fetches are outbound network calls behind the adapter interface.
	tracer := otel.Tracer("ballotwatch/aggregator")
	ctx, span := tracer.Start(ctx, "discovery.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("source", adapter.Name())))
	defer span.End()

	sr.SourceName = adapter.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			sr = models.SourceResult{
				SourceName: adapter.Name(),
				Success:    false,
				Error:      fmt.Sprintf("panic: %v", r),
			}
			s.logger.ErrorContext(ctx, "source adapter panicked",
				"source", adapter.Name(), "panic", r)
		}
		sr.Duration = time.Since(start)
		s.metrics.ObserveFetch(sr.SourceName, sr.Success, sr.Duration)
	}()

	candidates, err := adapter.Fetch(ctx, q)
	if err != nil {
		sr.Success = false
		sr.Error = err.Error()
		s.logger.WarnContext(ctx, "source fetch failed",
			"source", adapter.Name(), "error", err)
		return sr
	}

	sr.Success = true
	sr.Candidates = candidates
	sr.PartialCoverage = partialCoverage(candidates, q)
	return sr
}

// partialCoverage reports whether a source answered for only a subset of the
// explicitly requested districts. For open-ended queries there is no
// requested set to compare against.
func partialCoverage(candidates []models.RawCandidate, q sources.Query) bool {
	if len(q.Districts) == 0 {
		return false
	}
	covered := make(map[int]struct{}, len(candidates))
	for _, c := range candidates {
		covered[c.District] = struct{}{}
	}
	for _, d := range q.Districts {
		if _, ok := covered[d]; !ok {
			return true
		}
	}
	return false
}
