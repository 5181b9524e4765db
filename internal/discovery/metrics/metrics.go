package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the discovery pipeline.
type Metrics struct {
	SourceFetches        *prometheus.CounterVec
	SourceFetchDuration  *prometheus.HistogramVec
	CandidatesDiscovered prometheus.Counter
	CandidatesMerged     prometheus.Counter
	ConflictsFlagged     *prometheus.CounterVec
	RunsCompleted        prometheus.Counter
}

// New creates and registers all discovery metrics.
func New() *Metrics {
	return &Metrics{
		SourceFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotwatch_source_fetches_total",
			Help: "Adapter fetch outcomes per source.",
		}, []string{"source", "outcome"}),
		SourceFetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ballotwatch_source_fetch_duration_seconds",
			Help:    "Latency of adapter fetches per source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		CandidatesDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotwatch_raw_candidates_total",
			Help: "Raw candidate mentions collected across all sources.",
		}),
		CandidatesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotwatch_merged_candidates_total",
			Help: "Merged candidate identities produced by deduplication.",
		}),
		ConflictsFlagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ballotwatch_conflicts_total",
			Help: "Party disagreements flagged per run.",
		}, []string{"requires_review"}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ballotwatch_aggregation_runs_total",
			Help: "Completed aggregation runs.",
		}),
	}
}

// ObserveFetch records one adapter fetch outcome.
func (m *Metrics) ObserveFetch(source string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
	m.SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRun records run-level counts.
func (m *Metrics) ObserveRun(raw, merged int) {
	if m == nil {
		return
	}
	m.CandidatesDiscovered.Add(float64(raw))
	m.CandidatesMerged.Add(float64(merged))
	m.RunsCompleted.Inc()
}

// ObserveConflict records one flagged disagreement.
func (m *Metrics) ObserveConflict(requiresReview bool) {
	if m == nil {
		return
	}
	label := "false"
	if requiresReview {
		label = "true"
	}
	m.ConflictsFlagged.WithLabelValues(label).Inc()
}
