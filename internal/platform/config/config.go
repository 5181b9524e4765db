package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Frequency controls how often the discovery scheduler considers a run due.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyManual Frequency = "manual"
)

// Interval converts a frequency into the elapsed-time threshold used by the
// scheduler. Manual never elapses; runs only happen when forced.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Discovery captures pipeline-level configuration.
type Discovery struct {
	Enabled             bool
	Frequency           Frequency
	Sources             []string
	SimilarityThreshold float64
	RateLimitPerMinute  int
	Force               bool

	// ConflictReviewGap is the largest source-priority gap that still
	// escalates a party disagreement to a human instead of auto-resolving.
	ConflictReviewGap int

	// PartisanSources names adapters run by a party organization. Two such
	// sources are never allowed to out-vote each other.
	PartisanSources []string

	// MaxConcurrentFetches bounds the adapter fan-out.
	MaxConcurrentFetches int

	// District counts per chamber, used for run-report coverage.
	HouseDistricts  int
	SenateDistricts int
}

// Server captures process-level configuration for the operator service.
type Server struct {
	Addr          string
	JWTSigningKey string

	RegistryDSN  string
	RunStateDSN  string
	RedisURL     string
	KafkaBrokers []string

	// SourceFixtures points at a JSON file of exported filing data used to
	// feed the static source adapters.
	SourceFixtures string

	Discovery Discovery
}

// FromEnv builds configuration from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:           envOr("BALLOTWATCH_ADDR", ":8080"),
		JWTSigningKey:  envOr("BALLOTWATCH_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RegistryDSN:    os.Getenv("BALLOTWATCH_REGISTRY_DSN"),
		RunStateDSN:    os.Getenv("BALLOTWATCH_RUNSTATE_DSN"),
		RedisURL:       os.Getenv("BALLOTWATCH_REDIS_URL"),
		KafkaBrokers:   splitList(os.Getenv("BALLOTWATCH_KAFKA_BROKERS")),
		SourceFixtures: os.Getenv("BALLOTWATCH_SOURCE_FIXTURES"),
		Discovery:      discoveryFromEnv(),
	}
}

func discoveryFromEnv() Discovery {
	return Discovery{
		Enabled:              envOr("DISCOVERY_ENABLED", "true") == "true",
		Frequency:            parseFrequency(os.Getenv("DISCOVERY_FREQUENCY")),
		Sources:              splitList(os.Getenv("DISCOVERY_SOURCES")),
		SimilarityThreshold:  envFloat("SIMILARITY_THRESHOLD", 0.85),
		RateLimitPerMinute:   envInt("SOURCE_RATE_LIMIT_PER_MINUTE", 30),
		Force:                os.Getenv("FORCE_DISCOVERY") == "true",
		ConflictReviewGap:    envInt("CONFLICT_REVIEW_GAP", 1),
		PartisanSources:      splitList(os.Getenv("PARTISAN_SOURCES")),
		MaxConcurrentFetches: envInt("MAX_CONCURRENT_FETCHES", 4),
		HouseDistricts:       envInt("HOUSE_DISTRICTS", 124),
		SenateDistricts:      envInt("SENATE_DISTRICTS", 46),
	}
}

func parseFrequency(raw string) Frequency {
	switch Frequency(strings.ToLower(raw)) {
	case FrequencyDaily, FrequencyWeekly, FrequencyManual:
		return Frequency(strings.ToLower(raw))
	default:
		return FrequencyWeekly
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
