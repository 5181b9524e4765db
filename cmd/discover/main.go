// Command discover executes one forced discovery run and prints the report.
// It shares the server's pipeline wiring but keeps everything in memory, so
// it is safe to point at exported filing data during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"ballotwatch/internal/discovery/aggregator"
	"ballotwatch/internal/discovery/conflict"
	"ballotwatch/internal/discovery/dedupe"
	"ballotwatch/internal/discovery/sources"
	"ballotwatch/internal/platform/config"
	"ballotwatch/internal/platform/logger"
	regstore "ballotwatch/internal/registry/store"
	regsync "ballotwatch/internal/registry/sync"
	"ballotwatch/internal/scheduler"
	schedstore "ballotwatch/internal/scheduler/store"
)

func main() {
	fixtures := flag.String("fixtures", "", "path to a JSON file of exported filing data")
	flag.Parse()

	if err := run(context.Background(), *fixtures); err != nil {
		fmt.Fprintln(os.Stderr, "discover:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, fixtures string) error {
	cfg := config.FromEnv()
	cfg.Discovery.Force = true
	if fixtures == "" {
		fixtures = cfg.SourceFixtures
	}
	if fixtures == "" {
		return fmt.Errorf("no fixtures given; pass -fixtures or set BALLOTWATCH_SOURCE_FIXTURES")
	}

	log := logger.New()

	static, err := sources.LoadFile(fixtures)
	if err != nil {
		return err
	}
	registry := sources.NewRegistry()
	names := make([]string, 0, len(static))
	for _, a := range static {
		if err := registry.Register(sources.Throttle(a, cfg.Discovery.RateLimitPerMinute)); err != nil {
			return err
		}
		names = append(names, a.Name())
	}
	adapters, err := registry.Select(names)
	if err != nil {
		return err
	}

	agg, err := aggregator.New(adapters,
		dedupe.New(cfg.Discovery.SimilarityThreshold),
		conflict.NewDetector(cfg.Discovery.ConflictReviewGap, cfg.Discovery.PartisanSources),
		aggregator.WithLogger(log),
		aggregator.WithMaxConcurrent(cfg.Discovery.MaxConcurrentFetches),
	)
	if err != nil {
		return err
	}

	syncSvc, err := regsync.New(regstore.NewInMemory(),
		regsync.WithLogger(log),
		regsync.WithThreshold(cfg.Discovery.SimilarityThreshold))
	if err != nil {
		return err
	}

	sched, err := scheduler.New(cfg.Discovery, agg, syncSvc, schedstore.NewInMemory(),
		scheduler.WithLogger(log))
	if err != nil {
		return err
	}

	rep, err := sched.RunNow(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
