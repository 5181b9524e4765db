package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ballotwatch/internal/discovery/aggregator"
	"ballotwatch/internal/discovery/conflict"
	"ballotwatch/internal/discovery/dedupe"
	"ballotwatch/internal/discovery/metrics"
	"ballotwatch/internal/discovery/sources"
	"ballotwatch/internal/platform/config"
	"ballotwatch/internal/platform/events"
	"ballotwatch/internal/platform/httpserver"
	"ballotwatch/internal/platform/logger"
	platformredis "ballotwatch/internal/platform/redis"
	"ballotwatch/internal/platform/runlock"
	regstore "ballotwatch/internal/registry/store"
	regsync "ballotwatch/internal/registry/sync"
	"ballotwatch/internal/scheduler"
	schedstore "ballotwatch/internal/scheduler/store"
	httptransport "ballotwatch/internal/transport/http"
)

const checkInterval = time.Minute

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Registry storage: postgres when configured, in-memory otherwise.
	var registryStore regstore.Store
	if cfg.RegistryDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.RegistryDSN)
		if err != nil {
			return fmt.Errorf("connect registry postgres: %w", err)
		}
		defer pool.Close()

		pg := regstore.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		registryStore = pg
	} else {
		log.Warn("no registry DSN configured; registry lives in memory")
		registryStore = regstore.NewInMemory()
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Run state: postgres wins, then redis, then memory.
	var stateStore scheduler.StateStore
	switch {
	case cfg.RunStateDSN != "":
		ps, err := schedstore.NewPostgres(ctx, cfg.RunStateDSN)
		if err != nil {
			return err
		}
		defer ps.Close()
		if err := ps.EnsureSchema(ctx); err != nil {
			return err
		}
		stateStore = ps
	case redisClient != nil:
		stateStore = schedstore.NewRedis(redisClient.Client)
	default:
		stateStore = schedstore.NewInMemory()
	}

	var publisher events.Publisher = events.NewMemory()
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafka(ctx, cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kp.Close()
		publisher = kp
	}

	adapters, err := buildAdapters(cfg, log)
	if err != nil {
		return err
	}

	agg, err := aggregator.New(adapters,
		dedupe.New(cfg.Discovery.SimilarityThreshold),
		conflict.NewDetector(cfg.Discovery.ConflictReviewGap, cfg.Discovery.PartisanSources),
		aggregator.WithLogger(log),
		aggregator.WithMetrics(metrics.New()),
		aggregator.WithMaxConcurrent(cfg.Discovery.MaxConcurrentFetches),
	)
	if err != nil {
		return err
	}

	syncOpts := []regsync.Option{
		regsync.WithLogger(log),
		regsync.WithThreshold(cfg.Discovery.SimilarityThreshold),
	}
	if redisClient != nil {
		syncOpts = append(syncOpts, regsync.WithLocker(runlock.NewRedis(redisClient.Client, nil)))
	}
	syncSvc, err := regsync.New(registryStore, syncOpts...)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(cfg.Discovery, agg, syncSvc, stateStore,
		scheduler.WithLogger(log),
		scheduler.WithPublisher(publisher))
	if err != nil {
		return err
	}

	verifier := httptransport.NewTokenVerifier(cfg.JWTSigningKey, "ballotwatch")
	handler := httptransport.NewHandler(sched, syncSvc, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, verifier, log))

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting ballotwatch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go runSchedulerLoop(ctx, sched, log)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func buildAdapters(cfg config.Server, log *slog.Logger) ([]sources.Adapter, error) {
	registry := sources.NewRegistry()
	var names []string

	if cfg.SourceFixtures != "" {
		static, err := sources.LoadFile(cfg.SourceFixtures)
		if err != nil {
			return nil, err
		}
		for _, a := range static {
			wrapped := sources.Resilience(sources.Throttle(a, cfg.Discovery.RateLimitPerMinute))
			if err := registry.Register(wrapped); err != nil {
				return nil, err
			}
			names = append(names, a.Name())
		}
	}

	selected := names
	if len(cfg.Discovery.Sources) > 0 {
		selected = cfg.Discovery.Sources
	}
	if len(selected) == 0 {
		log.Warn("no sources configured; discovery runs will produce empty results")
		return nil, nil
	}
	return registry.Select(selected)
}

func runSchedulerLoop(ctx context.Context, sched *scheduler.Service, log *slog.Logger) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		if _, err := sched.RunIfDue(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduled discovery run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
