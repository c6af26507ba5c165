// Package main provides the unified service that runs all components
// together: the exchange-rate poller, the scheduled rescoring pipeline and
// the HTTP API over the current score records.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/config"
	"subnet-nexus/internal/observability"
	"subnet-nexus/internal/orchestrator"
	"subnet-nexus/internal/provider"
	"subnet-nexus/internal/reconcile"
	"subnet-nexus/internal/scoring"
	"subnet-nexus/internal/storage"
	"subnet-nexus/internal/storage/clickhouse"
	"subnet-nexus/internal/storage/memory"
	"subnet-nexus/internal/storage/migrations"
	pgstore "subnet-nexus/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("SUBNET_NEXUS_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP API listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus listen address (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg, *addr, *metricsAddr, *postgresDSN, *clickhouseDSN, *useMemory)

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scoreStore, historyStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create stores")
	}
	defer cleanup()

	fetcher := createFetcher(cfg, logger)

	rates := provider.NewRatePoller(fetcher, cfg.DefaultExchangeRate, cfg.RatePollInterval, logger)
	go rates.Run(ctx)

	reconciler := reconcile.NewReconciler()
	reconciler.UseDeterministicFallback = cfg.UseDeterministicFallback

	consts := scoring.DefaultConstants(cfg.DefaultExchangeRate)
	consts.DailyEmission = cfg.DailyEmission

	orch := orchestrator.New(orchestrator.Options{
		Fetcher:         fetcher,
		Rates:           rates,
		Reconciler:      reconciler,
		ScoreStore:      scoreStore,
		HistoryStore:    historyStore,
		Constants:       consts,
		ConflictRetries: cfg.ConflictRetries,
		EnrichTopK:      cfg.EnrichTopK,
		Logger:          logger,
	})

	api := newAPIServer(scoreStore, historyStore, orch, cfg.TopN, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		metricsServer.Close()
	}()

	if cfg.RescoreInterval > 0 {
		go runRescoreLoop(ctx, orch, cfg.RescoreInterval, logger)
	}

	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	logger.Info().Str("addr", cfg.Addr).Msg("starting HTTP API server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("HTTP server error")
	}
	logger.Info().Msg("shutdown complete")
}

// applyFlagOverrides layers non-empty flag values over the loaded config.
func applyFlagOverrides(cfg *config.Config, addr, metricsAddr, postgresDSN, clickhouseDSN string, useMemory bool) {
	if addr != "" {
		cfg.Addr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if postgresDSN != "" {
		cfg.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.ClickhouseDSN = clickhouseDSN
	}
	if useMemory {
		cfg.UseMemory = true
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// createStores wires the score and history stores, running migrations when
// the durable backends are selected.
func createStores(ctx context.Context, cfg *config.Config) (storage.ScoreStore, storage.HistoryStore, func(), error) {
	if cfg.UseMemory {
		return memory.NewScoreStore(), memory.NewHistoryStore(), func() {}, nil
	}

	pool, err := migrations.RunPostgresMigrations(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return pgstore.NewScoreStore(pool), clickhouse.NewHistoryStore(chConn), cleanup, nil
}

func createFetcher(cfg *config.Config, logger zerolog.Logger) *provider.Fetcher {
	primary := provider.NewPrimaryClient(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey)

	var secondary provider.RawClient
	if cfg.SecondaryAPIKey != "" || cfg.SecondaryBaseURL != "" {
		secondary = provider.NewSecondaryClient(cfg.SecondaryBaseURL, cfg.SecondaryAPIKey)
	}

	return provider.NewFetcher(primary, secondary, provider.NewMemoryCache(), provider.FetcherConfig{
		MetagraphTTL: cfg.MetagraphCacheTTL,
	}, logger)
}

// runRescoreLoop runs a full rescoring immediately and then on each tick.
// Overlapping runs are skipped.
func runRescoreLoop(ctx context.Context, orch *orchestrator.Orchestrator, interval time.Duration, logger zerolog.Logger) {
	var mu sync.Mutex
	running := false

	run := func() {
		mu.Lock()
		if running {
			mu.Unlock()
			logger.Info().Msg("rescoring already running, skipping tick")
			return
		}
		running = true
		mu.Unlock()
		defer func() {
			mu.Lock()
			running = false
			mu.Unlock()
		}()

		if _, err := orch.RescoreAll(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduled rescoring failed")
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	return mux
}
