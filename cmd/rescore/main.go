// Package main provides a one-shot rescoring run against the configured
// stores. Useful for cron-driven deployments and for backfilling after a
// schema change.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/config"
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
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (results are discarded on exit)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.UseMemory = true
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	scoreStore, historyStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	primary := provider.NewPrimaryClient(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey)
	var secondary provider.RawClient
	if cfg.SecondaryAPIKey != "" || cfg.SecondaryBaseURL != "" {
		secondary = provider.NewSecondaryClient(cfg.SecondaryBaseURL, cfg.SecondaryAPIKey)
	}
	fetcher := provider.NewFetcher(primary, secondary, provider.NewMemoryCache(), provider.FetcherConfig{
		MetagraphTTL: cfg.MetagraphCacheTTL,
	}, logger)

	rates := provider.NewRatePoller(fetcher, cfg.DefaultExchangeRate, cfg.RatePollInterval, logger)
	rates.Refresh(ctx)

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

	result, err := orch.RescoreAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rescoring failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rescoring complete in %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  scored:  %d\n", result.Scored)
	fmt.Printf("  skipped: %d\n", result.Skipped)
	fmt.Printf("  failed:  %d\n", result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  error: netuid %d: %s\n", e.Netuid, e.Err)
	}

	if result.Scored == 0 {
		fmt.Fprintln(os.Stderr, "no subnets were scored")
		os.Exit(1)
	}
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
