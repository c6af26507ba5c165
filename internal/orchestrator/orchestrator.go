// Package orchestrator coordinates the rescoring pipeline.
// Flow: fetch raw data -> reconcile -> score -> classify -> persist -> rank.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/observability"
	"subnet-nexus/internal/provider"
	"subnet-nexus/internal/ranking"
	"subnet-nexus/internal/reconcile"
	"subnet-nexus/internal/scoring"
	"subnet-nexus/internal/storage"
)

// RateSource exposes the current native-token to USD exchange rate.
// provider.RatePoller satisfies it; tests inject fixed rates.
type RateSource interface {
	Rate() float64
}

// Orchestrator runs the rescoring pipeline against the configured stores.
// Writes for one netuid are serialized through a keyed mutex; distinct
// netuids proceed in parallel.
type Orchestrator struct {
	fetcher      *provider.Fetcher
	rates        RateSource
	reconciler   *reconcile.Reconciler
	scoreStore   storage.ScoreStore
	historyStore storage.HistoryStore

	constants       scoring.Constants
	conflictRetries int
	enrichTopK      int
	workers         int

	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// Options for creating an Orchestrator.
type Options struct {
	// Required collaborators
	Fetcher      *provider.Fetcher
	Rates        RateSource
	Reconciler   *reconcile.Reconciler
	ScoreStore   storage.ScoreStore
	HistoryStore storage.HistoryStore

	// Scoring constants; TokenPriceUSD is overridden with the live rate on
	// every run.
	Constants scoring.Constants

	// ConflictRetries bounds upsert retries after a version conflict.
	// Defaults to 3.
	ConflictRetries int

	// EnrichTopK bounds how many subnets (by market cap) get a metagraph
	// fetch per full run; the rest use the deterministic fallback.
	// Defaults to 30.
	EnrichTopK int

	// Workers bounds scoring concurrency in a full run. Defaults to 8.
	Workers int

	Logger zerolog.Logger

	// Now overrides the clock for tests.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.ConflictRetries <= 0 {
		opts.ConflictRetries = 3
	}
	if opts.EnrichTopK <= 0 {
		opts.EnrichTopK = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		fetcher:         opts.Fetcher,
		rates:           opts.Rates,
		reconciler:      opts.Reconciler,
		scoreStore:      opts.ScoreStore,
		historyStore:    opts.HistoryStore,
		constants:       opts.Constants,
		conflictRetries: opts.ConflictRetries,
		enrichTopK:      opts.EnrichTopK,
		workers:         opts.Workers,
		logger:          opts.Logger.With().Str("component", "orchestrator").Logger(),
		now:             opts.Now,
		locks:           make(map[int]*sync.Mutex),
	}
}

// SubnetError records one failed subnet in a batch run.
type SubnetError struct {
	Netuid int
	Err    string
}

// BatchResult summarizes a full rescoring run. Skipped counts records that
// failed reconciliation; Failed counts records that reconciled but could not
// be scored or persisted.
type BatchResult struct {
	Scored  int
	Skipped int
	Failed  int
	Errors  []SubnetError

	Duration time.Duration
}

// RescoreSubnet reprocesses one raw screener record end to end: reconcile,
// enrich participation from the metagraph, score, classify and persist, with
// exactly one history entry appended on success.
func (o *Orchestrator) RescoreSubnet(ctx context.Context, raw reconcile.RawRecord, p domain.Provider) (*domain.ScoreRecord, error) {
	rate := o.rates.Rate()

	m, err := o.reconciler.Reconcile(raw, p, rate)
	if err != nil {
		observability.RecordReconcileError(string(p))
		return nil, err
	}
	observability.RecordReconciled(string(p))

	o.enrichOne(ctx, m, rate)

	return o.scoreAndPersist(ctx, m, rate)
}

// RescoreAll runs a full rescoring cycle: fetch the screener, reconcile every
// record, enrich the largest subnets from their metagraphs, score and persist
// concurrently, then recompute and persist ranks. A reconciliation failure
// skips that record only; the run fails outright only when the screener
// itself cannot be fetched.
func (o *Orchestrator) RescoreAll(ctx context.Context) (*BatchResult, error) {
	start := o.now()
	result := &BatchResult{}

	raws, p, err := o.fetcher.Screener(ctx)
	if err != nil {
		observability.RecordPipelineRun("error", o.now().Sub(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("fetch screener: %w", err)
	}
	o.logger.Info().Int("records", len(raws)).Str("provider", string(p)).Msg("screener fetched")

	rate := o.rates.Rate()

	var metrics []*domain.SubnetMetrics
	for _, raw := range raws {
		m, err := o.reconciler.Reconcile(raw, p, rate)
		if err != nil {
			observability.RecordReconcileError(string(p))
			result.Skipped++
			o.logger.Warn().Err(err).Msg("reconciliation failed, skipping record")
			continue
		}
		observability.RecordReconciled(string(p))
		metrics = append(metrics, m)
	}

	o.enrichBatch(ctx, metrics, rate)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.workers)
	)
	for _, m := range metrics {
		wg.Add(1)
		sem <- struct{}{}
		go func(m *domain.SubnetMetrics) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := o.scoreAndPersist(ctx, m, rate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, SubnetError{Netuid: m.Netuid, Err: err.Error()})
				return
			}
			result.Scored++
		}(m)
	}
	wg.Wait()

	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].Netuid < result.Errors[j].Netuid })

	if result.Scored > 0 {
		if err := o.refreshRanks(ctx); err != nil {
			o.logger.Error().Err(err).Msg("rank refresh failed")
			result.Errors = append(result.Errors, SubnetError{Netuid: 0, Err: "rank refresh: " + err.Error()})
		}
	}

	result.Duration = o.now().Sub(start)
	status := "success"
	if result.Scored == 0 {
		status = "error"
	} else {
		observability.RecordRescoreSuccess(o.now().Unix())
	}
	observability.RecordPipelineRun(status, result.Duration.Seconds(), result.Scored, result.Skipped)

	o.logger.Info().
		Int("scored", result.Scored).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("rescoring run complete")

	return result, nil
}

// enrichOne fills participation for a single subnet, preferring live
// metagraph data and falling back to the deterministic estimate.
func (o *Orchestrator) enrichOne(ctx context.Context, m *domain.SubnetMetrics, rate float64) {
	meta, _, err := o.fetcher.Metagraph(ctx, m.Netuid)
	if err != nil {
		o.logger.Debug().Err(err).Int("netuid", m.Netuid).Msg("metagraph fetch failed, using fallback")
	} else {
		o.reconciler.EnrichParticipation(m, meta, rate)
	}
	o.reconciler.FallbackParticipation(m)
}

// enrichBatch enriches the top-K subnets by market cap from their metagraphs
// and fills the rest with the deterministic fallback. Bounding the metagraph
// fetches keeps a full run within upstream rate limits.
func (o *Orchestrator) enrichBatch(ctx context.Context, metrics []*domain.SubnetMetrics, rate float64) {
	byMcap := make([]*domain.SubnetMetrics, len(metrics))
	copy(byMcap, metrics)
	sort.Slice(byMcap, func(i, j int) bool {
		if byMcap[i].MarketCapUSD != byMcap[j].MarketCapUSD {
			return byMcap[i].MarketCapUSD > byMcap[j].MarketCapUSD
		}
		return byMcap[i].Netuid < byMcap[j].Netuid
	})

	for i, m := range byMcap {
		if i < o.enrichTopK {
			if meta, _, err := o.fetcher.Metagraph(ctx, m.Netuid); err == nil {
				o.reconciler.EnrichParticipation(m, meta, rate)
			} else {
				o.logger.Debug().Err(err).Int("netuid", m.Netuid).Msg("metagraph fetch failed, using fallback")
			}
		}
		o.reconciler.FallbackParticipation(m)
	}
}

// scoreAndPersist computes scores and tiers for one subnet and writes the
// record and its history entry. The keyed lock serializes writers of the
// same netuid so the version check only trips on external writers.
func (o *Orchestrator) scoreAndPersist(ctx context.Context, m *domain.SubnetMetrics, rate float64) (*domain.ScoreRecord, error) {
	consts := o.constants
	consts.TokenPriceUSD = rate

	res := scoring.Calculate(m, consts)
	observability.RecordScoreComputed(len(res.Warnings))
	for _, w := range res.Warnings {
		o.logger.Warn().Int("netuid", m.Netuid).Str("warning", w).Msg("scoring input coerced")
	}

	risk, rec := scoring.Classify(scoring.ClassifierInput{
		Composite:      res.Scores.Composite,
		ValidatorCount: m.ValidatorCount,
		TopHolderPct:   m.TopHolderPct,
		EmissionYield:  res.EmissionYield,
		PremiumPct:     res.PremiumPct,
	})
	badge := scoring.Badge(res.PremiumPct)

	unlock := o.lockNetuid(m.Netuid)
	defer unlock()

	record, err := o.upsertWithRetry(ctx, m, res, risk, rec, badge)
	if err != nil {
		return nil, err
	}

	entry := &domain.HistoryEntry{
		Netuid:         record.Netuid,
		Name:           record.Name,
		RecordedAt:     record.UpdatedAt,
		Scores:         record.Scores,
		Metrics:        record.Metrics,
		Rank:           record.Rank,
		Risk:           record.Risk,
		Recommendation: record.Recommendation,
	}
	if err := o.historyStore.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history for netuid %d: %w", record.Netuid, err)
	}
	observability.RecordHistoryAppend()

	return record, nil
}

// upsertWithRetry writes the score record, re-reading the current version
// after each conflict. Retries are bounded; an exhausted budget surfaces the
// conflict to the caller.
func (o *Orchestrator) upsertWithRetry(ctx context.Context, m *domain.SubnetMetrics, res scoring.Result, risk domain.RiskTier, rec domain.Recommendation, badge domain.ValuationBadge) (*domain.ScoreRecord, error) {
	for attempt := 0; attempt <= o.conflictRetries; attempt++ {
		existing, err := o.scoreStore.GetByNetuid(ctx, m.Netuid)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load record for netuid %d: %w", m.Netuid, err)
		}

		record := buildRecord(m, res, risk, rec, badge)
		if existing != nil {
			record.Version = existing.Version
			record.Rank = existing.Rank
			record.CreatedAt = existing.CreatedAt
		}

		err = o.scoreStore.Upsert(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("upsert record for netuid %d: %w", m.Netuid, err)
		}

		observability.RecordVersionConflict()
		o.logger.Debug().Int("netuid", m.Netuid).Int("attempt", attempt+1).Msg("version conflict, retrying with fresh read")
	}
	return nil, fmt.Errorf("upsert record for netuid %d: retries exhausted: %w", m.Netuid, storage.ErrConflict)
}

// refreshRanks recomputes standings across all current records and persists
// them outside the version check, so ranking never conflicts with rescoring.
func (o *Orchestrator) refreshRanks(ctx context.Context) error {
	records, err := o.scoreStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	ranks := ranking.Assign(records)
	if err := o.scoreStore.UpdateRanks(ctx, ranks); err != nil {
		return fmt.Errorf("update ranks: %w", err)
	}
	return nil
}

func buildRecord(m *domain.SubnetMetrics, res scoring.Result, risk domain.RiskTier, rec domain.Recommendation, badge domain.ValuationBadge) *domain.ScoreRecord {
	return &domain.ScoreRecord{
		Netuid:   m.Netuid,
		Name:     m.Name,
		Category: m.Category,
		Scores:   res.Scores,
		Metrics: domain.MetricSnapshot{
			PriceUSD:           m.PriceUSD,
			MarketCapUSD:       m.MarketCapUSD,
			Volume24hUSD:       m.Volume24hUSD,
			EmissionPct:        m.EmissionPct,
			FairValueUSD:       res.FairValueUSD,
			PremiumPct:         res.PremiumPct,
			EmissionYield:      res.EmissionYield,
			EmissionEfficiency: res.EmissionEfficiency,
			ValidatorCount:     m.ValidatorCount,
			MinerCount:         m.MinerCount,
			HolderCount:        m.HolderCount,
			TopHolderPct:       m.TopHolderPct,
		},
		Risk:           risk,
		Recommendation: rec,
		Badge:          badge,
	}
}

// lockNetuid acquires the per-netuid mutex, creating it on first use.
func (o *Orchestrator) lockNetuid(netuid int) func() {
	o.mu.Lock()
	lock, ok := o.locks[netuid]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[netuid] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
