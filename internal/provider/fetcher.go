package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/observability"
	"subnet-nexus/internal/reconcile"
)

// FetcherConfig tunes failover and caching behavior.
type FetcherConfig struct {
	// MetagraphTTL bounds how long a fetched metagraph is reused. Zero
	// disables metagraph caching.
	MetagraphTTL time.Duration
}

// Fetcher fetches raw payloads with explicit provider failover: the primary
// client is tried first, and on an auth or rate-limit response, or a
// transport error, the secondary client is tried with its own endpoint and
// field dictionary. Every successful payload is tagged with the provider
// that produced it.
type Fetcher struct {
	primary   RawClient
	secondary RawClient
	cache     Cache
	cfg       FetcherConfig
	logger    zerolog.Logger
}

// NewFetcher creates a Fetcher. secondary and cache may be nil, which
// disables failover and caching respectively.
func NewFetcher(primary RawClient, secondary RawClient, cache Cache, cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	if primary == nil {
		panic("provider: primary client is required")
	}
	return &Fetcher{
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With().Str("component", "fetcher").Logger(),
	}
}

// Screener fetches the full subnet listing, tagged with the serving provider.
func (f *Fetcher) Screener(ctx context.Context) ([]reconcile.RawRecord, domain.Provider, error) {
	var records []reconcile.RawRecord
	p, err := f.attempt(ctx, "screener", func(ctx context.Context, client RawClient) error {
		var err error
		records, err = client.Screener(ctx)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return records, p, nil
}

// Metagraph fetches participation data for one subnet, reusing a cached
// payload within the configured TTL. The cached provider tag is returned
// with the cached payload.
func (f *Fetcher) Metagraph(ctx context.Context, netuid int) (reconcile.RawRecord, domain.Provider, error) {
	key := fmt.Sprintf("metagraph:%d", netuid)
	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			if cached, ok := v.(taggedRecord); ok {
				observability.RecordCacheHit()
				return cached.record, cached.provider, nil
			}
		}
		observability.RecordCacheMiss()
	}

	var record reconcile.RawRecord
	p, err := f.attempt(ctx, "metagraph", func(ctx context.Context, client RawClient) error {
		var err error
		record, err = client.Metagraph(ctx, netuid)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	if f.cache != nil && f.cfg.MetagraphTTL > 0 {
		f.cache.Set(key, taggedRecord{record: record, provider: p}, f.cfg.MetagraphTTL)
	}
	return record, p, nil
}

// NetworkStats fetches network-wide aggregates, tagged with the serving
// provider.
func (f *Fetcher) NetworkStats(ctx context.Context) (reconcile.RawRecord, domain.Provider, error) {
	var record reconcile.RawRecord
	p, err := f.attempt(ctx, "network_stats", func(ctx context.Context, client RawClient) error {
		var err error
		record, err = client.NetworkStats(ctx)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return record, p, nil
}

type taggedRecord struct {
	record   reconcile.RawRecord
	provider domain.Provider
}

// attempt runs call against the primary, failing over to the secondary when
// the primary error is retryable elsewhere. Non-retryable primary errors
// surface immediately.
func (f *Fetcher) attempt(ctx context.Context, endpoint string, call func(context.Context, RawClient) error) (domain.Provider, error) {
	start := time.Now()
	primaryErr := call(ctx, f.primary)
	observability.RecordProviderRequest(string(f.primary.Name()), endpoint, time.Since(start).Seconds(), primaryErr)
	if primaryErr == nil {
		return f.primary.Name(), nil
	}

	if f.secondary == nil || !shouldFailover(primaryErr) {
		return "", primaryErr
	}

	f.logger.Warn().
		Err(primaryErr).
		Str("endpoint", endpoint).
		Str("provider", string(f.primary.Name())).
		Msg("primary provider failed, trying secondary")

	start = time.Now()
	secondaryErr := call(ctx, f.secondary)
	observability.RecordProviderRequest(string(f.secondary.Name()), endpoint, time.Since(start).Seconds(), secondaryErr)
	if secondaryErr == nil {
		return f.secondary.Name(), nil
	}

	return "", fmt.Errorf("all providers failed: primary: %w; secondary: %v", primaryErr, secondaryErr)
}

// shouldFailover reports whether an error from one provider justifies trying
// the other: auth rejections, rate limits, server-side failures, transport
// errors and garbage payloads do; context cancellation and other client-side
// 4xx responses do not.
func shouldFailover(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return true
		}
		return statusErr.Code >= 500
	}

	return true
}
