package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/reconcile"
)

// stubClient is a scriptable RawClient for failover tests.
type stubClient struct {
	name      domain.Provider
	screener  []reconcile.RawRecord
	metagraph reconcile.RawRecord
	stats     reconcile.RawRecord
	err       error
	calls     int
}

func (s *stubClient) Name() domain.Provider { return s.name }

func (s *stubClient) Screener(ctx context.Context) ([]reconcile.RawRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.screener, nil
}

func (s *stubClient) Metagraph(ctx context.Context, netuid int) (reconcile.RawRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.metagraph, nil
}

func (s *stubClient) NetworkStats(ctx context.Context) (reconcile.RawRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func newTestFetcher(primary, secondary RawClient, cache Cache, ttl time.Duration) *Fetcher {
	return NewFetcher(primary, secondary, cache, FetcherConfig{MetagraphTTL: ttl}, zerolog.Nop())
}

func TestFetcherScreenerPrimaryFirst(t *testing.T) {
	primary := &stubClient{
		name:     domain.ProviderPrimary,
		screener: []reconcile.RawRecord{{"netuid": float64(1)}},
	}
	secondary := &stubClient{name: domain.ProviderSecondary}
	f := newTestFetcher(primary, secondary, nil, 0)

	records, p, err := f.Screener(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != domain.ProviderPrimary {
		t.Errorf("expected primary tag, got %s", p)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestFetcherFailoverOnAuthError(t *testing.T) {
	primary := &stubClient{
		name: domain.ProviderPrimary,
		err:  &StatusError{Provider: domain.ProviderPrimary, Endpoint: "subnet_screener", Code: 401},
	}
	secondary := &stubClient{
		name:     domain.ProviderSecondary,
		screener: []reconcile.RawRecord{{"id": float64(8)}},
	}
	f := newTestFetcher(primary, secondary, nil, 0)

	records, p, err := f.Screener(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != domain.ProviderSecondary {
		t.Errorf("expected secondary tag, got %s", p)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestFetcherFailoverOnRateLimitAndServerError(t *testing.T) {
	for _, code := range []int{403, 429, 500, 503} {
		primary := &stubClient{
			name: domain.ProviderPrimary,
			err:  &StatusError{Provider: domain.ProviderPrimary, Endpoint: "subnets", Code: code},
		}
		secondary := &stubClient{name: domain.ProviderSecondary, stats: reconcile.RawRecord{"price_usd": 191.0}}
		f := newTestFetcher(primary, secondary, nil, 0)

		_, p, err := f.NetworkStats(context.Background())
		if err != nil {
			t.Errorf("code %d: unexpected error: %v", code, err)
			continue
		}
		if p != domain.ProviderSecondary {
			t.Errorf("code %d: expected failover, got %s", code, p)
		}
	}
}

func TestFetcherNoFailoverOnClientError(t *testing.T) {
	primary := &stubClient{
		name: domain.ProviderPrimary,
		err:  &StatusError{Provider: domain.ProviderPrimary, Endpoint: "metagraph", Code: 404},
	}
	secondary := &stubClient{name: domain.ProviderSecondary}
	f := newTestFetcher(primary, secondary, nil, 0)

	_, _, err := f.Metagraph(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 404 {
		t.Errorf("expected the primary 404 to surface, got %v", err)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be tried on 404, got %d calls", secondary.calls)
	}
}

func TestFetcherNoFailoverOnCanceledContext(t *testing.T) {
	primary := &stubClient{name: domain.ProviderPrimary, err: context.Canceled}
	secondary := &stubClient{name: domain.ProviderSecondary}
	f := newTestFetcher(primary, secondary, nil, 0)

	_, _, err := f.Screener(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be tried after cancellation, got %d calls", secondary.calls)
	}
}

func TestFetcherBothProvidersFail(t *testing.T) {
	primary := &stubClient{
		name: domain.ProviderPrimary,
		err:  &StatusError{Provider: domain.ProviderPrimary, Endpoint: "subnet_screener", Code: 429},
	}
	secondary := &stubClient{
		name: domain.ProviderSecondary,
		err:  &StatusError{Provider: domain.ProviderSecondary, Endpoint: "subnets", Code: 500},
	}
	f := newTestFetcher(primary, secondary, nil, 0)

	_, _, err := f.Screener(context.Background())
	if err == nil {
		t.Fatal("expected error when both providers fail")
	}
}

func TestFetcherNoSecondaryConfigured(t *testing.T) {
	primary := &stubClient{
		name: domain.ProviderPrimary,
		err:  &StatusError{Provider: domain.ProviderPrimary, Endpoint: "subnet_screener", Code: 401},
	}
	f := newTestFetcher(primary, nil, nil, 0)

	_, _, err := f.Screener(context.Background())
	if err == nil {
		t.Fatal("expected the primary error to surface without a secondary")
	}
}

func TestFetcherMetagraphCached(t *testing.T) {
	primary := &stubClient{
		name:      domain.ProviderPrimary,
		metagraph: reconcile.RawRecord{"validators": float64(64)},
	}
	f := newTestFetcher(primary, nil, NewMemoryCache(), 5*time.Minute)
	ctx := context.Background()

	if _, _, err := f.Metagraph(ctx, 1); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	record, p, err := f.Metagraph(ctx, 1)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("expected one upstream call, got %d", primary.calls)
	}
	if p != domain.ProviderPrimary {
		t.Errorf("cached payload lost its provider tag: %s", p)
	}
	if record.Number("validators") != 64 {
		t.Errorf("cached payload wrong: %v", record)
	}

	// Distinct netuids do not share cache entries
	if _, _, err := f.Metagraph(ctx, 2); err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("expected a fresh call for another netuid, got %d", primary.calls)
	}
}
