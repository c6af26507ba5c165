package reconcile

import (
	"errors"
	"math"
	"testing"

	"subnet-nexus/internal/domain"
)

const testRate = 100.0

func TestReconcilePrimaryFieldNames(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{
		"netuid":              float64(64),
		"subnet_name":         "chutes",
		"price":               0.1725,
		"market_cap_tao":      918_000.0,
		"total_volume_tao_1d": 12_000.0,
		"buy_volume_tao_1d":   8_000.0,
		"sell_volume_tao_1d":  5_000.0,
		"alpha_in":            3_000.0,
		"tao_in":              2_000.0,
		"holders_count":       float64(9100),
		"top_holder_pct":      12.5,
		"emission_pct":        14.39,
		"price_1d_pct_change": -2.1,
		"github_repo":         "https://github.com/rayonlabs/chutes",
		"subnet_website":      "https://chutes.ai",
	}

	m, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Netuid != 64 {
		t.Errorf("expected netuid 64, got %d", m.Netuid)
	}
	if m.Name != "chutes" {
		t.Errorf("expected name chutes, got %q", m.Name)
	}
	// Static table wins over tags for netuid 64
	if m.Category != "Inference" {
		t.Errorf("expected category Inference, got %q", m.Category)
	}
	if m.PriceUSD != 0.1725*testRate {
		t.Errorf("expected price %f, got %f", 0.1725*testRate, m.PriceUSD)
	}
	// Market cap converts to millions of USD
	if m.MarketCapUSD != 918_000.0*testRate/1e6 {
		t.Errorf("expected mcap %f, got %f", 918_000.0*testRate/1e6, m.MarketCapUSD)
	}
	if m.Volume24hUSD != 12_000.0*testRate/1e6 {
		t.Errorf("expected volume %f, got %f", 12_000.0*testRate/1e6, m.Volume24hUSD)
	}
	// Net flow = buys - sells
	if m.NetFlowUSD != 3_000.0*testRate/1e6 {
		t.Errorf("expected net flow %f, got %f", 3_000.0*testRate/1e6, m.NetFlowUSD)
	}
	// Liquidity = alpha_in + tao_in
	if m.LiquidityUSD != 5_000.0*testRate/1e6 {
		t.Errorf("expected liquidity %f, got %f", 5_000.0*testRate/1e6, m.LiquidityUSD)
	}
	if m.HolderCount != 9100 {
		t.Errorf("expected 9100 holders, got %d", m.HolderCount)
	}
	if m.Change24hPct != -2.1 {
		t.Errorf("expected -2.1%% change, got %f", m.Change24hPct)
	}
	if !m.HasGitHub || !m.HasWebsite || m.HasDiscord {
		t.Errorf("presence flags wrong: github=%v website=%v discord=%v", m.HasGitHub, m.HasWebsite, m.HasDiscord)
	}
}

func TestReconcileSecondaryFieldNames(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{
		"id":               float64(8),
		"name":             "proprietary-trading",
		"price":            "0.5", // quoted numerics coerce
		"mcap_tao":         "200000",
		"volume_24h":       float64(9_000),
		"holders":          float64(3000),
		"emission":         5.5,
		"price_change_24h": 1.25,
		"github":           "https://github.com/taoshidev",
		"discord":          "https://discord.gg/taoshi",
	}

	m, err := r.Reconcile(raw, domain.ProviderSecondary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Netuid != 8 {
		t.Errorf("expected netuid 8, got %d", m.Netuid)
	}
	if m.Category != "Finance" {
		t.Errorf("expected category Finance, got %q", m.Category)
	}
	if m.PriceUSD != 0.5*testRate {
		t.Errorf("expected price %f, got %f", 0.5*testRate, m.PriceUSD)
	}
	if m.MarketCapUSD != 200_000.0*testRate/1e6 {
		t.Errorf("expected mcap %f, got %f", 200_000.0*testRate/1e6, m.MarketCapUSD)
	}
	if m.EmissionPct != 5.5 {
		t.Errorf("expected emission 5.5, got %f", m.EmissionPct)
	}
	if m.HasDiscord != true || m.HasWebsite != false {
		t.Errorf("presence flags wrong: discord=%v website=%v", m.HasDiscord, m.HasWebsite)
	}
}

func TestReconcileMissingFieldsZeroDefault(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{"netuid": float64(200)}

	m, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Name != "SN200" {
		t.Errorf("expected synthesized name SN200, got %q", m.Name)
	}
	if m.Category != "Unknown" {
		t.Errorf("expected category Unknown, got %q", m.Category)
	}
	if m.PriceUSD != 0 || m.MarketCapUSD != 0 || m.HolderCount != 0 {
		t.Errorf("expected zero defaults, got price=%f mcap=%f holders=%d", m.PriceUSD, m.MarketCapUSD, m.HolderCount)
	}
}

func TestReconcileCategoryFromTags(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{
		"netuid": float64(300),
		"tags":   []any{"Storage", "misc"},
	}

	m, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Category != "Storage" {
		t.Errorf("expected category Storage, got %q", m.Category)
	}
}

func TestReconcileMissingNetuid(t *testing.T) {
	r := NewReconciler()

	for name, raw := range map[string]RawRecord{
		"empty":       {},
		"zero":        {"netuid": float64(0)},
		"negative":    {"id": float64(-3)},
		"non-integer": {"netuid": 1.5},
		"non-numeric": {"netuid": "abc"},
		"nil record":  nil,
	} {
		_, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		var rerr *ReconciliationError
		if !errors.As(err, &rerr) {
			t.Errorf("%s: expected ReconciliationError, got %T", name, err)
		}
	}
}

func TestReconcileIdempotent(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{
		"netuid":         float64(5),
		"subnet_name":    "open-kaito",
		"price":          0.02,
		"market_cap_tao": 50_000.0,
		"emission_pct":   2.5,
	}

	a, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Netuid != b.Netuid || a.PriceUSD != b.PriceUSD || a.MarketCapUSD != b.MarketCapUSD || a.Category != b.Category {
		t.Error("reconciling the same record twice produced different metrics")
	}
}

func TestReconcileSanitizesNonFinite(t *testing.T) {
	r := NewReconciler()
	raw := RawRecord{
		"netuid":         float64(7),
		"price":          math.Inf(1),
		"market_cap_tao": math.NaN(),
	}

	m, err := r.Reconcile(raw, domain.ProviderPrimary, testRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PriceUSD != 0 || m.MarketCapUSD != 0 {
		t.Errorf("expected non-finite inputs coerced to 0, got price=%f mcap=%f", m.PriceUSD, m.MarketCapUSD)
	}
}

func TestEnrichParticipationFromMetagraph(t *testing.T) {
	r := NewReconciler()
	m := &domain.SubnetMetrics{Netuid: 1, MarketCapUSD: 50}

	meta := RawRecord{
		"validators":      float64(64),
		"miners":          []any{"a", "b", "c"},
		"total_stake_tao": 120_000.0,
		"active_uids":     float64(192),
		"max_uids":        float64(256),
	}
	r.EnrichParticipation(m, meta, testRate)

	if m.ValidatorCount != 64 {
		t.Errorf("expected 64 validators, got %d", m.ValidatorCount)
	}
	// A list-shaped field counts its entries
	if m.MinerCount != 3 {
		t.Errorf("expected 3 miners, got %d", m.MinerCount)
	}
	if m.TotalStakeUSD != 120_000.0*testRate/1e6 {
		t.Errorf("expected stake %f, got %f", 120_000.0*testRate/1e6, m.TotalStakeUSD)
	}
	if m.UIDUtilizationPct != 75 {
		t.Errorf("expected 75%% utilization, got %f", m.UIDUtilizationPct)
	}
}

func TestEnrichParticipationEmptyMetaUntouched(t *testing.T) {
	r := NewReconciler()
	m := &domain.SubnetMetrics{Netuid: 1, ValidatorCount: 10}
	r.EnrichParticipation(m, nil, testRate)
	if m.ValidatorCount != 10 {
		t.Errorf("expected record untouched, got %d validators", m.ValidatorCount)
	}
}

func TestFallbackParticipationDeterministic(t *testing.T) {
	r := NewReconciler()

	small := &domain.SubnetMetrics{Netuid: 1, MarketCapUSD: 0}
	r.FallbackParticipation(small)
	// Empty subnet sits at the band floor
	if small.ValidatorCount != 20 || small.MinerCount != 50 {
		t.Errorf("expected floor 20/50, got %d/%d", small.ValidatorCount, small.MinerCount)
	}
	if small.UIDUtilizationPct != 75 {
		t.Errorf("expected 75%% utilization, got %f", small.UIDUtilizationPct)
	}

	big := &domain.SubnetMetrics{Netuid: 2, MarketCapUSD: 1000}
	r.FallbackParticipation(big)
	// From $1B up the scale saturates at the band ceiling
	if big.ValidatorCount != 60 || big.MinerCount != 180 {
		t.Errorf("expected ceiling 60/180, got %d/%d", big.ValidatorCount, big.MinerCount)
	}
	if big.TotalStakeUSD != 300 {
		t.Errorf("expected stake 300, got %f", big.TotalStakeUSD)
	}

	// Monotone in market cap
	mid := &domain.SubnetMetrics{Netuid: 3, MarketCapUSD: 10}
	r.FallbackParticipation(mid)
	if mid.ValidatorCount < small.ValidatorCount || mid.ValidatorCount > big.ValidatorCount {
		t.Errorf("fallback not monotone: %d outside [%d, %d]", mid.ValidatorCount, small.ValidatorCount, big.ValidatorCount)
	}
}

func TestFallbackParticipationSkipsKnownCounts(t *testing.T) {
	r := NewReconciler()
	m := &domain.SubnetMetrics{Netuid: 1, MarketCapUSD: 100, ValidatorCount: 7}
	r.FallbackParticipation(m)
	if m.ValidatorCount != 7 || m.MinerCount != 0 {
		t.Errorf("expected enriched record untouched, got %d/%d", m.ValidatorCount, m.MinerCount)
	}
}

func TestFallbackParticipationDisabled(t *testing.T) {
	r := &Reconciler{UseDeterministicFallback: false}
	m := &domain.SubnetMetrics{Netuid: 1, MarketCapUSD: 100}
	r.FallbackParticipation(m)
	if m.ValidatorCount != 0 || m.MinerCount != 0 || m.UIDUtilizationPct != 0 {
		t.Error("expected zero defaults with fallback disabled")
	}
}
