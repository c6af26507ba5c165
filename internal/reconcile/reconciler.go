// Package reconcile maps raw provider payloads into canonical subnet
// metrics. The two upstream providers disagree on field names, units and
// numeric encodings; every canonical field is resolved through a fallback
// chain (primary provider name, then secondary, then zero default) and all
// native-token amounts are converted to USD here, once, at the current
// exchange rate.
package reconcile

import (
	"fmt"
	"math"

	"subnet-nexus/internal/domain"
)

// ReconciliationError reports a raw record that cannot be reconciled because
// its mandatory identity field is missing or invalid. All other defects
// degrade to zero defaults instead of failing.
type ReconciliationError struct {
	Provider domain.Provider
	Reason   string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s record: %s", e.Provider, e.Reason)
}

// Reconciler converts raw screener records into canonical SubnetMetrics.
type Reconciler struct {
	// UseDeterministicFallback controls how missing network-participation
	// data is filled: a documented deterministic formula of market cap
	// (default), or plain zero defaults when disabled.
	UseDeterministicFallback bool
}

// NewReconciler creates a Reconciler with deterministic fallback enabled.
func NewReconciler() *Reconciler {
	return &Reconciler{UseDeterministicFallback: true}
}

// Reconcile maps one raw screener record into canonical metrics.
// rate is the current native-token to USD exchange rate; conversions happen
// here, not at display time. A record without a usable subnet id is rejected
// with *ReconciliationError.
func (r *Reconciler) Reconcile(raw RawRecord, p domain.Provider, rate float64) (*domain.SubnetMetrics, error) {
	if raw == nil {
		return nil, &ReconciliationError{Provider: p, Reason: "nil record"}
	}

	netuid, ok := rawNetuid(raw)
	if !ok {
		return nil, &ReconciliationError{Provider: p, Reason: "missing subnet id"}
	}

	tags := raw.list("tags")

	name := raw.text("subnet_name", "name")
	if name == "" {
		name = fmt.Sprintf("SN%d", netuid)
	}

	priceNative := raw.number("price")
	mcapNative := raw.number("market_cap_tao", "mcap_tao", "mcap")

	buyNative := raw.number("buy_volume_tao_1d", "buy_volume_24h")
	sellNative := raw.number("sell_volume_tao_1d", "sell_volume_24h")
	liqNative := raw.number("alpha_in", "liquidity_alpha") + raw.number("tao_in", "liquidity_tao")

	githubURL := raw.text("github_repo", "github")
	websiteURL := raw.text("subnet_website", "website")
	discordURL := raw.text("discord")

	m := &domain.SubnetMetrics{
		Netuid:   netuid,
		Name:     name,
		Category: resolveCategory(netuid, tags),

		PriceUSD:     sanitize(priceNative * rate),
		MarketCapUSD: sanitize(mcapNative * rate / 1e6),
		Volume24hUSD: sanitize(raw.number("total_volume_tao_1d", "volume_24h") * rate / 1e6),
		LiquidityUSD: sanitize(liqNative * rate / 1e6),
		NetFlowUSD:   sanitize((buyNative - sellNative) * rate / 1e6),
		NetFlow7dUSD: sanitize(raw.number("net_volume_tao_7d", "volume_7d") * rate / 1e6),

		HolderCount:  raw.integer("holders_count", "holders"),
		TopHolderPct: raw.number("top_holder_pct", "top_holder_percent"),

		EmissionPct: raw.number("emission_pct", "emission"),

		Change1hPct:  raw.number("price_1h_pct_change", "price_change_1h"),
		Change24hPct: raw.number("price_1d_pct_change", "price_change_24h"),
		Change7dPct:  raw.number("price_7d_pct_change", "price_change_7d"),
		Change30dPct: raw.number("price_1m_pct_change", "price_change_30d"),

		HasWebsite: websiteURL != "",
		HasGitHub:  githubURL != "",
		HasDiscord: discordURL != "",

		WebsiteURL: websiteURL,
		GitHubURL:  githubURL,
		DiscordURL: discordURL,
		Tags:       tags,
	}

	return m, nil
}

// EnrichParticipation fills the network-participation fields from a raw
// metagraph record. A nil or empty record leaves the subject untouched so
// the caller can decide between FallbackParticipation and zero defaults.
func (r *Reconciler) EnrichParticipation(m *domain.SubnetMetrics, meta RawRecord, rate float64) {
	if m == nil || len(meta) == 0 {
		return
	}

	m.ValidatorCount = countOrLen(meta, "validators")
	m.MinerCount = countOrLen(meta, "miners")
	m.TotalStakeUSD = sanitize(meta.number("total_stake_tao", "total_stake") * rate / 1e6)

	maxUIDs := meta.number("max_uids")
	if maxUIDs > 0 {
		m.UIDUtilizationPct = sanitize(meta.number("active_uids") / maxUIDs * 100)
	}
}

// FallbackParticipation fills missing participation fields with the
// deterministic estimate: counts scale with log10 of market cap toward the
// placeholder band midpoints, stake is a fixed 30% of market cap, and uid
// utilization sits at 75%. The formula is monotone in market cap so larger
// subnets never estimate lower than smaller ones.
func (r *Reconciler) FallbackParticipation(m *domain.SubnetMetrics) {
	if m == nil || !r.UseDeterministicFallback {
		return
	}
	if m.ValidatorCount > 0 || m.MinerCount > 0 {
		return
	}

	// clamp01(log10(1+mcap)/3): 0 for empty subnets, 1 from $1B mcap up.
	scale := math.Log10(1+math.Max(0, m.MarketCapUSD)) / 3
	if scale > 1 {
		scale = 1
	}

	m.ValidatorCount = int(math.Round(20 + 40*scale))
	m.MinerCount = int(math.Round(50 + 130*scale))
	m.TotalStakeUSD = sanitize(m.MarketCapUSD * 0.3)
	m.UIDUtilizationPct = 75
}

// rawNetuid resolves the subnet id through its own chain. Zero is a valid
// netuid upstream only for the root network, which the screener never
// returns, so non-positive resolutions are treated as missing.
func rawNetuid(raw RawRecord) (int, bool) {
	for _, name := range []string{"netuid", "id"} {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		if f, ok := coerceFloat(v); ok && f > 0 && f == math.Trunc(f) {
			return int(f), true
		}
	}
	return 0, false
}

// countOrLen reads a participant field that providers encode either as a
// list of entries or as a plain count.
func countOrLen(raw RawRecord, name string) int {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0
	}
	switch vv := v.(type) {
	case []any:
		return len(vv)
	case []string:
		return len(vv)
	default:
		if f, ok := coerceFloat(v); ok && f > 0 {
			return int(f)
		}
	}
	return 0
}

// sanitize coerces non-finite conversion results to 0, keeping the
// zero-default invariant even when upstream sends garbage.
func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
