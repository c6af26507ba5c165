package scoring

import (
	"fmt"
	"math"

	"subnet-nexus/internal/domain"
)

// Result carries the sub-scores, the composite and the derived valuation
// fields for one subnet. Warnings list any intermediate value that came out
// non-finite and was coerced to 0 instead of being persisted.
type Result struct {
	Scores domain.ScoreSet

	FairValueUSD        float64
	PremiumPct          float64
	EmissionYield       float64
	EmissionEfficiency  float64
	DailyEmissionNative float64
	EstimatedAPYPct     float64
	RevenueCoveragePct  float64

	Warnings []string
}

// Calculate derives the full score set for one canonical metrics record.
// Pure and deterministic: identical inputs always produce identical output.
func Calculate(m *domain.SubnetMetrics, c Constants) Result {
	res := Result{}

	// Daily emission allocated to this subnet, native units.
	dailyEmission := c.DailyEmission * (m.EmissionPct / 100)
	res.DailyEmissionNative = res.finite("dailyEmission", dailyEmission)

	// Fair value: estimated daily operating cost over daily emission.
	annualOpEx := operatingCostProxy(m, c)
	if res.DailyEmissionNative > 0 {
		res.FairValueUSD = res.finite("fairValue", (annualOpEx/365)/res.DailyEmissionNative)
	}

	// Premium of market price over the fundamental estimate, percent.
	if res.FairValueUSD > 0 {
		res.PremiumPct = res.finite("premium", (m.PriceUSD-res.FairValueUSD)/res.FairValueUSD*100)
	}

	res.RevenueCoveragePct = revenueCoverage(m.Category)

	// Emission yield: annualized USD emission over market cap.
	if m.MarketCapUSD > 0 {
		res.EmissionYield = res.finite("emissionYield",
			res.DailyEmissionNative*365*c.TokenPriceUSD/(m.MarketCapUSD*1e6))
		res.EmissionEfficiency = res.finite("efficiency", res.DailyEmissionNative/m.MarketCapUSD)
	}

	res.EstimatedAPYPct = estimatedAPY(res.EmissionYield)

	fs := fundamentalScore(res.PremiumPct, res.RevenueCoveragePct)
	ps := performanceScore(m, c)
	es := economicScore(res.EmissionYield, res.EstimatedAPYPct, res.RevenueCoveragePct)
	ds := developmentScore(m)
	cs := decentralizationScore(m)

	res.Scores = domain.ScoreSet{
		Fundamental:      res.finite("fundamentalScore", fs),
		Performance:      res.finite("performanceScore", ps),
		Economic:         res.finite("economicScore", es),
		Development:      res.finite("developmentScore", ds),
		Decentralization: res.finite("decentralizationScore", cs),
	}
	res.Scores.Composite = Composite(res.Scores)

	return res
}

// Composite blends the five sub-scores with the fixed weights and rounds to
// the nearest integer. Recomputing it from a stored ScoreSet must reproduce
// the stored composite exactly.
func Composite(s domain.ScoreSet) int {
	return int(math.Round(
		weightFundamental*s.Fundamental +
			weightPerformance*s.Performance +
			weightEconomic*s.Economic +
			weightDevelopment*s.Development +
			weightDecentralization*s.Decentralization))
}

// operatingCostProxy estimates annual operating cost in USD from category
// and network participation. Deterministic and monotone: any increase in
// validators, miners or uid utilization never lowers the estimate.
// annualOpEx = (base + span x participation) x categoryMultiplier, with
// participation the same weighted blend the performance score uses.
func operatingCostProxy(m *domain.SubnetMetrics, c Constants) float64 {
	participation := participationRatio(m, c)
	return (opExBaseUSD + opExSpanUSD*participation) * categoryMultiplier(m.Category)
}

// participationRatio blends the normalized participation signals into [0,1]:
// 40% validators, 35% miners, 25% uid utilization, each capped at its
// reference maximum.
func participationRatio(m *domain.SubnetMetrics, c Constants) float64 {
	v := ratioCapped(float64(m.ValidatorCount), float64(c.ReferenceValidators))
	mn := ratioCapped(float64(m.MinerCount), float64(c.ReferenceMiners))
	u := ratioCapped(m.UIDUtilizationPct, 100)
	return 0.40*v + 0.35*mn + 0.25*u
}

// estimatedAPY is the deterministic stand-in for staking APY, which neither
// provider exposes: 25% floor rising with emission yield, capped at 60%.
// Monotone in yield over the same 25-60 band the upstream UIs display.
func estimatedAPY(emissionYield float64) float64 {
	return math.Min(maxAPYPct, 25+20*emissionYield)
}

// fundamentalScore: 50 baseline, discounted by a quarter of the premium,
// credited with half the revenue coverage.
func fundamentalScore(premiumPct, revenueCoveragePct float64) float64 {
	return clampScore(50 - premiumPct/4 + revenueCoveragePct/2)
}

// performanceScore: weighted participation blend scaled to [0,100].
func performanceScore(m *domain.SubnetMetrics, c Constants) float64 {
	return clampScore(100 * participationRatio(m, c))
}

// economicScore combines emission yield, the APY estimate and revenue
// coverage.
func economicScore(emissionYield, apyPct, revenueCoveragePct float64) float64 {
	return clampScore(emissionYield*35 + apyPct/maxAPYPct*35 + revenueCoveragePct/100*30)
}

// developmentScore rewards presence signals: GitHub 60, website 25,
// Discord 15.
func developmentScore(m *domain.SubnetMetrics) float64 {
	score := 0.0
	if m.HasGitHub {
		score += 60
	}
	if m.HasWebsite {
		score += 25
	}
	if m.HasDiscord {
		score += 15
	}
	return clampScore(score)
}

// decentralizationScore grows with holder count (50 points at 200 holders,
// capped at 100) and is penalized for top-holder concentration: -50 above
// 50%, -25 above 30%.
func decentralizationScore(m *domain.SubnetMetrics) float64 {
	holderScore := math.Min(100, float64(m.HolderCount)/200*50)

	var penalty float64
	switch {
	case m.TopHolderPct > 50:
		penalty = 50
	case m.TopHolderPct > 30:
		penalty = 25
	}

	return clampScore(holderScore - penalty)
}

// finite fails closed on non-finite intermediates: the value is coerced to 0
// and the field name recorded as a warning, so a corrupt score is never
// persisted.
func (r *Result) finite(field string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("non-finite %s coerced to 0", field))
		return 0
	}
	return v
}

// clampScore bounds a sub-score to [0,100].
func clampScore(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ratioCapped returns v/max capped at 1, and 0 for a non-positive max.
func ratioCapped(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	r := v / max
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
