// Package scoring computes the five weighted sub-scores, the composite
// valuation score and the risk/recommendation tiers for one canonical
// subnet record. Everything here is a pure, deterministic function of its
// inputs; proxies for data the providers do not expose (operating cost,
// staking APY) are fixed documented formulas, never random draws.
package scoring

// Constants are the network-wide calibration parameters shared by every
// scoring call in a cycle.
type Constants struct {
	// TokenPriceUSD is the native token to USD exchange rate.
	TokenPriceUSD float64

	// DailyEmission is the network-wide daily emission budget in native
	// units. A subnet's allocation is DailyEmission x emissionPct/100.
	DailyEmission float64

	// ReferenceValidators and ReferenceMiners are the participation maxima
	// the performance sub-score normalizes against.
	ReferenceValidators int
	ReferenceMiners     int
}

// DefaultConstants returns the calibration used in production. The
// participation references match the largest observed subnet metagraph.
func DefaultConstants(tokenPriceUSD float64) Constants {
	return Constants{
		TokenPriceUSD:       tokenPriceUSD,
		DailyEmission:       3600,
		ReferenceValidators: 72,
		ReferenceMiners:     256,
	}
}

// Composite sub-score weights. They sum to exactly 1.00 and are calibrated
// together with the classifier thresholds; never adjust one side alone.
const (
	weightFundamental      = 0.20
	weightPerformance      = 0.25
	weightEconomic         = 0.30
	weightDevelopment      = 0.20
	weightDecentralization = 0.05
)

// Operating-cost proxy parameters: annual OpEx ranges from the base for an
// idle subnet up to base+span at full participation, scaled per category.
const (
	opExBaseUSD = 500_000
	opExSpanUSD = 2_000_000
)

// maxAPYPct bounds the deterministic staking-APY estimate.
const maxAPYPct = 60.0

// opExMultipliers scales the operating-cost proxy by workload category.
// Unlisted categories use 1.0.
var opExMultipliers = map[string]float64{
	"Training":       2.5,
	"Compute":        2.2,
	"Science":        2.0,
	"Inference":      1.8,
	"Research":       1.6,
	"Infrastructure": 1.5,
	"Finance":        1.4,
	"Security":       1.3,
	"AI Services":    1.2,
	"Creative":       1.0,
	"Analytics":      0.9,
	"Data":           0.8,
}

// categoryMultiplier returns the OpEx multiplier for a category.
func categoryMultiplier(category string) float64 {
	if m, ok := opExMultipliers[category]; ok {
		return m
	}
	return 1.0
}

// revenueCoverage estimates revenue-to-cost percent for a category.
// No revenue model is assumed yet, so every category maps to 0; this is the
// calibration hook for when per-subnet revenue data becomes available.
func revenueCoverage(category string) float64 {
	_ = category
	return 0
}
