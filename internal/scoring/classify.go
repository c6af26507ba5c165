package scoring

import "subnet-nexus/internal/domain"

// ClassifierInput carries the signals the tier rules evaluate.
type ClassifierInput struct {
	Composite      int
	ValidatorCount int
	TopHolderPct   float64
	EmissionYield  float64
	PremiumPct     float64
}

// Classify maps a scored subnet to its risk tier and recommendation.
// Both rule lists evaluate in order with first match winning, and both end
// in an unconditional default, so every input yields exactly one tier from
// each enumeration.
func Classify(in ClassifierInput) (domain.RiskTier, domain.Recommendation) {
	risk := domain.RiskHigh
	switch {
	case in.Composite >= 70 && in.ValidatorCount >= 50 && in.TopHolderPct < 40:
		risk = domain.RiskVeryLow
	case in.Composite >= 55 && in.ValidatorCount >= 30 && in.TopHolderPct < 50:
		risk = domain.RiskLow
	case in.Composite >= 40:
		risk = domain.RiskMedium
	}

	rec := domain.RecMonitor
	switch {
	case in.Composite >= 70 && in.EmissionYield >= 0.8 && in.PremiumPct < 80:
		rec = domain.RecStrongBuy
	case in.Composite >= 55 && in.EmissionYield >= 0.5 && in.PremiumPct < 120:
		rec = domain.RecBuy
	case in.Composite >= 40:
		rec = domain.RecHold
	}

	return risk, rec
}

// Badge buckets the premium over fair value for display.
func Badge(premiumPct float64) domain.ValuationBadge {
	switch {
	case premiumPct < 0:
		return domain.BadgeBelowFV
	case premiumPct < 15:
		return domain.BadgeNearFV
	case premiumPct < 60:
		return domain.BadgeAboveFV
	default:
		return domain.BadgeOverbought
	}
}
