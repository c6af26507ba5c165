package domain

// RiskTier classifies a subnet's risk level.
type RiskTier string

const (
	RiskVeryLow RiskTier = "Very Low"
	RiskLow     RiskTier = "Low"
	RiskMedium  RiskTier = "Medium"
	RiskHigh    RiskTier = "High"
)

// String returns the string representation of RiskTier.
func (r RiskTier) String() string {
	return string(r)
}

// IsValid checks if the risk tier is a valid value.
func (r RiskTier) IsValid() bool {
	switch r {
	case RiskVeryLow, RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Recommendation classifies a subnet's buy/sell signal.
type Recommendation string

const (
	RecStrongBuy Recommendation = "Strong Buy"
	RecBuy       Recommendation = "Buy"
	RecHold      Recommendation = "Hold"
	RecMonitor   Recommendation = "Monitor"
)

// String returns the string representation of Recommendation.
func (r Recommendation) String() string {
	return string(r)
}

// IsValid checks if the recommendation is a valid value.
func (r Recommendation) IsValid() bool {
	switch r {
	case RecStrongBuy, RecBuy, RecHold, RecMonitor:
		return true
	}
	return false
}

// ValuationBadge buckets the premium over fair value for display.
type ValuationBadge string

const (
	BadgeBelowFV    ValuationBadge = "Below FV"
	BadgeNearFV     ValuationBadge = "Near FV"
	BadgeAboveFV    ValuationBadge = "Above FV"
	BadgeOverbought ValuationBadge = "Overbought"
)

// String returns the string representation of ValuationBadge.
func (b ValuationBadge) String() string {
	return string(b)
}

// IsValid checks if the badge is a valid value.
func (b ValuationBadge) IsValid() bool {
	switch b {
	case BadgeBelowFV, BadgeNearFV, BadgeAboveFV, BadgeOverbought:
		return true
	}
	return false
}

// RiskNotes returns qualitative risk annotations for a holder concentration
// level. Bands follow the concentration penalty thresholds used in scoring.
func RiskNotes(topHolderPct float64) []string {
	switch {
	case topHolderPct > 50:
		return []string{"High holder concentration", "Centralization risk", "Market volatility"}
	case topHolderPct > 30:
		return []string{"Moderate concentration", "Market volatility"}
	default:
		return []string{"Market volatility", "Network dependency"}
	}
}
