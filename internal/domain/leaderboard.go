package domain

import "time"

// Leaderboards bundles the standings regenerated from the current record set.
type Leaderboards struct {
	TopScore        []*ScoreRecord
	TopMarketCap    []*ScoreRecord
	BestValue       []*ScoreRecord // high score, low premium
	TopEfficiency   []*ScoreRecord
	CategoryLeaders map[string]*ScoreRecord
	GeneratedAt     time.Time
}

// Comparison summarizes an arbitrary set of subnets against each other.
type Comparison struct {
	Count            int
	HighestScore     *ScoreRecord
	LowestScore      *ScoreRecord
	LowestPremium    *ScoreRecord
	HighestMarketCap *ScoreRecord
	AverageScore     float64 // mean composite, rounded to two decimals
}

// CategoryStats is the per-category slice of the overview.
type CategoryStats struct {
	Category     string
	Count        int
	AverageScore float64
}

// Overview aggregates statistics across every current record.
type Overview struct {
	TotalSubnets       int
	AverageComposite   float64
	AveragePerformance float64
	TotalMarketCapUSD  float64         // millions of USD
	Categories         []CategoryStats // sorted by average score descending
	GeneratedAt        time.Time
}
