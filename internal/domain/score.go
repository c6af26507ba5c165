package domain

import "time"

// ScoreSet holds the five weighted sub-scores and the composite.
// Every value is bounded [0,100]; Composite is derived from the sub-scores
// and never set independently of them.
type ScoreSet struct {
	Fundamental      float64
	Performance      float64
	Economic         float64
	Development      float64
	Decentralization float64
	Composite        int
}

// MetricSnapshot carries the valuation metrics persisted alongside scores.
// Monetary fields follow the SubnetMetrics conventions (USD, market cap in
// millions).
type MetricSnapshot struct {
	PriceUSD           float64
	MarketCapUSD       float64
	Volume24hUSD       float64
	EmissionPct        float64
	FairValueUSD       float64
	PremiumPct         float64 // (price - fair value) / fair value x 100
	EmissionYield      float64 // annualized emission USD / market cap USD
	EmissionEfficiency float64 // daily emission native units / market cap millions
	ValidatorCount     int
	MinerCount         int
	HolderCount        int
	TopHolderPct       float64
}

// RankSet holds standings assigned by the ranking aggregator.
// Nil means the record has not been ranked since its last rescoring.
type RankSet struct {
	Overall      *int
	ByCategory   *int
	ByMarketCap  *int
	ByEfficiency *int
}

// ScoreRecord is the current scoring state for one subnet.
// Exactly one record exists per netuid; it is upserted in place on every
// rescoring. Version increments on each successful write and backs the
// optimistic concurrency check in the score store.
type ScoreRecord struct {
	Netuid   int // unique key
	Name     string
	Category string

	Scores  ScoreSet
	Metrics MetricSnapshot

	Risk           RiskTier
	Recommendation Recommendation
	Badge          ValuationBadge

	Rank RankSet

	Version   int64
	UpdatedAt time.Time
	CreatedAt time.Time
}

// HistoryEntry is one immutable snapshot of a subnet's scoring state,
// appended once per rescoring. Entries are never mutated or deleted here;
// retention policy belongs to the operator.
type HistoryEntry struct {
	Netuid     int
	Name       string
	RecordedAt time.Time

	Scores  ScoreSet
	Metrics MetricSnapshot
	Rank    RankSet

	Risk           RiskTier
	Recommendation Recommendation
}
