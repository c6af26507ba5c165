// Package ranking produces relative standings across the full current set
// of score records: global and per-category ranks, leaderboards and ad hoc
// comparisons. Every ordering is a strict total order with ties broken by
// netuid ascending, so identical input sets always rank identically.
package ranking

import (
	"math"
	"sort"
	"time"

	"subnet-nexus/internal/domain"
)

// Assign computes overall, per-category, market-cap and efficiency ranks for
// every record and returns them keyed by netuid. Input records are not
// mutated; persisting the ranks is the caller's concern.
func Assign(records []*domain.ScoreRecord) map[int]domain.RankSet {
	ranks := make(map[int]domain.RankSet, len(records))
	if len(records) == 0 {
		return ranks
	}

	byScore := sortedCopy(records, byCompositeDesc)
	for i, rec := range byScore {
		rank := i + 1
		rs := ranks[rec.Netuid]
		rs.Overall = &rank
		ranks[rec.Netuid] = rs
	}

	byMcap := sortedCopy(records, byMarketCapDesc)
	for i, rec := range byMcap {
		rank := i + 1
		rs := ranks[rec.Netuid]
		rs.ByMarketCap = &rank
		ranks[rec.Netuid] = rs
	}

	byEff := sortedCopy(records, byEfficiencyDesc)
	for i, rec := range byEff {
		rank := i + 1
		rs := ranks[rec.Netuid]
		rs.ByEfficiency = &rank
		ranks[rec.Netuid] = rs
	}

	// Category ranks: position within the composite-ordered records of the
	// same category.
	perCategory := make(map[string]int)
	for _, rec := range byScore {
		perCategory[rec.Category]++
		rank := perCategory[rec.Category]
		rs := ranks[rec.Netuid]
		rs.ByCategory = &rank
		ranks[rec.Netuid] = rs
	}

	return ranks
}

// BuildLeaderboards regenerates the leaderboard bundle from the current
// record set. topN bounds every board except category leaders, which carry
// exactly one record per distinct category.
func BuildLeaderboards(records []*domain.ScoreRecord, topN int) *domain.Leaderboards {
	lb := &domain.Leaderboards{
		CategoryLeaders: make(map[string]*domain.ScoreRecord),
		GeneratedAt:     time.Now().UTC(),
	}
	if topN <= 0 || len(records) == 0 {
		return lb
	}

	lb.TopScore = limit(sortedCopy(records, byCompositeDesc), topN)
	lb.TopMarketCap = limit(sortedCopy(records, byMarketCapDesc), topN)
	lb.BestValue = limit(sortedCopy(records, byValueDesc), topN)
	lb.TopEfficiency = limit(sortedCopy(records, byEfficiencyDesc), topN)

	for _, rec := range sortedCopy(records, byCompositeDesc) {
		if rec.Category == "" {
			continue
		}
		if _, ok := lb.CategoryLeaders[rec.Category]; !ok {
			lb.CategoryLeaders[rec.Category] = rec
		}
	}

	return lb
}

// Compare analyzes an arbitrary record set: extremes by score, premium and
// market cap plus the mean composite rounded to two decimals.
func Compare(records []*domain.ScoreRecord) *domain.Comparison {
	if len(records) == 0 {
		return &domain.Comparison{}
	}

	cmp := &domain.Comparison{Count: len(records)}

	ordered := sortedCopy(records, byCompositeDesc)
	cmp.HighestScore = ordered[0]
	cmp.LowestScore = ordered[len(ordered)-1]

	cmp.LowestPremium = sortedCopy(records, byPremiumAsc)[0]
	cmp.HighestMarketCap = sortedCopy(records, byMarketCapDesc)[0]

	sum := 0.0
	for _, rec := range records {
		sum += float64(rec.Scores.Composite)
	}
	cmp.AverageScore = math.Round(sum/float64(len(records))*100) / 100

	return cmp
}

// BuildOverview aggregates statistics across every current record.
func BuildOverview(records []*domain.ScoreRecord) *domain.Overview {
	ov := &domain.Overview{
		TotalSubnets: len(records),
		GeneratedAt:  time.Now().UTC(),
	}
	if len(records) == 0 {
		return ov
	}

	var sumComposite, sumPerformance float64
	catCount := make(map[string]int)
	catScore := make(map[string]float64)
	for _, rec := range records {
		sumComposite += float64(rec.Scores.Composite)
		sumPerformance += rec.Scores.Performance
		ov.TotalMarketCapUSD += rec.Metrics.MarketCapUSD
		catCount[rec.Category]++
		catScore[rec.Category] += float64(rec.Scores.Composite)
	}
	n := float64(len(records))
	ov.AverageComposite = math.Round(sumComposite/n*100) / 100
	ov.AveragePerformance = math.Round(sumPerformance/n*100) / 100

	for cat, count := range catCount {
		ov.Categories = append(ov.Categories, domain.CategoryStats{
			Category:     cat,
			Count:        count,
			AverageScore: math.Round(catScore[cat]/float64(count)*100) / 100,
		})
	}
	sort.Slice(ov.Categories, func(i, j int) bool {
		if ov.Categories[i].AverageScore != ov.Categories[j].AverageScore {
			return ov.Categories[i].AverageScore > ov.Categories[j].AverageScore
		}
		return ov.Categories[i].Category < ov.Categories[j].Category
	})

	return ov
}

// lessFunc orders two records; every ordering falls through to netuid
// ascending for determinism.
type lessFunc func(a, b *domain.ScoreRecord) bool

func byCompositeDesc(a, b *domain.ScoreRecord) bool {
	if a.Scores.Composite != b.Scores.Composite {
		return a.Scores.Composite > b.Scores.Composite
	}
	return a.Netuid < b.Netuid
}

func byMarketCapDesc(a, b *domain.ScoreRecord) bool {
	if a.Metrics.MarketCapUSD != b.Metrics.MarketCapUSD {
		return a.Metrics.MarketCapUSD > b.Metrics.MarketCapUSD
	}
	return a.Netuid < b.Netuid
}

func byEfficiencyDesc(a, b *domain.ScoreRecord) bool {
	if a.Metrics.EmissionEfficiency != b.Metrics.EmissionEfficiency {
		return a.Metrics.EmissionEfficiency > b.Metrics.EmissionEfficiency
	}
	return a.Netuid < b.Netuid
}

// byValueDesc ranks by composite discounted for premium: score - 0.3 x premium.
func byValueDesc(a, b *domain.ScoreRecord) bool {
	av := float64(a.Scores.Composite) - 0.3*a.Metrics.PremiumPct
	bv := float64(b.Scores.Composite) - 0.3*b.Metrics.PremiumPct
	if av != bv {
		return av > bv
	}
	return a.Netuid < b.Netuid
}

func byPremiumAsc(a, b *domain.ScoreRecord) bool {
	if a.Metrics.PremiumPct != b.Metrics.PremiumPct {
		return a.Metrics.PremiumPct < b.Metrics.PremiumPct
	}
	return a.Netuid < b.Netuid
}

// sortedCopy orders a copy of records, leaving the input untouched.
func sortedCopy(records []*domain.ScoreRecord, less lessFunc) []*domain.ScoreRecord {
	out := make([]*domain.ScoreRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func limit(records []*domain.ScoreRecord, n int) []*domain.ScoreRecord {
	if len(records) > n {
		records = records[:n]
	}
	return records
}
