package main

import (
	"time"

	"subnet-nexus/internal/domain"
)

type listScoresResponse struct {
	Data   []scoreResponse `json:"data"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type scoreResponse struct {
	Netuid   int    `json:"netuid"`
	Name     string `json:"name"`
	Category string `json:"category"`

	Scores  scoresBody  `json:"scores"`
	Metrics metricsBody `json:"metrics"`

	Risk           string   `json:"riskLevel"`
	Recommendation string   `json:"recommendation"`
	Badge          string   `json:"valuationBadge"`
	RiskNotes      []string `json:"riskNotes"`

	Rank rankBody `json:"rank"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type scoresBody struct {
	Fundamental      float64 `json:"fundamental"`
	Performance      float64 `json:"performance"`
	Economic         float64 `json:"economic"`
	Development      float64 `json:"development"`
	Decentralization float64 `json:"decentralization"`
	Composite        int     `json:"composite"`
}

type metricsBody struct {
	PriceUSD           float64 `json:"price"`
	MarketCapUSD       float64 `json:"marketCap"`
	Volume24hUSD       float64 `json:"volume24h"`
	EmissionPct        float64 `json:"emission"`
	FairValueUSD       float64 `json:"fairValue"`
	PremiumPct         float64 `json:"premium"`
	EmissionYield      float64 `json:"emissionYield"`
	EmissionEfficiency float64 `json:"emissionEfficiency"`
	ValidatorCount     int     `json:"validators"`
	MinerCount         int     `json:"miners"`
	HolderCount        int     `json:"holders"`
	TopHolderPct       float64 `json:"topHolderPct"`
}

type rankBody struct {
	Overall      *int `json:"overall"`
	ByCategory   *int `json:"byCategory"`
	ByMarketCap  *int `json:"byMarketCap"`
	ByEfficiency *int `json:"byEfficiency"`
}

type listHistoryResponse struct {
	Netuid int               `json:"netuid"`
	Days   int               `json:"days"`
	Data   []historyResponse `json:"data"`
}

type historyResponse struct {
	Netuid         int         `json:"netuid"`
	Name           string      `json:"name"`
	RecordedAt     time.Time   `json:"recordedAt"`
	Scores         scoresBody  `json:"scores"`
	Metrics        metricsBody `json:"metrics"`
	Rank           rankBody    `json:"rank"`
	Risk           string      `json:"riskLevel"`
	Recommendation string      `json:"recommendation"`
}

type leaderboardsResponse struct {
	TopScore        []scoreResponse          `json:"topScore"`
	TopMarketCap    []scoreResponse          `json:"topMarketCap"`
	BestValue       []scoreResponse          `json:"bestValue"`
	TopEfficiency   []scoreResponse          `json:"topEfficiency"`
	CategoryLeaders map[string]scoreResponse `json:"categoryLeaders"`
	GeneratedAt     time.Time                `json:"generatedAt"`
}

type compareRequest struct {
	Netuids []int `json:"netuids"`
}

type compareResponse struct {
	Count            int             `json:"count"`
	AverageScore     float64         `json:"averageScore"`
	HighestScore     int             `json:"highestScore"`
	LowestScore      int             `json:"lowestScore"`
	LowestPremium    int             `json:"lowestPremium"`
	HighestMarketCap int             `json:"highestMarketCap"`
	Subnets          []scoreResponse `json:"subnets"`
}

type overviewResponse struct {
	TotalSubnets       int                     `json:"totalSubnets"`
	AverageComposite   float64                 `json:"averageComposite"`
	AveragePerformance float64                 `json:"averagePerformance"`
	TotalMarketCapUSD  float64                 `json:"totalMarketCap"`
	Categories         []categoryStatsResponse `json:"categories"`
	GeneratedAt        time.Time               `json:"generatedAt"`
}

type categoryStatsResponse struct {
	Category     string  `json:"category"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

func toScoreResponse(rec *domain.ScoreRecord) scoreResponse {
	return scoreResponse{
		Netuid:   rec.Netuid,
		Name:     rec.Name,
		Category: rec.Category,
		Scores: scoresBody{
			Fundamental:      rec.Scores.Fundamental,
			Performance:      rec.Scores.Performance,
			Economic:         rec.Scores.Economic,
			Development:      rec.Scores.Development,
			Decentralization: rec.Scores.Decentralization,
			Composite:        rec.Scores.Composite,
		},
		Metrics:        toMetricsBody(rec.Metrics),
		Risk:           rec.Risk.String(),
		Recommendation: rec.Recommendation.String(),
		Badge:          string(rec.Badge),
		RiskNotes:      domain.RiskNotes(rec.Metrics.TopHolderPct),
		Rank: rankBody{
			Overall:      rec.Rank.Overall,
			ByCategory:   rec.Rank.ByCategory,
			ByMarketCap:  rec.Rank.ByMarketCap,
			ByEfficiency: rec.Rank.ByEfficiency,
		},
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
		CreatedAt: rec.CreatedAt,
	}
}

func toMetricsBody(m domain.MetricSnapshot) metricsBody {
	return metricsBody{
		PriceUSD:           m.PriceUSD,
		MarketCapUSD:       m.MarketCapUSD,
		Volume24hUSD:       m.Volume24hUSD,
		EmissionPct:        m.EmissionPct,
		FairValueUSD:       m.FairValueUSD,
		PremiumPct:         m.PremiumPct,
		EmissionYield:      m.EmissionYield,
		EmissionEfficiency: m.EmissionEfficiency,
		ValidatorCount:     m.ValidatorCount,
		MinerCount:         m.MinerCount,
		HolderCount:        m.HolderCount,
		TopHolderPct:       m.TopHolderPct,
	}
}

func toHistoryResponse(e *domain.HistoryEntry) historyResponse {
	return historyResponse{
		Netuid:     e.Netuid,
		Name:       e.Name,
		RecordedAt: e.RecordedAt,
		Scores: scoresBody{
			Fundamental:      e.Scores.Fundamental,
			Performance:      e.Scores.Performance,
			Economic:         e.Scores.Economic,
			Development:      e.Scores.Development,
			Decentralization: e.Scores.Decentralization,
			Composite:        e.Scores.Composite,
		},
		Metrics: toMetricsBody(e.Metrics),
		Rank: rankBody{
			Overall:      e.Rank.Overall,
			ByCategory:   e.Rank.ByCategory,
			ByMarketCap:  e.Rank.ByMarketCap,
			ByEfficiency: e.Rank.ByEfficiency,
		},
		Risk:           e.Risk.String(),
		Recommendation: e.Recommendation.String(),
	}
}

func toLeaderboardsResponse(lb *domain.Leaderboards) leaderboardsResponse {
	resp := leaderboardsResponse{
		TopScore:        toScoreResponses(lb.TopScore),
		TopMarketCap:    toScoreResponses(lb.TopMarketCap),
		BestValue:       toScoreResponses(lb.BestValue),
		TopEfficiency:   toScoreResponses(lb.TopEfficiency),
		CategoryLeaders: make(map[string]scoreResponse, len(lb.CategoryLeaders)),
		GeneratedAt:     lb.GeneratedAt,
	}
	for category, rec := range lb.CategoryLeaders {
		resp.CategoryLeaders[category] = toScoreResponse(rec)
	}
	return resp
}

func toScoreResponses(records []*domain.ScoreRecord) []scoreResponse {
	out := make([]scoreResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toScoreResponse(rec))
	}
	return out
}
