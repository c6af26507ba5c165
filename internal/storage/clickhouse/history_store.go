package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/observability"
	"subnet-nexus/internal/storage"
)

// HistoryStore implements storage.HistoryStore using ClickHouse.
// The scoring_history table is a MergeTree ordered by (netuid, recorded_at);
// rows are only ever inserted.
type HistoryStore struct {
	conn *Conn
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(conn *Conn) *HistoryStore {
	return &HistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// observeQuery reports a query's duration and outcome. ErrInvalidInput is a
// contract rejection, not a query error.
func observeQuery(op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrInvalidInput) {
		err = nil
	}
	observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), err)
}

// Append adds one immutable snapshot.
func (s *HistoryStore) Append(ctx context.Context, e *domain.HistoryEntry) (err error) {
	defer func(start time.Time) { observeQuery("append", start, err) }(time.Now())

	if e == nil || e.Netuid <= 0 || e.RecordedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO scoring_history (
			netuid, name, recorded_at,
			score_fundamental, score_performance, score_economic, score_development, score_decentralization, score_composite,
			price_usd, market_cap_usd, volume_24h_usd, emission_pct, fair_value_usd, premium_pct,
			emission_yield, emission_efficiency, validator_count, miner_count, holder_count, top_holder_pct,
			rank_overall, rank_category, rank_market_cap, rank_efficiency,
			risk, recommendation
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		int32(e.Netuid), e.Name, e.RecordedAt,
		e.Scores.Fundamental, e.Scores.Performance, e.Scores.Economic,
		e.Scores.Development, e.Scores.Decentralization, int32(e.Scores.Composite),
		e.Metrics.PriceUSD, e.Metrics.MarketCapUSD, e.Metrics.Volume24hUSD,
		e.Metrics.EmissionPct, e.Metrics.FairValueUSD, e.Metrics.PremiumPct,
		e.Metrics.EmissionYield, e.Metrics.EmissionEfficiency,
		int32(e.Metrics.ValidatorCount), int32(e.Metrics.MinerCount),
		int32(e.Metrics.HolderCount), e.Metrics.TopHolderPct,
		rankValue(e.Rank.Overall), rankValue(e.Rank.ByCategory),
		rankValue(e.Rank.ByMarketCap), rankValue(e.Rank.ByEfficiency),
		string(e.Risk), string(e.Recommendation),
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// GetByNetuidSince retrieves entries recorded at or after since, ascending.
func (s *HistoryStore) GetByNetuidSince(ctx context.Context, netuid int, since time.Time) (entries []*domain.HistoryEntry, err error) {
	defer func(start time.Time) { observeQuery("get_since", start, err) }(time.Now())

	query := `
		SELECT
			netuid, name, recorded_at,
			score_fundamental, score_performance, score_economic, score_development, score_decentralization, score_composite,
			price_usd, market_cap_usd, volume_24h_usd, emission_pct, fair_value_usd, premium_pct,
			emission_yield, emission_efficiency, validator_count, miner_count, holder_count, top_holder_pct,
			rank_overall, rank_category, rank_market_cap, rank_efficiency,
			risk, recommendation
		FROM scoring_history
		WHERE netuid = ? AND recorded_at >= ?
		ORDER BY recorded_at ASC
	`

	rows, err := s.conn.Query(ctx, query, int32(netuid), since)
	if err != nil {
		return nil, fmt.Errorf("get history by netuid since: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e            domain.HistoryEntry
			netuidCol    int32
			composite    int32
			validators   int32
			miners       int32
			holders      int32
			rankOverall  *int32
			rankCategory *int32
			rankMcap     *int32
			rankEff      *int32
			risk         string
			rec          string
		)
		err := rows.Scan(
			&netuidCol, &e.Name, &e.RecordedAt,
			&e.Scores.Fundamental, &e.Scores.Performance, &e.Scores.Economic,
			&e.Scores.Development, &e.Scores.Decentralization, &composite,
			&e.Metrics.PriceUSD, &e.Metrics.MarketCapUSD, &e.Metrics.Volume24hUSD,
			&e.Metrics.EmissionPct, &e.Metrics.FairValueUSD, &e.Metrics.PremiumPct,
			&e.Metrics.EmissionYield, &e.Metrics.EmissionEfficiency,
			&validators, &miners, &holders, &e.Metrics.TopHolderPct,
			&rankOverall, &rankCategory, &rankMcap, &rankEff,
			&risk, &rec,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}

		e.Netuid = int(netuidCol)
		e.Scores.Composite = int(composite)
		e.Metrics.ValidatorCount = int(validators)
		e.Metrics.MinerCount = int(miners)
		e.Metrics.HolderCount = int(holders)
		e.Rank = domain.RankSet{
			Overall:      rankPtr(rankOverall),
			ByCategory:   rankPtr(rankCategory),
			ByMarketCap:  rankPtr(rankMcap),
			ByEfficiency: rankPtr(rankEff),
		}
		e.Risk = domain.RiskTier(risk)
		e.Recommendation = domain.Recommendation(rec)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}

// CountByNetuid returns the number of entries recorded for a subnet.
func (s *HistoryStore) CountByNetuid(ctx context.Context, netuid int) (n int, err error) {
	defer func(start time.Time) { observeQuery("count", start, err) }(time.Now())

	var count uint64
	err = s.conn.QueryRow(ctx, `SELECT count() FROM scoring_history WHERE netuid = ?`, int32(netuid)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history by netuid: %w", err)
	}
	return int(count), nil
}

// rankValue converts an optional rank to the Nullable(Int32) insert value.
func rankValue(r *int) *int32 {
	if r == nil {
		return nil
	}
	v := int32(*r)
	return &v
}

// rankPtr converts a scanned Nullable(Int32) back to *int.
func rankPtr(v *int32) *int {
	if v == nil {
		return nil
	}
	r := int(*v)
	return &r
}
