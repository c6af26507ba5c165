package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/observability"
	"subnet-nexus/internal/storage"
)

// defaultListLimit bounds List results when the filter has no limit.
const defaultListLimit = 50

// scoreColumns is the canonical column list shared by every SELECT.
const scoreColumns = `
	netuid, name, category,
	score_fundamental, score_performance, score_economic, score_development, score_decentralization, score_composite,
	price_usd, market_cap_usd, volume_24h_usd, emission_pct, fair_value_usd, premium_pct,
	emission_yield, emission_efficiency, validator_count, miner_count, holder_count, top_holder_pct,
	risk, recommendation, badge,
	rank_overall, rank_category, rank_market_cap, rank_efficiency,
	version, updated_at, created_at`

// selectScores assembles a SELECT over the shared column list. Keeping the
// keyword spacing in one place stops the column list from fusing with FROM.
func selectScores(rest string) string {
	return `SELECT` + scoreColumns + ` FROM subnet_scores ` + rest
}

// ScoreStore implements storage.ScoreStore using PostgreSQL.
type ScoreStore struct {
	pool *Pool
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(pool *Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// observeQuery reports a query's duration and outcome. The sentinel outcomes
// are part of the store contract and do not count as query errors.
func observeQuery(op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrInvalidInput) {
		err = nil
	}
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), err)
}

// Upsert writes a record keyed by netuid. The version predicate on the
// conflict update makes the write optimistic: a concurrent writer that got
// there first leaves this statement matching zero rows, which surfaces as
// ErrConflict.
func (s *ScoreStore) Upsert(ctx context.Context, rec *domain.ScoreRecord) (err error) {
	defer func(start time.Time) { observeQuery("upsert", start, err) }(time.Now())

	if rec == nil || rec.Netuid <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO subnet_scores (
			netuid, name, category,
			score_fundamental, score_performance, score_economic, score_development, score_decentralization, score_composite,
			price_usd, market_cap_usd, volume_24h_usd, emission_pct, fair_value_usd, premium_pct,
			emission_yield, emission_efficiency, validator_count, miner_count, holder_count, top_holder_pct,
			risk, recommendation, badge,
			version, updated_at, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21,
			$22, $23, $24,
			$25 + 1, now(), now()
		)
		ON CONFLICT (netuid) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			score_fundamental = EXCLUDED.score_fundamental,
			score_performance = EXCLUDED.score_performance,
			score_economic = EXCLUDED.score_economic,
			score_development = EXCLUDED.score_development,
			score_decentralization = EXCLUDED.score_decentralization,
			score_composite = EXCLUDED.score_composite,
			price_usd = EXCLUDED.price_usd,
			market_cap_usd = EXCLUDED.market_cap_usd,
			volume_24h_usd = EXCLUDED.volume_24h_usd,
			emission_pct = EXCLUDED.emission_pct,
			fair_value_usd = EXCLUDED.fair_value_usd,
			premium_pct = EXCLUDED.premium_pct,
			emission_yield = EXCLUDED.emission_yield,
			emission_efficiency = EXCLUDED.emission_efficiency,
			validator_count = EXCLUDED.validator_count,
			miner_count = EXCLUDED.miner_count,
			holder_count = EXCLUDED.holder_count,
			top_holder_pct = EXCLUDED.top_holder_pct,
			risk = EXCLUDED.risk,
			recommendation = EXCLUDED.recommendation,
			badge = EXCLUDED.badge,
			version = subnet_scores.version + 1,
			updated_at = now()
		WHERE subnet_scores.version = $25
		RETURNING version, updated_at, created_at
	`

	row := s.pool.QueryRow(ctx, query,
		rec.Netuid, rec.Name, rec.Category,
		rec.Scores.Fundamental, rec.Scores.Performance, rec.Scores.Economic,
		rec.Scores.Development, rec.Scores.Decentralization, rec.Scores.Composite,
		rec.Metrics.PriceUSD, rec.Metrics.MarketCapUSD, rec.Metrics.Volume24hUSD,
		rec.Metrics.EmissionPct, rec.Metrics.FairValueUSD, rec.Metrics.PremiumPct,
		rec.Metrics.EmissionYield, rec.Metrics.EmissionEfficiency,
		rec.Metrics.ValidatorCount, rec.Metrics.MinerCount,
		rec.Metrics.HolderCount, rec.Metrics.TopHolderPct,
		string(rec.Risk), string(rec.Recommendation), string(rec.Badge),
		rec.Version,
	)

	if err := row.Scan(&rec.Version, &rec.UpdatedAt, &rec.CreatedAt); err != nil {
		if isNotFoundError(err) {
			return storage.ErrConflict
		}
		if isDuplicateKeyError(err) {
			// Insert path raced a concurrent creator of the same netuid.
			return storage.ErrConflict
		}
		return fmt.Errorf("upsert score record: %w", err)
	}
	return nil
}

// GetByNetuid retrieves the current record for a subnet.
func (s *ScoreStore) GetByNetuid(ctx context.Context, netuid int) (rec *domain.ScoreRecord, err error) {
	defer func(start time.Time) { observeQuery("get_by_netuid", start, err) }(time.Now())

	query := selectScores(`WHERE netuid = $1`)

	row := s.pool.QueryRow(ctx, query, netuid)
	rec, err = scanScoreRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get score record by netuid: %w", err)
	}
	return rec, nil
}

// GetByNetuids retrieves current records for a set of netuids.
func (s *ScoreStore) GetByNetuids(ctx context.Context, netuids []int) (records []*domain.ScoreRecord, err error) {
	defer func(start time.Time) { observeQuery("get_by_netuids", start, err) }(time.Now())

	if len(netuids) == 0 {
		return nil, nil
	}

	query := selectScores(`WHERE netuid = ANY($1) ORDER BY netuid ASC`)

	rows, err := s.pool.Query(ctx, query, netuids)
	if err != nil {
		return nil, fmt.Errorf("get score records by netuids: %w", err)
	}
	defer rows.Close()

	return scanScoreRecords(rows)
}

// List retrieves records matching the filter plus the unpaginated total.
func (s *ScoreStore) List(ctx context.Context, f storage.Filter) (records []*domain.ScoreRecord, total int, err error) {
	defer func(start time.Time) { observeQuery("list", start, err) }(time.Now())

	maxScore := f.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	where := `WHERE score_composite >= $1 AND score_composite <= $2`
	args := []any{f.MinScore, maxScore}

	if f.Category != "" && f.Category != "All" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR category ILIKE $%d)`, len(args), len(args))
	}

	countQuery := `SELECT count(*) FROM subnet_scores ` + where
	if err = s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count score records: %w", err)
	}

	args = append(args, limit, offset)
	query := selectScores(fmt.Sprintf(`%s ORDER BY %s, netuid ASC LIMIT $%d OFFSET $%d`,
		where, orderClause(f.SortBy, f.Order), len(args)-1, len(args)))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list score records: %w", err)
	}
	defer rows.Close()

	records, err = scanScoreRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAll retrieves every current record ordered by netuid ascending.
func (s *ScoreStore) ListAll(ctx context.Context) (records []*domain.ScoreRecord, err error) {
	defer func(start time.Time) { observeQuery("list_all", start, err) }(time.Now())

	query := selectScores(`ORDER BY netuid ASC`)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all score records: %w", err)
	}
	defer rows.Close()

	return scanScoreRecords(rows)
}

// UpdateRanks persists aggregator output. Rank columns live outside the
// version check on purpose; a re-rank never conflicts with a rescore.
func (s *ScoreStore) UpdateRanks(ctx context.Context, ranks map[int]domain.RankSet) (err error) {
	defer func(start time.Time) { observeQuery("update_ranks", start, err) }(time.Now())

	if len(ranks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		UPDATE subnet_scores
		SET rank_overall = $2, rank_category = $3, rank_market_cap = $4, rank_efficiency = $5
		WHERE netuid = $1
	`
	for netuid, rs := range ranks {
		batch.Queue(query, netuid, rs.Overall, rs.ByCategory, rs.ByMarketCap, rs.ByEfficiency)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ranks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("update ranks: %w", err)
		}
	}
	return nil
}

// orderClause maps the whitelisted sort fields onto columns. Anything
// unrecognized falls back to composite descending.
func orderClause(by storage.SortField, order storage.SortOrder) string {
	column := "score_composite"
	switch by {
	case storage.SortByMarketCap:
		column = "market_cap_usd"
	case storage.SortByEfficiency:
		column = "emission_efficiency"
	}
	dir := "DESC"
	if order == storage.SortAsc {
		dir = "ASC"
	}
	return column + " " + dir
}

// rowScanner abstracts pgx.Row and pgx.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanScoreRecord scans one row in scoreColumns order.
func scanScoreRecord(row rowScanner) (*domain.ScoreRecord, error) {
	var rec domain.ScoreRecord
	var risk, recommendation, badge string

	err := row.Scan(
		&rec.Netuid, &rec.Name, &rec.Category,
		&rec.Scores.Fundamental, &rec.Scores.Performance, &rec.Scores.Economic,
		&rec.Scores.Development, &rec.Scores.Decentralization, &rec.Scores.Composite,
		&rec.Metrics.PriceUSD, &rec.Metrics.MarketCapUSD, &rec.Metrics.Volume24hUSD,
		&rec.Metrics.EmissionPct, &rec.Metrics.FairValueUSD, &rec.Metrics.PremiumPct,
		&rec.Metrics.EmissionYield, &rec.Metrics.EmissionEfficiency,
		&rec.Metrics.ValidatorCount, &rec.Metrics.MinerCount,
		&rec.Metrics.HolderCount, &rec.Metrics.TopHolderPct,
		&risk, &recommendation, &badge,
		&rec.Rank.Overall, &rec.Rank.ByCategory, &rec.Rank.ByMarketCap, &rec.Rank.ByEfficiency,
		&rec.Version, &rec.UpdatedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Risk = domain.RiskTier(risk)
	rec.Recommendation = domain.Recommendation(recommendation)
	rec.Badge = domain.ValuationBadge(badge)
	return &rec, nil
}

// scanScoreRecords scans all rows and returns the collected records.
func scanScoreRecords(rows pgx.Rows) ([]*domain.ScoreRecord, error) {
	var records []*domain.ScoreRecord
	for rows.Next() {
		rec, err := scanScoreRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score records: %w", err)
	}
	return records, nil
}
