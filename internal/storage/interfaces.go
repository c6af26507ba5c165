package storage

import (
	"context"
	"time"

	"subnet-nexus/internal/domain"
)

// SortField selects the ordering column for score listings.
type SortField string

const (
	SortByComposite  SortField = "composite"
	SortByMarketCap  SortField = "marketCap"
	SortByEfficiency SortField = "efficiency"
)

// SortOrder selects ascending or descending listing order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter narrows and orders a score listing. Zero values mean: all
// categories, full score range, composite descending, a backend default
// limit, offset 0.
type Filter struct {
	Category string
	MinScore int
	MaxScore int
	Search   string // case-insensitive substring on name or category
	SortBy   SortField
	Order    SortOrder
	Limit    int
	Offset   int
}

// ScoreStore provides access to the current per-subnet score records.
// At most one record exists per netuid.
type ScoreStore interface {
	// Upsert writes a record keyed by netuid. A record with Version 0
	// creates; otherwise Version must match the stored record and is
	// incremented on success. Returns ErrConflict on a stale version.
	Upsert(ctx context.Context, rec *domain.ScoreRecord) error

	// GetByNetuid retrieves the current record. Returns ErrNotFound if the
	// subnet has never been scored.
	GetByNetuid(ctx context.Context, netuid int) (*domain.ScoreRecord, error)

	// GetByNetuids retrieves current records for a set of netuids; missing
	// ids are silently skipped. Result ordered by netuid ascending.
	GetByNetuids(ctx context.Context, netuids []int) ([]*domain.ScoreRecord, error)

	// List retrieves records matching the filter plus the unpaginated total.
	List(ctx context.Context, f Filter) ([]*domain.ScoreRecord, int, error)

	// ListAll retrieves a consistent snapshot of every current record,
	// ordered by netuid ascending. Feeds the ranking aggregator.
	ListAll(ctx context.Context) ([]*domain.ScoreRecord, error)

	// UpdateRanks persists aggregator output without touching scores or
	// versions, so a re-rank never races a concurrent rescore upsert.
	UpdateRanks(ctx context.Context, ranks map[int]domain.RankSet) error
}

// HistoryStore provides access to the append-only scoring history.
type HistoryStore interface {
	// Append adds one immutable snapshot. Never updates prior entries.
	Append(ctx context.Context, e *domain.HistoryEntry) error

	// GetByNetuidSince retrieves entries for a subnet recorded at or after
	// since, ordered ascending by RecordedAt.
	GetByNetuidSince(ctx context.Context, netuid int, since time.Time) ([]*domain.HistoryEntry, error)

	// CountByNetuid returns the number of entries recorded for a subnet.
	CountByNetuid(ctx context.Context, netuid int) (int, error)
}
