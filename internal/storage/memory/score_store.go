// Package memory provides in-memory storage implementations, used in tests
// and single-process deployments without external databases.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/storage"
)

// defaultListLimit bounds List results when the filter has no limit.
const defaultListLimit = 50

// ScoreStore is an in-memory implementation of storage.ScoreStore.
type ScoreStore struct {
	mu   sync.RWMutex
	data map[int]*domain.ScoreRecord // keyed by netuid
}

// NewScoreStore creates a new in-memory score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		data: make(map[int]*domain.ScoreRecord),
	}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// Upsert writes a record keyed by netuid with an optimistic version check.
func (s *ScoreStore) Upsert(_ context.Context, rec *domain.ScoreRecord) error {
	if rec == nil || rec.Netuid <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[rec.Netuid]
	if exists && existing.Version != rec.Version {
		return storage.ErrConflict
	}

	stored := copyRecord(rec)
	stored.Version = rec.Version + 1
	stored.UpdatedAt = time.Now().UTC()
	if !exists {
		stored.CreatedAt = stored.UpdatedAt
	} else {
		stored.CreatedAt = existing.CreatedAt
	}
	s.data[rec.Netuid] = stored

	// Reflect the accepted write back so callers observe the new version.
	rec.Version = stored.Version
	rec.UpdatedAt = stored.UpdatedAt
	rec.CreatedAt = stored.CreatedAt
	return nil
}

// GetByNetuid retrieves the current record for a subnet.
func (s *ScoreStore) GetByNetuid(_ context.Context, netuid int) (*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[netuid]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(rec), nil
}

// GetByNetuids retrieves current records for a set of netuids.
func (s *ScoreStore) GetByNetuids(_ context.Context, netuids []int) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoreRecord
	for _, id := range netuids {
		if rec, exists := s.data[id]; exists {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Netuid < result[j].Netuid
	})
	return result, nil
}

// List retrieves records matching the filter plus the unpaginated total.
func (s *ScoreStore) List(_ context.Context, f storage.Filter) ([]*domain.ScoreRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxScore := f.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}

	var matched []*domain.ScoreRecord
	for _, rec := range s.data {
		if rec.Scores.Composite < f.MinScore || rec.Scores.Composite > maxScore {
			continue
		}
		if f.Category != "" && f.Category != "All" && rec.Category != f.Category {
			continue
		}
		if f.Search != "" && !matchesSearch(rec, f.Search) {
			continue
		}
		matched = append(matched, copyRecord(rec))
	}

	sortRecords(matched, f.SortBy, f.Order)
	total := len(matched)

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}

// ListAll retrieves every current record ordered by netuid ascending.
func (s *ScoreStore) ListAll(_ context.Context) ([]*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ScoreRecord, 0, len(s.data))
	for _, rec := range s.data {
		result = append(result, copyRecord(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Netuid < result[j].Netuid
	})
	return result, nil
}

// UpdateRanks persists aggregator output without touching versions.
func (s *ScoreStore) UpdateRanks(_ context.Context, ranks map[int]domain.RankSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for netuid, rs := range ranks {
		rec, exists := s.data[netuid]
		if !exists {
			continue
		}
		rec.Rank = copyRankSet(rs)
	}
	return nil
}

// matchesSearch checks the case-insensitive substring filter.
func matchesSearch(rec *domain.ScoreRecord, search string) bool {
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(rec.Name), q) ||
		strings.Contains(strings.ToLower(rec.Category), q)
}

// sortRecords orders a listing; ties always break by netuid ascending.
func sortRecords(records []*domain.ScoreRecord, by storage.SortField, order storage.SortOrder) {
	asc := order == storage.SortAsc
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		var less, eq bool
		switch by {
		case storage.SortByMarketCap:
			less = a.Metrics.MarketCapUSD < b.Metrics.MarketCapUSD
			eq = a.Metrics.MarketCapUSD == b.Metrics.MarketCapUSD
		case storage.SortByEfficiency:
			less = a.Metrics.EmissionEfficiency < b.Metrics.EmissionEfficiency
			eq = a.Metrics.EmissionEfficiency == b.Metrics.EmissionEfficiency
		default: // composite
			less = a.Scores.Composite < b.Scores.Composite
			eq = a.Scores.Composite == b.Scores.Composite
		}
		if eq {
			return a.Netuid < b.Netuid
		}
		if asc {
			return less
		}
		return !less
	})
}

// copyRecord clones a record including its rank pointers, so stored state
// never aliases caller memory.
func copyRecord(rec *domain.ScoreRecord) *domain.ScoreRecord {
	c := *rec
	c.Rank = copyRankSet(rec.Rank)
	return &c
}

func copyRankSet(rs domain.RankSet) domain.RankSet {
	out := domain.RankSet{}
	if rs.Overall != nil {
		v := *rs.Overall
		out.Overall = &v
	}
	if rs.ByCategory != nil {
		v := *rs.ByCategory
		out.ByCategory = &v
	}
	if rs.ByMarketCap != nil {
		v := *rs.ByMarketCap
		out.ByMarketCap = &v
	}
	if rs.ByEfficiency != nil {
		v := *rs.ByEfficiency
		out.ByEfficiency = &v
	}
	return out
}
