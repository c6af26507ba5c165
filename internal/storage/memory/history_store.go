package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
// Entries are append-only; nothing here mutates or deletes prior snapshots.
type HistoryStore struct {
	mu   sync.RWMutex
	data map[int][]*domain.HistoryEntry // keyed by netuid, ordered by RecordedAt ASC
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[int][]*domain.HistoryEntry),
	}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Append adds one immutable snapshot.
func (s *HistoryStore) Append(_ context.Context, e *domain.HistoryEntry) error {
	if e == nil || e.Netuid <= 0 || e.RecordedAt.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := copyEntry(e)
	entries := s.data[e.Netuid]

	// Appends arrive in timestamp order per subnet because rescoring is
	// serialized per netuid; keep the invariant anyway on clock skew.
	if n := len(entries); n > 0 && entry.RecordedAt.Before(entries[n-1].RecordedAt) {
		entries = append(entries, entry)
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].RecordedAt.Before(entries[j].RecordedAt)
		})
		s.data[e.Netuid] = entries
		return nil
	}

	s.data[e.Netuid] = append(entries, entry)
	return nil
}

// GetByNetuidSince retrieves entries recorded at or after since, ascending.
func (s *HistoryStore) GetByNetuidSince(_ context.Context, netuid int, since time.Time) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoryEntry
	for _, e := range s.data[netuid] {
		if !e.RecordedAt.Before(since) {
			result = append(result, copyEntry(e))
		}
	}
	return result, nil
}

// CountByNetuid returns the number of entries recorded for a subnet.
func (s *HistoryStore) CountByNetuid(_ context.Context, netuid int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[netuid]), nil
}

// copyEntry clones an entry including rank pointers.
func copyEntry(e *domain.HistoryEntry) *domain.HistoryEntry {
	c := *e
	c.Rank = copyRankSet(e.Rank)
	return &c
}
