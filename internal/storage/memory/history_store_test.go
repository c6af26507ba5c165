package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/storage"
)

func testEntry(netuid int, recordedAt time.Time, composite int) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		Netuid:     netuid,
		Name:       "sub",
		RecordedAt: recordedAt,
		Scores:     domain.ScoreSet{Composite: composite},
	}
}

func TestHistoryStoreAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// N rescorings leave exactly N entries
	const n = 5
	for i := 0; i < n; i++ {
		e := testEntry(1, base.Add(time.Duration(i)*time.Hour), 50+i)
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	count, err := store.CountByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != n {
		t.Errorf("expected %d entries, got %d", n, count)
	}

	// Earlier entries are unchanged by later appends
	entries, err := store.GetByNetuidSince(ctx, 1, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries[0].Scores.Composite != 50 || entries[n-1].Scores.Composite != 54 {
		t.Errorf("entries mutated: first=%d last=%d", entries[0].Scores.Composite, entries[n-1].Scores.Composite)
	}
}

func TestHistoryStoreWindowQuery(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		e := testEntry(64, base.AddDate(0, 0, i), i)
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// Since day 7 → days 7, 8, 9; boundary is inclusive
	entries, err := store.GetByNetuidSince(ctx, 64, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].RecordedAt.Before(entries[i-1].RecordedAt) {
			t.Error("entries not in ascending order")
		}
	}
}

func TestHistoryStoreOutOfOrderAppendKeepsAscending(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, offset := range []int{2, 0, 1} {
		e := testEntry(1, base.Add(time.Duration(offset)*time.Minute), offset)
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := store.GetByNetuidSince(ctx, 1, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Scores.Composite != 0 || entries[2].Scores.Composite != 2 {
		t.Errorf("out-of-order append broke ordering: %d, %d, %d",
			entries[0].Scores.Composite, entries[1].Scores.Composite, entries[2].Scores.Composite)
	}
}

func TestHistoryStoreInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()

	if err := store.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil entry: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Append(ctx, testEntry(0, time.Now(), 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("zero netuid: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Append(ctx, testEntry(1, time.Time{}, 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("zero timestamp: expected ErrInvalidInput, got %v", err)
	}
}

func TestHistoryStoreUnknownSubnetEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore()

	entries, err := store.GetByNetuidSince(ctx, 42, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}

	count, err := store.CountByNetuid(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}
