package memory

import (
	"context"
	"errors"
	"testing"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/storage"
)

func testRecord(netuid int, name, category string, composite int) *domain.ScoreRecord {
	return &domain.ScoreRecord{
		Netuid:   netuid,
		Name:     name,
		Category: category,
		Scores:   domain.ScoreSet{Composite: composite},
	}
}

func TestScoreStoreUpsertCreate(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	rec := testRecord(1, "text-prompting", "Inference", 70)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Version != 1 {
		t.Errorf("expected version 1 after create, got %d", rec.Version)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "text-prompting" || got.Scores.Composite != 70 {
		t.Errorf("stored record wrong: %+v", got)
	}
}

func TestScoreStoreUpsertVersionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	rec := testRecord(1, "a", "Data", 50)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Second write with the version the store reflected back succeeds
	rec.Scores.Composite = 55
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Version != 2 {
		t.Errorf("expected version 2, got %d", rec.Version)
	}

	created := rec.CreatedAt
	rec.Scores.Composite = 60
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Error("CreatedAt changed on update")
	}
}

func TestScoreStoreUpsertStaleVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	rec := testRecord(1, "a", "Data", 50)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A writer holding the old version loses
	stale := testRecord(1, "a", "Data", 99)
	stale.Version = 0
	if err := store.Upsert(ctx, stale); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// The stored record is untouched by the rejected write
	got, err := store.GetByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Scores.Composite != 50 {
		t.Errorf("rejected write leaked: composite %d", got.Scores.Composite)
	}
}

func TestScoreStoreUpsertInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	if err := store.Upsert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil record: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Upsert(ctx, testRecord(0, "x", "Data", 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("zero netuid: expected ErrInvalidInput, got %v", err)
	}
}

func TestScoreStoreGetByNetuidNotFound(t *testing.T) {
	store := NewScoreStore()
	if _, err := store.GetByNetuid(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScoreStoreGetByNetuidsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()
	for _, id := range []int{8, 1, 64} {
		if err := store.Upsert(ctx, testRecord(id, "s", "Data", id)); err != nil {
			t.Fatalf("seed %d: %v", id, err)
		}
	}

	got, err := store.GetByNetuids(ctx, []int{64, 7, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Netuid != 1 || got[1].Netuid != 64 {
		t.Errorf("expected [1 64], got %+v", got)
	}
}

func TestScoreStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	seed := []*domain.ScoreRecord{
		testRecord(1, "text-prompting", "Inference", 85),
		testRecord(5, "open-kaito", "Data", 45),
		testRecord(8, "proprietary-trading", "Finance", 62),
		testRecord(64, "chutes", "Inference", 72),
	}
	for _, rec := range seed {
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	// Default ordering: composite descending
	got, total, err := store.List(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 || got[0].Netuid != 1 || got[3].Netuid != 5 {
		t.Errorf("default listing wrong: total=%d order=%v", total, netuids(got))
	}

	// Category filter
	got, total, err = store.List(ctx, storage.Filter{Category: "Inference"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || got[0].Netuid != 1 || got[1].Netuid != 64 {
		t.Errorf("category filter wrong: %v", netuids(got))
	}

	// "All" passes everything through
	_, total, err = store.List(ctx, storage.Filter{Category: "All"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 {
		t.Errorf("expected All to match 4, got %d", total)
	}

	// Score band
	_, total, err = store.List(ctx, storage.Filter{MinScore: 60, MaxScore: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 in band, got %d", total)
	}

	// Case-insensitive substring search on name or category
	got, total, err = store.List(ctx, storage.Filter{Search: "CHUT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || got[0].Netuid != 64 {
		t.Errorf("search wrong: %v", netuids(got))
	}

	// Pagination returns the unpaginated total
	got, total, err = store.List(ctx, storage.Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 || len(got) != 2 || got[0].Netuid != 8 {
		t.Errorf("pagination wrong: total=%d page=%v", total, netuids(got))
	}

	// Offset past the end yields an empty page
	got, _, err = store.List(ctx, storage.Filter{Offset: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty page, got %v", netuids(got))
	}

	// A negative offset is treated as zero, not a slice bound
	got, total, err = store.List(ctx, storage.Filter{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 || len(got) != 2 || got[0].Netuid != 1 {
		t.Errorf("negative offset wrong: total=%d page=%v", total, netuids(got))
	}
}

func TestScoreStoreListSortOrders(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	a := testRecord(1, "a", "Data", 50)
	a.Metrics.MarketCapUSD = 10
	b := testRecord(2, "b", "Data", 70)
	b.Metrics.MarketCapUSD = 100
	for _, rec := range []*domain.ScoreRecord{a, b} {
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, _, err := store.List(ctx, storage.Filter{SortBy: storage.SortByMarketCap, Order: storage.SortAsc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Netuid != 1 {
		t.Errorf("ascending market cap wrong: %v", netuids(got))
	}

	got, _, err = store.List(ctx, storage.Filter{SortBy: storage.SortByMarketCap})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Netuid != 2 {
		t.Errorf("descending market cap wrong: %v", netuids(got))
	}
}

func TestScoreStoreUpdateRanks(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	rec := testRecord(1, "a", "Data", 50)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	one, three := 1, 3
	err := store.UpdateRanks(ctx, map[int]domain.RankSet{
		1:   {Overall: &one, ByMarketCap: &three},
		999: {Overall: &one}, // unknown netuid is skipped
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rank.Overall == nil || *got.Rank.Overall != 1 {
		t.Errorf("overall rank wrong: %+v", got.Rank)
	}
	if got.Rank.ByMarketCap == nil || *got.Rank.ByMarketCap != 3 {
		t.Errorf("market cap rank wrong: %+v", got.Rank)
	}
	// Rank updates bypass the version counter
	if got.Version != 1 {
		t.Errorf("expected version 1 after rank update, got %d", got.Version)
	}
}

func TestScoreStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewScoreStore()

	rec := testRecord(1, "a", "Data", 50)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.GetByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Name = "mutated"

	again, err := store.GetByNetuid(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Name != "a" {
		t.Error("stored record aliases caller memory")
	}
}

func netuids(records []*domain.ScoreRecord) []int {
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Netuid)
	}
	return ids
}
