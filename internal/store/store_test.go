package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"hlflow/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	s := &Store{db: db, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := s.migrate(); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestStoreSaveAndLoadRecentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000} {
		snap := model.Snapshot{TimeMs: ts}
		snap.Momentum.TrendAlignment = "bullish"
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save(#%d): %v", i, err)
		}
	}

	got, err := s.LoadRecent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("LoadRecent len = %d, want 3", len(got))
	}
	for i, want := range []int64{1000, 2000, 3000} {
		if got[i].TimeMs != want {
			t.Errorf("LoadRecent[%d].TimeMs = %d, want %d (must be oldest-first)", i, got[i].TimeMs, want)
		}
	}
	if got[0].Momentum.TrendAlignment != "bullish" {
		t.Errorf("LoadRecent[0].Momentum.TrendAlignment = %q, want bullish (round trip through json payload)", got[0].Momentum.TrendAlignment)
	}
}

func TestStoreSaveReplacesSameTimeMs(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, model.Snapshot{TimeMs: 500}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap := model.Snapshot{TimeMs: 500}
	snap.Momentum.TrendAlignment = "reversal_up"
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}

	got, err := s.LoadRecent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("LoadRecent len = %d, want 1 (INSERT OR REPLACE on time_ms)", len(got))
	}
	if got[0].Momentum.TrendAlignment != "reversal_up" {
		t.Errorf("TrendAlignment = %q, want reversal_up from the replacing row", got[0].Momentum.TrendAlignment)
	}
}

func TestStoreLoadRecentRespectsSinceAndLimit(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for _, ts := range []int64{100, 200, 300, 400} {
		if err := s.Save(ctx, model.Snapshot{TimeMs: ts}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := s.LoadRecent(ctx, 200, 2)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadRecent len = %d, want 2", len(got))
	}
	for _, snap := range got {
		if snap.TimeMs < 200 {
			t.Errorf("LoadRecent returned TimeMs=%d, want >= 200", snap.TimeMs)
		}
	}
}

func TestStorePrune(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for _, ts := range []int64{1000, 5000, 9000} {
		if err := s.Save(ctx, model.Snapshot{TimeMs: ts}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := s.Prune(ctx, 3*time.Second, 10000); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	got, err := s.LoadRecent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(got) != 1 || got[0].TimeMs != 9000 {
		t.Fatalf("after Prune(3s, now=10000) got %+v, want only TimeMs=9000", got)
	}
}
