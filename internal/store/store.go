// Package store durably persists assembled snapshots to SQLite so a
// restart can answer "what was the state a minute ago" without replaying
// the feed. It is grounded on eve-flipper's internal/db package (WAL-mode
// modernc.org/sqlite, schema_version migration table), generalized from
// that package's scan-history ledger to one append-only snapshot table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hlflow/internal/model"
)

// Store wraps a SQLite connection holding the snapshot history.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the database at path and runs its migration.
func Open(path string, log *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	log.Info("store opened", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS snapshots (
				time_ms INTEGER PRIMARY KEY,
				payload TEXT NOT NULL
			);
		`)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
			return err
		}
	}
	return nil
}

// Save appends one snapshot, keyed by its TimeMs.
func (s *Store) Save(ctx context.Context, snap model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (time_ms, payload) VALUES (?, ?)",
		snap.TimeMs, string(payload))
	return err
}

// LoadRecent returns up to limit snapshots at or after sinceMs, oldest
// first, used to seed the in-memory ring buffer on restart.
func (s *Store) LoadRecent(ctx context.Context, sinceMs int64, limit int) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT time_ms, payload FROM snapshots WHERE time_ms >= ? ORDER BY time_ms DESC LIMIT ?",
		sinceMs, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent: %w", err)
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var timeMs int64
		var payload string
		if err := rows.Scan(&timeMs, &payload); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			s.log.Warn("store: skipping malformed row", "error", err)
			continue
		}
		snap.TimeMs = timeMs
		out = append(out, snap)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// Prune deletes rows with time_ms older than nowMs-olderThan. Nothing in
// this module calls it; the persist loop only appends.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration, nowMs int64) error {
	cutoff := nowMs - olderThan.Milliseconds()
	_, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE time_ms < ?", cutoff)
	return err
}
