package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS coherence_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT    NOT NULL,
	coherence     REAL    NOT NULL,
	phase         TEXT    NOT NULL,
	global_score  REAL    NOT NULL,
	stability     REAL    NOT NULL,
	variant_count INTEGER NOT NULL,
	source        TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_coherence_log_timestamp ON coherence_log(timestamp);
`

// SQLiteLogStore implements LogStore on a SQLite database file.
type SQLiteLogStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteLogStore opens (creating if necessary) the coherence log
// database at path and initializes the schema.
func NewSQLiteLogStore(path string) (*SQLiteLogStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLiteLogStore{db: db}, nil
}

// Append persists one coherence log row.
func (s *SQLiteLogStore) Append(ctx context.Context, row CoherenceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coherence_log (timestamp, coherence, phase, global_score, stability, variant_count, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano),
		row.Coherence,
		row.Phase,
		row.GlobalScore,
		row.Stability,
		row.VariantCount,
		row.Source,
	)
	if err != nil {
		return fmt.Errorf("appending coherence log: %w", err)
	}
	return nil
}

// Recent returns the last min(limit, size) rows, newest first.
func (s *SQLiteLogStore) Recent(ctx context.Context, limit int) ([]CoherenceLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, coherence, phase, global_score, stability, variant_count, source
		FROM coherence_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying coherence log: %w", err)
	}
	defer rows.Close()

	var out []CoherenceLog
	for rows.Next() {
		var row CoherenceLog
		var ts string
		if err := rows.Scan(&row.ID, &ts, &row.Coherence, &row.Phase, &row.GlobalScore, &row.Stability, &row.VariantCount, &row.Source); err != nil {
			return nil, fmt.Errorf("scanning coherence log row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		row.Timestamp = parsed
		out = append(out, row)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep rows.
func (s *SQLiteLogStore) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM coherence_log
		WHERE id NOT IN (SELECT id FROM coherence_log ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("pruning coherence log: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
