package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryLogStore implements LogStore for testing and simulation runs.
type InMemoryLogStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []CoherenceLog
}

// NewInMemoryLogStore creates an empty in-memory store.
func NewInMemoryLogStore() *InMemoryLogStore {
	return &InMemoryLogStore{}
}

// Append persists one row.
func (s *InMemoryLogStore) Append(ctx context.Context, row CoherenceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	row.ID = s.nextID
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	s.rows = append(s.rows, row)
	return nil
}

// Recent returns the last min(limit, size) rows, newest first.
func (s *InMemoryLogStore) Recent(ctx context.Context, limit int) ([]CoherenceLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if limit > len(s.rows) {
		limit = len(s.rows)
	}

	out := make([]CoherenceLog, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.rows[len(s.rows)-1-i]
	}
	return out, nil
}

// Prune deletes all but the newest keep rows.
func (s *InMemoryLogStore) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if keep >= len(s.rows) {
		return nil
	}
	s.rows = append([]CoherenceLog(nil), s.rows[len(s.rows)-keep:]...)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryLogStore) Close() error { return nil }

// Len returns the number of stored rows. Test helper.
func (s *InMemoryLogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
