// Package store persists the per-cycle coherence log. The log is an
// append-only record of cycle snapshots; system state itself is always
// regenerable from measurement history plus the variant registry, so only
// the log rows are durable.
package store

import (
	"context"
	"time"
)

// CoherenceLog is one persisted cycle snapshot.
type CoherenceLog struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Coherence    float64   `json:"coherence"`
	Phase        string    `json:"phase"`
	GlobalScore  float64   `json:"global_score"`
	Stability    float64   `json:"stability"`
	VariantCount int       `json:"variant_count"`

	// Source attributes the row to its producer (e.g. "pendulum",
	// "simulation").
	Source string `json:"source,omitempty"`
}

// LogStore stores and queries coherence log rows.
type LogStore interface {
	// Append persists one row. The row's ID is assigned by the store.
	Append(ctx context.Context, row CoherenceLog) error

	// Recent returns the last min(limit, size) rows, newest first.
	Recent(ctx context.Context, limit int) ([]CoherenceLog, error)

	// Prune deletes all but the newest keep rows.
	Prune(ctx context.Context, keep int) error

	Close() error
}
