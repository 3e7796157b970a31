// Package export provides snapshot export and import for the variant
// population and the coherence log.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/halcyonic/resonate/internal/orchestrator"
	"github.com/halcyonic/resonate/internal/store"
	"github.com/halcyonic/resonate/internal/variant"
)

// Snapshot is the JSON structure for a full export file.
type Snapshot struct {
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	Variants  []variant.Variant    `json:"variants"`
	Log       []store.CoherenceLog `json:"log"`
}

// logExportLimit caps how many coherence log rows a snapshot carries.
const logExportLimit = 10000

// DefaultSnapshotDir returns the default snapshot directory
// (~/.resonate/snapshots/).
func DefaultSnapshotDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(homeDir, ".resonate", "snapshots"), nil
}

// Export writes the current variant population and recent coherence log to
// a JSON snapshot file.
func Export(ctx context.Context, orch *orchestrator.Orchestrator, logStore store.LogStore, outputPath string) (*Snapshot, error) {
	rows, err := logStore.Recent(ctx, logExportLimit)
	if err != nil {
		return nil, fmt.Errorf("reading coherence log: %w", err)
	}

	snap := &Snapshot{
		Version:   1,
		CreatedAt: time.Now(),
		Variants:  orch.Variants(),
		Log:       rows,
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating snapshot directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	return snap, nil
}

// ImportMode controls how Import handles variants that already exist.
type ImportMode string

const (
	// ImportMerge skips variants whose id is already registered (default).
	ImportMerge ImportMode = "merge"
	// ImportReplace removes all registered variants before importing.
	ImportReplace ImportMode = "replace"
)

// ImportResult contains statistics about an import.
type ImportResult struct {
	VariantsImported int `json:"variants_imported"`
	VariantsSkipped  int `json:"variants_skipped"`
	LogRowsImported  int `json:"log_rows_imported"`
}

// ReadSnapshot loads and validates a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != 1 {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Version)
	}
	return &snap, nil
}

// Import restores a snapshot's variants into the orchestrator and its log
// rows into logStore. Variants keep their recorded timestamps so resonance
// time decay is unchanged by the round trip. Log rows are always appended;
// only variant handling depends on the mode.
func Import(ctx context.Context, orch *orchestrator.Orchestrator, logStore store.LogStore, inputPath string, mode ImportMode) (*ImportResult, error) {
	snap, err := ReadSnapshot(inputPath)
	if err != nil {
		return nil, err
	}

	if mode == ImportReplace {
		for _, v := range orch.Variants() {
			orch.Remove(v.ID)
		}
	}

	result := &ImportResult{}
	for i := range snap.Variants {
		v := snap.Variants[i]
		err := orch.Restore(&v)
		switch {
		case err == nil:
			result.VariantsImported++
		case errors.Is(err, orchestrator.ErrDuplicateVariant) && mode == ImportMerge:
			result.VariantsSkipped++
		default:
			return nil, fmt.Errorf("restoring variant %s: %w", v.ID, err)
		}
	}

	// Oldest first so store ids preserve chronology.
	for i := len(snap.Log) - 1; i >= 0; i-- {
		row := snap.Log[i]
		row.ID = 0
		if err := logStore.Append(ctx, row); err != nil {
			return nil, fmt.Errorf("restoring log row: %w", err)
		}
		result.LogRowsImported++
	}

	return result, nil
}

// GenerateSnapshotPath creates a timestamped snapshot filename in dir.
func GenerateSnapshotPath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("resonate-snapshot-%s.json", ts))
}

// LatestSnapshot returns the newest snapshot file in dir, or false when
// none exists.
func LatestSnapshot(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	latest := ""
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", false
	}
	return filepath.Join(dir, latest), true
}

// RotateSnapshots keeps only the most recent keepN snapshots in dir,
// deleting older ones.
func RotateSnapshots(dir string, keepN int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading snapshot directory: %w", err)
	}

	var snapshots []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			snapshots = append(snapshots, e)
		}
	}

	// Timestamped names sort chronologically; newest first.
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name() > snapshots[j].Name()
	})

	if len(snapshots) > keepN {
		for _, s := range snapshots[keepN:] {
			if err := os.Remove(filepath.Join(dir, s.Name())); err != nil {
				return fmt.Errorf("removing old snapshot %s: %w", s.Name(), err)
			}
		}
	}
	return nil
}
