package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/orchestrator"
	"github.com/halcyonic/resonate/internal/store"
	"github.com/halcyonic/resonate/internal/tracker"
	"github.com/halcyonic/resonate/internal/variant"
)

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	o := orchestrator.New(orchestrator.DefaultConfig(), bus.New(), tracker.New(), nil, nil, nil)
	t.Cleanup(o.Close)
	return o
}

func seededStore(t *testing.T, rows int) *store.InMemoryLogStore {
	t.Helper()
	s := store.NewInMemoryLogStore()
	for i := 0; i < rows; i++ {
		err := s.Append(context.Background(), store.CoherenceLog{
			Coherence:   0.75,
			Phase:       "stability",
			GlobalScore: 0.7,
			Source:      "pendulum",
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return s
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestOrchestrator(t)

	if _, err := src.SeedInitialVariants(); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	child := &variant.Variant{
		ID:         "child-1",
		Name:       "variant-g1-child",
		QCTFScore:  0.8,
		Theta:      0.55,
		Weight:     1.0,
		ParentID:   src.Variants()[0].ID,
		Generation: 1,
	}
	if err := src.Register(child); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	snap, err := Export(ctx, src, seededStore(t, 3), path)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(snap.Variants) != 5 || len(snap.Log) != 3 {
		t.Fatalf("snapshot holds %d variants and %d rows, want 5 and 3", len(snap.Variants), len(snap.Log))
	}

	dst := newTestOrchestrator(t)
	dstStore := store.NewInMemoryLogStore()
	result, err := Import(ctx, dst, dstStore, path, ImportMerge)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.VariantsImported != 5 || result.VariantsSkipped != 0 {
		t.Errorf("imported=%d skipped=%d, want 5 and 0", result.VariantsImported, result.VariantsSkipped)
	}
	if result.LogRowsImported != 3 {
		t.Errorf("log rows imported = %d, want 3", result.LogRowsImported)
	}

	got, ok := dst.Variant("child-1")
	if !ok {
		t.Fatal("child variant missing after import")
	}
	if got.ParentID != child.ParentID || got.Generation != 1 || got.QCTFScore != 0.8 {
		t.Errorf("child fields lost on round trip: %+v", got)
	}
}

func TestImport_PreservesVariantTimestamps(t *testing.T) {
	ctx := context.Background()

	created := time.Now().Add(-10 * time.Minute).UTC()
	updated := created.Add(5 * time.Minute)
	snap := Snapshot{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Variants: []variant.Variant{{
			ID:        "aged",
			Name:      "aged",
			QCTFScore: 0.8,
			Theta:     0.5,
			Weight:    1.0,
			CreatedAt: created,
			UpdatedAt: updated,
		}},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("encoding snapshot: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	dst := newTestOrchestrator(t)
	if _, err := Import(ctx, dst, store.NewInMemoryLogStore(), path, ImportMerge); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, ok := dst.Variant("aged")
	if !ok {
		t.Fatal("variant missing after import")
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v after import, want %v (drift %v)", got.CreatedAt, created, got.CreatedAt.Sub(created))
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v after import, want %v", got.UpdatedAt, updated)
	}
}

func TestImport_MergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	src := newTestOrchestrator(t)
	if _, err := src.SeedInitialVariants(); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	if _, err := Export(ctx, src, store.NewInMemoryLogStore(), path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	result, err := Import(ctx, src, store.NewInMemoryLogStore(), path, ImportMerge)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.VariantsImported != 0 || result.VariantsSkipped != 4 {
		t.Errorf("imported=%d skipped=%d, want 0 and 4", result.VariantsImported, result.VariantsSkipped)
	}
	if got := len(src.Variants()); got != 4 {
		t.Errorf("population size = %d after merge import, want 4", got)
	}
}

func TestImport_ReplaceClearsPopulation(t *testing.T) {
	ctx := context.Background()
	src := newTestOrchestrator(t)
	if err := src.Register(&variant.Variant{ID: "only", Name: "only", Weight: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snap.json")
	if _, err := Export(ctx, src, store.NewInMemoryLogStore(), path); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := newTestOrchestrator(t)
	if err := dst.Register(&variant.Variant{ID: "stale", Name: "stale", Weight: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := Import(ctx, dst, store.NewInMemoryLogStore(), path, ImportReplace)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.VariantsImported != 1 {
		t.Errorf("imported = %d, want 1", result.VariantsImported)
	}

	vs := dst.Variants()
	if len(vs) != 1 || vs[0].ID != "only" {
		t.Errorf("population = %v, want only the snapshot variant", vs)
	}
}

func TestImport_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := os.WriteFile(path, []byte(`{"version": 9}`), 0644); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	_, err := Import(context.Background(), newTestOrchestrator(t), store.NewInMemoryLogStore(), path, ImportMerge)
	if err == nil {
		t.Error("Import accepted an unknown snapshot version")
	}
}

func TestLatestSnapshotAndRotation(t *testing.T) {
	dir := t.TempDir()

	if _, ok := LatestSnapshot(dir); ok {
		t.Error("LatestSnapshot found a file in an empty directory")
	}

	names := []string{
		"resonate-snapshot-20260801-120000.json",
		"resonate-snapshot-20260802-120000.json",
		"resonate-snapshot-20260803-120000.json",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(`{"version":1}`), 0644); err != nil {
			t.Fatalf("writing %s: %v", n, err)
		}
	}

	path, ok := LatestSnapshot(dir)
	if !ok || filepath.Base(path) != names[2] {
		t.Errorf("LatestSnapshot = %q, want %s", path, names[2])
	}

	if err := RotateSnapshots(dir, 2); err != nil {
		t.Fatalf("RotateSnapshots failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("rotation left %d files, want 2", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, names[0])); !os.IsNotExist(err) {
		t.Error("rotation kept the oldest snapshot")
	}
}

func TestRotateSnapshots_MissingDirIsNoOp(t *testing.T) {
	if err := RotateSnapshots(filepath.Join(t.TempDir(), "absent"), 2); err != nil {
		t.Errorf("RotateSnapshots on missing dir failed: %v", err)
	}
}
