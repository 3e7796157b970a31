package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/config"
	"github.com/halcyonic/resonate/internal/export"
	"github.com/halcyonic/resonate/internal/logging"
	"github.com/halcyonic/resonate/internal/metrics"
	"github.com/halcyonic/resonate/internal/orchestrator"
	"github.com/halcyonic/resonate/internal/rng"
	"github.com/halcyonic/resonate/internal/store"
	"github.com/halcyonic/resonate/internal/tracker"
	"github.com/halcyonic/resonate/internal/variant"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the coherence loop",
		Long: `run starts the reference pendulum oscillator and drives the full
per-cycle pipeline: measurement tracking, resonance re-weighting, variant
spawning, and score aggregation. Cycle snapshots are appended to the
coherence log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			cycles, _ := cmd.Flags().GetInt("cycles")
			interval, _ := cmd.Flags().GetDuration("interval")
			seed, _ := cmd.Flags().GetInt64("rand-seed")
			noSeedVariants, _ := cmd.Flags().GetBool("no-seed-variants")
			noRestore, _ := cmd.Flags().GetBool("no-restore")
			noSnapshot, _ := cmd.Flags().GetBool("no-snapshot")
			perturbAt, _ := cmd.Flags().GetInt("perturb-at")
			perturbTarget, _ := cmd.Flags().GetFloat64("perturb-target")
			perturbCycles, _ := cmd.Flags().GetInt("perturb-cycles")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return runLoop(cmd.Context(), cfg, runOptions{
				jsonOut:       jsonOut,
				cycles:        cycles,
				interval:      interval,
				seed:          seed,
				seedVariants:  !noSeedVariants,
				restore:       !noRestore,
				snapshot:      !noSnapshot,
				perturbAt:     perturbAt,
				perturbTarget: perturbTarget,
				perturbCycles: perturbCycles,
			})
		},
	}

	cmd.Flags().Int("cycles", 0, "Number of cycles to run (0 = until interrupted)")
	cmd.Flags().Duration("interval", time.Second, "Wall-clock interval between cycles")
	cmd.Flags().Int64("rand-seed", 0, "Random seed (0 = time-seeded)")
	cmd.Flags().Bool("no-seed-variants", false, "Skip seeding the four archetype variants")
	cmd.Flags().Bool("no-restore", false, "Skip restoring the variant population from the latest snapshot")
	cmd.Flags().Bool("no-snapshot", false, "Skip writing a population snapshot on exit")
	cmd.Flags().Int("perturb-at", 0, "Cycle index at which to inject a perturbation (0 = never)")
	cmd.Flags().Float64("perturb-target", 0.9, "Perturbation coherence target")
	cmd.Flags().Int("perturb-cycles", 10, "Perturbation duration in cycles")

	return cmd
}

// snapshotKeep caps rotated population snapshots.
const snapshotKeep = 5

type runOptions struct {
	jsonOut       bool
	cycles        int
	interval      time.Duration
	seed          int64
	seedVariants  bool
	restore       bool
	snapshot      bool
	perturbAt     int
	perturbTarget float64
	perturbCycles int
}

func runLoop(parent context.Context, cfg *config.Config, opts runOptions) error {
	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	trace := logging.NewTraceLogger(cfg.Logging.Dir, cfg.Logging.Level)
	defer trace.Close()

	random := rng.Default()
	if opts.seed != 0 {
		random = rng.New(opts.seed)
	}

	b := bus.New()
	tr := tracker.New()
	spawner := variant.NewSpawner(cfg.Spawn, random, nil)

	ocfg := orchestrator.DefaultConfig()
	ocfg.GEF = cfg.Resonance.GEF
	ocfg.DecayTime = cfg.Resonance.DecayTime
	ocfg.Spawn = cfg.Spawn

	orch := orchestrator.New(ocfg, b, tr, spawner, logger, trace)
	defer orch.Close()

	logStore, err := store.NewSQLiteLogStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening coherence log: %w", err)
	}
	defer logStore.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persist every completed cycle; prune on a budget.
	b.Subscribe(bus.EventCycleCompleted, func(ev bus.Event) {
		cc, ok := ev.Payload.(orchestrator.CycleCompleted)
		if !ok {
			return
		}
		row := store.CoherenceLog{
			Timestamp:    cc.Timestamp,
			Coherence:    cc.Metrics.Coherence,
			Phase:        string(cc.Metrics.Phase),
			GlobalScore:  cc.Metrics.GlobalScore,
			Stability:    cc.Metrics.StabilityFactor,
			VariantCount: cc.Metrics.ActiveVariantCount,
			Source:       "pendulum",
		}
		if err := logStore.Append(ctx, row); err != nil {
			logger.Warn("coherence log append failed", "error", err)
		}
	})

	b.Subscribe(bus.EventPhaseChange, func(ev bus.Event) {
		logger.Debug("phase change", "phase", ev.Payload)
	})
	b.Subscribe(bus.EventPerturbed, func(ev bus.Event) {
		logger.Info("perturbation started", "perturbation", ev.Payload)
	})
	b.Subscribe(bus.EventPerturbationEnded, func(ev bus.Event) {
		logger.Info("perturbation ended")
	})

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		m = metrics.New()
		b.Subscribe(bus.EventCycleCompleted, func(ev bus.Event) {
			if cc, ok := ev.Payload.(orchestrator.CycleCompleted); ok {
				m.ObserveCycle(cc.Metrics)
			}
		})
		b.Subscribe(bus.EventVariantRegistered, func(ev bus.Event) {
			if v, ok := ev.Payload.(variant.Variant); ok && v.Generation > 0 {
				m.ObserveSpawn()
			}
		})

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
	}

	snapshotDir := filepath.Join(cfg.Logging.Dir, "snapshots")
	if opts.restore {
		if path, ok := export.LatestSnapshot(snapshotDir); ok {
			// Log rows are already durable in SQLite; only the variant
			// population is restored from the snapshot.
			res, err := export.Import(ctx, orch, store.NewInMemoryLogStore(), path, export.ImportMerge)
			if err != nil {
				return fmt.Errorf("restoring snapshot: %w", err)
			}
			logger.Info("restored variant population",
				"snapshot", path,
				"imported", res.VariantsImported,
				"skipped", res.VariantsSkipped)
		}
	}

	if opts.seedVariants {
		created, err := orch.SeedInitialVariants()
		if err != nil {
			return fmt.Errorf("seeding archetypes: %w", err)
		}
		logger.Info("seeded archetype variants", "created", created)
	}

	saveSnapshot := func() {
		if !opts.snapshot {
			return
		}
		path := export.GenerateSnapshotPath(snapshotDir)
		if _, err := export.Export(context.Background(), orch, logStore, path); err != nil {
			logger.Warn("snapshot export failed", "error", err)
			return
		}
		logger.Info("population snapshot written", "path", path)
		if err := export.RotateSnapshots(snapshotDir, snapshotKeep); err != nil {
			logger.Warn("snapshot rotation failed", "error", err)
		}
	}

	pendulum := coherence.NewPendulum(cfg.Oscillator, b, random)
	pendulum.Start()
	defer pendulum.Stop()

	enc := json.NewEncoder(os.Stdout)
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted, stopping")
			saveSnapshot()
			pruneLog(logStore, cfg.Store.Keep, logger)
			return nil
		case <-ticker.C:
		}

		count++
		if opts.perturbAt > 0 && count == opts.perturbAt {
			pendulum.Perturb(opts.perturbTarget, opts.perturbCycles)
		}

		if _, ok := pendulum.Step(); !ok {
			return nil
		}

		state := orch.State()
		if opts.jsonOut {
			if err := enc.Encode(state); err != nil {
				return err
			}
		} else {
			fmt.Printf("cycle %-5d coherence=%.4f phase=%-11s score=%.4f stability=%.4f variants=%d\n",
				count, state.Coherence, state.Phase, state.GlobalScore,
				state.StabilityFactor, len(state.ActiveVariantIDs))
		}

		if opts.cycles > 0 && count >= opts.cycles {
			saveSnapshot()
			pruneLog(logStore, cfg.Store.Keep, logger)
			return nil
		}
	}
}

func pruneLog(s store.LogStore, keep int, logger *slog.Logger) {
	if keep <= 0 {
		return
	}
	if err := s.Prune(context.Background(), keep); err != nil {
		logger.Warn("coherence log prune failed", "error", err)
	}
}
