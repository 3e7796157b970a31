// Package orchestrator owns the variant population and drives the per-cycle
// pipeline: record the measurement, recompute system state, re-weight
// variants by pairwise resonance, attempt a spawn, and emit a cycle
// snapshot. The orchestrator embeds the event bus by composition; it is
// constructed explicitly at process start and passed to consumers; there
// are no package-level singletons.
package orchestrator

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/coherence"
	"github.com/halcyonic/resonate/internal/formula"
	"github.com/halcyonic/resonate/internal/logging"
	"github.com/halcyonic/resonate/internal/resonance"
	"github.com/halcyonic/resonate/internal/tracker"
	"github.com/halcyonic/resonate/internal/variant"
)

// Config holds the orchestrator's tunable parameters.
type Config struct {
	// GEF is the global scaling multiplier applied to resonance.
	// Default: 1.0.
	GEF float64 `json:"gef" yaml:"gef"`

	// DecayTime is the resonance time-decay constant. Default: 60s.
	DecayTime time.Duration `json:"decay_time" yaml:"decay_time"`

	// Window is the statistics window for per-cycle derived state.
	// Default: 10.
	Window int `json:"window" yaml:"window"`

	// Spawn gates the variant spawner.
	Spawn variant.SpawnConditions `json:"spawn" yaml:"spawn"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		GEF:       resonance.DefaultGEF,
		DecayTime: resonance.DefaultDecayTime,
		Window:    tracker.DefaultWindow,
		Spawn:     variant.DefaultSpawnConditions(),
	}
}

// weight re-mapping constants: weight = weightFloor + weightSpan * normalized.
const (
	weightFloor = 0.25
	weightSpan  = 0.75
)

// VariantPatch is a partial update applied by Update. Nil fields are left
// unchanged. Capabilities replaces the whole set when non-nil.
type VariantPatch struct {
	Name         *string
	QCTFScore    *float64
	Theta        *float64
	Entropy      *float64
	QEAI         *float64
	Weight       *float64
	Capabilities []string
}

// Orchestrator is the registry and aggregator over the variant population.
type Orchestrator struct {
	mu sync.Mutex

	cfg     Config
	bus     *bus.Bus
	tracker *tracker.Tracker
	spawner *variant.Spawner
	logger  *slog.Logger
	trace   *logging.TraceLogger

	variants map[string]*variant.Variant
	order    []string // registration order, for deterministic iteration

	measurementSub int
	lastState      SystemState
}

// New constructs an orchestrator wired to b: it subscribes to measurement
// events and runs the cycle pipeline for each. Close unsubscribes.
func New(cfg Config, b *bus.Bus, tr *tracker.Tracker, sp *variant.Spawner, logger *slog.Logger, trace *logging.TraceLogger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:      cfg,
		bus:      b,
		tracker:  tr,
		spawner:  sp,
		logger:   logger,
		trace:    trace,
		variants: make(map[string]*variant.Variant),
	}
	o.measurementSub = b.Subscribe(bus.EventMeasurement, func(ev bus.Event) {
		if m, ok := ev.Payload.(coherence.Measurement); ok {
			o.RunCycle(m)
		}
	})
	return o
}

// Close detaches the orchestrator from the bus.
func (o *Orchestrator) Close() {
	o.bus.Unsubscribe(o.measurementSub)
}

// Register inserts v into the population. The id must be unique;
// registration stamps CreatedAt and UpdatedAt.
func (o *Orchestrator) Register(v *variant.Variant) error {
	return o.insert(v, false)
}

// Restore inserts a variant recovered from a snapshot. Unlike Register it
// preserves the recorded CreatedAt and UpdatedAt, so resonance time decay
// between restored variants survives a restart. Zero timestamps are
// stamped as in Register.
func (o *Orchestrator) Restore(v *variant.Variant) error {
	return o.insert(v, true)
}

func (o *Orchestrator) insert(v *variant.Variant, keepTimestamps bool) error {
	o.mu.Lock()
	if _, exists := o.variants[v.ID]; exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateVariant, v.ID)
	}

	if !keepTimestamps || v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if !keepTimestamps || v.UpdatedAt.IsZero() {
		v.UpdatedAt = v.CreatedAt
	}
	v.Weight = formula.Clamp(v.Weight, 0, 1)
	v.Theta = formula.ClampTheta(v.Theta)

	o.variants[v.ID] = v
	o.order = append(o.order, v.ID)
	snapshot := *v
	o.mu.Unlock()

	o.logger.Debug("variant registered", "id", v.ID, "name", v.Name, "generation", v.Generation)
	o.bus.Publish(bus.EventVariantRegistered, snapshot)
	return nil
}

// Update merges patch into the identified variant and bumps UpdatedAt.
func (o *Orchestrator) Update(id string, patch VariantPatch) error {
	o.mu.Lock()
	v, exists := o.variants[id]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrVariantNotFound, id)
	}

	if patch.Name != nil {
		v.Name = *patch.Name
	}
	if patch.QCTFScore != nil {
		v.QCTFScore = formula.Clamp01(*patch.QCTFScore)
	}
	if patch.Theta != nil {
		v.Theta = formula.ClampTheta(*patch.Theta)
	}
	if patch.Entropy != nil {
		v.Entropy = math.Max(0, *patch.Entropy)
	}
	if patch.QEAI != nil {
		v.QEAI = formula.Clamp01(*patch.QEAI)
	}
	if patch.Weight != nil {
		v.Weight = formula.Clamp(*patch.Weight, 0, 1)
	}
	if patch.Capabilities != nil {
		v.Capabilities = append([]string(nil), patch.Capabilities...)
	}
	v.UpdatedAt = time.Now()
	snapshot := *v
	o.mu.Unlock()

	o.bus.Publish(bus.EventVariantUpdated, snapshot)
	return nil
}

// Remove deletes the identified variant. Returns false when it is absent.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	v, exists := o.variants[id]
	if !exists {
		o.mu.Unlock()
		return false
	}

	delete(o.variants, id)
	for i, oid := range o.order {
		if oid == id {
			o.order = append(o.order[:i:i], o.order[i+1:]...)
			break
		}
	}
	snapshot := *v
	o.mu.Unlock()

	o.bus.Publish(bus.EventVariantRemoved, snapshot)
	return true
}

// Activate sets the variant's activation (weight). Out-of-range values are
// clamped to [0, 1], never rejected.
func (o *Orchestrator) Activate(id string, activation float64) error {
	activation = formula.Clamp(activation, 0, 1)
	return o.Update(id, VariantPatch{Weight: &activation})
}

// Deactivate sets the variant's activation to zero.
func (o *Orchestrator) Deactivate(id string) error {
	return o.Activate(id, 0)
}

// Variant returns a copy of the identified variant.
func (o *Orchestrator) Variant(id string) (variant.Variant, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	v, exists := o.variants[id]
	if !exists {
		return variant.Variant{}, false
	}
	return *v, true
}

// Variants returns copies of all variants in registration order.
func (o *Orchestrator) Variants() []variant.Variant {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]variant.Variant, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.variants[id])
	}
	return out
}

// ResonateVariants re-weights all active variants (weight > 0) by pairwise
// resonance. The resonance metric is asymmetric in its novelty boost, so
// each unordered pair is symmetrized explicitly: both members receive the
// mean of the two orientations. Per-variant sums are normalized by
// (activeCount - 1) and mapped into [0.25, 1.0]. No-op with fewer than 2
// active variants.
func (o *Orchestrator) ResonateVariants() {
	o.mu.Lock()

	active := make([]*variant.Variant, 0, len(o.order))
	for _, id := range o.order {
		if v := o.variants[id]; v.Weight > 0 {
			active = append(active, v)
		}
	}

	if len(active) < 2 {
		o.mu.Unlock()
		return
	}

	totals := make(map[string]float64, len(active))
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			pair := (resonance.Score(a, b, o.cfg.GEF, o.cfg.DecayTime) +
				resonance.Score(b, a, o.cfg.GEF, o.cfg.DecayTime)) / 2
			totals[a.ID] += pair
			totals[b.ID] += pair
		}
	}

	norm := float64(len(active) - 1)
	now := time.Now()
	for _, v := range active {
		normalized := formula.Clamp01(totals[v.ID] / norm)
		v.Weight = weightFloor + weightSpan*normalized
		v.UpdatedAt = now
	}
	o.mu.Unlock()

	o.bus.Publish(bus.EventVariantsResonated, nil)
}

// AggregateScore returns the weight-weighted mean of variant QCTF scores.
// An empty population, or one carrying no weight at all, aggregates to
// the attractor value.
func (o *Orchestrator) AggregateScore() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.aggregateLocked()
}

func (o *Orchestrator) aggregateLocked() float64 {
	var weighted, total float64
	for _, v := range o.variants {
		weighted += v.QCTFScore * v.Weight
		total += v.Weight
	}
	if total == 0 {
		return formula.Attractor
	}
	return weighted / total
}

// FormulaState derives the current formula parameters from the tracker:
// CI is the live coherence, entropy is the coherence standard deviation
// over the window, and theta sits at the bifurcation point offset by the
// coherence trend.
func (o *Orchestrator) FormulaState() formula.Parameters {
	w := o.cfg.Window
	return formula.Parameters{
		CI:      formula.Ptr(o.tracker.LastCoherence()),
		Theta:   formula.Ptr(formula.ClampTheta(0.5 + o.tracker.Trend(w))),
		Entropy: o.tracker.StdDev(w),
	}
}

// State returns the most recent derived system state.
func (o *Orchestrator) State() SystemState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastState
}

// RunCycle executes the full pipeline for one measurement and returns the
// cycle snapshot. Ordering is fixed: record happens before statistics,
// statistics before resonance re-weighting, re-weighting before the
// snapshot is emitted.
func (o *Orchestrator) RunCycle(m coherence.Measurement) SystemMetrics {
	o.tracker.Record(m)

	o.ResonateVariants()

	params := o.FormulaState()
	if spawned := o.maybeSpawn(params); spawned != nil {
		if err := o.Register(spawned); err != nil {
			o.logger.Warn("spawned variant rejected", "id", spawned.ID, "error", err)
		} else {
			o.logger.Info("variant spawned",
				"id", spawned.ID,
				"generation", spawned.Generation,
				"theta", spawned.Theta,
				"score", spawned.QCTFScore)
		}
	}

	o.mu.Lock()
	global := o.aggregateLocked()

	activeIDs := make([]string, 0, len(o.order))
	for _, id := range o.order {
		if o.variants[id].Weight > 0 {
			activeIDs = append(activeIDs, id)
		}
	}
	o.mu.Unlock()

	stability := o.tracker.Stability(o.cfg.Window)
	now := time.Now()

	state := SystemState{
		Coherence:        m.Coherence,
		Phase:            m.Phase,
		GlobalScore:      global,
		ActiveVariantIDs: activeIDs,
		StabilityFactor:  stability,
		Timestamp:        now,
	}
	metrics := SystemMetrics{
		GlobalScore:        global,
		Coherence:          m.Coherence,
		Phase:              m.Phase,
		StabilityFactor:    stability,
		ActiveVariantCount: len(activeIDs),
		Timestamp:          now,
	}

	o.mu.Lock()
	o.lastState = state
	o.mu.Unlock()

	o.trace.Log(logging.CycleTrace{
		Cycle:       m.CycleCount,
		Coherence:   m.Coherence,
		Phase:       string(m.Phase),
		GlobalScore: global,
		Stability:   stability,
		Entropy:     params.Entropy,
		Variants:    len(activeIDs),
	})

	o.bus.Publish(bus.EventState, state)
	o.bus.Publish(bus.EventCycleCompleted, CycleCompleted{Metrics: metrics, Timestamp: now})

	return metrics
}

// maybeSpawn invokes the spawner with the current formula state. The
// highest-weight active variant parents the child; ties break on
// registration order. A nil result is the normal no-spawn outcome.
func (o *Orchestrator) maybeSpawn(params formula.Parameters) *variant.Variant {
	if o.spawner == nil {
		return nil
	}

	o.mu.Lock()
	var parent *variant.Variant
	for _, id := range o.order {
		v := o.variants[id]
		if v.Weight <= 0 {
			continue
		}
		if parent == nil || v.Weight > parent.Weight {
			parent = v
		}
	}
	var parentCopy *variant.Variant
	generation := 0
	if parent != nil {
		c := *parent
		parentCopy = &c
		generation = parent.Generation
	}
	o.mu.Unlock()

	return o.spawner.Spawn(params, parentCopy, generation)
}
