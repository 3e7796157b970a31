package coherence

import (
	"testing"

	"github.com/halcyonic/resonate/internal/bus"
	"github.com/halcyonic/resonate/internal/rng"
)

func newTestPendulum(t *testing.T) (*Pendulum, *bus.Bus) {
	t.Helper()
	b := bus.New()
	p := NewPendulum(DefaultConfig(), b, rng.New(1))
	return p, b
}

func TestStep_InactiveBeforeStart(t *testing.T) {
	p, _ := newTestPendulum(t)

	if p.IsActive() {
		t.Error("pendulum active before Start")
	}
	if _, ok := p.Step(); ok {
		t.Error("Step produced a measurement before Start")
	}
}

func TestStartStop_Events(t *testing.T) {
	p, b := newTestPendulum(t)

	var started, stopped int
	b.Subscribe(bus.EventStarted, func(bus.Event) { started++ })
	b.Subscribe(bus.EventStopped, func(bus.Event) { stopped++ })

	p.Start()
	p.Start() // idempotent
	p.Stop()
	p.Stop() // idempotent

	if started != 1 || stopped != 1 {
		t.Errorf("started=%d stopped=%d, want 1 and 1", started, stopped)
	}
}

func TestStep_EmitsMeasurementsAndCounts(t *testing.T) {
	p, b := newTestPendulum(t)

	var measurements []Measurement
	b.Subscribe(bus.EventMeasurement, func(ev bus.Event) {
		measurements = append(measurements, ev.Payload.(Measurement))
	})

	p.Start()
	for i := 0; i < 10; i++ {
		m, ok := p.Step()
		if !ok {
			t.Fatalf("Step %d failed while active", i)
		}
		if m.Coherence < 0 || m.Coherence > 1 {
			t.Errorf("cycle %d coherence %.4f out of [0,1]", i, m.Coherence)
		}
	}

	if len(measurements) != 10 {
		t.Fatalf("emitted %d measurements, want 10", len(measurements))
	}
	if p.CycleCount() != 10 {
		t.Errorf("CycleCount = %d, want 10", p.CycleCount())
	}
	for i, m := range measurements {
		if m.CycleCount != i+1 {
			t.Errorf("measurement %d has cycle %d, want %d", i, m.CycleCount, i+1)
		}
	}
}

func TestStep_PhaseCadenceIsThreeToOne(t *testing.T) {
	p, _ := newTestPendulum(t)
	p.Start()

	stability, exploration := 0, 0
	for i := 0; i < 40; i++ {
		m, _ := p.Step()
		switch m.Phase {
		case PhaseStability:
			stability++
		case PhaseExploration:
			exploration++
		}
	}

	if stability != 30 || exploration != 10 {
		t.Errorf("cadence %d:%d over 40 cycles, want 30:10", stability, exploration)
	}
}

func TestPerturb_TimeBoxedInCycles(t *testing.T) {
	p, b := newTestPendulum(t)

	var perturbed []Perturbation
	ended := 0
	b.Subscribe(bus.EventPerturbed, func(ev bus.Event) {
		perturbed = append(perturbed, ev.Payload.(Perturbation))
	})
	b.Subscribe(bus.EventPerturbationEnded, func(bus.Event) { ended++ })

	p.Start()
	p.Perturb(0.95, 3)

	if len(perturbed) != 1 || perturbed[0].Target != 0.95 || perturbed[0].Duration != 3 {
		t.Fatalf("perturbed events = %+v, want one {0.95 3}", perturbed)
	}
	if !p.Status().IsPerturbed {
		t.Error("Status.IsPerturbed false during perturbation")
	}

	// Coherence pulls toward the perturbation target while boxed.
	m, _ := p.Step()
	if m.Coherence < 0.8 {
		t.Errorf("perturbed coherence %.4f, want pulled toward 0.95", m.Coherence)
	}

	p.Step()
	p.Step()

	if ended != 1 {
		t.Errorf("perturbationEnded fired %d times, want 1", ended)
	}
	if p.Status().IsPerturbed {
		t.Error("Status.IsPerturbed true after the perturbation window")
	}
}

func TestPerturb_NonPositiveDurationIgnored(t *testing.T) {
	p, b := newTestPendulum(t)

	fired := 0
	b.Subscribe(bus.EventPerturbed, func(bus.Event) { fired++ })

	p.Start()
	p.Perturb(0.9, 0)

	if fired != 0 || p.Status().IsPerturbed {
		t.Error("zero-duration perturbation took effect")
	}
}

func TestUpdateParameters_Event(t *testing.T) {
	p, b := newTestPendulum(t)

	fired := 0
	b.Subscribe(bus.EventParametersUpdated, func(bus.Event) { fired++ })

	cfg := DefaultConfig()
	cfg.Amplitude = 0.2
	p.UpdateParameters(cfg)

	if fired != 1 {
		t.Errorf("parametersUpdated fired %d times, want 1", fired)
	}
}

func TestStep_PhaseChangeEvents(t *testing.T) {
	p, b := newTestPendulum(t)

	changes := 0
	b.Subscribe(bus.EventPhaseChange, func(bus.Event) { changes++ })

	p.Start()
	for i := 0; i < 8; i++ {
		p.Step()
	}

	// Default cadence over 8 cycles: two stability->exploration flips and
	// two flips back.
	if changes != 4 {
		t.Errorf("phaseChange fired %d times over 8 cycles, want 4", changes)
	}
}
