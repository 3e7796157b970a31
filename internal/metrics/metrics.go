// Package metrics exposes the orchestrator's cycle snapshots as Prometheus
// gauges and counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyonic/resonate/internal/orchestrator"
)

// Metrics holds the instrument set for one orchestrator instance.
type Metrics struct {
	registry *prometheus.Registry

	coherence      prometheus.Gauge
	globalScore    prometheus.Gauge
	stability      prometheus.Gauge
	activeVariants prometheus.Gauge

	cyclesTotal prometheus.Counter
	spawnsTotal prometheus.Counter
}

// New creates and registers the instrument set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		coherence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resonate_coherence",
			Help: "Current coherence value in [0,1].",
		}),
		globalScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resonate_global_score",
			Help: "Aggregated QCTF score across the variant population.",
		}),
		stability: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resonate_stability_factor",
			Help: "Stability factor derived from coherence variance.",
		}),
		activeVariants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "resonate_active_variants",
			Help: "Number of active variants in the registry.",
		}),
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resonate_cycles_total",
			Help: "Total completed cycles.",
		}),
		spawnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resonate_spawns_total",
			Help: "Total variants spawned.",
		}),
	}

	m.registry.MustRegister(
		m.coherence,
		m.globalScore,
		m.stability,
		m.activeVariants,
		m.cyclesTotal,
		m.spawnsTotal,
	)
	return m
}

// ObserveCycle records one cycle snapshot.
func (m *Metrics) ObserveCycle(s orchestrator.SystemMetrics) {
	m.coherence.Set(s.Coherence)
	m.globalScore.Set(s.GlobalScore)
	m.stability.Set(s.StabilityFactor)
	m.activeVariants.Set(float64(s.ActiveVariantCount))
	m.cyclesTotal.Inc()
}

// ObserveSpawn records one spawned variant.
func (m *Metrics) ObserveSpawn() {
	m.spawnsTotal.Inc()
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
