// Package observability exposes simulation and antifreeze metrics in
// Prometheus format.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry, so several simulations
// in one process (tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	agents        *prometheus.GaugeVec
	tokensHeld    prometheus.Gauge
	configResets  prometheus.Counter
	frameSeconds  prometheus.Histogram
	nativeCalls   prometheus.Counter
	nativeSeconds prometheus.Counter
	soundsDropped prometheus.Counter
	deletions     prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antifreeze_decisions_total",
				Help: "Frame decisions by verdict and reason.",
			},
			[]string{"verdict", "reason"},
		),
		agents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "antifreeze_agents",
				Help: "Living infected by antifreeze mode.",
			},
			[]string{"mode"},
		),
		tokensHeld: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "antifreeze_chase_tokens",
				Help: "Chase tokens currently held.",
			},
		),
		configResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antifreeze_config_reloads_total",
				Help: "Configuration resets applied by the reload command.",
			},
		),
		frameSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "antifreeze_frame_seconds",
				Help:    "Wall-clock cost of one simulation frame.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
		),
		nativeCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antifreeze_native_calls_total",
				Help: "Native behavior updates actually executed.",
			},
		),
		nativeSeconds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antifreeze_native_seconds_total",
				Help: "Simulated seconds forwarded to native behavior updates.",
			},
		),
		soundsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antifreeze_sounds_dropped_total",
				Help: "Voice events refused by the per-frame sound budget.",
			},
		),
		deletions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antifreeze_bodies_deleted_total",
				Help: "Corpses removed by forced cleanup.",
			},
		),
	}

	m.registry.MustRegister(
		m.decisions,
		m.agents,
		m.tokensHeld,
		m.configResets,
		m.frameSeconds,
		m.nativeCalls,
		m.nativeSeconds,
		m.soundsDropped,
		m.deletions,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Decision(verdict, reason string) {
	m.decisions.WithLabelValues(verdict, reason).Inc()
}

func (m *Metrics) Modes(active, grace, frozen, optedOut, tokens int) {
	m.agents.WithLabelValues("active").Set(float64(active))
	m.agents.WithLabelValues("grace").Set(float64(grace))
	m.agents.WithLabelValues("frozen").Set(float64(frozen))
	m.agents.WithLabelValues("opted_out").Set(float64(optedOut))
	m.tokensHeld.Set(float64(tokens))
}

func (m *Metrics) ConfigReset() {
	m.configResets.Inc()
}

func (m *Metrics) Frame(seconds float64) {
	m.frameSeconds.Observe(seconds)
}

func (m *Metrics) Native(calls uint64, seconds float64) {
	m.nativeCalls.Add(float64(calls))
	m.nativeSeconds.Add(seconds)
}

func (m *Metrics) SoundsDropped(n uint64) {
	m.soundsDropped.Add(float64(n))
}

func (m *Metrics) BodyDeleted() {
	m.deletions.Inc()
}
