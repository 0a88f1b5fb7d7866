// Package metrics registers the Prometheus collectors exposed at
// /metrics, grounded on the teacher's MetricsRegistry pattern but
// reshaped around this engine's own domain: pipeline cycles, regime
// transitions, absorption events, and replay batches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector this engine exposes.
type Registry struct {
	reg *prometheus.Registry

	CycleDuration  *prometheus.HistogramVec
	CyclesTotal    *prometheus.CounterVec
	PipelineErrors *prometheus.CounterVec

	RegimeSwitches *prometheus.CounterVec
	ActiveRegime   *prometheus.GaugeVec

	AbsorptionDetected *prometheus.CounterVec
	AbsorptionResolved *prometheus.CounterVec

	ReplaySamples *prometheus.CounterVec
	ReplayBatches *prometheus.GaugeVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewRegistry builds every collector and registers it against its own
// isolated *prometheus.Registry (rather than the global default), so
// multiple engine instances in one process (e.g. tests) never collide
// on collector names.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perpintel_cycle_duration_seconds",
				Help:    "Duration of one pipeline Run call, per symbol.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"symbol", "result"},
		),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_cycles_total",
				Help: "Total pipeline cycles run, by symbol and result.",
			},
			[]string{"symbol", "result"},
		),
		PipelineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_pipeline_errors_total",
				Help: "Total pipeline errors by error kind.",
			},
			[]string{"kind"},
		),
		RegimeSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_regime_switches_total",
				Help: "Total regime transitions observed, by from/to regime.",
			},
			[]string{"from", "to"},
		),
		ActiveRegime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpintel_active_regime",
				Help: "1 for the currently active regime per symbol, 0 otherwise.",
			},
			[]string{"symbol", "regime"},
		),
		AbsorptionDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_absorption_detected_total",
				Help: "Total absorption events entering DETECTING, by timeframe and direction.",
			},
			[]string{"timeframe", "direction"},
		),
		AbsorptionResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_absorption_resolved_total",
				Help: "Total absorption events resolved, by resolution outcome.",
			},
			[]string{"resolution"},
		),
		ReplaySamples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_replay_samples_total",
				Help: "Total replay samples processed, by outcome (ok, insufficient_data, fatal).",
			},
			[]string{"outcome"},
		),
		ReplayBatches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perpintel_replay_batches",
				Help: "Current replay batch count by status.",
			},
			[]string{"status"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_cache_hits_total",
				Help: "Total cache hits by cache backend.",
			},
			[]string{"backend"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perpintel_cache_misses_total",
				Help: "Total cache misses by cache backend.",
			},
			[]string{"backend"},
		),
	}

	reg.MustRegister(
		r.CycleDuration, r.CyclesTotal, r.PipelineErrors,
		r.RegimeSwitches, r.ActiveRegime,
		r.AbsorptionDetected, r.AbsorptionResolved,
		r.ReplaySamples, r.ReplayBatches,
		r.CacheHits, r.CacheMisses,
	)
	return r
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// CycleTimer times one pipeline Run call.
type CycleTimer struct {
	reg    *Registry
	symbol string
	start  time.Time
}

// StartCycle begins timing a pipeline cycle for symbol.
func (r *Registry) StartCycle(symbol string) *CycleTimer {
	return &CycleTimer{reg: r, symbol: symbol, start: time.Now()}
}

// Stop records the cycle's duration and result.
func (t *CycleTimer) Stop(result string) {
	t.reg.CycleDuration.WithLabelValues(t.symbol, result).Observe(time.Since(t.start).Seconds())
	t.reg.CyclesTotal.WithLabelValues(t.symbol, result).Inc()
}

// RecordRegimeSwitch records a from->to regime transition for symbol
// and flips the active-regime gauge.
func (r *Registry) RecordRegimeSwitch(symbol, from, to string) {
	r.RegimeSwitches.WithLabelValues(from, to).Inc()
	if from != "" {
		r.ActiveRegime.WithLabelValues(symbol, from).Set(0)
	}
	r.ActiveRegime.WithLabelValues(symbol, to).Set(1)
}
