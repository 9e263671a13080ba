// Package metrics exposes Prometheus metrics for a run. It implements the
// builder and pipeline observer interfaces so the phases report into it
// without knowing about Prometheus.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/discovery"
)

const namespace = "modgrid"

// Metrics holds every collector of one run, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	modulesInFlight prometheus.Gauge
	moduleBuilds    *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	phaseRuns       *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		modulesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_builds_in_flight",
			Help:      "Number of module builds currently running.",
		}),
		moduleBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_builds_total",
			Help:      "Module builds by outcome.",
		}, []string{"outcome"}),
		buildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "module_build_duration_seconds",
			Help:      "Wall time of module builds that ran.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"outcome"}),
		phaseRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_runs_total",
			Help:      "Pipeline phases by name and result.",
		}, []string{"phase", "result"}),
		phaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of pipeline phases.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ModuleStarted implements builder.Observer.
func (m *Metrics) ModuleStarted(context.Context, discovery.Module) {
	m.modulesInFlight.Inc()
}

// ModuleFinished implements builder.Observer.
func (m *Metrics) ModuleFinished(_ context.Context, res builder.ModuleResult) {
	m.moduleBuilds.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == builder.Skipped {
		return
	}
	m.modulesInFlight.Dec()
	m.buildDuration.WithLabelValues(string(res.Outcome)).Observe(res.Duration.Seconds())
}

// PhaseFinished implements pipeline.Observer.
func (m *Metrics) PhaseFinished(phase string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.phaseRuns.WithLabelValues(phase, result).Inc()
	m.phaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}
