// ABOUTME: Prometheus instrumentation for pipeline runs served over HTTP.
// ABOUTME: Tracks run totals by status, stage failures by stage and kind, and run duration.
package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kft-research/queryflow/pipeline"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// NewMetrics builds and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queryflow_runs_total",
				Help: "Pipeline runs by final status.",
			},
			[]string{"status"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queryflow_stage_failures_total",
				Help: "Stage failures by stage name and error kind.",
			},
			[]string{"stage", "kind"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "queryflow_run_duration_seconds",
				Help:    "Wall-clock duration of pipeline runs.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
	}
	m.registry.MustRegister(m.runsTotal, m.stageFailures, m.runDuration)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records one completed pipeline run.
func (m *Metrics) ObserveRun(final *pipeline.FinalState, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(string(final.Status)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	for _, e := range final.Errors {
		m.stageFailures.WithLabelValues(e.Stage, string(e.Kind)).Inc()
	}
}
