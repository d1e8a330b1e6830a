package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prediction trigger labels.
const (
	TriggerMonitor  = "monitor"
	TriggerManual   = "manual"
	TriggerDisaster = "disaster"
)

// Registry holds all metrics for the application
type Registry struct {
	// Graph Metrics
	GraphNodesTotal       prometheus.Gauge
	GraphEdgesTotal       prometheus.Gauge
	GraphHighRiskNodes    prometheus.Gauge
	GraphAverageHealth    prometheus.Gauge
	GraphAverageLoadRatio prometheus.Gauge

	// Prediction Metrics
	PredictionsTotal        *prometheus.CounterVec
	PredictionDuration      *prometheus.HistogramVec
	PredictionProbability   prometheus.Histogram
	PredictionAffectedNodes prometheus.Histogram
	PredictionsRetained     prometheus.Gauge

	// Strategy Metrics
	StrategiesGeneratedTotal prometheus.Counter
	StrategiesRetained       prometheus.Gauge

	// Monitor Metrics
	MonitorTicksTotal              prometheus.Counter
	MonitorTickDuration            prometheus.Histogram
	MonitorFlaggedNodesTotal       *prometheus.CounterVec
	MonitorPredictionFailuresTotal prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initGraphMetrics()
	r.initPredictionMetrics()
	r.initStrategyMetrics()
	r.initMonitorMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
