package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initMonitorMetrics() {
	r.MonitorTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_monitor_ticks_total",
			Help: "Total number of completed monitoring passes",
		},
	)

	r.MonitorTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cascade_monitor_tick_duration_seconds",
			Help:    "Monitoring pass duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	r.MonitorFlaggedNodesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_monitor_flagged_nodes_total",
			Help: "Total nodes flagged by the monitor",
		},
		[]string{"failure_mode"},
	)

	r.MonitorPredictionFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_monitor_prediction_failures_total",
			Help: "Flagged nodes whose prediction run failed",
		},
	)
}
