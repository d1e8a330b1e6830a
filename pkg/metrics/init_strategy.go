package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStrategyMetrics() {
	r.StrategiesGeneratedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cascade_strategies_generated_total",
			Help: "Total number of stabilization strategies generated",
		},
	)

	r.StrategiesRetained = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_strategies_retained",
			Help: "Strategies currently held in the catalog",
		},
	)
}
