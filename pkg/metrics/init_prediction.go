package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPredictionMetrics() {
	r.PredictionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_predictions_total",
			Help: "Total number of cascade prediction runs",
		},
		[]string{"trigger", "status"},
	)

	r.PredictionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cascade_prediction_duration_seconds",
			Help:    "Prediction run duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"trigger"},
	)

	r.PredictionProbability = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cascade_prediction_probability",
			Help:    "Distribution of predicted cascade probabilities",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	r.PredictionAffectedNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cascade_prediction_affected_nodes",
			Help:    "Distribution of affected node counts per prediction",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)

	r.PredictionsRetained = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_predictions_retained",
			Help: "Predictions currently held in history",
		},
	)
}
