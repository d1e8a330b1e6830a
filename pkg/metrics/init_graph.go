package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_graph_nodes_total",
			Help: "Total number of infrastructure nodes in the graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_graph_edges_total",
			Help: "Total number of dependency edges in the graph",
		},
	)

	r.GraphHighRiskNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_graph_high_risk_nodes",
			Help: "Nodes currently below the health threshold or above the load threshold",
		},
	)

	r.GraphAverageHealth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_graph_average_health_score",
			Help: "Mean health score across all nodes",
		},
	)

	r.GraphAverageLoadRatio = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cascade_graph_average_load_ratio",
			Help: "Mean load-to-capacity ratio across all nodes",
		},
	)
}
