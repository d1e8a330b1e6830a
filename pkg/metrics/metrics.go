package metrics

import (
	"runtime"
	"time"
)

// RecordPrediction records a completed prediction run with its duration
func (r *Registry) RecordPrediction(trigger string, duration time.Duration, probability float64, affectedNodes int) {
	r.PredictionsTotal.WithLabelValues(trigger, "ok").Inc()
	r.PredictionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	r.PredictionProbability.Observe(probability)
	r.PredictionAffectedNodes.Observe(float64(affectedNodes))
}

// RecordPredictionError records a prediction run that failed
func (r *Registry) RecordPredictionError(trigger string) {
	r.PredictionsTotal.WithLabelValues(trigger, "error").Inc()
}

// RecordStrategies records newly generated stabilization strategies
func (r *Registry) RecordStrategies(generated int) {
	r.StrategiesGeneratedTotal.Add(float64(generated))
}

// RecordMonitorTick records one completed monitoring pass
func (r *Registry) RecordMonitorTick(duration time.Duration) {
	r.MonitorTicksTotal.Inc()
	r.MonitorTickDuration.Observe(duration.Seconds())
}

// RecordFlaggedNode records a node flagged by the monitor
func (r *Registry) RecordFlaggedNode(failureMode string) {
	r.MonitorFlaggedNodesTotal.WithLabelValues(failureMode).Inc()
}

// RecordMonitorPredictionFailure records a flagged node whose prediction failed
func (r *Registry) RecordMonitorPredictionFailure() {
	r.MonitorPredictionFailuresTotal.Inc()
}

// UpdateGraphStats updates graph-level gauges
func (r *Registry) UpdateGraphStats(nodes, edges, highRiskNodes int, averageHealth, averageLoadRatio float64) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
	r.GraphHighRiskNodes.Set(float64(highRiskNodes))
	r.GraphAverageHealth.Set(averageHealth)
	r.GraphAverageLoadRatio.Set(averageLoadRatio)
}

// UpdateRetention updates the history and catalog occupancy gauges
func (r *Registry) UpdateRetention(predictions, strategies int) {
	r.PredictionsRetained.Set(float64(predictions))
	r.StrategiesRetained.Set(float64(strategies))
}

// UpdateSystemStats refreshes runtime gauges
func (r *Registry) UpdateSystemStats(uptime time.Duration) {
	r.UptimeSeconds.Set(uptime.Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}
