package history

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

// Influx measurements: one point per accepted prediction, one point per
// node per monitor tick.
const (
	predictionMeasurement = "cascade_risk"
	vitalsMeasurement     = "infra_vitals"
)

// InfluxConfig locates the InfluxDB instance predictions are recorded to.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"required,url"`
	Token  string `yaml:"token" validate:"required"`
	Org    string `yaml:"org" validate:"required"`
	Bucket string `yaml:"bucket" validate:"required"`
}

// InfluxRecorder writes each prediction as a point in the cascade_risk
// measurement, tagged by origin and failure mode, and node vitals into
// infra_vitals.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxRecorder creates a recorder against the configured instance.
// No connection is made until the first write or ping.
func NewInfluxRecorder(cfg InfluxConfig) *InfluxRecorder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Record writes one prediction point stamped with the prediction time.
func (r *InfluxRecorder) Record(ctx context.Context, pred *simulation.Prediction) error {
	tags := map[string]string{
		"initial_node": pred.InitialFailureNode,
		"failure_mode": string(pred.FailureMode),
	}
	if pred.DisasterType != "" {
		tags["disaster_type"] = string(pred.DisasterType)
	}

	point := influxdb2.NewPoint(
		predictionMeasurement,
		tags,
		map[string]interface{}{
			"cascade_probability": pred.CascadeProbability,
			"predicted_radius_km": pred.PredictedRadiusKm,
			"affected_nodes":      len(pred.AffectedNodes),
			"total_impact_score":  pred.TotalImpactScore,
			"max_risk":            pred.MaxRisk,
			"confidence":          pred.Confidence,
		},
		pred.Timestamp,
	)
	return r.writeAPI.WritePoint(ctx, point)
}

// RecordVitals writes one infra_vitals point per node, all stamped with
// the same tick time.
func (r *InfluxRecorder) RecordVitals(ctx context.Context, nodes []graph.Node) error {
	now := time.Now().UTC()
	for i := range nodes {
		n := &nodes[i]
		point := influxdb2.NewPoint(
			vitalsMeasurement,
			map[string]string{
				"node_id":   n.ID,
				"node_type": string(n.Type),
			},
			map[string]interface{}{
				"health_score": n.HealthScore,
				"current_load": n.CurrentLoad,
				"load_ratio":   n.LoadRatio(),
			},
			now,
		)
		if err := r.writeAPI.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("vitals point for %s: %w", n.ID, err)
		}
	}
	return nil
}

// Ping verifies the instance is reachable and healthy.
func (r *InfluxRecorder) Ping(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health check: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx unhealthy: %s %s", health.Status, msg)
	}
	return nil
}

// Close releases the underlying client.
func (r *InfluxRecorder) Close() {
	r.client.Close()
}
