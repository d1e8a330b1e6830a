package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

// Timeline event kinds.
const (
	EventInitialFailure = "initial_failure"
	EventCascadeFailure = "cascade_failure"
)

// TimelineEvent is one entry in a prediction's chronological event log.
type TimelineEvent struct {
	Step        int     `json:"step"`
	TimeMinutes int     `json:"time_minutes"`
	Event       string  `json:"event"`
	NodeID      string  `json:"node_id"`
	NodeName    string  `json:"node"`
	SourceID    string  `json:"source_node,omitempty"`
	Risk        float64 `json:"risk"`
	ImpactScore float64 `json:"impact_score"`
}

// Prediction is the immutable result of one propagation run.
type Prediction struct {
	ID                 string             `json:"prediction_id"`
	Timestamp          time.Time          `json:"timestamp"`
	InitialFailureNode string             `json:"initial_failure_node"`
	FailureMode        graph.FailureMode  `json:"failure_mode"`
	DisasterType       graph.DisasterType `json:"disaster_type,omitempty"`
	Severity           float64            `json:"severity"`
	CascadeProbability float64            `json:"cascade_probability"`
	PredictedRadiusKm  float64            `json:"predicted_radius_km"`
	AffectedNodes      []string           `json:"affected_nodes"`
	Timeline           []TimelineEvent    `json:"cascade_timeline"`
	TotalImpactScore   float64            `json:"total_impact_score"`
	Confidence         float64            `json:"confidence"`
	MaxRisk            float64            `json:"max_risk"`
	NodeRisks          map[string]float64 `json:"node_risks"`
}

// RiskFor returns the run's final risk for a node, zero when unaffected.
func (p *Prediction) RiskFor(nodeID string) float64 {
	return p.NodeRisks[nodeID]
}

// NewPredictionID generates a prediction identifier with a short hex
// suffix, e.g. "pred_3f9c01d24ab7".
func NewPredictionID() string {
	id := uuid.New()
	return fmt.Sprintf("pred_%x", id[:6])
}
