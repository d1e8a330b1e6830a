// Package strategy turns high-probability cascade predictions into ranked
// pre-stabilization recommendations. Strategies describe mitigation work
// for operators; nothing here mutates the graph.
package strategy

import (
	"fmt"

	"github.com/google/uuid"
)

// Action type tags.
const (
	ActionLoadReduction           = "load_reduction"
	ActionBackupActivation        = "backup_activation"
	ActionDependencyStrengthening = "dependency_strengthening"
)

// Action is one concrete stabilization step within a strategy.
type Action struct {
	ActionType          string   `json:"action_type"`
	TargetNodes         []string `json:"target_nodes,omitempty"`
	TargetEdges         []string `json:"target_edges,omitempty"`
	ReductionPercentage float64  `json:"reduction_percentage,omitempty"`
	BackupSystems       int      `json:"backup_systems,omitempty"`
	StrengtheningFactor float64  `json:"strengthening_factor,omitempty"`
}

// Strategy is a bundle of actions recommended for one prediction.
type Strategy struct {
	ID                        string   `json:"strategy_id"`
	PredictionID              string   `json:"prediction_id"`
	TargetNodes               []string `json:"target_nodes"`
	Actions                   []Action `json:"stabilization_actions"`
	ExpectedCascadeReduction  float64  `json:"expected_cascade_reduction"`
	ImplementationCost        float64  `json:"implementation_cost"`
	ImplementationTimeMinutes int      `json:"implementation_time_minutes"`
	PriorityScore             float64  `json:"priority_score"`
}

// NewStrategyID generates a strategy identifier with a short hex suffix,
// e.g. "strategy_91b4e02a77cd".
func NewStrategyID() string {
	id := uuid.New()
	return fmt.Sprintf("strategy_%x", id[:6])
}
