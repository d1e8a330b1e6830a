package engine

import (
	"context"
	"math"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/metrics"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

// proximityDegreeThreshold decides whether a disaster strikes a known
// facility or open ground. Within this degree distance the nearest node
// is the origin; beyond it a virtual origin is wired to every node.
const proximityDegreeThreshold = 0.05

// DisasterTrigger describes an external hazard event.
type DisasterTrigger struct {
	Type     graph.DisasterType `json:"type"`
	Severity float64            `json:"severity"`
	Location graph.Location     `json:"location"`
}

// NodeRiskRow is one node's standing in a risk assessment.
type NodeRiskRow struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Risk              float64 `json:"risk"`
	RiskLevel         string  `json:"risk_level"`
	InPropagationPath bool    `json:"in_propagation_path"`
}

// EdgeRow is one dependency in a risk assessment.
type EdgeRow struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Weight       float64 `json:"weight"`
	Type         string  `json:"type"`
	DelayMinutes int     `json:"delay_minutes"`
}

// AssessmentGraph is the annotated topology in a risk assessment.
type AssessmentGraph struct {
	Nodes []NodeRiskRow `json:"nodes"`
	Edges []EdgeRow     `json:"edges"`
}

// DisasterSummary echoes the trigger plus where propagation started.
// VirtualOrigin reports that the disaster struck open ground and a
// transient zone node seeded the cascade.
type DisasterSummary struct {
	Type          string         `json:"type"`
	Severity      float64        `json:"severity"`
	Location      graph.Location `json:"location"`
	OriginNodeID  string         `json:"origin_node_id"`
	VirtualOrigin bool           `json:"virtual_origin"`
}

// RiskAssessment is the full result of a disaster analysis: the topology
// with per-node risk, the propagation path, and the cascade timeline.
type RiskAssessment struct {
	Graph           AssessmentGraph            `json:"graph"`
	InitialDisaster DisasterSummary            `json:"initial_disaster"`
	PropagationPath []string                   `json:"propagation_path"`
	CriticalNodes   []string                   `json:"critical_nodes"`
	Timeline        []simulation.TimelineEvent `json:"cascade_timeline"`
	MaxRisk         float64                    `json:"max_risk"`
	PredictionID    string                     `json:"prediction_id"`
	AnalyzedAt      time.Time                  `json:"analyzed_at"`
}

// AnalyzeCascadingRisk runs a geographic disaster against the graph.
// The origin is the nearest facility when one is close enough, otherwise
// a virtual zone node wired to everything. The underlying prediction is
// recorded like any other run; the assessment wraps it with the
// annotated topology.
func (e *Engine) AnalyzeCascadingRisk(ctx context.Context, trigger DisasterTrigger) (*RiskAssessment, error) {
	if err := validateDisasterTrigger(trigger); err != nil {
		e.metrics.RecordPredictionError(metrics.TriggerDisaster)
		return nil, err
	}
	if e.store.NodeCount() == 0 {
		e.metrics.RecordPredictionError(metrics.TriggerDisaster)
		return nil, graph.NewError("AnalyzeCascadingRisk").Cause(graph.ErrEmptyGraph).Err()
	}

	view := e.store.Snapshot()
	originID, dist, err := e.store.NearestNode(trigger.Location)
	if err != nil {
		e.metrics.RecordPredictionError(metrics.TriggerDisaster)
		return nil, err
	}
	virtual := dist >= proximityDegreeThreshold
	if virtual {
		view = simulation.WithVirtualOrigin(view, trigger.Location)
		originID = simulation.VirtualOriginID
	}

	in := simulation.Input{
		InitialNodeID: originID,
		FailureMode:   modeForDisaster(trigger.Type),
		DisasterType:  trigger.Type,
		Severity:      trigger.Severity,
	}
	pred, err := e.run(ctx, in, metrics.TriggerDisaster, view)
	if err != nil {
		return nil, err
	}

	e.logger.Info("disaster risk analyzed",
		logging.Component("engine"),
		logging.Disaster(string(trigger.Type)),
		logging.NodeID(originID),
		logging.Risk(pred.MaxRisk),
		logging.Count(len(pred.AffectedNodes)))
	return e.buildAssessment(trigger, originID, virtual, pred), nil
}

// validateDisasterTrigger rejects unknown types and out-of-range
// severity or coordinates before any graph work happens.
func validateDisasterTrigger(t DisasterTrigger) error {
	if _, err := graph.ParseDisasterType(string(t.Type)); err != nil {
		return err
	}
	if t.Severity < 0 || t.Severity > 1 {
		return graph.NewError("AnalyzeCascadingRisk").Cause(graph.ErrSeverityOutOfRange).Err()
	}
	if t.Location.Lat < -90 || t.Location.Lat > 90 ||
		t.Location.Lon < -180 || t.Location.Lon > 180 {
		return graph.NewError("AnalyzeCascadingRisk").Cause(graph.ErrInvalidLocation).Err()
	}
	return nil
}

// modeForDisaster picks the failure mode a hazard expresses as. Water
// and wind hazards damage through weather; ground movement and fire
// through structure.
func modeForDisaster(d graph.DisasterType) graph.FailureMode {
	switch d {
	case graph.DisasterFlood, graph.DisasterCyclone:
		return graph.FailureWeatherDamage
	default:
		return graph.FailureStructuralDamage
	}
}

// buildAssessment annotates the real topology with the run's risks.
// Virtual origins never appear in the rows, the path, or the critical
// list; the summary carries them instead.
func (e *Engine) buildAssessment(trigger DisasterTrigger, originID string, virtual bool, pred *simulation.Prediction) *RiskAssessment {
	affected := make(map[string]bool, len(pred.AffectedNodes))
	for _, id := range pred.AffectedNodes {
		affected[id] = true
	}

	nodes := e.store.AllNodes()
	rows := make([]NodeRiskRow, 0, len(nodes))
	var critical []string
	for i := range nodes {
		n := &nodes[i]
		risk := round3(pred.RiskFor(n.ID))
		rows = append(rows, NodeRiskRow{
			ID:                n.ID,
			Name:              n.Name,
			Type:              string(n.Type),
			Lat:               n.Location.Lat,
			Lon:               n.Location.Lon,
			Risk:              risk,
			RiskLevel:         string(graph.LevelForRisk(risk)),
			InPropagationPath: affected[n.ID],
		})
		if risk >= graph.HighRisk {
			critical = append(critical, n.ID)
		}
	}

	edges := e.store.AllEdges()
	edgeRows := make([]EdgeRow, 0, len(edges))
	for _, ed := range edges {
		edgeRows = append(edgeRows, EdgeRow{
			Source:       ed.Source,
			Target:       ed.Target,
			Weight:       ed.Weight,
			Type:         ed.DependencyType,
			DelayMinutes: ed.DelayMinutes,
		})
	}

	path := make([]string, 0, len(pred.AffectedNodes))
	for _, id := range pred.AffectedNodes {
		if id == simulation.VirtualOriginID {
			continue
		}
		path = append(path, id)
	}

	return &RiskAssessment{
		Graph: AssessmentGraph{Nodes: rows, Edges: edgeRows},
		InitialDisaster: DisasterSummary{
			Type:          string(trigger.Type),
			Severity:      trigger.Severity,
			Location:      trigger.Location,
			OriginNodeID:  originID,
			VirtualOrigin: virtual,
		},
		PropagationPath: path,
		CriticalNodes:   critical,
		Timeline:        pred.Timeline,
		MaxRisk:         pred.MaxRisk,
		PredictionID:    pred.ID,
		AnalyzedAt:      time.Now().UTC(),
	}
}

// round3 keeps reported risks at millesimal precision.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
