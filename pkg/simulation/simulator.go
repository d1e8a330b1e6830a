package simulation

import (
	"sort"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
)

// Default run parameters.
const (
	DefaultStepCap    = 4
	MaxStepCap        = 6
	DefaultConfidence = 0.85
)

// Probability calibration: affected fraction dominates, pushed up by how
// loaded the affected nodes run and how densely the graph is wired.
const (
	loadRatioProbabilityWeight = 0.2
	densityProbabilityWeight   = 0.15
)

// Input describes one propagation run.
type Input struct {
	InitialNodeID string
	FailureMode   graph.FailureMode
	DisasterType  graph.DisasterType // empty for condition-triggered runs
	Severity      float64
}

// Simulator computes bounded, monotonic risk wavefronts over a graph
// snapshot. Runs never touch shared state: all working values live in
// per-run slices discarded after the Prediction is built.
type Simulator struct {
	stepCap    int
	confidence float64
	logger     logging.Logger
}

// Config holds simulator tuning knobs.
type Config struct {
	StepCap    int
	Confidence float64
}

// NewSimulator creates a simulator, applying defaults for unset config.
func NewSimulator(config Config, logger logging.Logger) *Simulator {
	stepCap := config.StepCap
	if stepCap <= 0 {
		stepCap = DefaultStepCap
	}
	if stepCap > MaxStepCap {
		stepCap = MaxStepCap
	}
	confidence := config.Confidence
	if confidence <= 0 {
		confidence = DefaultConfidence
	}
	return &Simulator{
		stepCap:    stepCap,
		confidence: confidence,
		logger:     logging.OrNop(logger),
	}
}

// StepCap returns the configured propagation step bound.
func (s *Simulator) StepCap() int {
	return s.stepCap
}

// nodeState tracks per-run propagation bookkeeping for one node.
type nodeState struct {
	affected    bool
	step        int
	timeMinutes int
	sourceIdx   int // parent that set the final risk, -1 for the origin
}

// Run executes one propagation over the view and returns the resulting
// prediction. The view is read-only; the run's risk vector is private.
func (s *Simulator) Run(view *graph.View, in Input) (*Prediction, error) {
	if _, err := graph.ParseFailureMode(string(in.FailureMode)); err != nil {
		return nil, err
	}
	if in.DisasterType != "" {
		if _, err := graph.ParseDisasterType(string(in.DisasterType)); err != nil {
			return nil, err
		}
	}
	if in.Severity < 0 || in.Severity > 1 {
		return nil, graph.NewError("Run").Node(in.InitialNodeID).Cause(graph.ErrSeverityOutOfRange).Err()
	}
	origin, ok := view.NodeIndex(in.InitialNodeID)
	if !ok {
		return nil, graph.NodeNotFoundError("Run", in.InitialNodeID)
	}

	timer := logging.StartTimer(s.logger, "propagation run",
		logging.NodeID(in.InitialNodeID),
		logging.Mode(string(in.FailureMode)),
		logging.Disaster(string(in.DisasterType)))

	risks := make([]float64, view.Len())
	states := make([]nodeState, view.Len())

	risks[origin] = InitialImpact(in.DisasterType, in.Severity, view.Nodes[origin].Type)
	states[origin] = nodeState{affected: true, step: 0, timeMinutes: 0, sourceIdx: -1}

	// Discrete wavefront: at each step every affected node pushes risk to
	// its successors. A target only ever moves up (max-aggregation), and a
	// node affected at an earlier step is settled, so cycles cannot
	// oscillate and the loop stops as soon as a step changes nothing.
	for step := 1; step <= s.stepCap; step++ {
		updated := false

		for source := 0; source < view.Len(); source++ {
			if !states[source].affected || states[source].step >= step {
				continue
			}

			for _, edge := range view.Out[source] {
				target := edge.Target
				if states[target].affected && states[target].step < step {
					continue
				}

				base := risks[source] * edge.Weight
				modifier := RiskModifier(in.DisasterType, view.Nodes[source].Type, view.Nodes[target].Type)
				modifier *= ModeAmplifier(in.FailureMode, view.Nodes[target].Type)
				candidate := base * modifier * (1 - view.Nodes[target].Resilience*0.3)
				if candidate > 1 {
					candidate = 1
				}

				if candidate > risks[target] {
					risks[target] = candidate
					states[target] = nodeState{
						affected:    true,
						step:        step,
						timeMinutes: states[source].timeMinutes + edge.DelayMinutes,
						sourceIdx:   source,
					}
					updated = true
				}
			}
		}

		if !updated {
			break
		}
	}

	prediction := s.buildPrediction(view, in, origin, risks, states)
	timer.End()
	return prediction, nil
}

func (s *Simulator) buildPrediction(view *graph.View, in Input, origin int, risks []float64, states []nodeState) *Prediction {
	affected := make([]int, 0, view.Len())
	for i := range states {
		if states[i].affected {
			affected = append(affected, i)
		}
	}
	sort.Slice(affected, func(a, b int) bool {
		sa, sb := states[affected[a]], states[affected[b]]
		if sa.step != sb.step {
			return sa.step < sb.step
		}
		return sa.timeMinutes < sb.timeMinutes
	})

	affectedIDs := make([]string, len(affected))
	timeline := make([]TimelineEvent, len(affected))
	nodeRisks := make(map[string]float64, len(affected))

	var radius, totalImpact, maxRisk, loadRatioSum float64
	originLoc := view.Nodes[origin].Location

	for i, idx := range affected {
		node := &view.Nodes[idx]
		state := states[idx]

		affectedIDs[i] = node.ID
		nodeRisks[node.ID] = risks[idx]

		event := TimelineEvent{
			Step:        state.step,
			TimeMinutes: state.timeMinutes,
			Event:       EventCascadeFailure,
			NodeID:      node.ID,
			NodeName:    node.Name,
			Risk:        risks[idx],
			ImpactScore: node.CriticalityScore,
		}
		if state.sourceIdx < 0 {
			event.Event = EventInitialFailure
		} else {
			event.SourceID = view.Nodes[state.sourceIdx].ID
		}
		timeline[i] = event

		if d := originLoc.DistanceKm(node.Location); d > radius {
			radius = d
		}
		totalImpact += risks[idx] * node.CriticalityScore
		if risks[idx] > maxRisk {
			maxRisk = risks[idx]
		}
		loadRatioSum += node.LoadRatio()
	}

	probability := s.cascadeProbability(view, len(affected), loadRatioSum)

	return &Prediction{
		ID:                 NewPredictionID(),
		Timestamp:          time.Now().UTC(),
		InitialFailureNode: in.InitialNodeID,
		FailureMode:        in.FailureMode,
		DisasterType:       in.DisasterType,
		Severity:           in.Severity,
		CascadeProbability: probability,
		PredictedRadiusKm:  radius,
		AffectedNodes:      affectedIDs,
		Timeline:           timeline,
		TotalImpactScore:   totalImpact,
		Confidence:         s.confidence,
		MaxRisk:            maxRisk,
		NodeRisks:          nodeRisks,
	}
}

// cascadeProbability calibrates the run's overall probability from the
// affected fraction, the load pressure on affected nodes, and how densely
// the network is wired.
func (s *Simulator) cascadeProbability(view *graph.View, affectedCount int, loadRatioSum float64) float64 {
	if view.Len() == 0 || affectedCount == 0 {
		return 0
	}

	fraction := float64(affectedCount) / float64(view.Len())
	avgLoadRatio := loadRatioSum / float64(affectedCount)

	edgeCount := 0
	for _, out := range view.Out {
		edgeCount += len(out)
	}
	density := float64(edgeCount) / float64(2*view.Len())
	if density > 1 {
		density = 1
	}

	p := fraction + loadRatioProbabilityWeight*avgLoadRatio + densityProbabilityWeight*density
	if p > 1 {
		return 1
	}
	return p
}
