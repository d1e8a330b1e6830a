package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

func addNode(t *testing.T, s *graph.Store, id string, nodeType graph.NodeType) {
	t.Helper()
	err := s.AddNode(graph.Node{
		ID:               id,
		Name:             id,
		Type:             nodeType,
		Location:         graph.Location{Lat: 19.0, Lon: 72.8},
		Capacity:         100,
		CurrentLoad:      55,
		HealthScore:      0.9,
		RedundancyLevel:  2,
		RepairTimeHours:  8,
		CriticalityScore: 0.8,
	})
	if err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
}

func addEdge(t *testing.T, s *graph.Store, source, target string, weight float64) {
	t.Helper()
	err := s.AddEdge(graph.Edge{
		Source:     source,
		Target:     target,
		Weight:     weight,
		DistanceKm: 3,
	})
	if err != nil {
		t.Fatalf("AddEdge(%s->%s): %v", source, target, err)
	}
}

func newSimulator() *Simulator {
	return NewSimulator(Config{}, nil)
}

func TestInitialImpactEarthquakeOnPower(t *testing.T) {
	// Earthquake at severity 0.9 hitting the grid: 0.9 * 0.95 = 0.855.
	got := InitialImpact(graph.DisasterEarthquake, 0.9, graph.NodeTypePower)
	want := 0.9 * 0.95
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("InitialImpact = %v, want %v", got, want)
	}
}

func TestInitialImpactDefaults(t *testing.T) {
	// Unmapped pairs fall back to the default multiplier.
	if got := ImpactMultiplier(graph.DisasterLandslide, graph.NodeTypePower); got != DefaultImpactMultiplier {
		t.Errorf("landslide/power multiplier = %v, want default", got)
	}
	if got := ImpactMultiplier("", graph.NodeTypeTelecom); got != DefaultImpactMultiplier {
		t.Errorf("no-disaster multiplier = %v, want default", got)
	}
	if got := ImpactMultiplier(graph.DisasterFlood, graph.NodeTypeTransport); got != DefaultImpactMultiplier {
		t.Errorf("flood/transport multiplier = %v, want default", got)
	}

	// Severity saturates at 1.
	if got := InitialImpact(graph.DisasterEarthquake, 1.0, graph.NodeTypePower); got != 0.95 {
		t.Errorf("InitialImpact(1.0) = %v, want 0.95", got)
	}
}

func TestRunOriginRiskScenario(t *testing.T) {
	s := graph.NewStore()
	addNode(t, s, "power_1", graph.NodeTypePower)

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "power_1",
		FailureMode:   graph.FailureStructuralDamage,
		DisasterType:  graph.DisasterEarthquake,
		Severity:      0.9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := 0.9 * 0.95
	if math.Abs(pred.RiskFor("power_1")-want) > 1e-12 {
		t.Errorf("origin risk = %v, want %v", pred.RiskFor("power_1"), want)
	}
	if len(pred.AffectedNodes) != 1 || pred.AffectedNodes[0] != "power_1" {
		t.Errorf("AffectedNodes = %v", pred.AffectedNodes)
	}
	if pred.Timeline[0].Event != EventInitialFailure {
		t.Errorf("first event = %q, want %q", pred.Timeline[0].Event, EventInitialFailure)
	}
}

func TestRunSingleHopScenario(t *testing.T) {
	// Earthquake risk crossing a 0.80 edge into default-resilience telecom:
	// 0.855 * 0.80 * 1.1 * (1 - 0.5*0.3).
	s := graph.NewStore()
	addNode(t, s, "power_1", graph.NodeTypePower)
	addNode(t, s, "telecom_1", graph.NodeTypeTelecom)
	addEdge(t, s, "power_1", "telecom_1", 0.80)

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "power_1",
		FailureMode:   graph.FailureStructuralDamage,
		DisasterType:  graph.DisasterEarthquake,
		Severity:      0.9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	origin := 0.9 * 0.95
	want := origin * 0.80 * 1.1 * (1 - 0.5*0.3)
	got := pred.RiskFor("telecom_1")
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("telecom risk = %v, want %v (~0.639)", got, want)
	}
	if math.Abs(want-0.639) > 0.001 {
		t.Fatalf("expected value drifted from 0.639: %v", want)
	}

	if len(pred.AffectedNodes) != 2 {
		t.Fatalf("AffectedNodes = %v, want both nodes", pred.AffectedNodes)
	}
	if pred.AffectedNodes[0] != "power_1" || pred.AffectedNodes[1] != "telecom_1" {
		t.Errorf("affected order = %v", pred.AffectedNodes)
	}
}

func TestRunCyclePairTerminates(t *testing.T) {
	// Reciprocal dependency: the grid powers the hospital, the hospital
	// sheds load back onto the grid. The return edge must never raise or
	// lower the settled origin.
	s := graph.NewStore()
	addNode(t, s, "power_grid_1", graph.NodeTypePower)
	addNode(t, s, "hospital_1", graph.NodeTypeHealthcare)
	addEdge(t, s, "power_grid_1", "hospital_1", 0.95)
	addEdge(t, s, "hospital_1", "power_grid_1", 0.30)

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "power_grid_1",
		FailureMode:   graph.FailureStructuralDamage,
		DisasterType:  graph.DisasterEarthquake,
		Severity:      0.9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	originWant := 0.9 * 0.95
	if math.Abs(pred.RiskFor("power_grid_1")-originWant) > 1e-12 {
		t.Errorf("origin risk = %v, want untouched %v", pred.RiskFor("power_grid_1"), originWant)
	}

	hospitalWant := originWant * 0.95 * 1.1 * (1 - 0.5*0.3)
	if math.Abs(pred.RiskFor("hospital_1")-hospitalWant) > 1e-9 {
		t.Errorf("hospital risk = %v, want %v", pred.RiskFor("hospital_1"), hospitalWant)
	}

	// Origin settled at step 0, hospital at step 1, nothing beyond.
	for _, ev := range pred.Timeline {
		if ev.Step > 1 {
			t.Errorf("unexpected event at step %d: %+v", ev.Step, ev)
		}
	}
}

func TestRunValidation(t *testing.T) {
	s := graph.NewStore()
	addNode(t, s, "power_1", graph.NodeTypePower)
	view := s.Snapshot()
	sim := newSimulator()

	t.Run("unknown failure mode", func(t *testing.T) {
		_, err := sim.Run(view, Input{InitialNodeID: "power_1", FailureMode: "gremlins", Severity: 0.5})
		if !errors.Is(err, graph.ErrInvalidFailureMode) {
			t.Errorf("expected ErrInvalidFailureMode, got %v", err)
		}
	})

	t.Run("unknown disaster type", func(t *testing.T) {
		_, err := sim.Run(view, Input{InitialNodeID: "power_1", FailureMode: graph.FailureOverload, DisasterType: "meteor", Severity: 0.5})
		if !errors.Is(err, graph.ErrInvalidDisasterType) {
			t.Errorf("expected ErrInvalidDisasterType, got %v", err)
		}
	})

	t.Run("severity out of range", func(t *testing.T) {
		_, err := sim.Run(view, Input{InitialNodeID: "power_1", FailureMode: graph.FailureOverload, Severity: 1.5})
		if !errors.Is(err, graph.ErrSeverityOutOfRange) {
			t.Errorf("expected ErrSeverityOutOfRange, got %v", err)
		}
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := sim.Run(view, Input{InitialNodeID: "nonexistent_node", FailureMode: graph.FailureOverload, Severity: 0.5})
		if !graph.IsNotFound(err) {
			t.Errorf("expected not-found, got %v", err)
		}
	})
}

func TestModeAmplifierRaisesPropagation(t *testing.T) {
	s := graph.NewStore()
	addNode(t, s, "power_1", graph.NodeTypePower)
	addNode(t, s, "telecom_1", graph.NodeTypeTelecom)
	addEdge(t, s, "power_1", "telecom_1", 0.8)
	view := s.Snapshot()
	sim := newSimulator()

	baseline, err := sim.Run(view, Input{InitialNodeID: "power_1", FailureMode: graph.FailureStructuralDamage, Severity: 0.9})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	overload, err := sim.Run(view, Input{InitialNodeID: "power_1", FailureMode: graph.FailureOverload, Severity: 0.9})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if overload.RiskFor("telecom_1") <= baseline.RiskFor("telecom_1") {
		t.Errorf("overload run should amplify propagation: %v vs %v",
			overload.RiskFor("telecom_1"), baseline.RiskFor("telecom_1"))
	}
}

func TestRunRiskClampedAtOne(t *testing.T) {
	// Flood surging from water into the grid under overload stacks a 1.2
	// disaster modifier with a 1.2 mode amplifier; risk must still cap.
	s := graph.NewStore()
	for _, spec := range []struct {
		id       string
		nodeType graph.NodeType
	}{
		{"water_1", graph.NodeTypeWater},
		{"power_1", graph.NodeTypePower},
	} {
		if err := s.AddNode(graph.Node{
			ID: spec.id, Name: spec.id, Type: spec.nodeType,
			Location: graph.Location{Lat: 19, Lon: 72.8}, Capacity: 100, CurrentLoad: 90,
			HealthScore: 0.9, RedundancyLevel: 2, RepairTimeHours: 8, CriticalityScore: 0.9,
			Resilience: 0.01,
		}); err != nil {
			t.Fatalf("AddNode(%s): %v", spec.id, err)
		}
	}
	if err := s.AddEdge(graph.Edge{Source: "water_1", Target: "power_1", Weight: 1.0, DistanceKm: 1}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "water_1",
		FailureMode:   graph.FailureOverload,
		DisasterType:  graph.DisasterFlood,
		Severity:      1.0,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 0.70 * 1.0 * (1.2 * 1.2) * (1 - 0.01*0.3) exceeds one before the cap.
	if got := pred.RiskFor("power_1"); got != 1 {
		t.Errorf("power risk = %v, want clamp to 1", got)
	}
	for id, risk := range pred.NodeRisks {
		if risk < 0 || risk > 1 {
			t.Errorf("risk for %s = %v, outside [0,1]", id, risk)
		}
	}
}

func TestRunTimelineOrdering(t *testing.T) {
	s, err := graph.NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "power_main_mumbai",
		FailureMode:   graph.FailureStructuralDamage,
		DisasterType:  graph.DisasterEarthquake,
		Severity:      0.9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pred.Timeline) < 4 {
		t.Fatalf("expected a multi-node cascade, got %d events", len(pred.Timeline))
	}
	for i := 1; i < len(pred.Timeline); i++ {
		prev, cur := pred.Timeline[i-1], pred.Timeline[i]
		if cur.Step < prev.Step {
			t.Errorf("timeline out of step order at %d: %+v after %+v", i, cur, prev)
		}
		if cur.Step == prev.Step && cur.TimeMinutes < prev.TimeMinutes {
			t.Errorf("timeline out of time order at %d", i)
		}
	}

	// Every cascade event names the parent that set its risk.
	for _, ev := range pred.Timeline {
		if ev.Event == EventCascadeFailure && ev.SourceID == "" {
			t.Errorf("cascade event without source: %+v", ev)
		}
	}
}

func TestRunSeedCascadeShape(t *testing.T) {
	s, err := graph.NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	pred, err := newSimulator().Run(s.Snapshot(), Input{
		InitialNodeID: "power_main_mumbai",
		FailureMode:   graph.FailureStructuralDamage,
		DisasterType:  graph.DisasterEarthquake,
		Severity:      0.9,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Direct dependents of the main station must be swept in.
	for _, id := range []string{"telecom_main_mumbai", "water_main_mumbai", "hospital_main", "comm_control"} {
		if pred.RiskFor(id) <= 0 {
			t.Errorf("%s unaffected by main station earthquake", id)
		}
	}

	if pred.CascadeProbability <= 0 || pred.CascadeProbability > 1 {
		t.Errorf("CascadeProbability = %v", pred.CascadeProbability)
	}
	if pred.PredictedRadiusKm <= 0 {
		t.Errorf("PredictedRadiusKm = %v, want positive spread", pred.PredictedRadiusKm)
	}
	if pred.TotalImpactScore <= 0 {
		t.Errorf("TotalImpactScore = %v", pred.TotalImpactScore)
	}
	if pred.MaxRisk != pred.RiskFor("power_main_mumbai") {
		t.Errorf("MaxRisk = %v, want origin risk %v", pred.MaxRisk, pred.RiskFor("power_main_mumbai"))
	}
	if pred.Confidence != DefaultConfidence {
		t.Errorf("Confidence = %v, want %v", pred.Confidence, DefaultConfidence)
	}
	if pred.ID == "" || pred.Timestamp.IsZero() {
		t.Error("prediction missing identity fields")
	}
}

func TestVirtualOriginOverlay(t *testing.T) {
	s, err := graph.NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}
	base := s.Snapshot()
	baseLen := base.Len()

	loc := graph.Location{Lat: 21.0, Lon: 75.0}
	overlay := WithVirtualOrigin(base, loc)

	if overlay.Len() != baseLen+1 {
		t.Fatalf("overlay length = %d, want %d", overlay.Len(), baseLen+1)
	}
	if base.Len() != baseLen {
		t.Error("overlay construction mutated the base view")
	}
	if _, ok := base.NodeIndex(VirtualOriginID); ok {
		t.Error("virtual origin leaked into the base view")
	}
	if s.HasNode(VirtualOriginID) {
		t.Error("virtual origin leaked into the shared store")
	}

	idx, ok := overlay.NodeIndex(VirtualOriginID)
	if !ok {
		t.Fatal("virtual origin missing from overlay")
	}
	if len(overlay.Out[idx]) != baseLen {
		t.Errorf("virtual origin out-degree = %d, want %d", len(overlay.Out[idx]), baseLen)
	}

	pred, err := newSimulator().Run(overlay, Input{
		InitialNodeID: VirtualOriginID,
		FailureMode:   graph.FailureWeatherDamage,
		DisasterType:  graph.DisasterCyclone,
		Severity:      0.8,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pred.AffectedNodes) < 2 {
		t.Errorf("virtual origin cascade affected %d nodes", len(pred.AffectedNodes))
	}
}

func TestPredictionIDFormat(t *testing.T) {
	id := NewPredictionID()
	if len(id) != len("pred_")+12 {
		t.Errorf("prediction ID %q has unexpected length", id)
	}
	if id[:5] != "pred_" {
		t.Errorf("prediction ID %q missing prefix", id)
	}
}
