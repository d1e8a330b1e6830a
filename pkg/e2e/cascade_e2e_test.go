package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-cascade/pkg/engine"
	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/monitor"
	"github.com/dd0wney/cluso-cascade/pkg/pubsub"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
	"github.com/dd0wney/cluso-cascade/pkg/strategy"
)

func receiveEvent(t *testing.T, sub *pubsub.Subscription) pubsub.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed before event arrived")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s event", sub.Topic())
		return pubsub.Event{}
	}
}

// TestCompleteOperatorWorkflow walks the full operator journey over the
// seed network: extend the topology, trigger a manual prediction, run
// near and far disaster assessments, review criticality rankings and
// stabilization strategies, replay history, and finish with a
// surveillance pass.
func TestCompleteOperatorWorkflow(t *testing.T) {
	eng, err := engine.New(engine.DefaultConfig(), nil)
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()

	t.Log("=== E2E Test: Complete Operator Workflow ===")

	// Step 1: the seed network is loaded and healthy.
	t.Log("Step 1: Inspecting seed network...")
	m := eng.GetSystemMetrics()
	require.Equal(t, 18, m.TotalNodes)
	require.Equal(t, 21, m.TotalDependencies)
	assert.Zero(t, m.ActivePredictions)
	assert.Zero(t, m.SystemHealth.HighRiskNodes)
	assert.InDelta(t, 0.9, m.SystemHealth.AverageHealthScore, 1e-9)
	assert.InDelta(t, 55.0, m.SystemHealth.AverageLoadPercentage, 1e-9)
	t.Logf("✓ Seed network: %d facilities, %d dependencies", m.TotalNodes, m.TotalDependencies)

	// Step 2: extend the grid with two interconnects.
	t.Log("Step 2: Registering new dependencies...")
	require.NoError(t, eng.Store().AddEdge(graph.Edge{
		Source: "power_main_mumbai", Target: "power_industrial",
		DependencyType: "grid_interconnect",
		Weight:         0.75, RecoveryDependency: 0.6, DistanceKm: 12,
	}))
	require.NoError(t, eng.Store().AddEdge(graph.Edge{
		Source: "comm_control", Target: "comm_backup",
		DependencyType: "state_sync",
		Weight:         0.8, RecoveryDependency: 0.7, DistanceKm: 15,
	}))
	require.Equal(t, 23, eng.Store().EdgeCount())
	t.Log("✓ Grid interconnect and control-center sync registered")

	// Step 3: subscribe before triggering anything.
	predSub, err := eng.Bus().Subscribe(ctx, pubsub.TopicPredictions)
	require.NoError(t, err)
	defer predSub.Unsubscribe()
	stratSub, err := eng.Bus().Subscribe(ctx, pubsub.TopicStrategies)
	require.NoError(t, err)

	// Step 4: manual prediction from the main power station.
	t.Log("Step 4: Predicting overload cascade from power_main_mumbai...")
	pred, err := eng.PredictCascade(ctx, "power_main_mumbai", graph.FailureOverload)
	require.NoError(t, err)
	require.Len(t, pred.AffectedNodes, 11)
	assert.Equal(t, "power_main_mumbai", pred.AffectedNodes[0])
	assert.InDelta(t, 0.8169444444, pred.CascadeProbability, 1e-6)
	assert.InDelta(t, 0.4125, pred.MaxRisk, 1e-9)
	assert.InDelta(t, 0.4125, pred.RiskFor("power_main_mumbai"), 1e-9)
	assert.Equal(t, graph.FailureOverload, pred.FailureMode)
	t.Logf("✓ Cascade reaches %d facilities, probability %.3f", len(pred.AffectedNodes), pred.CascadeProbability)

	ev := receiveEvent(t, predSub)
	published, ok := ev.Payload.(*simulation.Prediction)
	require.True(t, ok, "predictions topic carried %T", ev.Payload)
	assert.Equal(t, pred.ID, published.ID)

	ev = receiveEvent(t, stratSub)
	batch, ok := ev.Payload.([]strategy.Strategy)
	require.True(t, ok, "strategies topic carried %T", ev.Payload)
	require.NotEmpty(t, batch)
	assert.Equal(t, pred.ID, batch[0].PredictionID)
	stratSub.Unsubscribe()
	t.Logf("✓ Prediction and %d strategies published on the bus", len(batch))

	// Step 5: earthquake at the main power station's doorstep.
	t.Log("Step 5: Assessing earthquake at the city center...")
	near, err := eng.AnalyzeCascadingRisk(ctx, engine.DisasterTrigger{
		Type:     graph.DisasterEarthquake,
		Severity: 0.9,
		Location: graph.Location{Lat: 19.0760, Lon: 72.8777},
	})
	require.NoError(t, err)
	assert.False(t, near.InitialDisaster.VirtualOrigin)
	assert.Equal(t, "power_main_mumbai", near.InitialDisaster.OriginNodeID)
	assert.InDelta(t, 0.855, near.MaxRisk, 1e-9)
	assert.Equal(t, []string{"power_main_mumbai"}, near.CriticalNodes)
	assert.Len(t, near.Graph.Nodes, 18)
	assert.Len(t, near.Graph.Edges, 23)
	assert.Len(t, near.PropagationPath, 11)
	assert.Equal(t, "power_main_mumbai", near.PropagationPath[0])
	receiveEvent(t, predSub)
	t.Logf("✓ Max risk %.3f, %d facilities on the propagation path", near.MaxRisk, len(near.PropagationPath))

	// Step 6: flood far outside the metro resolves to a virtual origin.
	t.Log("Step 6: Assessing distant flood...")
	far, err := eng.AnalyzeCascadingRisk(ctx, engine.DisasterTrigger{
		Type:     graph.DisasterFlood,
		Severity: 0.8,
		Location: graph.Location{Lat: 20.5, Lon: 73.9},
	})
	require.NoError(t, err)
	assert.True(t, far.InitialDisaster.VirtualOrigin)
	assert.Equal(t, simulation.VirtualOriginID, far.InitialDisaster.OriginNodeID)
	assert.InDelta(t, 0.6, far.MaxRisk, 1e-9)
	assert.Empty(t, far.CriticalNodes)
	assert.Len(t, far.Graph.Nodes, 18)
	assert.Len(t, far.PropagationPath, 18)
	assert.NotContains(t, far.PropagationPath, simulation.VirtualOriginID)
	assert.Len(t, far.Timeline, 19)
	farPred := receiveEvent(t, predSub)
	assert.Equal(t, far.PredictionID, farPred.Payload.(*simulation.Prediction).ID)
	t.Log("✓ Distant flood modeled through a transient disaster zone")

	// Step 7: criticality ranking.
	t.Log("Step 7: Reviewing criticality ranking...")
	critical := eng.GetCriticalNodes(5)
	require.Len(t, critical, 5)
	for i := 1; i < len(critical); i++ {
		assert.GreaterOrEqual(t, critical[i-1].StabilizationPriority, critical[i].StabilizationPriority)
	}
	for _, c := range critical {
		assert.NotEmpty(t, c.NodeID)
		assert.NotEmpty(t, c.RecommendedActions)
	}
	t.Logf("✓ Top critical facility: %s (priority %.3f)", critical[0].NodeID, critical[0].StabilizationPriority)

	// Step 8: stabilization strategies survive in the catalog.
	t.Log("Step 8: Reviewing stabilization strategies...")
	strategies := eng.GetPreStabilizationStrategies(10)
	require.NotEmpty(t, strategies)
	for i := 1; i < len(strategies); i++ {
		assert.GreaterOrEqual(t, strategies[i-1].PriorityScore, strategies[i].PriorityScore)
	}
	got, found := eng.StrategyByID(strategies[0].ID)
	require.True(t, found)
	assert.Equal(t, strategies[0].ID, got.ID)
	assert.NotEmpty(t, got.TargetNodes)
	assert.NotEmpty(t, got.Actions)
	t.Logf("✓ %d strategies retained, top priority %.2f", len(strategies), strategies[0].PriorityScore)

	// Step 9: history replays newest first.
	t.Log("Step 9: Replaying prediction history...")
	recent := eng.PredictionHistory(10)
	require.Len(t, recent, 3)
	assert.Equal(t, far.PredictionID, recent[0].ID)
	assert.Equal(t, near.PredictionID, recent[1].ID)
	assert.Equal(t, pred.ID, recent[2].ID)

	latest, found := eng.LatestPredictionFor("power_main_mumbai")
	require.True(t, found)
	assert.Equal(t, near.PredictionID, latest.ID)
	_, found = eng.LatestPredictionFor("telecom_west")
	assert.False(t, found)
	t.Log("✓ History ordered newest first")

	// Step 10: system metrics reflect everything so far.
	t.Log("Step 10: Checking system metrics...")
	m = eng.GetSystemMetrics()
	assert.Equal(t, 3, m.ActivePredictions)
	assert.Equal(t, 23, m.TotalDependencies)
	assert.GreaterOrEqual(t, m.AvailableStrategies, 1)
	assert.Zero(t, m.SystemHealth.HighRiskNodes)
	t.Logf("✓ %d predictions retained, %d strategies available", m.ActivePredictions, m.AvailableStrategies)

	// Step 11: a degraded facility is flagged and predicted on the next
	// surveillance pass.
	t.Log("Step 11: Running surveillance pass over a degraded facility...")
	flagSub, err := eng.Bus().Subscribe(ctx, pubsub.TopicFlaggedNodes)
	require.NoError(t, err)
	defer flagSub.Unsubscribe()

	require.NoError(t, eng.Store().UpdateVitals("power_suburban_2", 0.25, 275))
	report := eng.RunMonitorTick(ctx)
	assert.Equal(t, 18, report.Scanned)
	require.Len(t, report.Flagged, 1)
	assert.Equal(t, "power_suburban_2", report.Flagged[0].NodeID)
	assert.Equal(t, graph.FailureEquipment, report.Flagged[0].Mode)
	assert.Equal(t, 1, report.Predicted)
	assert.Zero(t, report.Failed)

	flagEv := receiveEvent(t, flagSub)
	flagged, ok := flagEv.Payload.(monitor.FlaggedNode)
	require.True(t, ok, "flagged topic carried %T", flagEv.Payload)
	assert.Equal(t, "power_suburban_2", flagged.NodeID)
	receiveEvent(t, predSub)

	require.Len(t, eng.PredictionHistory(10), 4)
	t.Log("✓ Degraded facility flagged, predicted, and recorded")
}
