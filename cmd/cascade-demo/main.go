// Package main runs a cascade failure scenario against a metro
// infrastructure network. The default run strikes an earthquake near the
// Mumbai city center and walks through every stage of the engine:
// propagation, risk assessment, criticality ranking, stabilization
// strategies, and a surveillance pass.
//
// A custom disaster can be supplied with -disaster/-severity/-lat/-lon,
// or a single facility failure with -node/-mode. An additional topology
// file layers extra facilities over the built-in network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dd0wney/cluso-cascade/pkg/engine"
	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
	"github.com/dd0wney/cluso-cascade/pkg/strategy"
	"github.com/dd0wney/cluso-cascade/pkg/validation"
)

const banner = "========================================================================="

func main() {
	var (
		configPath = flag.String("config", "", "engine config file (YAML)")
		topology   = flag.String("topology", "", "extra topology file layered over the seed network")
		disaster   = flag.String("disaster", "earthquake", "disaster type: flood, fire, earthquake, cyclone, landslide")
		severity   = flag.Float64("severity", 0.85, "disaster severity in [0,1]")
		lat        = flag.Float64("lat", 19.0760, "disaster latitude")
		lon        = flag.Float64("lon", 72.8777, "disaster longitude")
		node       = flag.String("node", "", "predict a single facility failure instead of a disaster")
		mode       = flag.String("mode", "overload", "failure mode for -node")
	)
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *topology != "" {
		cfg.Topology.File = *topology
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	eng, err := engine.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer eng.Close()

	ctx := context.Background()

	fmt.Println()
	fmt.Println(banner)
	fmt.Println(" Infrastructure Cascade Prediction")
	fmt.Println(banner)
	fmt.Println()

	printNetworkOverview(eng)

	if *node != "" {
		runNodeScenario(ctx, eng, *node, *mode)
	} else {
		runDisasterScenario(ctx, eng, *disaster, *severity, *lat, *lon)
	}

	printCriticalNodes(eng)
	printStrategies(eng)
	runSurveillancePass(ctx, eng)
	printSystemMetrics(eng)

	fmt.Println(banner)
	fmt.Println(" Analysis Complete")
	fmt.Println(banner)
	fmt.Println()
}

// printNetworkOverview summarizes the loaded network before anything fails.
func printNetworkOverview(eng *engine.Engine) {
	m := eng.GetSystemMetrics()
	fmt.Printf(" Network model: %d facilities, %d dependencies\n", m.TotalNodes, m.TotalDependencies)
	fmt.Printf(" Average health %.2f, average load %.1f%%\n",
		m.SystemHealth.AverageHealthScore, m.SystemHealth.AverageLoadPercentage)
	fmt.Println()
}

// runNodeScenario predicts the cascade from a single failing facility.
func runNodeScenario(ctx context.Context, eng *engine.Engine, nodeID, modeStr string) {
	failureMode, err := graph.ParseFailureMode(modeStr)
	if err != nil {
		log.Fatalf("Invalid failure mode %q: %v", modeStr, err)
	}

	fmt.Println(banner)
	fmt.Printf(" PHASE 1: Cascade Prediction (%s at %s)\n", failureMode, nodeID)
	fmt.Println(banner)
	fmt.Println()

	pred, err := eng.PredictCascade(ctx, nodeID, failureMode)
	if err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}
	printPrediction(pred)
}

// runDisasterScenario assesses a geographic disaster against the network.
func runDisasterScenario(ctx context.Context, eng *engine.Engine, disasterStr string, severity, lat, lon float64) {
	req := validation.DisasterRequest{Type: disasterStr, Severity: severity, Lat: lat, Lon: lon}
	if err := validation.ValidateDisasterRequest(&req); err != nil {
		log.Fatalf("Invalid disaster request: %v", err)
	}

	fmt.Println(banner)
	fmt.Printf(" PHASE 1: Disaster Assessment (%s, severity %.2f, at %.4f/%.4f)\n",
		disasterStr, severity, lat, lon)
	fmt.Println(banner)
	fmt.Println()

	assessment, err := eng.AnalyzeCascadingRisk(ctx, engine.DisasterTrigger{
		Type:     graph.DisasterType(req.Type),
		Severity: req.Severity,
		Location: graph.Location{Lat: req.Lat, Lon: req.Lon},
	})
	if err != nil {
		log.Fatalf("Assessment failed: %v", err)
	}

	origin := assessment.InitialDisaster.OriginNodeID
	if assessment.InitialDisaster.VirtualOrigin {
		fmt.Printf(" Disaster struck away from every known facility; modeling a\n")
		fmt.Printf(" transient disaster zone radiating into the network.\n")
	} else {
		fmt.Printf(" Disaster resolved to nearest facility: %s\n", origin)
	}
	fmt.Printf(" Max risk: %.3f    Prediction: %s\n", assessment.MaxRisk, assessment.PredictionID)
	fmt.Println()

	fmt.Println(" --- Facilities by risk ---")
	printed := 0
	for _, row := range assessment.Graph.Nodes {
		if !row.InPropagationPath {
			continue
		}
		fmt.Printf("  %-24s %-12s risk %.3f  [%s]\n", row.ID, row.Type, row.Risk, row.RiskLevel)
		printed++
	}
	if printed == 0 {
		fmt.Println("  No facilities were reached by the cascade.")
	}
	fmt.Println()

	if len(assessment.CriticalNodes) > 0 {
		fmt.Printf(" Facilities at critical risk: %s\n", strings.Join(assessment.CriticalNodes, ", "))
		fmt.Println()
	}

	printTimeline(assessment.Timeline)
}

// printPrediction reports one propagation result in full.
func printPrediction(pred *simulation.Prediction) {
	fmt.Printf(" Prediction %s\n", pred.ID)
	fmt.Printf("  Cascade probability:  %.3f\n", pred.CascadeProbability)
	fmt.Printf("  Max risk:             %.3f\n", pred.MaxRisk)
	fmt.Printf("  Total impact score:   %.3f\n", pred.TotalImpactScore)
	fmt.Printf("  Predicted radius:     %.1f km\n", pred.PredictedRadiusKm)
	fmt.Printf("  Confidence:           %.2f\n", pred.Confidence)
	fmt.Printf("  Affected facilities:  %d\n", len(pred.AffectedNodes))
	fmt.Println()
	printTimeline(pred.Timeline)
}

// printTimeline lists cascade events in propagation order.
func printTimeline(events []simulation.TimelineEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Println(" --- Cascade timeline ---")
	for _, ev := range events {
		via := ""
		if ev.SourceID != "" {
			via = " via " + ev.SourceID
		}
		fmt.Printf("  t+%3dm  step %d  %-16s %-24s risk %.3f%s\n",
			ev.TimeMinutes, ev.Step, ev.Event, ev.NodeID, ev.Risk, via)
	}
	fmt.Println()
}

// printCriticalNodes shows the stabilization priority ranking.
func printCriticalNodes(eng *engine.Engine) {
	fmt.Println(banner)
	fmt.Println(" PHASE 2: Criticality Ranking")
	fmt.Println(banner)
	fmt.Println()

	critical := eng.GetCriticalNodes(5)
	if len(critical) == 0 {
		fmt.Println(" No facilities to rank.")
		fmt.Println()
		return
	}

	for i, c := range critical {
		fmt.Printf("  %d. %-24s priority %.3f  (centrality %.2f, cascade %.2f, vulnerability %.2f)\n",
			i+1, c.NodeID, c.StabilizationPriority,
			c.CentralityScore, c.CascadeContributionScore, c.VulnerabilityScore)
		for _, action := range c.RecommendedActions {
			fmt.Printf("       - %s\n", action)
		}
	}
	fmt.Println()
}

// printStrategies shows retained stabilization strategies, best first.
func printStrategies(eng *engine.Engine) {
	fmt.Println(banner)
	fmt.Println(" PHASE 3: Stabilization Strategies")
	fmt.Println(banner)
	fmt.Println()

	strategies := eng.GetPreStabilizationStrategies(5)
	if len(strategies) == 0 {
		fmt.Println(" No strategies generated: the cascade stayed below the probability gate.")
		fmt.Println()
		return
	}

	for i, s := range strategies {
		fmt.Printf("  %d. Strategy %s (priority %.1f)\n", i+1, s.ID, s.PriorityScore)
		fmt.Printf("     Expected cascade reduction %.0f%%, cost %.0f, ready in %d minutes\n",
			s.ExpectedCascadeReduction*100, s.ImplementationCost, s.ImplementationTimeMinutes)
		for _, a := range s.Actions {
			fmt.Printf("     - %s\n", describeAction(a))
		}
	}
	fmt.Println()
}

func describeAction(a strategy.Action) string {
	switch a.ActionType {
	case strategy.ActionLoadReduction:
		return fmt.Sprintf("reduce load by %.0f%% on %s",
			a.ReductionPercentage, strings.Join(a.TargetNodes, ", "))
	case strategy.ActionBackupActivation:
		return fmt.Sprintf("activate %d backup systems for %s",
			a.BackupSystems, strings.Join(a.TargetNodes, ", "))
	case strategy.ActionDependencyStrengthening:
		return fmt.Sprintf("strengthen dependencies by %.0f%%: %s",
			(a.StrengtheningFactor-1)*100, strings.Join(a.TargetEdges, ", "))
	default:
		return a.ActionType
	}
}

// runSurveillancePass executes one monitoring scan and reports flags.
func runSurveillancePass(ctx context.Context, eng *engine.Engine) {
	fmt.Println(banner)
	fmt.Println(" PHASE 4: Surveillance Pass")
	fmt.Println(banner)
	fmt.Println()

	report := eng.RunMonitorTick(ctx)
	fmt.Printf(" Scanned %d facilities, flagged %d, predicted %d\n",
		report.Scanned, len(report.Flagged), report.Predicted)
	for _, f := range report.Flagged {
		fmt.Printf("  ! %-24s %-20s health %.2f, load %.0f%%\n",
			f.NodeID, f.Mode, f.HealthScore, f.LoadRatio*100)
	}
	fmt.Println()
}

// printSystemMetrics reports the final engine-wide status.
func printSystemMetrics(eng *engine.Engine) {
	m := eng.GetSystemMetrics()
	fmt.Println(" --- System metrics ---")
	fmt.Printf("  Facilities:          %d\n", m.TotalNodes)
	fmt.Printf("  Dependencies:        %d\n", m.TotalDependencies)
	fmt.Printf("  Active predictions:  %d\n", m.ActivePredictions)
	fmt.Printf("  Critical facilities: %d\n", m.CriticalNodesCount)
	fmt.Printf("  Strategies ready:    %d\n", m.AvailableStrategies)
	fmt.Printf("  High-risk now:       %d\n", m.SystemHealth.HighRiskNodes)
	fmt.Printf("  Average health:      %.2f\n", m.SystemHealth.AverageHealthScore)
	fmt.Println()
}
