// Package engine composes the cascade predictor: the dependency graph,
// the propagation simulator, criticality analysis, strategy generation,
// bounded history, the monitoring loop, and the event bus, behind one
// facade. Commands and tests talk to an Engine; everything underneath
// stays swappable.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/analysis"
	"github.com/dd0wney/cluso-cascade/pkg/archive"
	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/history"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/metrics"
	"github.com/dd0wney/cluso-cascade/pkg/monitor"
	"github.com/dd0wney/cluso-cascade/pkg/pubsub"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
	"github.com/dd0wney/cluso-cascade/pkg/strategy"
)

// criticalPriorityGate is the stabilization priority above which a node
// counts as critical in system metrics.
const criticalPriorityGate = 0.7

// influxPingTimeout bounds the reachability probe at startup.
const influxPingTimeout = 3 * time.Second

// Engine is the composed cascade prediction system.
type Engine struct {
	cfg       Config
	store     *graph.Store
	simulator *simulation.Simulator
	analyzer  *analysis.Analyzer
	generator *strategy.Generator
	history   *history.History
	monitor   *monitor.Monitor
	bus       *pubsub.Bus
	metrics   *metrics.Registry
	logger    logging.Logger
	influx    *history.InfluxRecorder
	archive   *archive.Archiver
	startedAt time.Time

	// lastRisk is the per-node risk of the most recent run, replaced
	// wholesale each time a prediction is accepted.
	riskMu   sync.RWMutex
	lastRisk map[string]float64
}

// New builds an engine from the configuration. Collaborators apply their
// own defaults, so a zero Config yields a working engine over an empty
// graph. The monitor loop starts immediately when enabled.
func New(cfg Config, logger logging.Logger) (*Engine, error) {
	logger = logging.OrNop(logger)

	store := graph.NewStore()
	if cfg.Topology.Seed {
		if err := graph.LoadSeedTopology(store); err != nil {
			return nil, err
		}
	}
	if cfg.Topology.File != "" {
		if err := LoadTopologyFile(store, cfg.Topology.File); err != nil {
			return nil, err
		}
	}

	registry := metrics.NewRegistry()
	analyzer := analysis.NewAnalyzer(store, analysis.Config{
		RefreshInterval: cfg.Analysis.RefreshInterval.Std(),
	}, logger)

	e := &Engine{
		cfg:   cfg,
		store: store,
		simulator: simulation.NewSimulator(simulation.Config{
			StepCap:    cfg.Simulation.StepCap,
			Confidence: cfg.Simulation.Confidence,
		}, logger),
		analyzer: analyzer,
		generator: strategy.NewGenerator(store, analyzer, strategy.Config{
			CatalogCapacity: cfg.Strategy.CatalogCapacity,
		}, logger),
		bus:       pubsub.NewBus(),
		metrics:   registry,
		logger:    logger,
		startedAt: time.Now(),
		lastRisk:  map[string]float64{},
	}

	var recorders []history.Recorder
	if cfg.Influx.Enabled {
		e.influx = history.NewInfluxRecorder(cfg.Influx.InfluxConfig)
		pingCtx, cancel := context.WithTimeout(context.Background(), influxPingTimeout)
		if err := e.influx.Ping(pingCtx); err != nil {
			logger.Warn("influxdb unreachable, recording will retry per write",
				logging.Component("engine"),
				logging.Error(err))
		}
		cancel()
		recorders = append(recorders, e.influx)
	}
	if cfg.Archive.Enabled {
		arch, err := archive.New(cfg.Archive.Config, logger)
		if err != nil {
			return nil, err
		}
		e.archive = arch
		recorders = append(recorders, arch)
	}

	e.history = history.NewHistory(history.Config{
		Capacity: cfg.History.Capacity,
	}, history.MultiRecorder(recorders...), logger)

	monitorCfg := monitor.Config{
		Interval:           cfg.Monitor.Interval.Std(),
		HealthThreshold:    cfg.Monitor.HealthThreshold,
		LoadRatioThreshold: cfg.Monitor.LoadRatioThreshold,
		OnTick:             e.observeTick,
	}
	if e.influx != nil {
		monitorCfg.Sink = e.influx
	}
	seed := cfg.Monitor.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.monitor = monitor.NewMonitor(store, monitor.NewRandomSource(seed), e, monitorCfg, logger)

	if cfg.Monitor.Enabled {
		if err := e.monitor.Start(); err != nil {
			return nil, err
		}
	}

	e.refreshGraphStats()
	logger.Info("engine ready",
		logging.Component("engine"),
		logging.Int("nodes", store.NodeCount()),
		logging.Int("edges", store.EdgeCount()))
	return e, nil
}

// Store exposes the underlying graph for topology changes.
func (e *Engine) Store() *graph.Store {
	return e.store
}

// Bus exposes the event bus for subscribers such as the watch TUI.
func (e *Engine) Bus() *pubsub.Bus {
	return e.bus
}

// MetricsRegistry exposes the engine's Prometheus registry for scraping.
func (e *Engine) MetricsRegistry() *metrics.Registry {
	return e.metrics
}

// StartMonitoring starts the surveillance loop if it is not running.
func (e *Engine) StartMonitoring() error {
	return e.monitor.Start()
}

// StopMonitoring halts the surveillance loop.
func (e *Engine) StopMonitoring() error {
	return e.monitor.Stop()
}

// RunMonitorTick drives one surveillance pass synchronously.
func (e *Engine) RunMonitorTick(ctx context.Context) monitor.TickReport {
	return e.monitor.Tick(ctx)
}

// Close stops the monitor and releases every attached recorder.
func (e *Engine) Close() error {
	if err := e.monitor.Stop(); err != nil {
		return err
	}
	e.bus.Shutdown()
	if e.influx != nil {
		e.influx.Close()
	}
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			return err
		}
	}
	e.metrics.UpdateSystemStats(time.Since(e.startedAt))
	e.logger.Info("engine closed", logging.Component("engine"))
	return nil
}

// PredictCascade simulates the failure of one node under the given mode
// and records the resulting prediction. Severity comes from the node's
// current condition, so an already loaded or degraded facility cascades
// harder than a healthy one.
func (e *Engine) PredictCascade(ctx context.Context, nodeID string, mode graph.FailureMode) (*simulation.Prediction, error) {
	n, err := e.store.GetNode(nodeID)
	if err != nil {
		e.metrics.RecordPredictionError(metrics.TriggerManual)
		return nil, err
	}

	in := simulation.Input{
		InitialNodeID: nodeID,
		FailureMode:   mode,
		Severity:      conditionSeverity(&n),
	}
	return e.run(ctx, in, metrics.TriggerManual, e.store.Snapshot())
}

// PredictFlagged handles one node the monitor flagged: it announces the
// flag on the bus, then runs a condition-severity prediction for it.
func (e *Engine) PredictFlagged(ctx context.Context, nodeID string, mode graph.FailureMode) error {
	e.metrics.RecordFlaggedNode(string(mode))

	n, err := e.store.GetNode(nodeID)
	if err != nil {
		e.metrics.RecordPredictionError(metrics.TriggerMonitor)
		return err
	}

	e.bus.Publish(pubsub.TopicFlaggedNodes, monitor.FlaggedNode{
		NodeID:      nodeID,
		Mode:        mode,
		HealthScore: n.HealthScore,
		LoadRatio:   n.LoadRatio(),
	})

	in := simulation.Input{
		InitialNodeID: nodeID,
		FailureMode:   mode,
		Severity:      conditionSeverity(&n),
	}
	_, err = e.run(ctx, in, metrics.TriggerMonitor, e.store.Snapshot())
	return err
}

// run executes one propagation and accepts its prediction.
func (e *Engine) run(ctx context.Context, in simulation.Input, trigger string, view *graph.View) (*simulation.Prediction, error) {
	start := time.Now()
	pred, err := e.simulator.Run(view, in)
	if err != nil {
		e.metrics.RecordPredictionError(trigger)
		return nil, err
	}
	e.accept(ctx, pred, trigger, time.Since(start))
	return pred, nil
}

// accept records a completed prediction everywhere it goes: history and
// recorders, the strategy catalog, the last-risk cache, the bus, and the
// metrics registry.
func (e *Engine) accept(ctx context.Context, pred *simulation.Prediction, trigger string, elapsed time.Duration) {
	e.history.Append(ctx, pred)
	strategies := e.generator.FromPrediction(pred)

	risks := make(map[string]float64, len(pred.NodeRisks))
	for id, r := range pred.NodeRisks {
		if id == simulation.VirtualOriginID {
			continue
		}
		risks[id] = r
	}
	e.riskMu.Lock()
	e.lastRisk = risks
	e.riskMu.Unlock()

	e.bus.Publish(pubsub.TopicPredictions, pred)
	if len(strategies) > 0 {
		e.bus.Publish(pubsub.TopicStrategies, strategies)
		e.metrics.RecordStrategies(len(strategies))
	}

	e.metrics.RecordPrediction(trigger, elapsed, pred.CascadeProbability, len(pred.AffectedNodes))
	e.metrics.UpdateRetention(e.history.Len(), e.generator.Len())
	e.refreshGraphStats()
}

// GetCriticalNodes returns the highest-priority criticality analyses.
func (e *Engine) GetCriticalNodes(limit int) []analysis.Analysis {
	return e.analyzer.Top(limit)
}

// AnalysisFor returns one node's criticality analysis.
func (e *Engine) AnalysisFor(nodeID string) (analysis.Analysis, error) {
	return e.analyzer.For(nodeID)
}

// GetPreStabilizationStrategies returns the newest generated strategies,
// highest priority first.
func (e *Engine) GetPreStabilizationStrategies(limit int) []strategy.Strategy {
	return e.generator.Top(limit)
}

// StrategyByID looks one strategy up in the catalog.
func (e *Engine) StrategyByID(id string) (strategy.Strategy, bool) {
	return e.generator.Get(id)
}

// PredictionHistory returns the most recent predictions, newest first.
func (e *Engine) PredictionHistory(limit int) []*simulation.Prediction {
	return e.history.Recent(limit)
}

// LatestPredictionFor returns the newest prediction that started at the
// given node.
func (e *Engine) LatestPredictionFor(nodeID string) (*simulation.Prediction, bool) {
	return e.history.LatestFor(nodeID)
}

// ResetRisks clears the last-risk cache, returning every node to an
// unthreatened baseline until the next run.
func (e *Engine) ResetRisks() {
	e.riskMu.Lock()
	e.lastRisk = map[string]float64{}
	e.riskMu.Unlock()
	e.refreshGraphStats()
}

// SystemHealth aggregates current node vitals.
type SystemHealth struct {
	AverageHealthScore    float64 `json:"average_health_score"`
	AverageLoadPercentage float64 `json:"average_load_percentage"`
	HighRiskNodes         int     `json:"high_risk_nodes"`
}

// SystemMetrics is the engine-wide status summary.
type SystemMetrics struct {
	TotalNodes          int          `json:"total_nodes"`
	TotalDependencies   int          `json:"total_dependencies"`
	ActivePredictions   int          `json:"active_predictions"`
	CriticalNodesCount  int          `json:"critical_nodes_count"`
	AvailableStrategies int          `json:"available_strategies"`
	SystemHealth        SystemHealth `json:"system_health"`
	Timestamp           time.Time    `json:"timestamp"`
}

// GetSystemMetrics summarizes the engine: graph size, retention levels,
// critical node count, and aggregate health.
func (e *Engine) GetSystemMetrics() SystemMetrics {
	nodes := e.store.AllNodes()
	avgHealth, avgLoad := vitalsAverages(nodes)

	critical := 0
	for _, a := range e.analyzer.Analyses() {
		if a.StabilizationPriority > criticalPriorityGate {
			critical++
		}
	}

	m := SystemMetrics{
		TotalNodes:          len(nodes),
		TotalDependencies:   e.store.EdgeCount(),
		ActivePredictions:   e.history.Len(),
		CriticalNodesCount:  critical,
		AvailableStrategies: e.generator.Len(),
		SystemHealth: SystemHealth{
			AverageHealthScore:    avgHealth,
			AverageLoadPercentage: avgLoad * 100,
			HighRiskNodes:         e.highRiskCount(),
		},
		Timestamp: time.Now().UTC(),
	}

	e.metrics.UpdateSystemStats(time.Since(e.startedAt))
	return m
}

// highRiskCount counts nodes whose last-run risk reached the high band.
func (e *Engine) highRiskCount() int {
	e.riskMu.RLock()
	defer e.riskMu.RUnlock()

	count := 0
	for _, r := range e.lastRisk {
		if r >= graph.HighRisk {
			count++
		}
	}
	return count
}

// refreshGraphStats pushes current graph aggregates into the registry.
func (e *Engine) refreshGraphStats() {
	nodes := e.store.AllNodes()
	avgHealth, avgLoad := vitalsAverages(nodes)
	e.metrics.UpdateGraphStats(len(nodes), e.store.EdgeCount(), e.highRiskCount(), avgHealth, avgLoad)
}

// observeTick feeds each completed monitor pass into the registry.
func (e *Engine) observeTick(report monitor.TickReport, elapsed time.Duration) {
	e.metrics.RecordMonitorTick(elapsed)
	for i := 0; i < report.Failed; i++ {
		e.metrics.RecordMonitorPredictionFailure()
	}
}

// conditionSeverity reads how far gone a node already is: whichever is
// worse of its load saturation and its lost health.
func conditionSeverity(n *graph.Node) float64 {
	sev := n.LoadRatio()
	if lost := 1 - n.HealthScore; lost > sev {
		sev = lost
	}
	if sev < 0 {
		sev = 0
	}
	if sev > 1 {
		sev = 1
	}
	return sev
}

// vitalsAverages returns mean health score and mean load ratio.
func vitalsAverages(nodes []graph.Node) (avgHealth, avgLoad float64) {
	if len(nodes) == 0 {
		return 0, 0
	}
	for i := range nodes {
		avgHealth += nodes[i].HealthScore
		avgLoad += nodes[i].LoadRatio()
	}
	n := float64(len(nodes))
	return avgHealth / n, avgLoad / n
}
