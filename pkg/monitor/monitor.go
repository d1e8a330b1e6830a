// Package monitor runs the continuous surveillance loop: each tick it
// refreshes every node's vitals from a pluggable source, flags nodes that
// crossed health or load thresholds, and hands each flagged node to the
// predictor. One node failing to analyze never stops the loop.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
)

// Loop defaults.
const (
	DefaultInterval           = 30 * time.Second
	DefaultHealthThreshold    = 0.6
	DefaultLoadRatioThreshold = 0.9
)

// Predictor turns a flagged node into a recorded cascade prediction.
type Predictor interface {
	PredictFlagged(ctx context.Context, nodeID string, mode graph.FailureMode) error
}

// VitalsSink receives each tick's refreshed node vitals, typically a
// time-series recorder. Sink failures log and never stop the pass.
type VitalsSink interface {
	RecordVitals(ctx context.Context, nodes []graph.Node) error
}

// FlaggedNode is one node that crossed a monitoring threshold.
type FlaggedNode struct {
	NodeID      string            `json:"node_id"`
	Mode        graph.FailureMode `json:"failure_mode"`
	HealthScore float64           `json:"health_score"`
	LoadRatio   float64           `json:"load_ratio"`
}

// TickReport summarizes one monitoring pass.
type TickReport struct {
	Scanned   int           `json:"scanned"`
	Flagged   []FlaggedNode `json:"flagged"`
	Predicted int           `json:"predicted"`
	Failed    int           `json:"failed"`
}

// Config tunes the monitor loop.
type Config struct {
	// Interval between monitoring passes. Zero or negative selects
	// DefaultInterval.
	Interval time.Duration
	// HealthThreshold flags nodes whose health falls below it.
	HealthThreshold float64
	// LoadRatioThreshold flags nodes whose load ratio exceeds it.
	LoadRatioThreshold float64
	// Sink, when set, receives the refreshed vitals after every pass.
	Sink VitalsSink
	// OnTick, when set, observes every completed pass and its duration.
	OnTick func(report TickReport, elapsed time.Duration)
}

// Monitor owns the background surveillance loop.
type Monitor struct {
	store     *graph.Store
	source    VitalsSource
	predictor Predictor
	sink      VitalsSink
	onTick    func(report TickReport, elapsed time.Duration)
	logger    logging.Logger

	interval           time.Duration
	healthThreshold    float64
	loadRatioThreshold float64

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewMonitor creates a monitor over the given store. The source supplies
// each tick's vitals; the predictor receives every flagged node.
func NewMonitor(store *graph.Store, source VitalsSource, predictor Predictor, cfg Config, logger logging.Logger) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	healthThreshold := cfg.HealthThreshold
	if healthThreshold <= 0 {
		healthThreshold = DefaultHealthThreshold
	}
	loadRatioThreshold := cfg.LoadRatioThreshold
	if loadRatioThreshold <= 0 {
		loadRatioThreshold = DefaultLoadRatioThreshold
	}

	return &Monitor{
		store:              store,
		source:             source,
		predictor:          predictor,
		sink:               cfg.Sink,
		onTick:             cfg.OnTick,
		logger:             logging.OrNop(logger),
		interval:           interval,
		healthThreshold:    healthThreshold,
		loadRatioThreshold: loadRatioThreshold,
	}
}

// Start begins the monitoring loop.
func (m *Monitor) Start() error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if m.running {
		return nil
	}

	m.stopCh = make(chan struct{})
	m.running = true
	m.wg.Add(1)
	go m.loop(m.stopCh)

	m.logger.Info("monitor started",
		logging.Component("monitor"),
		logging.Duration("interval", m.interval))
	return nil
}

// Stop halts the monitoring loop and waits for the current tick to finish.
func (m *Monitor) Stop() error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if !m.running {
		return nil
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.logger.Info("monitor stopped", logging.Component("monitor"))
	return nil
}

func (m *Monitor) loop(stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Tick(context.Background())
		}
	}
}

// Tick runs one monitoring pass and reports what it did. Exported so
// callers can drive the monitor manually instead of on the ticker.
func (m *Monitor) Tick(ctx context.Context) TickReport {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor tick panicked",
				logging.Component("monitor"),
				logging.Any("panic", r))
		}
	}()

	start := time.Now()
	nodes := m.store.AllNodes()
	report := TickReport{Scanned: len(nodes)}

	for _, n := range nodes {
		v := m.source.Sample(n)
		if err := m.store.UpdateVitals(n.ID, v.HealthScore, v.CurrentLoad); err != nil {
			m.logger.Warn("vitals update failed",
				logging.NodeID(n.ID),
				logging.Error(err))
			continue
		}

		health, ratio := clampedVitals(&n, v)
		if health >= m.healthThreshold && ratio <= m.loadRatioThreshold {
			continue
		}

		report.Flagged = append(report.Flagged, FlaggedNode{
			NodeID:      n.ID,
			Mode:        m.inferFailureMode(health, ratio),
			HealthScore: health,
			LoadRatio:   ratio,
		})
	}

	if m.sink != nil {
		if err := m.sink.RecordVitals(ctx, m.store.AllNodes()); err != nil {
			m.logger.Warn("vitals sink write failed",
				logging.Component("monitor"),
				logging.Error(err))
		}
	}

	for _, f := range report.Flagged {
		if err := m.predictor.PredictFlagged(ctx, f.NodeID, f.Mode); err != nil {
			report.Failed++
			m.logger.Error("flagged node prediction failed",
				logging.NodeID(f.NodeID),
				logging.Mode(string(f.Mode)),
				logging.Error(err))
			continue
		}
		report.Predicted++
	}

	if len(report.Flagged) > 0 {
		m.logger.Info("monitoring pass flagged nodes",
			logging.Component("monitor"),
			logging.Count(len(report.Flagged)),
			logging.Int("predicted", report.Predicted),
			logging.Int("failed", report.Failed))
	}
	if m.onTick != nil {
		m.onTick(report, time.Since(start))
	}
	return report
}

// inferFailureMode maps the trigger condition to the simulated failure:
// overload wins when the load ratio is high, then degraded equipment,
// with structural damage as the fallback.
func (m *Monitor) inferFailureMode(health, ratio float64) graph.FailureMode {
	switch {
	case ratio > m.loadRatioThreshold:
		return graph.FailureOverload
	case health < m.healthThreshold:
		return graph.FailureEquipment
	default:
		return graph.FailureStructuralDamage
	}
}

// clampedVitals mirrors the store's clamping so threshold checks see the
// values that were actually applied.
func clampedVitals(n *graph.Node, v Vitals) (health, ratio float64) {
	health = v.HealthScore
	if health < 0 {
		health = 0
	}
	if health > 1 {
		health = 1
	}

	load := v.CurrentLoad
	if load < 0 {
		load = 0
	}
	if load > n.Capacity {
		load = n.Capacity
	}
	if n.Capacity > 0 {
		ratio = load / n.Capacity
	}
	return health, ratio
}
