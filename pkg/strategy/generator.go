package strategy

import (
	"sort"
	"sync"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

// ProbabilityGate is the cascade probability a prediction must exceed
// before any strategy is generated.
const ProbabilityGate = 0.7

// Node selection bounds.
const (
	topAffectedNodes       = 5
	topAffectedEdgeSources = 3
	nodePriorityGate       = 0.7
	backupActivationNodes  = 2
)

// Fixed parameters for the load-reduction bundle.
const (
	loadReductionPercentage = 0.3
	backupSystemCount       = 2
	loadBundleReduction     = 0.6
	loadBundleCost          = 50000
	loadBundleTimeMinutes   = 30
	loadBundlePriority      = 0.8
)

// Fixed parameters for the dependency-strengthening bundle.
const (
	strengtheningFactor         = 0.5
	strengthenBundleReduction   = 0.4
	strengthenBundleCost        = 30000
	strengthenBundleTimeMinutes = 45
	strengthenBundlePriority    = 0.6
)

// Catalog and listing defaults.
const (
	DefaultCatalogCapacity = 100
	DefaultTopLimit        = 5
)

// PriorityRanker supplies stabilization priorities for nodes, normally
// backed by the criticality analyzer. Unknown nodes rank zero.
type PriorityRanker interface {
	PriorityFor(nodeID string) float64
}

// Config tunes the generator.
type Config struct {
	// CatalogCapacity bounds how many generated strategies are retained.
	// Zero or negative selects DefaultCatalogCapacity.
	CatalogCapacity int
}

// Generator derives stabilization strategies from predictions and retains
// them in a fixed-capacity catalog, oldest evicted first.
type Generator struct {
	store  *graph.Store
	ranker PriorityRanker
	logger logging.Logger

	mu    sync.Mutex
	ring  []Strategy
	head  int
	count int
}

// NewGenerator creates a strategy generator over the given graph and ranker.
func NewGenerator(store *graph.Store, ranker PriorityRanker, cfg Config, logger logging.Logger) *Generator {
	if cfg.CatalogCapacity <= 0 {
		cfg.CatalogCapacity = DefaultCatalogCapacity
	}
	return &Generator{
		store:  store,
		ranker: ranker,
		logger: logging.OrNop(logger),
		ring:   make([]Strategy, cfg.CatalogCapacity),
	}
}

// FromPrediction generates strategies for a prediction and records them in
// the catalog. Predictions at or below the probability gate produce nothing.
func (g *Generator) FromPrediction(pred *simulation.Prediction) []Strategy {
	if pred == nil || pred.CascadeProbability <= ProbabilityGate {
		return nil
	}

	var out []Strategy
	if s, ok := g.criticalNodeStrategy(pred); ok {
		out = append(out, s)
	}
	if s, ok := g.dependencyStrategy(pred); ok {
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}

	g.mu.Lock()
	for _, s := range out {
		g.ring[g.head] = s
		g.head = (g.head + 1) % len(g.ring)
		if g.count < len(g.ring) {
			g.count++
		}
	}
	g.mu.Unlock()

	g.logger.Info("stabilization strategies generated",
		logging.PredictionID(pred.ID),
		logging.Probability(pred.CascadeProbability),
		logging.Count(len(out)))
	return out
}

// criticalNodeStrategy bundles load reduction and backup activation for
// the highest-priority nodes in the cascade path.
func (g *Generator) criticalNodeStrategy(pred *simulation.Prediction) (Strategy, bool) {
	top := pred.AffectedNodes
	if len(top) > topAffectedNodes {
		top = top[:topAffectedNodes]
	}

	var critical []string
	for _, id := range top {
		if g.ranker.PriorityFor(id) > nodePriorityGate {
			critical = append(critical, id)
		}
	}
	if len(critical) == 0 {
		return Strategy{}, false
	}

	backup := critical
	if len(backup) > backupActivationNodes {
		backup = backup[:backupActivationNodes]
	}

	return Strategy{
		ID:           NewStrategyID(),
		PredictionID: pred.ID,
		TargetNodes:  critical,
		Actions: []Action{
			{
				ActionType:          ActionLoadReduction,
				TargetNodes:         critical,
				ReductionPercentage: loadReductionPercentage,
			},
			{
				ActionType:    ActionBackupActivation,
				TargetNodes:   backup,
				BackupSystems: backupSystemCount,
			},
		},
		ExpectedCascadeReduction:  loadBundleReduction,
		ImplementationCost:        loadBundleCost,
		ImplementationTimeMinutes: loadBundleTimeMinutes,
		PriorityScore:             loadBundlePriority,
	}, true
}

// dependencyStrategy targets edges that lie on the propagation path, where
// both endpoints were affected.
func (g *Generator) dependencyStrategy(pred *simulation.Prediction) (Strategy, bool) {
	affected := make(map[string]bool, len(pred.AffectedNodes))
	for _, id := range pred.AffectedNodes {
		affected[id] = true
	}

	sources := pred.AffectedNodes
	if len(sources) > topAffectedEdgeSources {
		sources = sources[:topAffectedEdgeSources]
	}

	var edges []string
	var targets []string
	for _, src := range sources {
		successors, err := g.store.Successors(src)
		if err != nil {
			// Virtual origins are not registered nodes; they have no
			// strengthenable edges.
			continue
		}
		for _, dst := range successors {
			if affected[dst] {
				edges = append(edges, src+"->"+dst)
				targets = append(targets, dst)
			}
		}
	}
	if len(edges) == 0 {
		return Strategy{}, false
	}

	return Strategy{
		ID:           NewStrategyID(),
		PredictionID: pred.ID,
		TargetNodes:  targets,
		Actions: []Action{
			{
				ActionType:          ActionDependencyStrengthening,
				TargetEdges:         edges,
				StrengtheningFactor: strengtheningFactor,
			},
		},
		ExpectedCascadeReduction:  strengthenBundleReduction,
		ImplementationCost:        strengthenBundleCost,
		ImplementationTimeMinutes: strengthenBundleTimeMinutes,
		PriorityScore:             strengthenBundlePriority,
	}, true
}

// Top returns up to limit retained strategies ordered by priority score,
// highest first. Non-positive limits select DefaultTopLimit.
func (g *Generator) Top(limit int) []Strategy {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	out := g.all()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns a retained strategy by ID.
func (g *Generator) Get(id string) (Strategy, bool) {
	for _, s := range g.all() {
		if s.ID == id {
			return s, true
		}
	}
	return Strategy{}, false
}

// Len returns the number of retained strategies.
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// all copies retained strategies in insertion order, oldest first.
func (g *Generator) all() []Strategy {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Strategy, 0, g.count)
	start := (g.head - g.count + len(g.ring)) % len(g.ring)
	for i := 0; i < g.count; i++ {
		out = append(out, g.ring[(start+i)%len(g.ring)])
	}
	return out
}
