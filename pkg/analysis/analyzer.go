// Package analysis scores every node in the infrastructure graph for
// criticality: how central it is, how much cascade it can feed, and how
// vulnerable its current state leaves it. Scores drive stabilization
// priorities and recommended hardening actions.
package analysis

import (
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/logging"
)

// DefaultRefreshInterval bounds how stale cached scores may get even when
// topology is unchanged, so drifting vitals are eventually re-scored.
const DefaultRefreshInterval = 30 * time.Second

// Analysis is the criticality profile of a single node.
type Analysis struct {
	NodeID                   string   `json:"node_id"`
	NodeName                 string   `json:"node_name"`
	NodeType                 string   `json:"node_type"`
	CentralityScore          float64  `json:"centrality_score"`
	CascadeContributionScore float64  `json:"cascade_contribution_score"`
	VulnerabilityScore       float64  `json:"vulnerability_score"`
	StabilizationPriority    float64  `json:"stabilization_priority"`
	RecommendedActions       []string `json:"recommended_actions"`
}

// Config tunes the analyzer.
type Config struct {
	// RefreshInterval is how long cached scores stay valid without a
	// topology change. Zero or negative selects DefaultRefreshInterval.
	RefreshInterval time.Duration
}

// Analyzer computes and caches criticality analyses over a graph store.
// Results are recomputed when the store's version changes or the refresh
// interval elapses, whichever comes first.
type Analyzer struct {
	store   *graph.Store
	refresh time.Duration
	logger  logging.Logger
	now     func() time.Time

	mu         sync.Mutex
	ranked     []Analysis
	byNode     map[string]int
	version    uint64
	computedAt time.Time
}

// NewAnalyzer creates an analyzer over the given store.
func NewAnalyzer(store *graph.Store, cfg Config, logger logging.Logger) *Analyzer {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &Analyzer{
		store:   store,
		refresh: cfg.RefreshInterval,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Analyses returns every node's analysis ranked by stabilization priority,
// highest first. Ties rank by node ID so repeated calls over an unchanged
// graph return identical output.
func (a *Analyzer) Analyses() []Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureFresh()

	out := make([]Analysis, len(a.ranked))
	copy(out, a.ranked)
	return out
}

// Top returns the n highest-priority analyses.
func (a *Analyzer) Top(n int) []Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureFresh()

	if n > len(a.ranked) {
		n = len(a.ranked)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Analysis, n)
	copy(out, a.ranked[:n])
	return out
}

// For returns the analysis for one node.
func (a *Analyzer) For(nodeID string) (Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureFresh()

	idx, ok := a.byNode[nodeID]
	if !ok {
		return Analysis{}, graph.NodeNotFoundError("Analysis", nodeID)
	}
	return a.ranked[idx], nil
}

// PriorityFor returns a node's stabilization priority, or zero when the
// node is unknown.
func (a *Analyzer) PriorityFor(nodeID string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensureFresh()

	idx, ok := a.byNode[nodeID]
	if !ok {
		return 0
	}
	return a.ranked[idx].StabilizationPriority
}

// Recompute forces a fresh scoring pass regardless of cache state.
func (a *Analyzer) Recompute() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recompute()
}

// ensureFresh recomputes when topology changed or the cache aged out.
// Callers hold a.mu.
func (a *Analyzer) ensureFresh() {
	if a.ranked != nil &&
		a.version == a.store.Version() &&
		a.now().Sub(a.computedAt) < a.refresh {
		return
	}
	a.recompute()
}

// recompute scores every node from one consistent snapshot. Callers hold a.mu.
func (a *Analyzer) recompute() {
	timer := logging.StartTimer(a.logger, "analysis.recompute",
		logging.Component("analysis"))

	view := a.store.Snapshot()
	ranked := make([]Analysis, 0, view.Len())
	for i := range view.Nodes {
		n := &view.Nodes[i]

		centrality := centralityScore(view, i)
		contribution := contributionScore(view, i)
		vulnerability := vulnerabilityScore(n)

		ranked = append(ranked, Analysis{
			NodeID:                   n.ID,
			NodeName:                 n.Name,
			NodeType:                 string(n.Type),
			CentralityScore:          centrality,
			CascadeContributionScore: contribution,
			VulnerabilityScore:       vulnerability,
			StabilizationPriority:    stabilizationPriority(centrality, contribution, vulnerability),
			RecommendedActions:       recommendedActions(centrality, contribution, vulnerability),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].StabilizationPriority != ranked[j].StabilizationPriority {
			return ranked[i].StabilizationPriority > ranked[j].StabilizationPriority
		}
		return ranked[i].NodeID < ranked[j].NodeID
	})

	byNode := make(map[string]int, len(ranked))
	for i := range ranked {
		byNode[ranked[i].NodeID] = i
	}

	a.ranked = ranked
	a.byNode = byNode
	a.version = a.store.Version()
	a.computedAt = a.now()

	timer.End()
	a.logger.Debug("criticality scores refreshed",
		logging.Count(len(ranked)),
		logging.Any("graph_version", a.version))
}
