package analysis

import (
	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

// Traversal bounds and weights for the cascade contribution walk.
const (
	contributionMaxDepth   = 5
	contributionDepthDecay = 0.1
	contributionDamping    = 0.5
	contributionNormalizer = 10.0
)

// Centrality weighting: downstream criticality counts more than upstream.
const (
	dependentWeight  = 0.5
	dependencyWeight = 0.3
)

// centralityScore weighs the criticality of everything wired to the node,
// normalized by its total degree.
func centralityScore(view *graph.View, idx int) float64 {
	score := 0.0
	for _, e := range view.Out[idx] {
		score += view.Nodes[e.Target].CriticalityScore * dependentWeight
	}
	for _, e := range view.In[idx] {
		score += view.Nodes[e.Source].CriticalityScore * dependencyWeight
	}

	degree := len(view.Out[idx]) + len(view.In[idx])
	if degree < 1 {
		degree = 1
	}
	score /= float64(degree)
	if score > 1 {
		return 1
	}
	return score
}

// contributionFrame is one suspended node in the iterative walk.
type contributionFrame struct {
	node      int
	depth     int
	nextEdge  int
	sum       float64
	retWeight float64 // multiplier applied to sum when this frame completes
}

// contributionScore measures how much failure at the node feeds cascades:
// a depth-bounded walk over its dependents accumulating edge weight decayed
// by depth, plus a damped share of each descendant's own contribution.
// Logically recursive, but run on an explicit stack with a shared visited
// set so cycles terminate and deep graphs cannot blow the call stack.
func contributionScore(view *graph.View, root int) float64 {
	visited := make([]bool, view.Len())
	visited[root] = true

	stack := make([]contributionFrame, 1, 16)
	stack[0] = contributionFrame{node: root, depth: 0}

	result := 0.0
	for len(stack) > 0 {
		f := &stack[len(stack)-1]

		if f.nextEdge < len(view.Out[f.node]) {
			e := view.Out[f.node][f.nextEdge]
			f.nextEdge++

			f.sum += e.Weight * (1 - contributionDepthDecay*float64(f.depth))

			childDepth := f.depth + 1
			if childDepth <= contributionMaxDepth && !visited[e.Target] {
				visited[e.Target] = true
				stack = append(stack, contributionFrame{
					node:      e.Target,
					depth:     childDepth,
					retWeight: e.Weight,
				})
			}
			continue
		}

		done := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			parent.sum += done.sum * done.retWeight * contributionDamping
		} else {
			result = done.sum
		}
	}

	score := result / contributionNormalizer
	if score > 1 {
		return 1
	}
	return score
}

// vulnerabilityScore combines degraded health, missing redundancy, and
// the node's importance. Full redundancy or perfect health zero it out.
func vulnerabilityScore(n *graph.NodeView) float64 {
	return (1 - n.HealthScore) * (1 - float64(n.RedundancyLevel)/5) * n.CriticalityScore
}

// Stabilization priority blend.
const (
	centralityPriorityWeight    = 0.4
	contributionPriorityWeight  = 0.4
	vulnerabilityPriorityWeight = 0.2
)

func stabilizationPriority(centrality, contribution, vulnerability float64) float64 {
	return centrality*centralityPriorityWeight +
		contribution*contributionPriorityWeight +
		vulnerability*vulnerabilityPriorityWeight
}

// Action tag thresholds.
const (
	vulnerabilityActionThreshold = 0.7
	centralityActionThreshold    = 0.8
	contributionActionThreshold  = 0.7
)

// Recommended action tags.
const (
	ActionIncreaseRedundancy = "increase_redundancy"
	ActionEnhanceMonitoring  = "enhance_monitoring"
	ActionPreStabilization   = "pre_stabilization"
)

func recommendedActions(centrality, contribution, vulnerability float64) []string {
	var actions []string
	if vulnerability > vulnerabilityActionThreshold {
		actions = append(actions, ActionIncreaseRedundancy)
	}
	if centrality > centralityActionThreshold {
		actions = append(actions, ActionEnhanceMonitoring)
	}
	if contribution > contributionActionThreshold {
		actions = append(actions, ActionPreStabilization)
	}
	return actions
}
