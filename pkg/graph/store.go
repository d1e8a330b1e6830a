package graph

import (
	"sync"
)

type edgeKey struct {
	source string
	target string
}

// Store is the in-memory infrastructure dependency graph. Topology is
// read-mostly after initialization; the monitor applies scalar vitals
// updates under the write lock while analyses read a stable snapshot.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*Node
	order []string       // insertion order, position doubles as dense index
	index map[string]int // node ID -> dense index

	edges    map[edgeKey]*Edge
	outgoing map[string][]string // source ID -> target IDs
	incoming map[string][]string // target ID -> source IDs

	version uint64 // bumped on structural change only
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[string]*Node),
		index:    make(map[string]int),
		edges:    make(map[edgeKey]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode registers a facility. Resilience defaults when unset. Fails on
// duplicate IDs or out-of-range fields.
func (s *Store) AddNode(n Node) error {
	if err := validateNode(&n); err != nil {
		return err
	}
	if n.Resilience == 0 {
		n.Resilience = DefaultResilience
	}
	n.Dependencies = nil
	n.Dependents = nil

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return NewError("AddNode").Node(n.ID).Cause(ErrDuplicateNode).Err()
	}

	s.index[n.ID] = len(s.order)
	s.order = append(s.order, n.ID)
	s.nodes[n.ID] = &n
	s.version++
	return nil
}

// AddEdge registers a directed dependency. Both endpoints must already
// exist. The edge delay derives from distance when not set explicitly.
func (s *Store) AddEdge(e Edge) error {
	if err := validateEdge(&e); err != nil {
		return err
	}
	if e.DelayMinutes == 0 {
		e.DelayMinutes = DefaultDelayMinutes(e.DistanceKm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.nodes[e.Source]
	if !ok {
		return NewError("AddEdge").Edge(e.Source, e.Target).Cause(ErrEndpointMissing).Err()
	}
	target, ok := s.nodes[e.Target]
	if !ok {
		return NewError("AddEdge").Edge(e.Source, e.Target).Cause(ErrEndpointMissing).Err()
	}

	key := edgeKey{e.Source, e.Target}
	if _, exists := s.edges[key]; exists {
		return NewError("AddEdge").Edge(e.Source, e.Target).Cause(ErrDuplicateEdge).Err()
	}

	s.edges[key] = &e
	s.outgoing[e.Source] = append(s.outgoing[e.Source], e.Target)
	s.incoming[e.Target] = append(s.incoming[e.Target], e.Source)
	source.Dependents = append(source.Dependents, e.Target)
	target.Dependencies = append(target.Dependencies, e.Source)
	s.version++
	return nil
}

// GetNode returns a copy of the node with the given ID.
func (s *Store) GetNode(id string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return Node{}, NodeNotFoundError("GetNode", id)
	}
	return copyNode(n), nil
}

// HasNode reports whether a node exists.
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// GetEdge returns a copy of the edge source->target.
func (s *Store) GetEdge(source, target string) (Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[edgeKey{source, target}]
	if !ok {
		return Edge{}, EdgeNotFoundError("GetEdge", source, target)
	}
	return *e, nil
}

// Successors returns the IDs of nodes that depend on id, in edge
// insertion order.
func (s *Store) Successors(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, NodeNotFoundError("Successors", id)
	}
	out := s.outgoing[id]
	result := make([]string, len(out))
	copy(result, out)
	return result, nil
}

// Predecessors returns the IDs of nodes that id depends on.
func (s *Store) Predecessors(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, NodeNotFoundError("Predecessors", id)
	}
	in := s.incoming[id]
	result := make([]string, len(in))
	copy(result, in)
	return result, nil
}

// AllNodes returns copies of every node in insertion order.
func (s *Store) AllNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, copyNode(s.nodes[id]))
	}
	return result
}

// AllEdges returns copies of every edge, grouped by source in node
// insertion order.
func (s *Store) AllEdges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Edge, 0, len(s.edges))
	for _, id := range s.order {
		for _, target := range s.outgoing[id] {
			result = append(result, *s.edges[edgeKey{id, target}])
		}
	}
	return result
}

// NodeCount returns the number of registered nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// EdgeCount returns the number of registered edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Version returns the structural version, bumped by AddNode/AddEdge.
// Vitals updates do not change it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UpdateVitals applies a scalar health/load update to one node. Values
// clamp into their valid ranges.
func (s *Store) UpdateVitals(id string, healthScore, currentLoad float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return NodeNotFoundError("UpdateVitals", id)
	}
	n.HealthScore = clamp01(healthScore)
	if currentLoad < 0 {
		currentLoad = 0
	}
	if currentLoad > n.Capacity {
		currentLoad = n.Capacity
	}
	n.CurrentLoad = currentLoad
	return nil
}

// NearestNode returns the node closest to loc and its distance in
// degrees. Fails on an empty graph.
func (s *Store) NearestNode(loc Location) (string, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return "", 0, NewError("NearestNode").Cause(ErrEmptyGraph).Err()
	}

	best := ""
	bestDist := 0.0
	for i, id := range s.order {
		d := s.nodes[id].Location.DegreeDistance(loc)
		if i == 0 || d < bestDist {
			best = id
			bestDist = d
		}
	}
	return best, bestDist, nil
}

// Stats summarizes store-wide vitals in one pass.
type Stats struct {
	NodeCount        int
	EdgeCount        int
	AverageHealth    float64
	AverageLoadRatio float64
}

// Summary computes aggregate statistics under a single read lock.
func (s *Store) Summary() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		NodeCount: len(s.order),
		EdgeCount: len(s.edges),
	}
	if len(s.order) == 0 {
		return stats
	}

	var healthSum, loadSum float64
	for _, id := range s.order {
		n := s.nodes[id]
		healthSum += n.HealthScore
		loadSum += n.LoadRatio()
	}
	stats.AverageHealth = healthSum / float64(len(s.order))
	stats.AverageLoadRatio = loadSum / float64(len(s.order))
	return stats
}

func copyNode(n *Node) Node {
	c := *n
	c.Dependencies = make([]string, len(n.Dependencies))
	copy(c.Dependencies, n.Dependencies)
	c.Dependents = make([]string, len(n.Dependents))
	copy(c.Dependents, n.Dependents)
	return c
}

func validateNode(n *Node) error {
	switch {
	case n.ID == "":
		return NewError("AddNode").Context("empty id").Cause(ErrInvalidNode).Err()
	case !ValidNodeType(n.Type):
		return NewError("AddNode").Node(n.ID).Context(string(n.Type)).Cause(ErrInvalidNode).Err()
	case n.Capacity <= 0:
		return NewError("AddNode").Node(n.ID).Context("capacity must be positive").Cause(ErrInvalidNode).Err()
	case n.CurrentLoad < 0 || n.CurrentLoad > n.Capacity:
		return NewError("AddNode").Node(n.ID).Context("load outside [0, capacity]").Cause(ErrInvalidNode).Err()
	case n.HealthScore < 0 || n.HealthScore > 1:
		return NewError("AddNode").Node(n.ID).Context("health outside [0,1]").Cause(ErrInvalidNode).Err()
	case n.RedundancyLevel < 0 || n.RedundancyLevel > 5:
		return NewError("AddNode").Node(n.ID).Context("redundancy outside 0..5").Cause(ErrInvalidNode).Err()
	case n.RepairTimeHours <= 0:
		return NewError("AddNode").Node(n.ID).Context("repair time must be positive").Cause(ErrInvalidNode).Err()
	case n.CriticalityScore < 0 || n.CriticalityScore > 1:
		return NewError("AddNode").Node(n.ID).Context("criticality outside [0,1]").Cause(ErrInvalidNode).Err()
	case n.Resilience < 0 || n.Resilience > 1:
		return NewError("AddNode").Node(n.ID).Context("resilience outside [0,1]").Cause(ErrInvalidNode).Err()
	}
	return nil
}

func validateEdge(e *Edge) error {
	switch {
	case e.Source == "" || e.Target == "":
		return NewError("AddEdge").Context("empty endpoint").Cause(ErrInvalidEdge).Err()
	case e.Source == e.Target:
		return NewError("AddEdge").Edge(e.Source, e.Target).Context("self loop").Cause(ErrInvalidEdge).Err()
	case e.Weight < 0 || e.Weight > 1:
		return NewError("AddEdge").Edge(e.Source, e.Target).Context("weight outside [0,1]").Cause(ErrInvalidEdge).Err()
	case e.RecoveryDependency < 0 || e.RecoveryDependency > 1:
		return NewError("AddEdge").Edge(e.Source, e.Target).Context("recovery outside [0,1]").Cause(ErrInvalidEdge).Err()
	case e.DistanceKm < 0:
		return NewError("AddEdge").Edge(e.Source, e.Target).Context("negative distance").Cause(ErrInvalidEdge).Err()
	case e.DelayMinutes < 0:
		return NewError("AddEdge").Edge(e.Source, e.Target).Context("negative delay").Cause(ErrInvalidEdge).Err()
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
