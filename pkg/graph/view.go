package graph

// View is an immutable snapshot of the graph taken under one read lock.
// Nodes are arranged densely so a propagation run can keep its working
// risk values in a plain slice indexed by node position, discarded when
// the run finishes. Nothing in a View aliases store memory.
type View struct {
	Nodes []NodeView
	Index map[string]int // node ID -> position in Nodes
	Out   [][]EdgeView   // position -> outgoing edges
	In    [][]EdgeView   // position -> incoming edges
}

// NodeView is the read-only per-node state a run needs.
type NodeView struct {
	ID               string
	Name             string
	Type             NodeType
	Location         Location
	Capacity         float64
	CurrentLoad      float64
	HealthScore      float64
	RedundancyLevel  int
	CriticalityScore float64
	Resilience       float64
}

// LoadRatio returns current load as a fraction of capacity.
func (n *NodeView) LoadRatio() float64 {
	if n.Capacity <= 0 {
		return 0
	}
	return n.CurrentLoad / n.Capacity
}

// EdgeView is a dependency edge resolved to dense node positions.
type EdgeView struct {
	Source             int
	Target             int
	DependencyType     string
	Weight             float64
	RecoveryDependency float64
	DistanceKm         float64
	DelayMinutes       int
}

// Snapshot captures the current graph as an isolated View.
func (s *Store) Snapshot() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := &View{
		Nodes: make([]NodeView, len(s.order)),
		Index: make(map[string]int, len(s.order)),
		Out:   make([][]EdgeView, len(s.order)),
		In:    make([][]EdgeView, len(s.order)),
	}

	for i, id := range s.order {
		n := s.nodes[id]
		v.Nodes[i] = NodeView{
			ID:               n.ID,
			Name:             n.Name,
			Type:             n.Type,
			Location:         n.Location,
			Capacity:         n.Capacity,
			CurrentLoad:      n.CurrentLoad,
			HealthScore:      n.HealthScore,
			RedundancyLevel:  n.RedundancyLevel,
			CriticalityScore: n.CriticalityScore,
			Resilience:       n.Resilience,
		}
		v.Index[id] = i
	}

	for i, id := range s.order {
		for _, targetID := range s.outgoing[id] {
			e := s.edges[edgeKey{id, targetID}]
			ev := EdgeView{
				Source:             i,
				Target:             v.Index[targetID],
				DependencyType:     e.DependencyType,
				Weight:             e.Weight,
				RecoveryDependency: e.RecoveryDependency,
				DistanceKm:         e.DistanceKm,
				DelayMinutes:       e.DelayMinutes,
			}
			v.Out[i] = append(v.Out[i], ev)
			v.In[ev.Target] = append(v.In[ev.Target], ev)
		}
	}

	return v
}

// Len returns the number of nodes in the view.
func (v *View) Len() int {
	return len(v.Nodes)
}

// NodeIndex resolves a node ID to its dense position.
func (v *View) NodeIndex(id string) (int, bool) {
	i, ok := v.Index[id]
	return i, ok
}

// MaxOutDegree returns the largest outgoing edge count of any node.
func (v *View) MaxOutDegree() int {
	max := 0
	for _, edges := range v.Out {
		if len(edges) > max {
			max = len(edges)
		}
	}
	return max
}
