package simulation

import (
	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

// Virtual origin parameters: when a disaster strikes far from every known
// facility, a transient zone node is wired to all of them with a fixed
// proximity weight and delay.
const (
	VirtualOriginID     = "disaster_zone"
	VirtualOriginName   = "Disaster Zone"
	virtualEdgeType     = "proximity_impact"
	virtualEdgeWeight   = 0.7
	virtualEdgeDelayMin = 60
)

// WithVirtualOrigin returns a new view extending v with a transient
// origin node connected to every existing node. The input view and the
// shared store are left untouched; the overlay lives only for one run.
func WithVirtualOrigin(v *graph.View, loc graph.Location) *graph.View {
	n := v.Len()
	extended := &graph.View{
		Nodes: make([]graph.NodeView, n+1),
		Index: make(map[string]int, n+1),
		Out:   make([][]graph.EdgeView, n+1),
		In:    make([][]graph.EdgeView, n+1),
	}

	copy(extended.Nodes, v.Nodes)
	for id, idx := range v.Index {
		extended.Index[id] = idx
	}
	for i := 0; i < n; i++ {
		extended.Out[i] = append([]graph.EdgeView(nil), v.Out[i]...)
		extended.In[i] = append([]graph.EdgeView(nil), v.In[i]...)
	}

	virtualIdx := n
	extended.Nodes[virtualIdx] = graph.NodeView{
		ID:       VirtualOriginID,
		Name:     VirtualOriginName,
		Location: loc,
		// Zero capacity and criticality: the zone itself carries no load
		// and contributes nothing to impact scoring.
	}
	extended.Index[VirtualOriginID] = virtualIdx

	for target := 0; target < n; target++ {
		edge := graph.EdgeView{
			Source:         virtualIdx,
			Target:         target,
			DependencyType: virtualEdgeType,
			Weight:         virtualEdgeWeight,
			DelayMinutes:   virtualEdgeDelayMin,
		}
		extended.Out[virtualIdx] = append(extended.Out[virtualIdx], edge)
		extended.In[target] = append(extended.In[target], edge)
	}

	return extended
}
