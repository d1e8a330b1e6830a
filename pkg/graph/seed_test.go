package graph

import (
	"testing"
)

func TestSeedTopologyCounts(t *testing.T) {
	s, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	if got := s.NodeCount(); got != 18 {
		t.Errorf("NodeCount = %d, want 18", got)
	}
	if got := s.EdgeCount(); got != 21 {
		t.Errorf("EdgeCount = %d, want 21", got)
	}
}

func TestSeedTopologyInverseLists(t *testing.T) {
	s, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	// Every edge A->B must appear as B in A.Dependents and A in B.Dependencies.
	for _, e := range s.AllEdges() {
		source, err := s.GetNode(e.Source)
		if err != nil {
			t.Fatalf("GetNode(%s): %v", e.Source, err)
		}
		target, err := s.GetNode(e.Target)
		if err != nil {
			t.Fatalf("GetNode(%s): %v", e.Target, err)
		}

		if !contains(source.Dependents, e.Target) {
			t.Errorf("%s.Dependents missing %s", e.Source, e.Target)
		}
		if !contains(target.Dependencies, e.Source) {
			t.Errorf("%s.Dependencies missing %s", e.Target, e.Source)
		}
	}
}

func TestSeedTopologyContainsCycles(t *testing.T) {
	s, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	// The control center steers the grid that powers it.
	if _, err := s.GetEdge("power_main_mumbai", "comm_control"); err != nil {
		t.Errorf("missing power->comm edge: %v", err)
	}
	if _, err := s.GetEdge("comm_control", "power_main_mumbai"); err != nil {
		t.Errorf("missing comm->power return edge: %v", err)
	}

	// Water cools the plant that pumps it.
	if _, err := s.GetEdge("power_main_mumbai", "water_main_mumbai"); err != nil {
		t.Errorf("missing power->water edge: %v", err)
	}
	if _, err := s.GetEdge("water_main_mumbai", "power_main_mumbai"); err != nil {
		t.Errorf("missing water->power return edge: %v", err)
	}
}

func TestSeedVitalsDeterministic(t *testing.T) {
	a, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}
	b, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	nodesA, nodesB := a.AllNodes(), b.AllNodes()
	for i := range nodesA {
		if nodesA[i].HealthScore != nodesB[i].HealthScore ||
			nodesA[i].CurrentLoad != nodesB[i].CurrentLoad {
			t.Fatalf("seed vitals differ between loads for %s", nodesA[i].ID)
		}
	}

	n, _ := a.GetNode("water_main_mumbai")
	if n.CurrentLoad != seedLoadFraction*n.Capacity {
		t.Errorf("CurrentLoad = %v, want %v", n.CurrentLoad, seedLoadFraction*n.Capacity)
	}
	if n.HealthScore != seedHealthScore {
		t.Errorf("HealthScore = %v, want %v", n.HealthScore, seedHealthScore)
	}
}

func TestSeedNodeTypesCoverAllSectors(t *testing.T) {
	s, err := NewSeedStore()
	if err != nil {
		t.Fatalf("NewSeedStore: %v", err)
	}

	seen := make(map[NodeType]int)
	for _, n := range s.AllNodes() {
		seen[n.Type]++
	}

	for _, want := range []NodeType{
		NodeTypePower, NodeTypeWater, NodeTypeTelecom,
		NodeTypeTransport, NodeTypeHealthcare, NodeTypeCommCenter,
	} {
		if seen[want] == 0 {
			t.Errorf("seed network has no %s nodes", want)
		}
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
