package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/validation"
)

// defaultRepairTimeHours applies when a definition leaves repair time
// unset.
const defaultRepairTimeHours = 24

// TopologyFile is the YAML shape of a topology definition: facility
// entries followed by the dependencies between them.
type TopologyFile struct {
	Nodes []validation.NodeDefinition `yaml:"nodes"`
	Edges []validation.EdgeDefinition `yaml:"edges"`
}

// LoadTopologyFile reads a YAML topology definition into the store.
func LoadTopologyFile(store *graph.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read topology file: %w", err)
	}

	var tf TopologyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("failed to parse topology file: %w", err)
	}
	if err := ApplyDefinitions(store, tf.Nodes, tf.Edges); err != nil {
		return fmt.Errorf("topology file %s: %w", path, err)
	}
	return nil
}

// ApplyDefinitions validates and registers a batch of definitions.
// Nodes load before edges so dependencies can reference any node in the
// same batch. The first invalid entry aborts the load.
func ApplyDefinitions(store *graph.Store, nodes []validation.NodeDefinition, edges []validation.EdgeDefinition) error {
	if err := validation.ValidateBatchSize(len(nodes) + len(edges)); err != nil {
		return err
	}

	for i := range nodes {
		def := &nodes[i]
		if err := validation.ValidateNodeDefinition(def); err != nil {
			return fmt.Errorf("node %q: %w", def.ID, err)
		}
		if err := store.AddNode(nodeFromDefinition(def)); err != nil {
			return err
		}
	}

	for i := range edges {
		def := &edges[i]
		if err := validation.ValidateEdgeDefinition(def); err != nil {
			return fmt.Errorf("edge %s->%s: %w", def.Source, def.Target, err)
		}
		if err := store.AddEdge(edgeFromDefinition(def)); err != nil {
			return err
		}
	}
	return nil
}

// nodeFromDefinition converts a validated definition, treating zero
// health and repair time as unset: new facilities start healthy, and
// repair estimates fall back to a day.
func nodeFromDefinition(def *validation.NodeDefinition) graph.Node {
	health := def.HealthScore
	if health == 0 {
		health = 1
	}
	repair := def.RepairTimeHours
	if repair == 0 {
		repair = defaultRepairTimeHours
	}
	return graph.Node{
		ID:               def.ID,
		Name:             def.Name,
		Type:             graph.NodeType(def.Type),
		Location:         graph.Location{Lat: def.Lat, Lon: def.Lon},
		Capacity:         def.Capacity,
		CurrentLoad:      def.CurrentLoad,
		HealthScore:      health,
		RedundancyLevel:  def.RedundancyLevel,
		RepairTimeHours:  repair,
		CriticalityScore: def.CriticalityScore,
		Resilience:       def.Resilience,
	}
}

// edgeFromDefinition converts a validated definition. A zero delay
// derives from distance inside the store.
func edgeFromDefinition(def *validation.EdgeDefinition) graph.Edge {
	return graph.Edge{
		Source:             def.Source,
		Target:             def.Target,
		DependencyType:     def.DependencyType,
		Weight:             def.Weight,
		RecoveryDependency: def.RecoveryDependency,
		DistanceKm:         def.DistanceKm,
		DelayMinutes:       def.DelayMinutes,
	}
}
