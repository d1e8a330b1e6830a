package simulation

import (
	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

// DefaultImpactMultiplier applies to disaster/infrastructure pairs with
// no explicit matrix entry.
const DefaultImpactMultiplier = 0.75

// impactMatrix maps disaster type and target infrastructure type to the
// initial impact multiplier. Landslide carries no entries and falls back
// to the default for every sector.
var impactMatrix = map[graph.DisasterType]map[graph.NodeType]float64{
	graph.DisasterFlood: {
		graph.NodeTypePower:      0.85,
		graph.NodeTypeWater:      0.70,
		graph.NodeTypeHealthcare: 0.75,
		graph.NodeTypeTelecom:    0.65,
	},
	graph.DisasterFire: {
		graph.NodeTypePower:      0.90,
		graph.NodeTypeWater:      0.50,
		graph.NodeTypeHealthcare: 0.80,
		graph.NodeTypeTelecom:    0.85,
	},
	graph.DisasterEarthquake: {
		graph.NodeTypePower:      0.95,
		graph.NodeTypeWater:      0.85,
		graph.NodeTypeHealthcare: 0.90,
		graph.NodeTypeTelecom:    0.90,
	},
	graph.DisasterCyclone: {
		graph.NodeTypePower:      0.80,
		graph.NodeTypeWater:      0.70,
		graph.NodeTypeHealthcare: 0.75,
		graph.NodeTypeTelecom:    0.85,
	},
}

// ImpactMultiplier returns the initial impact multiplier for a disaster
// hitting the given infrastructure type.
func ImpactMultiplier(disaster graph.DisasterType, nodeType graph.NodeType) float64 {
	if row, ok := impactMatrix[disaster]; ok {
		if m, ok := row[nodeType]; ok {
			return m
		}
	}
	return DefaultImpactMultiplier
}

// InitialImpact computes the origin node's starting risk, clamped to [0,1].
func InitialImpact(disaster graph.DisasterType, severity float64, nodeType graph.NodeType) float64 {
	risk := severity * ImpactMultiplier(disaster, nodeType)
	if risk > 1 {
		return 1
	}
	if risk < 0 {
		return 0
	}
	return risk
}

// Edge risk modifiers. Disaster rules come first: floods surge through
// water systems into the grid, fire follows power lines, earthquakes
// shake every edge equally.
const (
	floodWaterToPowerModifier  = 1.2
	firePowerToServiceModifier = 1.15
	earthquakeModifier         = 1.1

	overloadAmplifier       = 1.2
	powerOutageIntoPowerAmp = 1.5
)

// RiskModifier returns the disaster-specific multiplier for propagation
// from source to target infrastructure.
func RiskModifier(disaster graph.DisasterType, sourceType, targetType graph.NodeType) float64 {
	switch disaster {
	case graph.DisasterFlood:
		if sourceType == graph.NodeTypeWater && targetType == graph.NodeTypePower {
			return floodWaterToPowerModifier
		}
	case graph.DisasterFire:
		if sourceType == graph.NodeTypePower &&
			(targetType == graph.NodeTypeTelecom || targetType == graph.NodeTypeHealthcare) {
			return firePowerToServiceModifier
		}
	case graph.DisasterEarthquake:
		return earthquakeModifier
	}
	return 1.0
}

// ModeAmplifier returns the failure-mode multiplier applied on top of the
// disaster modifier. Overloads push harder on every dependency; an outage
// feeding another grid segment compounds.
func ModeAmplifier(mode graph.FailureMode, targetType graph.NodeType) float64 {
	switch mode {
	case graph.FailureOverload:
		return overloadAmplifier
	case graph.FailurePowerOutage:
		if targetType == graph.NodeTypePower {
			return powerOutageIntoPowerAmp
		}
	}
	return 1.0
}
