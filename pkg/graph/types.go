package graph

import (
	"math"
)

// NodeType classifies an infrastructure facility.
type NodeType string

const (
	NodeTypePower      NodeType = "power"
	NodeTypeWater      NodeType = "water"
	NodeTypeTelecom    NodeType = "telecom"
	NodeTypeTransport  NodeType = "transport"
	NodeTypeHealthcare NodeType = "healthcare"
	NodeTypeCommCenter NodeType = "communication_center"
)

// ValidNodeType reports whether t is a known node type.
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypePower, NodeTypeWater, NodeTypeTelecom,
		NodeTypeTransport, NodeTypeHealthcare, NodeTypeCommCenter:
		return true
	}
	return false
}

// FailureMode describes how a node fails.
type FailureMode string

const (
	FailureOverload         FailureMode = "overload"
	FailureWeatherDamage    FailureMode = "weather_damage"
	FailureStructuralDamage FailureMode = "structural_damage"
	FailureEquipment        FailureMode = "equipment_failure"
	FailurePowerOutage      FailureMode = "power_outage"
	FailureConnectivityLoss FailureMode = "connectivity_loss"
)

// ParseFailureMode validates a failure mode string.
func ParseFailureMode(s string) (FailureMode, error) {
	m := FailureMode(s)
	switch m {
	case FailureOverload, FailureWeatherDamage, FailureStructuralDamage,
		FailureEquipment, FailurePowerOutage, FailureConnectivityLoss:
		return m, nil
	}
	return "", NewError("parse").Context(s).Cause(ErrInvalidFailureMode).Err()
}

// DisasterType identifies the external hazard driving a trigger event.
type DisasterType string

const (
	DisasterFlood      DisasterType = "flood"
	DisasterFire       DisasterType = "fire"
	DisasterEarthquake DisasterType = "earthquake"
	DisasterCyclone    DisasterType = "cyclone"
	DisasterLandslide  DisasterType = "landslide"
)

// ParseDisasterType validates a disaster type string.
func ParseDisasterType(s string) (DisasterType, error) {
	d := DisasterType(s)
	switch d {
	case DisasterFlood, DisasterFire, DisasterEarthquake, DisasterCyclone, DisasterLandslide:
		return d, nil
	}
	return "", NewError("parse").Context(s).Cause(ErrInvalidDisasterType).Err()
}

// RiskLevel buckets a risk score for display and alerting.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk threshold boundaries.
const (
	LowRisk      = 0.3
	MediumRisk   = 0.6
	HighRisk     = 0.8
	CriticalRisk = 0.9
)

// LevelForRisk converts a risk score to its level bucket.
func LevelForRisk(risk float64) RiskLevel {
	switch {
	case risk >= CriticalRisk:
		return RiskCritical
	case risk >= HighRisk:
		return RiskHigh
	case risk >= MediumRisk:
		return RiskMedium
	case risk >= LowRisk:
		return RiskLow
	default:
		return RiskMinimal
	}
}

// DefaultResilience is applied to nodes that do not override their ability
// to dampen incoming propagated risk.
const DefaultResilience = 0.5

// KmPerDegree approximates great-circle distance at metro scale.
const KmPerDegree = 111.0

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// DistanceKm returns the approximate distance to other in kilometres.
func (l Location) DistanceKm(other Location) float64 {
	return l.DegreeDistance(other) * KmPerDegree
}

// DegreeDistance returns the Euclidean distance to other in degrees.
func (l Location) DegreeDistance(other Location) float64 {
	latDiff := l.Lat - other.Lat
	lonDiff := l.Lon - other.Lon
	return math.Sqrt(latDiff*latDiff + lonDiff*lonDiff)
}

// Node is an infrastructure facility in the dependency network.
// Dependencies and Dependents mirror the edge set: every edge A->B lists
// A in B.Dependencies and B in A.Dependents.
type Node struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Type             NodeType `json:"type" yaml:"type"`
	Location         Location `json:"location" yaml:"location"`
	Capacity         float64  `json:"capacity" yaml:"capacity"`
	CurrentLoad      float64  `json:"current_load" yaml:"current_load"`
	HealthScore      float64  `json:"health_score" yaml:"health_score"`
	RedundancyLevel  int      `json:"redundancy_level" yaml:"redundancy_level"`
	RepairTimeHours  float64  `json:"repair_time_hours" yaml:"repair_time_hours"`
	CriticalityScore float64  `json:"criticality_score" yaml:"criticality_score"`
	Resilience       float64  `json:"resilience" yaml:"resilience"`
	Dependencies     []string `json:"dependencies" yaml:"-"`
	Dependents       []string `json:"dependents" yaml:"-"`
}

// LoadRatio returns current load as a fraction of capacity.
func (n *Node) LoadRatio() float64 {
	if n.Capacity <= 0 {
		return 0
	}
	return n.CurrentLoad / n.Capacity
}

// Edge is a directed dependency between two facilities. Weight is the
// probability/strength that failure at Source affects Target.
type Edge struct {
	Source             string  `json:"source" yaml:"source"`
	Target             string  `json:"target" yaml:"target"`
	DependencyType     string  `json:"dependency_type" yaml:"dependency_type"`
	Weight             float64 `json:"failure_propagation_weight" yaml:"weight"`
	RecoveryDependency float64 `json:"recovery_dependency" yaml:"recovery_dependency"`
	DistanceKm         float64 `json:"distance_km" yaml:"distance_km"`
	DelayMinutes       int     `json:"delay_minutes" yaml:"delay_minutes,omitempty"`
}

// DefaultDelayMinutes derives a propagation delay from edge distance when
// no explicit delay is configured.
func DefaultDelayMinutes(distanceKm float64) int {
	d := int(math.Round(4 * distanceKm))
	if d < 5 {
		return 5
	}
	return d
}
