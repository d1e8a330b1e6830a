package graph

type seedNode struct {
	id          string
	name        string
	nodeType    NodeType
	lat, lon    float64
	capacity    float64
	criticality float64
}

type seedEdge struct {
	source     string
	target     string
	depType    string
	weight     float64
	recovery   float64
	distanceKm float64
}

// Metro-scale seed network: Mumbai infrastructure with realistic
// cross-sector dependencies, including cycles (comm_control steers the
// grid that powers it, water cools the plant that pumps it).
var seedNodes = []seedNode{
	{"power_main_mumbai", "Mumbai Main Power Station", NodeTypePower, 19.0760, 72.8777, 1000, 0.95},
	{"power_suburban_1", "Suburban Power Substation 1", NodeTypePower, 19.1160, 72.9177, 500, 0.8},
	{"power_suburban_2", "Suburban Power Substation 2", NodeTypePower, 19.0360, 72.8377, 500, 0.8},
	{"power_industrial", "Industrial Power Plant", NodeTypePower, 19.1560, 72.9577, 800, 0.85},
	{"telecom_main_mumbai", "Mumbai Main Telecom Tower", NodeTypeTelecom, 19.0860, 72.8877, 100, 0.9},
	{"telecom_south", "South Mumbai Tower", NodeTypeTelecom, 19.0260, 72.8277, 80, 0.7},
	{"telecom_north", "North Mumbai Tower", NodeTypeTelecom, 19.1460, 72.9477, 80, 0.7},
	{"telecom_west", "West Mumbai Tower", NodeTypeTelecom, 19.0760, 72.8177, 60, 0.6},
	{"water_main_mumbai", "Mumbai Main Water Plant", NodeTypeWater, 19.0560, 72.8577, 2000, 0.9},
	{"water_east", "East Water Treatment", NodeTypeWater, 19.1260, 72.9277, 800, 0.75},
	{"water_west", "West Water Treatment", NodeTypeWater, 19.0060, 72.7877, 800, 0.75},
	{"bridge_sealink", "Sea Link Bridge", NodeTypeTransport, 19.0160, 72.8177, 500, 0.85},
	{"bridge_eastern", "Eastern Express Bridge", NodeTypeTransport, 19.1060, 72.9077, 300, 0.7},
	{"hospital_main", "Mumbai Main Hospital", NodeTypeHealthcare, 19.1360, 72.9377, 1000, 0.95},
	{"hospital_south", "South Mumbai Hospital", NodeTypeHealthcare, 19.0060, 72.8077, 500, 0.8},
	{"hospital_north", "North Mumbai Hospital", NodeTypeHealthcare, 19.1660, 72.9677, 500, 0.8},
	{"comm_control", "Communication Control Center", NodeTypeCommCenter, 19.0760, 72.8777, 200, 0.98},
	{"comm_backup", "Backup Communication Center", NodeTypeCommCenter, 19.1460, 72.9477, 100, 0.85},
}

var seedEdges = []seedEdge{
	{"power_main_mumbai", "telecom_main_mumbai", "power_supply", 0.9, 0.8, 5.0},
	{"power_main_mumbai", "water_main_mumbai", "power_supply", 0.85, 0.9, 8.0},
	{"power_main_mumbai", "hospital_main", "power_supply", 0.95, 0.9, 3.0},
	{"power_main_mumbai", "comm_control", "power_supply", 0.98, 0.95, 2.0},
	{"power_suburban_1", "telecom_south", "power_supply", 0.8, 0.7, 3.0},
	{"power_suburban_2", "telecom_north", "power_supply", 0.8, 0.7, 3.0},
	{"power_industrial", "bridge_sealink", "power_supply", 0.7, 0.6, 10.0},
	{"telecom_main_mumbai", "comm_control", "data_link", 0.9, 0.8, 1.0},
	{"telecom_south", "hospital_south", "emergency_comm", 0.7, 0.6, 2.0},
	{"telecom_north", "hospital_north", "emergency_comm", 0.7, 0.6, 2.0},
	{"water_main_mumbai", "hospital_main", "water_supply", 0.9, 0.8, 2.0},
	{"water_main_mumbai", "power_main_mumbai", "cooling_water", 0.6, 0.5, 5.0},
	{"water_east", "hospital_south", "water_supply", 0.8, 0.7, 1.0},
	{"water_west", "hospital_north", "water_supply", 0.8, 0.7, 1.0},
	{"bridge_sealink", "hospital_main", "patient_transport", 0.6, 0.5, 8.0},
	{"bridge_eastern", "hospital_south", "patient_transport", 0.5, 0.4, 5.0},
	{"comm_control", "power_main_mumbai", "control_signals", 0.8, 0.7, 2.0},
	{"comm_backup", "comm_control", "backup_link", 0.9, 0.8, 15.0},
	{"telecom_main_mumbai", "power_suburban_1", "coordination", 0.3, 0.2, 7.0},
	{"hospital_main", "telecom_main_mumbai", "medical_coordination", 0.4, 0.3, 1.0},
	{"water_main_mumbai", "telecom_main_mumbai", "sensor_data", 0.2, 0.1, 3.0},
}

// Seed vitals are fixed rather than drawn so runs over the seed network
// reproduce exactly.
const (
	seedLoadFraction    = 0.55
	seedHealthScore     = 0.9
	seedRedundancy      = 2
	seedRepairTimeHours = 8
)

// LoadSeedTopology populates the store with the built-in metro network.
func LoadSeedTopology(s *Store) error {
	for _, sn := range seedNodes {
		node := Node{
			ID:               sn.id,
			Name:             sn.name,
			Type:             sn.nodeType,
			Location:         Location{Lat: sn.lat, Lon: sn.lon},
			Capacity:         sn.capacity,
			CurrentLoad:      seedLoadFraction * sn.capacity,
			HealthScore:      seedHealthScore,
			RedundancyLevel:  seedRedundancy,
			RepairTimeHours:  seedRepairTimeHours,
			CriticalityScore: sn.criticality,
		}
		if err := s.AddNode(node); err != nil {
			return err
		}
	}

	for _, se := range seedEdges {
		edge := Edge{
			Source:             se.source,
			Target:             se.target,
			DependencyType:     se.depType,
			Weight:             se.weight,
			RecoveryDependency: se.recovery,
			DistanceKm:         se.distanceKm,
		}
		if err := s.AddEdge(edge); err != nil {
			return err
		}
	}

	return nil
}

// NewSeedStore creates a store preloaded with the metro seed network.
func NewSeedStore() (*Store, error) {
	s := NewStore()
	if err := LoadSeedTopology(s); err != nil {
		return nil, err
	}
	return s, nil
}
