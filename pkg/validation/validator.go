package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation limits
	MaxIDLength      = 64
	MaxNameLength    = 120
	MaxDepTypeLength = 50
	MaxBatchSize     = 1000
	MinBatchSize     = 1

	// Node and dependency-type identifiers: lowercase snake_case, as in
	// "power_main_mumbai" or "cooling_water".
	idPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func init() {
	validate = validator.New()
}

// NodeDefinition is one facility entry in a topology file or a node
// registration request, before conversion into the graph store's form.
type NodeDefinition struct {
	ID               string  `json:"id" yaml:"id" validate:"required,max=64"`
	Name             string  `json:"name" yaml:"name" validate:"required,max=120"`
	Type             string  `json:"type" yaml:"type" validate:"required,oneof=power water telecom transport healthcare communication_center"`
	Lat              float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon              float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
	Capacity         float64 `json:"capacity" yaml:"capacity" validate:"gt=0"`
	CurrentLoad      float64 `json:"current_load" yaml:"current_load" validate:"gte=0,ltefield=Capacity"`
	HealthScore      float64 `json:"health_score" yaml:"health_score" validate:"gte=0,lte=1"`
	RedundancyLevel  int     `json:"redundancy_level" yaml:"redundancy_level" validate:"gte=0,lte=5"`
	RepairTimeHours  float64 `json:"repair_time_hours" yaml:"repair_time_hours" validate:"gte=0"`
	CriticalityScore float64 `json:"criticality_score" yaml:"criticality_score" validate:"gte=0,lte=1"`
	Resilience       float64 `json:"resilience" yaml:"resilience" validate:"gte=0,lte=1"`
}

// EdgeDefinition is one dependency entry in a topology file or an edge
// registration request.
type EdgeDefinition struct {
	Source             string  `json:"source" yaml:"source" validate:"required,max=64"`
	Target             string  `json:"target" yaml:"target" validate:"required,max=64,nefield=Source"`
	DependencyType     string  `json:"dependency_type" yaml:"dependency_type" validate:"required,max=50"`
	Weight             float64 `json:"weight" yaml:"weight" validate:"gte=0,lte=1"`
	RecoveryDependency float64 `json:"recovery_dependency" yaml:"recovery_dependency" validate:"gte=0,lte=1"`
	DistanceKm         float64 `json:"distance_km" yaml:"distance_km" validate:"gte=0"`
	DelayMinutes       int     `json:"delay_minutes" yaml:"delay_minutes" validate:"gte=0"`
}

// DisasterRequest is an external disaster trigger before it reaches the
// risk analysis path.
type DisasterRequest struct {
	Type     string  `json:"type" validate:"required,oneof=flood fire earthquake cyclone landslide"`
	Severity float64 `json:"severity" validate:"gte=0,lte=1"`
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon      float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// ValidateNodeDefinition validates a facility definition
func ValidateNodeDefinition(def *NodeDefinition) error {
	if def == nil {
		return errors.New("node definition cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(def); err != nil {
		return formatValidationError(err)
	}

	// Additional identifier validation
	if err := ValidateNodeID(def.ID); err != nil {
		return fmt.Errorf("ID: %w", err)
	}

	return nil
}

// ValidateEdgeDefinition validates a dependency definition
func ValidateEdgeDefinition(def *EdgeDefinition) error {
	if def == nil {
		return errors.New("edge definition cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(def); err != nil {
		return formatValidationError(err)
	}

	// Additional identifier validation
	if err := ValidateNodeID(def.Source); err != nil {
		return fmt.Errorf("Source: %w", err)
	}
	if err := ValidateNodeID(def.Target); err != nil {
		return fmt.Errorf("Target: %w", err)
	}
	if !idPattern.MatchString(def.DependencyType) {
		return fmt.Errorf("DependencyType: '%s' contains invalid characters (lowercase snake_case required)", def.DependencyType)
	}

	return nil
}

// ValidateDisasterRequest validates an incoming disaster trigger
func ValidateDisasterRequest(req *DisasterRequest) error {
	if req == nil {
		return errors.New("disaster request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	return nil
}

// ValidateNodeID validates a facility identifier
func ValidateNodeID(id string) error {
	if id == "" {
		return errors.New("node id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("node id '%s' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("node id '%s' is invalid (must start with a lowercase letter, followed by lowercase alphanumeric or underscore)", id)
	}
	return nil
}

// ValidateBatchSize validates the size of a topology batch
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("batch size must be at least %d, got %d", MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidateStruct runs tag validation on an arbitrary struct. Config
// structs elsewhere carry their own validate tags and reuse the
// singleton through this entry point.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "oneof":
			return fmt.Errorf("%s: value '%v' must be one of: %s", field, e.Value(), param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		case "ltefield":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "url":
			return fmt.Errorf("%s: must be a valid URL", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
