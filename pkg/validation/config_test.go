package validation

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Bucket", "")

	if !cv.HasErrors() {
		t.Error("Expected error for empty required field")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Bucket", "cascade-archive")

	if cv2.HasErrors() {
		t.Error("Expected no error for non-empty required field")
	}
}

func TestConfigValidator_Positive(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Positive("Capacity", 0)

	if !cv.HasErrors() {
		t.Error("Expected error for zero value")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Positive("Capacity", -5)

	if !cv2.HasErrors() {
		t.Error("Expected error for negative value")
	}

	cv3 := NewConfigValidator("TestConfig")
	cv3.Positive("Capacity", 100)

	if cv3.HasErrors() {
		t.Error("Expected no error for positive value")
	}
}

func TestConfigValidator_RangeInt(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		min       int
		max       int
		expectErr bool
	}{
		{"below range", 0, 1, 6, true},
		{"above range", 7, 1, 6, true},
		{"at min", 1, 1, 6, false},
		{"at max", 6, 1, 6, false},
		{"in range", 4, 1, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.RangeInt("StepCap", tt.value, tt.min, tt.max)

			if tt.expectErr && !cv.HasErrors() {
				t.Error("Expected error")
			}
			if !tt.expectErr && cv.HasErrors() {
				t.Errorf("Unexpected error: %v", cv.Error())
			}
		})
	}
}

func TestConfigValidator_MinDuration(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.MinDuration("Interval", 500*time.Millisecond, 1*time.Second)

	if !cv.HasErrors() {
		t.Error("Expected error for duration below minimum")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.MinDuration("Interval", 30*time.Second, 1*time.Second)

	if cv2.HasErrors() {
		t.Error("Expected no error for duration at or above minimum")
	}
}

func TestConfigValidator_Probability(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		expectErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"interior", 0.85, false},
		{"negative", -0.1, true},
		{"above one", 1.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.Probability("Confidence", tt.value)

			if tt.expectErr && !cv.HasErrors() {
				t.Error("Expected error")
			}
			if !tt.expectErr && cv.HasErrors() {
				t.Errorf("Unexpected error: %v", cv.Error())
			}
		})
	}
}

func TestConfigValidator_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		expectErr bool
	}{
		{"zero excluded", 0, true},
		{"one included", 1, false},
		{"interior", 0.6, false},
		{"negative", -0.5, true},
		{"above one", 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("TestConfig")
			cv.Threshold("HealthThreshold", tt.value)

			if tt.expectErr && !cv.HasErrors() {
				t.Error("Expected error")
			}
			if !tt.expectErr && cv.HasErrors() {
				t.Errorf("Unexpected error: %v", cv.Error())
			}
		})
	}
}

func TestConfigValidator_OneOf(t *testing.T) {
	allowed := []string{"debug", "info", "warn", "error"}

	cv := NewConfigValidator("TestConfig")
	cv.OneOf("LogLevel", "trace", allowed)

	if !cv.HasErrors() {
		t.Error("Expected error for value not in allowed list")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.OneOf("LogLevel", "info", allowed)

	if cv2.HasErrors() {
		t.Error("Expected no error for allowed value")
	}
}

func TestConfigValidator_Custom(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Custom("Influx", func() error {
		return errors.New("custom validation failed")
	})

	if !cv.HasErrors() {
		t.Error("Expected error from custom validation")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Custom("Influx", func() error {
		return nil
	})

	if cv2.HasErrors() {
		t.Error("Expected no error from passing custom validation")
	}
}

func TestConfigValidator_When(t *testing.T) {
	// Condition true - validation should run
	cv := NewConfigValidator("TestConfig")
	cv.When(true, func(v *ConfigValidator) {
		v.Positive("Capacity", -1)
	})

	if !cv.HasErrors() {
		t.Error("Expected error when condition is true")
	}

	// Condition false - validation should not run
	cv2 := NewConfigValidator("TestConfig")
	cv2.When(false, func(v *ConfigValidator) {
		v.Positive("Capacity", -1)
	})

	if cv2.HasErrors() {
		t.Error("Expected no error when condition is false")
	}
}

func TestConfigValidator_Chaining(t *testing.T) {
	cv := NewConfigValidator("MonitorConfig")
	cv.MinDuration("Interval", 30*time.Second, 1*time.Second).
		Threshold("HealthThreshold", 0.6).
		Threshold("LoadRatioThreshold", 0.9).
		Positive("HistoryCapacity", 100)

	if cv.HasErrors() {
		t.Errorf("Expected no errors for valid config, got: %v", cv.Error())
	}
}

func TestConfigValidator_MultipleErrors(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Bucket", "").
		Positive("Capacity", -1).
		MinDuration("Interval", 0, 1*time.Second)

	if len(cv.Errors()) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(cv.Errors()))
	}
}

func TestConfigValidator_Validate(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("Bucket", "")

	err := cv.Validate()
	if err == nil {
		t.Error("Expected error from Validate()")
	}

	cv2 := NewConfigValidator("TestConfig")
	cv2.Required("Bucket", "predictions")

	err2 := cv2.Validate()
	if err2 != nil {
		t.Errorf("Expected no error from Validate(), got: %v", err2)
	}
}

func TestDefaultOr(t *testing.T) {
	if DefaultOr("", "info") != "info" {
		t.Error("Expected default for empty string")
	}
	if DefaultOr("debug", "info") != "debug" {
		t.Error("Expected value for non-empty string")
	}
}

func TestDefaultOrInt(t *testing.T) {
	if DefaultOrInt(0, 100) != 100 {
		t.Error("Expected default for zero")
	}
	if DefaultOrInt(-5, 100) != 100 {
		t.Error("Expected default for negative")
	}
	if DefaultOrInt(50, 100) != 50 {
		t.Error("Expected value for positive")
	}
}

func TestDefaultOrFloat(t *testing.T) {
	if DefaultOrFloat(0, 0.85) != 0.85 {
		t.Error("Expected default for zero")
	}
	if DefaultOrFloat(-0.5, 0.85) != 0.85 {
		t.Error("Expected default for negative")
	}
	if DefaultOrFloat(0.7, 0.85) != 0.7 {
		t.Error("Expected value for positive")
	}
}

func TestDefaultOrDuration(t *testing.T) {
	if DefaultOrDuration(0, 30*time.Second) != 30*time.Second {
		t.Error("Expected default for zero duration")
	}
	if DefaultOrDuration(-1*time.Second, 30*time.Second) != 30*time.Second {
		t.Error("Expected default for negative duration")
	}
	if DefaultOrDuration(10*time.Second, 30*time.Second) != 10*time.Second {
		t.Error("Expected value for positive duration")
	}
}

// Example of a validatable config struct
type tickConfig struct {
	Interval        time.Duration
	HealthThreshold float64
}

func (c *tickConfig) Validate() error {
	return NewConfigValidator("tickConfig").
		MinDuration("Interval", c.Interval, 1*time.Second).
		Threshold("HealthThreshold", c.HealthThreshold).
		Validate()
}

func TestValidateConfig(t *testing.T) {
	validConfig := &tickConfig{
		Interval:        30 * time.Second,
		HealthThreshold: 0.6,
	}

	if err := ValidateConfig(validConfig); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}

	invalidConfig := &tickConfig{
		Interval:        0,
		HealthThreshold: 0,
	}

	if err := ValidateConfig(invalidConfig); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	err := ValidateConfig(nil)
	if err == nil {
		t.Error("Expected error for nil config")
	}
}
