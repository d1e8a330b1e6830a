package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-cascade/pkg/analysis"
	"github.com/dd0wney/cluso-cascade/pkg/archive"
	"github.com/dd0wney/cluso-cascade/pkg/history"
	"github.com/dd0wney/cluso-cascade/pkg/monitor"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
	"github.com/dd0wney/cluso-cascade/pkg/strategy"
	"github.com/dd0wney/cluso-cascade/pkg/validation"
)

// Duration wraps time.Duration so config files can write "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string such as \"30s\", got %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TopologyConfig selects the graph the engine starts with. With Seed set
// the built-in Mumbai reference topology loads; File layers a YAML
// definition file on top of (or instead of) it.
type TopologyConfig struct {
	Seed bool   `yaml:"seed"`
	File string `yaml:"file"`
}

// SimulationConfig tunes propagation runs.
type SimulationConfig struct {
	StepCap    int     `yaml:"step_cap"`
	Confidence float64 `yaml:"confidence"`
}

// AnalysisConfig tunes criticality scoring.
type AnalysisConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"`
}

// MonitorConfig tunes the surveillance loop. Seed fixes the telemetry
// drift source so demo runs replay identically.
type MonitorConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Interval           Duration `yaml:"interval"`
	HealthThreshold    float64  `yaml:"health_threshold"`
	LoadRatioThreshold float64  `yaml:"load_ratio_threshold"`
	Seed               int64    `yaml:"seed"`
}

// HistoryConfig bounds the in-memory prediction ring.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// StrategyConfig bounds the stabilization strategy catalog.
type StrategyConfig struct {
	CatalogCapacity int `yaml:"catalog_capacity"`
}

// InfluxConfig enables time-series recording of predictions and vitals.
type InfluxConfig struct {
	Enabled              bool `yaml:"enabled"`
	history.InfluxConfig `yaml:",inline"`
}

// ArchiveConfig enables the durable prediction archive.
type ArchiveConfig struct {
	Enabled        bool `yaml:"enabled"`
	archive.Config `yaml:",inline"`
}

// Config is the engine's full configuration tree.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Topology   TopologyConfig   `yaml:"topology"`
	Simulation SimulationConfig `yaml:"simulation"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	History    HistoryConfig    `yaml:"history"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Influx     InfluxConfig     `yaml:"influx"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// DefaultConfig returns the configuration the engine runs with when no
// file or environment overrides apply.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Topology: TopologyConfig{Seed: true},
		Simulation: SimulationConfig{
			StepCap:    simulation.DefaultStepCap,
			Confidence: simulation.DefaultConfidence,
		},
		Analysis: AnalysisConfig{RefreshInterval: Duration(analysis.DefaultRefreshInterval)},
		Monitor: MonitorConfig{
			Interval:           Duration(monitor.DefaultInterval),
			HealthThreshold:    monitor.DefaultHealthThreshold,
			LoadRatioThreshold: monitor.DefaultLoadRatioThreshold,
		},
		History:  HistoryConfig{Capacity: history.DefaultCapacity},
		Strategy: StrategyConfig{CatalogCapacity: strategy.DefaultCatalogCapacity},
		Archive: ArchiveConfig{
			Config: archive.Config{SegmentMaxBytes: archive.DefaultSegmentMaxBytes},
		},
	}
}

// LoadConfig reads a YAML file over the defaults, then applies
// environment overrides. An empty path skips the file and still honors
// the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from CASCADE_* environment variables.
// Secrets belong here rather than in config files.
func (c *Config) applyEnv() {
	c.LogLevel = envOr("CASCADE_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("CASCADE_INFLUX_URL"); v != "" {
		c.Influx.Enabled = true
		c.Influx.URL = v
	}
	c.Influx.Token = envOr("CASCADE_INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = envOr("CASCADE_INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = envOr("CASCADE_INFLUX_BUCKET", c.Influx.Bucket)

	if v := os.Getenv("CASCADE_ARCHIVE_DIR"); v != "" {
		c.Archive.Enabled = true
		c.Archive.Dir = v
	}
	if v := os.Getenv("CASCADE_S3_BUCKET"); v != "" {
		c.Archive.S3.Enabled = true
		c.Archive.S3.Bucket = v
	}
	c.Archive.S3.Endpoint = envOr("CASCADE_S3_ENDPOINT", c.Archive.S3.Endpoint)
	c.Archive.S3.Region = envOr("CASCADE_S3_REGION", c.Archive.S3.Region)
	c.Archive.S3.AccessKey = envOr("CASCADE_S3_ACCESS_KEY", c.Archive.S3.AccessKey)
	c.Archive.S3.SecretKey = envOr("CASCADE_S3_SECRET_KEY", c.Archive.S3.SecretKey)

	if v := os.Getenv("CASCADE_MONITOR_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Monitor.Interval = Duration(d)
		}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	return validation.NewConfigValidator("engine").
		OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"}).
		RangeInt("simulation.step_cap", c.Simulation.StepCap, 1, simulation.MaxStepCap).
		Probability("simulation.confidence", c.Simulation.Confidence).
		MinDuration("analysis.refresh_interval", c.Analysis.RefreshInterval.Std(), time.Second).
		MinDuration("monitor.interval", c.Monitor.Interval.Std(), time.Second).
		Threshold("monitor.health_threshold", c.Monitor.HealthThreshold).
		Threshold("monitor.load_ratio_threshold", c.Monitor.LoadRatioThreshold).
		RangeInt("history.capacity", c.History.Capacity, 1, 10000).
		RangeInt("strategy.catalog_capacity", c.Strategy.CatalogCapacity, 1, 10000).
		When(c.Influx.Enabled, func(v *validation.ConfigValidator) {
			v.Custom("influx", func() error {
				return validation.ValidateStruct(&c.Influx.InfluxConfig)
			})
		}).
		When(c.Archive.Enabled, func(v *validation.ConfigValidator) {
			v.Required("archive.dir", c.Archive.Dir)
			v.Custom("archive.segment_max_bytes", func() error {
				if c.Archive.SegmentMaxBytes < 0 {
					return fmt.Errorf("must not be negative")
				}
				return nil
			})
			v.When(c.Archive.S3.Enabled, func(v *validation.ConfigValidator) {
				v.Required("archive.s3.bucket", c.Archive.S3.Bucket)
				v.Required("archive.s3.region", c.Archive.S3.Region)
			})
		}).
		Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
