package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StressConfig represents the query-stress configuration file
type StressConfig struct {
	Version   string           `yaml:"version"`
	Duration  time.Duration    `yaml:"duration,omitempty"` // Total run time (default 10s)
	Workers   int              `yaml:"workers,omitempty"`  // Concurrent schedulers (default 4)
	Data      DataConfig       `yaml:"data"`
	Query     QueryConfig      `yaml:"query"`
	Blueprint *BlueprintConfig `yaml:"blueprint,omitempty"`
}

// DataConfig specifies the generated store content
type DataConfig struct {
	Points    int   `yaml:"points"`              // Number of Points2D entities
	Scalars   int   `yaml:"scalars"`             // Number of Scalars entities
	Instances int   `yaml:"instances,omitempty"` // Points per Points2D row (default 50)
	Times     int   `yaml:"times"`               // Rows logged per entity
	Seed      int64 `yaml:"seed,omitempty"`      // Random seed, 0 picks one
}

// QueryConfig specifies how the workers query the store
type QueryConfig struct {
	Window int64 `yaml:"window"`         // Length of the scalar range window
	Step   int64 `yaml:"step,omitempty"` // Frame time increment (default 1)
}

// BlueprintConfig specifies the override and default values
type BlueprintConfig struct {
	OverrideEvery int      `yaml:"override_every,omitempty"` // Override the color of every Nth entity (0 = none)
	DefaultColor  *uint32  `yaml:"default_color,omitempty"`  // View-wide color default
	DefaultRadius *float32 `yaml:"default_radius,omitempty"` // View-wide radius default
}

// Default returns the configuration used when no file is given
func Default() *StressConfig {
	c := &StressConfig{
		Version: "1.0",
		Data: DataConfig{
			Points:  20,
			Scalars: 100,
			Times:   500,
		},
		Query: QueryConfig{
			Window: 100,
		},
	}
	c.applyDefaults()
	return c
}

func (c *StressConfig) applyDefaults() {
	if c.Duration == 0 {
		c.Duration = 10 * time.Second
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Data.Instances == 0 {
		c.Data.Instances = 50
	}
	if c.Query.Step == 0 {
		c.Query.Step = 1
	}
}

// Validate performs strict validation on the configuration
func (c *StressConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if c.Duration < 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Data.Points < 0 || c.Data.Scalars < 0 {
		return fmt.Errorf("entity counts must not be negative")
	}
	if c.Data.Points+c.Data.Scalars == 0 {
		return fmt.Errorf("no entities defined")
	}
	if c.Data.Times <= 0 {
		return fmt.Errorf("times must be positive, got %d", c.Data.Times)
	}
	if c.Data.Instances < 0 {
		return fmt.Errorf("instances must be positive, got %d", c.Data.Instances)
	}
	if c.Query.Window <= 0 {
		return fmt.Errorf("query window must be positive, got %d", c.Query.Window)
	}
	if c.Query.Step < 0 {
		return fmt.Errorf("query step must be positive, got %d", c.Query.Step)
	}

	if c.Blueprint != nil && c.Blueprint.OverrideEvery < 0 {
		return fmt.Errorf("blueprint.override_every must not be negative, got %d", c.Blueprint.OverrideEvery)
	}

	return nil
}

// Load reads and validates a configuration file
func Load(path string) (*StressConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config StressConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
