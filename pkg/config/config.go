// Package config provides configuration loading and management for srgmatch.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Weights control the cost spaces of the matcher
	Weights struct {
		// Initial weights the size-excluded vertex space of the first-pass
		// nearest-label matching (centroid x/y/z, intensity)
		Initial []float64 `yaml:"initial"`

		// Vertex weights the full vertex space (centroid x/y/z, intensity, size)
		Vertex []float64 `yaml:"vertex"`

		// Edge weights the relational space (position x/y/z, contrast, ratio)
		Edge []float64 `yaml:"edge"`

		// Graph mixes the vertex and edge terms of the global cost
		Graph []float64 `yaml:"graph"`
	} `yaml:"weights"`

	// Solver parameters
	Solver struct {
		// MaxEpochs bounds the improvement loop; 0 lets the solver derive it
		// from the super-region count
		MaxEpochs int `yaml:"maxEpochs"`

		// Cutoff is the number of super-regions attempted per epoch
		Cutoff int `yaml:"cutoff"`

		// Workers bounds the goroutines used to score candidate labels
		Workers int `yaml:"workers"`

		// Connectivity is the spatial neighborhood rule, 6 or 26
		Connectivity int `yaml:"connectivity"`

		// RepairFirst runs contiguity repair before the improvement loop
		RepairFirst bool `yaml:"repairFirst"`
	} `yaml:"solver"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Default weights match the calibration the matcher ships with: equal
	// initial weights, a size-heavy vertex space, even relational weights.
	cfg.Weights.Initial = []float64{1, 1, 1, 1}
	cfg.Weights.Vertex = []float64{1, 1, 1, 1, 10}
	cfg.Weights.Edge = []float64{1, 1, 1, 1, 1}
	cfg.Weights.Graph = []float64{1, 1}

	// Set default solver parameters
	cfg.Solver.MaxEpochs = 0
	cfg.Solver.Cutoff = 1
	cfg.Solver.Workers = runtime.NumCPU()
	cfg.Solver.Connectivity = 6
	cfg.Solver.RepairFirst = false

	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for values the solver cannot accept
func (c *Config) Validate() error {
	if n := c.Solver.Connectivity; n != 6 && n != 26 {
		return fmt.Errorf("connectivity must be 6 or 26, got %d", n)
	}
	if len(c.Weights.Initial) != 4 {
		return fmt.Errorf("weights.initial needs 4 entries, got %d", len(c.Weights.Initial))
	}
	if len(c.Weights.Vertex) != 5 {
		return fmt.Errorf("weights.vertex needs 5 entries, got %d", len(c.Weights.Vertex))
	}
	if len(c.Weights.Edge) != 5 {
		return fmt.Errorf("weights.edge needs 5 entries, got %d", len(c.Weights.Edge))
	}
	if len(c.Weights.Graph) != 2 {
		return fmt.Errorf("weights.graph needs 2 entries, got %d", len(c.Weights.Graph))
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
