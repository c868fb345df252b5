// Package config provides configuration loading and management for petsegm.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"petsegm/pkg/morphology"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Region describes one spherical structure of the synthetic phantom and
// the uptake curve A·(1−e^(−k1·t))·e^(−k2·t) of its voxels.
type Region struct {
	// Name is used in logs and reports
	Name string `yaml:"name"`

	// Centre is the sphere centre as plane, row, column
	Centre [3]int `yaml:"centre"`

	// Radius of the sphere in voxels
	Radius float64 `yaml:"radius"`

	// Amplitude, K1, K2 parameterise the uptake curve
	Amplitude float64 `yaml:"amplitude"`
	K1        float64 `yaml:"k1"`
	K2        float64 `yaml:"k2"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Region growing parameters
	Segmentation struct {
		// CVLimit is the largest AUC coefficient of variation between a seed
		// and a candidate voxel
		CVLimit float64 `yaml:"cvLimit"`

		// CCLimit is the smallest Pearson correlation between a seed TAC and
		// a candidate TAC
		CCLimit float64 `yaml:"ccLimit"`
	} `yaml:"segmentation"`

	// Kinetic neighbourhood smoothing parameters
	Smoothing struct {
		// Enabled runs the filter before segmentation
		Enabled bool `yaml:"enabled"`

		// Dim is the neighbourhood edge length, 3 or 5
		Dim int `yaml:"dim"`

		// Neighbours is the number of similar TACs averaged per voxel
		Neighbours int `yaml:"neighbours"`
	} `yaml:"smoothing"`

	// Foreground mask parameters
	Mask struct {
		// ThresholdFraction of the maximum AUC above which a voxel is foreground
		ThresholdFraction float64 `yaml:"thresholdFraction"`

		// StructuringElement is one of cube, rounded or star
		StructuringElement string `yaml:"structuringElement"`

		// OpenIterations is the number of erosion/dilation rounds; 0 disables opening
		OpenIterations int `yaml:"openIterations"`

		// MinRegionSize drops connected mask regions with fewer voxels
		MinRegionSize int `yaml:"minRegionSize"`
	} `yaml:"mask"`

	// Synthetic input parameters
	Phantom struct {
		Planes int `yaml:"planes"`
		Rows   int `yaml:"rows"`
		Cols   int `yaml:"cols"`
		Frames int `yaml:"frames"`

		// FrameDuration is the length of every frame in minutes
		FrameDuration float64 `yaml:"frameDuration"`

		// Noise is the standard deviation of the additive Gaussian noise
		Noise float64 `yaml:"noise"`

		// Seed makes the noise reproducible
		Seed uint64 `yaml:"seed"`

		Regions []Region `yaml:"regions"`
	} `yaml:"phantom"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// Dir is where reports, plots and slices are written
		Dir string `yaml:"dir"`

		// LogLevel is one of debug, info, warn or error
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default segmentation parameters
	cfg.Segmentation.CVLimit = 1.0
	cfg.Segmentation.CCLimit = 0.9

	// Set default smoothing parameters
	cfg.Smoothing.Enabled = true
	cfg.Smoothing.Dim = 3
	cfg.Smoothing.Neighbours = 9

	// Set default mask parameters
	cfg.Mask.ThresholdFraction = 0.2
	cfg.Mask.StructuringElement = morphology.Star.String()
	cfg.Mask.OpenIterations = 1
	cfg.Mask.MinRegionSize = 8

	// Set default phantom parameters
	cfg.Phantom.Planes = 16
	cfg.Phantom.Rows = 32
	cfg.Phantom.Cols = 32
	cfg.Phantom.Frames = 12
	cfg.Phantom.FrameDuration = 1.0
	cfg.Phantom.Noise = 0.2
	cfg.Phantom.Seed = 42
	cfg.Phantom.Regions = []Region{
		{Name: "accumulating", Centre: [3]int{8, 10, 10}, Radius: 4, Amplitude: 10, K1: 0.8, K2: 0.02},
		{Name: "washout", Centre: [3]int{8, 22, 22}, Radius: 4, Amplitude: 40, K1: 1.5, K2: 0.4},
	}

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.Dir = "output"
	cfg.Output.LogLevel = "info"

	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Segmentation.CCLimit < -1 || c.Segmentation.CCLimit > 1 {
		return fmt.Errorf("%w: segmentation.ccLimit must be between -1 and 1", ErrInvalidConfig)
	}
	if c.Segmentation.CVLimit < 0 {
		return fmt.Errorf("%w: segmentation.cvLimit must not be negative", ErrInvalidConfig)
	}
	if c.Smoothing.Enabled {
		if c.Smoothing.Dim != 3 && c.Smoothing.Dim != 5 {
			return fmt.Errorf("%w: smoothing.dim must be 3 or 5", ErrInvalidConfig)
		}
		if c.Smoothing.Neighbours < 1 {
			return fmt.Errorf("%w: smoothing.neighbours must be positive", ErrInvalidConfig)
		}
	}
	if c.Mask.ThresholdFraction < 0 || c.Mask.ThresholdFraction >= 1 {
		return fmt.Errorf("%w: mask.thresholdFraction must be in [0, 1)", ErrInvalidConfig)
	}
	if _, err := morphology.ParseKind(c.Mask.StructuringElement); err != nil {
		return fmt.Errorf("%w: mask.structuringElement: %v", ErrInvalidConfig, err)
	}
	if c.Mask.OpenIterations < 0 || c.Mask.MinRegionSize < 0 {
		return fmt.Errorf("%w: mask.openIterations and mask.minRegionSize must not be negative", ErrInvalidConfig)
	}
	p := c.Phantom
	if p.Planes < 1 || p.Rows < 1 || p.Cols < 1 || p.Frames < 1 {
		return fmt.Errorf("%w: phantom dimensions must be positive", ErrInvalidConfig)
	}
	if p.FrameDuration <= 0 {
		return fmt.Errorf("%w: phantom.frameDuration must be positive", ErrInvalidConfig)
	}
	if p.Noise < 0 {
		return fmt.Errorf("%w: phantom.noise must not be negative", ErrInvalidConfig)
	}
	for i, r := range p.Regions {
		if r.Radius <= 0 {
			return fmt.Errorf("%w: phantom.regions[%d].radius must be positive", ErrInvalidConfig, i)
		}
	}
	switch c.Output.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: output.logLevel %q", ErrInvalidConfig, c.Output.LogLevel)
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

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
