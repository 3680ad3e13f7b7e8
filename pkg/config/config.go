// Package config provides configuration loading and management for porenet.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Extraction methods.
const (
	MethodSnow    = "snow"
	MethodMaxBall = "maxball"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// VoxelSize is the physical edge length of one voxel
		VoxelSize float64 `yaml:"voxelSize"`

		// Periodic lists one flag per image axis; empty means no periodic axis
		Periodic []bool `yaml:"periodic,omitempty"`

		// VoidThreshold is the gray level above which a slice pixel is void
		VoidThreshold uint8 `yaml:"voidThreshold"`
	} `yaml:"processing"`

	// SNOW segmentation parameters
	Snow struct {
		// RMax is the radius of the peak maximum filter in voxels
		RMax float64 `yaml:"rMax"`

		// RMin merges peaks closer than this many voxels
		RMin float64 `yaml:"rMin"`

		// Sigma is the Gaussian pre-smoothing of the distance field in voxels
		Sigma float64 `yaml:"sigma"`
	} `yaml:"snow"`

	// Network extraction parameters
	Extraction struct {
		// Method is "snow" or "maxball"
		Method string `yaml:"method"`

		// SplitPatches emits one throat per contact patch
		SplitPatches bool `yaml:"splitPatches"`

		// MinConduitLength floors conduit lengths, in voxel lengths
		MinConduitLength float64 `yaml:"minConduitLength"`
	} `yaml:"extraction"`

	// Voxel image synthesis parameters
	Synthesis struct {
		PoreShape   string  `yaml:"poreShape"`
		ThroatShape string  `yaml:"throatShape"`
		MaxDim      int     `yaml:"maxDim"`
		RTol        float64 `yaml:"rTol"`
	} `yaml:"synthesis"`

	// External maximal-ball extractor
	MaxBall struct {
		// Executable is the path to the pnextract binary
		Executable string `yaml:"executable"`

		// Prefix names the intermediate and output files
		Prefix string `yaml:"prefix"`

		// KeepOutputs copies the Statoil files to OutputDir
		KeepOutputs bool `yaml:"keepOutputs"`

		// OutputDir receives kept outputs
		OutputDir string `yaml:"outputDir"`
	} `yaml:"maxball"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save slice previews of each stage
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where stage previews are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// PreviewFormat is "webp" or "png"
		PreviewFormat string `yaml:"previewFormat"`

		// LogLevel is a zerolog level name
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.VoxelSize = 1.0
	cfg.Processing.VoidThreshold = 127

	// Set default SNOW parameters
	cfg.Snow.RMax = 4
	cfg.Snow.RMin = 2
	cfg.Snow.Sigma = 0.4

	// Set default extraction parameters
	cfg.Extraction.Method = MethodSnow
	cfg.Extraction.MinConduitLength = 0.01

	// Set default synthesis parameters
	cfg.Synthesis.PoreShape = "sphere"
	cfg.Synthesis.ThroatShape = "cylinder"
	cfg.Synthesis.MaxDim = 200
	cfg.Synthesis.RTol = 0.1

	// Set default maximal-ball parameters
	cfg.MaxBall.Prefix = "maxball"

	// Set default output parameters
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.PreviewFormat = "webp"
	cfg.Output.LogLevel = "info"

	return cfg
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Processing.NumCores < 0 {
		errs = append(errs, fmt.Errorf("processing.numCores must not be negative, got %d", c.Processing.NumCores))
	}
	if c.Processing.VoxelSize <= 0 {
		errs = append(errs, fmt.Errorf("processing.voxelSize must be positive, got %g", c.Processing.VoxelSize))
	}
	if c.Snow.RMax < 0 || c.Snow.RMin < 0 || c.Snow.Sigma < 0 {
		errs = append(errs, fmt.Errorf("snow parameters must not be negative"))
	}
	switch c.Extraction.Method {
	case MethodSnow:
	case MethodMaxBall:
		if c.MaxBall.Executable == "" {
			errs = append(errs, fmt.Errorf("maxball.executable is required for method %q", MethodMaxBall))
		}
	default:
		errs = append(errs, fmt.Errorf("extraction.method must be %q or %q, got %q", MethodSnow, MethodMaxBall, c.Extraction.Method))
	}
	switch c.Output.PreviewFormat {
	case "webp", "png":
	default:
		errs = append(errs, fmt.Errorf("output.previewFormat must be webp or png, got %q", c.Output.PreviewFormat))
	}
	return errors.Join(errs...)
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

	// Parse YAML over the defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
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
	return SaveConfig(DefaultConfig(), configPath)
}
