// Package config provides configuration loading and management for vesselness3d.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"vesselness3d/pkg/vesselness"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Vesselness filter parameters
	Vesselness struct {
		// ScaleStart and ScaleStop bound the half-open range of Gaussian sigmas
		ScaleStart float64 `yaml:"scaleStart"`
		ScaleStop  float64 `yaml:"scaleStop"`

		// ScaleStep is the increment between consecutive sigmas
		ScaleStep float64 `yaml:"scaleStep"`

		// Alpha and Beta shape the plate and blob suppression factors
		Alpha float64 `yaml:"alpha"`
		Beta  float64 `yaml:"beta"`

		// FrangiC is the fixed background-suppression constant
		FrangiC float64 `yaml:"frangiC"`

		// EstimateFrangiC replaces FrangiC with a per-scale estimate
		EstimateFrangiC bool `yaml:"estimateFrangiC"`

		// BlackVessels selects the polarity of the structures kept
		BlackVessels bool `yaml:"blackVessels"`
	} `yaml:"vesselness"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores the Hessian computation uses
		NumCores int `yaml:"numCores"`

		// ScaleWorkers specifies how many scales are filtered concurrently
		ScaleWorkers int `yaml:"scaleWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// DebugDir receives intermediate volumes when non-empty
		DebugDir string `yaml:"debugDir"`

		// PreviewImages writes PNG projections next to saved volumes
		PreviewImages bool `yaml:"previewImages"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	p := vesselness.DefaultParams()

	cfg.Vesselness.ScaleStart = p.ScaleRange[0]
	cfg.Vesselness.ScaleStop = p.ScaleRange[1]
	cfg.Vesselness.ScaleStep = p.ScaleStep
	cfg.Vesselness.Alpha = p.Alpha
	cfg.Vesselness.Beta = p.Beta
	cfg.Vesselness.FrangiC = p.FrangiC
	cfg.Vesselness.EstimateFrangiC = p.EstimateFrangiC
	cfg.Vesselness.BlackVessels = p.BlackVessels

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.ScaleWorkers = p.Workers

	cfg.Output.DebugDir = ""
	cfg.Output.PreviewImages = false
	cfg.Output.Verbose = true

	return cfg
}

// Params converts the vesselness section into filter parameters
func (c *Config) Params() vesselness.Params {
	return vesselness.Params{
		ScaleRange:      [2]float64{c.Vesselness.ScaleStart, c.Vesselness.ScaleStop},
		ScaleStep:       c.Vesselness.ScaleStep,
		Alpha:           c.Vesselness.Alpha,
		Beta:            c.Vesselness.Beta,
		FrangiC:         c.Vesselness.FrangiC,
		BlackVessels:    c.Vesselness.BlackVessels,
		EstimateFrangiC: c.Vesselness.EstimateFrangiC,
		Workers:         c.Processing.ScaleWorkers,
	}
}

// Validate checks that the configuration describes a runnable filter
func (c *Config) Validate() error {
	if _, err := c.Params().Scales(); err != nil {
		return err
	}
	if c.Vesselness.Alpha <= 0 || c.Vesselness.Beta <= 0 {
		return fmt.Errorf("alpha and beta must be positive, got %v and %v", c.Vesselness.Alpha, c.Vesselness.Beta)
	}
	if c.Processing.NumCores < 0 || c.Processing.ScaleWorkers < 0 {
		return fmt.Errorf("worker counts must not be negative, got numCores %d scaleWorkers %d",
			c.Processing.NumCores, c.Processing.ScaleWorkers)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// A missing or empty file yields the defaults. Unknown keys are rejected.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file, replacing any existing one
func SaveConfig(cfg *Config, configPath string) error {
	return writeConfig(cfg, configPath, os.O_TRUNC)
}

// CreateDefaultConfigFile writes the default configuration to configPath.
// An existing file is left untouched and reported as an error.
func CreateDefaultConfigFile(configPath string) error {
	return writeConfig(DefaultConfig(), configPath, os.O_EXCL)
}

func writeConfig(cfg *Config, configPath string, mode int) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|mode, 0644)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("error marshaling config: %w", err)
	}
	return f.Close()
}
