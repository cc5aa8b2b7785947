// Package config provides configuration loading and management for seistt.
// It handles loading configuration from YAML files and provides default
// values, including the velocity model variant selection that decides
// which ray tracer backend a run instantiates.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// BreakpointConfig is one node of a layered velocity profile in the
// configuration file.
type BreakpointConfig struct {
	// Depth below the reference datum in m, positive down.
	Depth float64 `yaml:"depth"`

	// Vp is the P-wave velocity at this depth in m/s.
	Vp float64 `yaml:"vp"`

	// Vs is the S-wave velocity at this depth in m/s.
	Vs float64 `yaml:"vs"`
}

// StationConfig is one receiver position in the configuration file.
type StationConfig struct {
	// Code is the station identifier.
	Code string `yaml:"code"`

	// East, North, Depth are local Cartesian coordinates in m.
	East  float64 `yaml:"east"`
	North float64 `yaml:"north"`
	Depth float64 `yaml:"depth"`
}

// SourceConfig is one source position in the configuration file.
type SourceConfig struct {
	// Name labels the source in reports.
	Name string `yaml:"name"`

	// East, North, Depth are local Cartesian coordinates in m.
	East  float64 `yaml:"east"`
	North float64 `yaml:"north"`
	Depth float64 `yaml:"depth"`
}

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Model selects the velocity model variant and its parameters.
	Model struct {
		// Type selects the variant: "constant", "layered" or "grid3d".
		Type string `yaml:"type"`

		// Constant parameters, used when Type is "constant".
		Constant struct {
			// Vp and Vs are the homogeneous velocities in m/s.
			Vp float64 `yaml:"vp"`
			Vs float64 `yaml:"vs"`
		} `yaml:"constant"`

		// Layered parameters, used when Type is "layered".
		Layered struct {
			// Breakpoints define the profile. Empty selects the built-in
			// continental crust default.
			Breakpoints []BreakpointConfig `yaml:"breakpoints"`

			// LayerStep bounds the thickness in m of the constant
			// velocity layers the built-in 1D solver discretizes into.
			LayerStep float64 `yaml:"layerStep"`
		} `yaml:"layered"`

		// Grid3D parameters, used when Type is "grid3d".
		Grid3D struct {
			// PHeader is the path to the NonLinLoc header file of the
			// P-velocity model; the .buf buffer sits next to it.
			PHeader string `yaml:"pHeader"`

			// SHeader optionally points at an S-velocity model. When
			// empty only P travel times can be computed.
			SHeader string `yaml:"sHeader"`
		} `yaml:"grid3d"`
	} `yaml:"model"`

	// Solver holds backend-independent solve settings.
	Solver struct {
		// NumWorkers is the number of sources solved in parallel.
		NumWorkers int `yaml:"numWorkers"`

		// Phase names the seismic phase to compute, "P" or "S".
		Phase string `yaml:"phase"`
	} `yaml:"solver"`

	// Output controls reporting and export.
	Output struct {
		// VTKDir, when set, receives legacy VTK exports of the velocity
		// grid and each source's arrival-time volume.
		VTKDir string `yaml:"vtkDir"`

		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Stations are the receivers travel times are computed to.
	Stations []StationConfig `yaml:"stations"`

	// Sources are the source positions, one travel-time table each.
	Sources []SourceConfig `yaml:"sources"`
}

// DefaultConfig returns a configuration with default values: a constant
// 5000/2890 m/s model, P phase, all CPU cores.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.Type = "constant"
	cfg.Model.Constant.Vp = 5000
	cfg.Model.Constant.Vs = 2890
	cfg.Model.Layered.LayerStep = 100

	cfg.Solver.NumWorkers = runtime.NumCPU()
	cfg.Solver.Phase = "P"

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
