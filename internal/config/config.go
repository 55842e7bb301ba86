// Package config provides unified configuration loading for sequor.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PriorKind and SimulatorKind values accepted in configuration.
const (
	PriorBoxUniform = "box-uniform"
	PriorGaussian   = "gaussian"

	SimulatorLinearGaussian = "linear-gaussian"
	SimulatorTwoMoons       = "two-moons"
)

// Config contains all settings for one inference run.
type Config struct {
	// Inference controls the multi-round loop.
	Inference InferenceConfig `json:"inference" yaml:"inference"`

	// Prior describes the parameter prior.
	Prior PriorConfig `json:"prior" yaml:"prior"`

	// Simulator selects and parameterizes the simulator.
	Simulator SimulatorConfig `json:"simulator" yaml:"simulator"`

	// Observation is the target observation the run conditions on.
	Observation []float64 `json:"observation" yaml:"observation"`

	// Archive configures run persistence.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Logging configures operational and trace output.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// InferenceConfig controls the round loop.
type InferenceConfig struct {
	// Rounds is the fixed number of simulate-train-build iterations.
	Rounds int `json:"rounds" yaml:"rounds"`

	// SimulationsPerRound is the per-round simulation budget.
	SimulationsPerRound int `json:"simulations_per_round" yaml:"simulations_per_round"`

	// Seed fixes all randomness of the run. Identical configs produce
	// identical datasets and posteriors.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// PriorConfig describes the parameter prior.
type PriorConfig struct {
	// Kind is "box-uniform" or "gaussian".
	Kind string `json:"kind" yaml:"kind"`

	// Low and High bound each dimension (box-uniform).
	Low  []float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High []float64 `json:"high,omitempty" yaml:"high,omitempty"`

	// Mean and Std parameterize an isotropic Gaussian prior (gaussian).
	Mean []float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std  float64   `json:"std,omitempty" yaml:"std,omitempty"`
}

// Dim returns the parameter dimension implied by the prior.
func (p PriorConfig) Dim() int {
	if p.Kind == PriorGaussian {
		return len(p.Mean)
	}
	return len(p.Low)
}

// SimulatorConfig selects and parameterizes the simulator.
type SimulatorConfig struct {
	// Kind is "linear-gaussian" or "two-moons".
	Kind string `json:"kind" yaml:"kind"`

	// Shift is the additive offset of the linear-gaussian simulator.
	Shift []float64 `json:"shift,omitempty" yaml:"shift,omitempty"`

	// NoiseStd is the observation noise of the linear-gaussian simulator.
	NoiseStd float64 `json:"noise_std,omitempty" yaml:"noise_std,omitempty"`
}

// ArchiveConfig configures run persistence.
type ArchiveConfig struct {
	// Dir is the archive directory. Empty disables archiving.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoggingConfig configures sequor's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables round tracing to <archive dir>/rounds.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults: the 3-dimensional
// linear-Gaussian reference problem, two rounds, 500 simulations per round.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Rounds:              2,
			SimulationsPerRound: 500,
			Seed:                1,
		},
		Prior: PriorConfig{
			Kind: PriorBoxUniform,
			Low:  []float64{-2, -2, -2},
			High: []float64{2, 2, 2},
		},
		Simulator: SimulatorConfig{
			Kind:     SimulatorLinearGaussian,
			Shift:    []float64{1, 1, 1},
			NoiseStd: 0.1,
		},
		Observation: []float64{0, 0, 0},
		Archive: ArchiveConfig{
			Dir: ".sequor",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a specific YAML file, applying
// defaults for unset fields and environment overrides on top.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// Load returns defaults with environment overrides applied.
func Load() *Config {
	config := Default()
	applyEnvOverrides(config)
	return config
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Inference.Rounds < 1 {
		return fmt.Errorf("rounds must be >= 1, got %d", c.Inference.Rounds)
	}
	if c.Inference.SimulationsPerRound < 1 {
		return fmt.Errorf("simulations_per_round must be >= 1, got %d", c.Inference.SimulationsPerRound)
	}

	switch c.Prior.Kind {
	case PriorBoxUniform:
		if len(c.Prior.Low) == 0 || len(c.Prior.Low) != len(c.Prior.High) {
			return fmt.Errorf("box-uniform prior needs matching non-empty low/high bounds")
		}
	case PriorGaussian:
		if len(c.Prior.Mean) == 0 {
			return fmt.Errorf("gaussian prior needs a non-empty mean")
		}
		if c.Prior.Std <= 0 {
			return fmt.Errorf("gaussian prior std must be positive, got %v", c.Prior.Std)
		}
	default:
		return fmt.Errorf("invalid prior kind: %s (valid: %s, %s)", c.Prior.Kind, PriorBoxUniform, PriorGaussian)
	}

	switch c.Simulator.Kind {
	case SimulatorLinearGaussian:
		if len(c.Simulator.Shift) != c.Prior.Dim() {
			return fmt.Errorf("linear-gaussian shift dim %d does not match prior dim %d", len(c.Simulator.Shift), c.Prior.Dim())
		}
		if c.Simulator.NoiseStd <= 0 {
			return fmt.Errorf("linear-gaussian noise_std must be positive, got %v", c.Simulator.NoiseStd)
		}
		if len(c.Observation) != len(c.Simulator.Shift) {
			return fmt.Errorf("observation dim %d does not match simulator dim %d", len(c.Observation), len(c.Simulator.Shift))
		}
	case SimulatorTwoMoons:
		if c.Prior.Dim() != 2 {
			return fmt.Errorf("two-moons needs a 2-dimensional prior, got %d", c.Prior.Dim())
		}
		if len(c.Observation) != 2 {
			return fmt.Errorf("two-moons needs a 2-dimensional observation, got %d", len(c.Observation))
		}
	default:
		return fmt.Errorf("invalid simulator kind: %s (valid: %s, %s)", c.Simulator.Kind, SimulatorLinearGaussian, SimulatorTwoMoons)
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SEQUOR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("SEQUOR_ARCHIVE_DIR"); v != "" {
		config.Archive.Dir = v
	}
	if v := os.Getenv("SEQUOR_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Inference.Seed = n
		}
	}
	if v := os.Getenv("SEQUOR_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Inference.Rounds = n
		}
	}
	if v := os.Getenv("SEQUOR_SIMULATIONS_PER_ROUND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Inference.SimulationsPerRound = n
		}
	}
}
