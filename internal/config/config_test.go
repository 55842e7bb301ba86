package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sequor.yaml")
	content := `
inference:
  rounds: 4
  simulations_per_round: 250
  seed: 99
prior:
  kind: box-uniform
  low: [-1, -1]
  high: [1, 1]
simulator:
  kind: linear-gaussian
  shift: [0.5, 0.5]
  noise_std: 0.2
observation: [0, 0]
archive:
  dir: /tmp/sequor-test
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Inference.Rounds != 4 {
		t.Errorf("Rounds = %d, want 4", cfg.Inference.Rounds)
	}
	if cfg.Inference.SimulationsPerRound != 250 {
		t.Errorf("SimulationsPerRound = %d, want 250", cfg.Inference.SimulationsPerRound)
	}
	if cfg.Inference.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.Inference.Seed)
	}
	if cfg.Prior.Dim() != 2 {
		t.Errorf("Prior.Dim() = %d, want 2", cfg.Prior.Dim())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("inference: ["), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEQUOR_LOG_LEVEL", "trace")
	t.Setenv("SEQUOR_ARCHIVE_DIR", "/tmp/elsewhere")
	t.Setenv("SEQUOR_SEED", "1234")
	t.Setenv("SEQUOR_ROUNDS", "7")
	t.Setenv("SEQUOR_SIMULATIONS_PER_ROUND", "42")

	cfg := Load()
	if cfg.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q, want trace", cfg.Logging.Level)
	}
	if cfg.Archive.Dir != "/tmp/elsewhere" {
		t.Errorf("Archive.Dir = %q, want /tmp/elsewhere", cfg.Archive.Dir)
	}
	if cfg.Inference.Seed != 1234 {
		t.Errorf("Seed = %d, want 1234", cfg.Inference.Seed)
	}
	if cfg.Inference.Rounds != 7 {
		t.Errorf("Rounds = %d, want 7", cfg.Inference.Rounds)
	}
	if cfg.Inference.SimulationsPerRound != 42 {
		t.Errorf("SimulationsPerRound = %d, want 42", cfg.Inference.SimulationsPerRound)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rounds", func(c *Config) { c.Inference.Rounds = 0 }},
		{"zero budget", func(c *Config) { c.Inference.SimulationsPerRound = 0 }},
		{"unknown prior", func(c *Config) { c.Prior.Kind = "cauchy" }},
		{"bounds mismatch", func(c *Config) { c.Prior.High = c.Prior.High[:1] }},
		{"gaussian without mean", func(c *Config) { c.Prior = PriorConfig{Kind: PriorGaussian, Std: 1} }},
		{"gaussian bad std", func(c *Config) { c.Prior = PriorConfig{Kind: PriorGaussian, Mean: []float64{0}, Std: 0} }},
		{"unknown simulator", func(c *Config) { c.Simulator.Kind = "lotka-volterra" }},
		{"shift dim mismatch", func(c *Config) { c.Simulator.Shift = []float64{1} }},
		{"bad noise", func(c *Config) { c.Simulator.NoiseStd = -1 }},
		{"observation dim mismatch", func(c *Config) { c.Observation = []float64{0} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"two-moons bad dim", func(c *Config) {
			c.Simulator = SimulatorConfig{Kind: SimulatorTwoMoons}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTwoMoonsConfigValid(t *testing.T) {
	cfg := Default()
	cfg.Prior = PriorConfig{Kind: PriorBoxUniform, Low: []float64{-1, -1}, High: []float64{1, 1}}
	cfg.Simulator = SimulatorConfig{Kind: SimulatorTwoMoons}
	cfg.Observation = []float64{0, 0}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
