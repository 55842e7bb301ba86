package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/config"
	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/simulator"
)

// loadConfig resolves the effective configuration: defaults plus the
// --config file if given, plus environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFromFile(path)
}

// buildPrior constructs the configured prior over the shared random source.
func buildPrior(pc config.PriorConfig, src rand.Source) (distribution.Distribution, error) {
	switch pc.Kind {
	case config.PriorBoxUniform:
		return distribution.NewBoxUniform(pc.Low, pc.High, src)
	case config.PriorGaussian:
		return distribution.NewIsotropicGaussian(pc.Mean, pc.Std, src)
	default:
		return nil, fmt.Errorf("unknown prior kind: %s", pc.Kind)
	}
}

// buildSimulator constructs the configured simulator over the shared
// random source.
func buildSimulator(sc config.SimulatorConfig, src rand.Source) (simulator.Simulator, error) {
	switch sc.Kind {
	case config.SimulatorLinearGaussian:
		return simulator.NewLinearGaussian(sc.Shift, sc.NoiseStd, src)
	case config.SimulatorTwoMoons:
		return simulator.NewTwoMoons(src), nil
	default:
		return nil, fmt.Errorf("unknown simulator kind: %s", sc.Kind)
	}
}
