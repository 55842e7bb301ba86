package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"github.com/sequor-dev/sequor/internal/archive"
	"github.com/sequor-dev/sequor/internal/config"
	"github.com/sequor-dev/sequor/internal/estimator"
	"github.com/sequor-dev/sequor/internal/logging"
	"github.com/sequor-dev/sequor/internal/rounds"
	"github.com/sequor-dev/sequor/internal/vecmath"
)

// roundSummary is the per-round posterior report printed after a run.
type roundSummary struct {
	Round int       `json:"round"`
	Mean  []float64 `json:"posterior_mean"`
	Std   []float64 `json:"posterior_std"`
}

const summaryDraws = 1000

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run multi-round inference against the target observation",
		Long: `Run the configured number of inference rounds.

Round 1 draws parameters from the prior; each later round draws from
the previous round's posterior conditioned on the target observation.
Every round's training data and fitted model are archived.

Example:
  sequor run --config sequor.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			rng := rand.New(rand.NewSource(cfg.Inference.Seed))
			prior, err := buildPrior(cfg.Prior, rng)
			if err != nil {
				return err
			}
			sim, err := buildSimulator(cfg.Simulator, rng)
			if err != nil {
				return err
			}

			ctrl := &rounds.Controller{
				Prior:     prior,
				Simulator: sim,
				Trainer:   estimator.NewGaussianTrainer(prior),
				Source:    rng,
				Logger:    logger,
			}

			ctx := cmd.Context()
			var runID string
			if cfg.Archive.Dir != "" {
				a, err := archive.Open(cfg.Archive.Dir)
				if err != nil {
					return fmt.Errorf("opening archive: %w", err)
				}
				defer a.Close()

				cfgYAML, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("encoding config: %w", err)
				}
				meta, err := a.CreateRun(ctx, archive.RunMeta{
					Rounds:              cfg.Inference.Rounds,
					SimulationsPerRound: cfg.Inference.SimulationsPerRound,
					Seed:                cfg.Inference.Seed,
					Observation:         cfg.Observation,
					Config:              string(cfgYAML),
				})
				if err != nil {
					return fmt.Errorf("creating run: %w", err)
				}
				runID = meta.ID
				ctrl.Observer = &archive.Recorder{Archive: a, RunID: runID}

				tracer := logging.NewRoundTracer(cfg.Archive.Dir, cfg.Logging.Level)
				defer tracer.Close()
				ctrl.Tracer = tracer
			}

			result, err := ctrl.Run(ctx, rounds.RunSpec{
				Observation:         cfg.Observation,
				Rounds:              cfg.Inference.Rounds,
				SimulationsPerRound: cfg.Inference.SimulationsPerRound,
			})
			if err != nil {
				return fmt.Errorf("inference failed: %w", err)
			}

			summaries := make([]roundSummary, len(result.Posteriors))
			for k, p := range result.Posteriors {
				samples := p.Sample(summaryDraws)
				summaries[k] = roundSummary{
					Round: k + 1,
					Mean:  vecmath.ColumnMeans(samples),
					Std:   vecmath.ColumnStds(samples),
				}
			}

			if jsonOut {
				out := map[string]any{
					"rounds":      len(result.Posteriors),
					"simulations": result.Dataset.Len(),
					"observation": cfg.Observation,
					"posteriors":  summaries,
				}
				if runID != "" {
					out["run_id"] = runID
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			if runID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Run %s complete (%d rounds, %d simulations)\n", runID, len(result.Posteriors), result.Dataset.Len())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Run complete (%d rounds, %d simulations, not archived)\n", len(result.Posteriors), result.Dataset.Len())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Observation: %v\n\n", cfg.Observation)
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "Round %d posterior:\n", s.Round)
				fmt.Fprintf(cmd.OutOrStdout(), "  mean: %s\n", formatVec(s.Mean))
				fmt.Fprintf(cmd.OutOrStdout(), "  std:  %s\n", formatVec(s.Std))
			}
			return nil
		},
	}

	return cmd
}

func formatVec(v []float64) string {
	s := "["
	for i, x := range v {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4f", x)
	}
	return s + "]"
}

// parseStoredConfig recovers the run settings stored as YAML alongside
// the archive metadata.
func parseStoredConfig(raw string) (*config.Config, error) {
	if raw == "" {
		return nil, fmt.Errorf("run has no stored config")
	}
	var cfg config.Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decoding stored config: %w", err)
	}
	return &cfg, nil
}
