package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/archive"
	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/estimator"
	"github.com/sequor-dev/sequor/internal/posterior"
)

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample <run-id>",
		Short: "Draw parameters from an archived posterior",
		Long: `Draw parameter samples from the fitted model of an archived round,
conditioned on the run's target observation.

By default the final round's posterior is sampled. Draws are truncated
to the prior's support when the run's stored config allows the prior
to be rebuilt.

Example:
  sequor sample run-a1b2c3d4e5f6 --n 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("archive")
			round, _ := cmd.Flags().GetInt("round")
			n, _ := cmd.Flags().GetInt("n")
			seed, _ := cmd.Flags().GetUint64("seed")
			runID := args[0]

			if n < 1 {
				return fmt.Errorf("--n must be >= 1, got %d", n)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Archive.Dir
			}
			if dir == "" {
				return fmt.Errorf("no archive directory configured")
			}

			a, err := archive.Open(dir)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer a.Close()

			ctx := cmd.Context()
			meta, err := a.GetRun(ctx, runID)
			if err != nil {
				return err
			}

			var model estimator.GaussianModel
			if err := a.LoadPosterior(ctx, runID, round, &model); err != nil {
				return err
			}
			if err := model.Validate(); err != nil {
				return fmt.Errorf("archived model of run %s is invalid: %w", runID, err)
			}

			rng := rand.New(rand.NewSource(seed))
			samples, err := drawSamples(&model, meta, rng, n)
			if err != nil {
				return err
			}

			if jsonOut {
				rows := make([][]float64, n)
				for i := 0; i < n; i++ {
					rows[i] = append([]float64(nil), samples.RawRowView(i)...)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id":      runID,
					"round":       round,
					"observation": meta.Observation,
					"samples":     rows,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Samples from run %s (observation %s):\n", runID, formatVec(meta.Observation))
			for i := 0; i < n; i++ {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", formatVec(samples.RawRowView(i)))
			}
			return nil
		},
	}

	cmd.Flags().String("archive", "", "Archive directory (overrides config)")
	cmd.Flags().Int("round", 0, "Round to sample (0 = final round)")
	cmd.Flags().Int("n", 10, "Number of samples to draw")
	cmd.Flags().Uint64("seed", 1, "Random seed for sampling")

	return cmd
}

// drawSamples samples the model conditioned on the run's observation.
// When the stored config can rebuild the prior, draws are truncated to
// its support; otherwise the raw conditional is sampled.
func drawSamples(model *estimator.GaussianModel, meta archive.RunMeta, rng rand.Source, n int) (*mat.Dense, error) {
	if runCfg, err := parseStoredConfig(meta.Config); err == nil {
		if prior, err := buildPrior(runCfg.Prior, rng); err == nil {
			p := posterior.New(model, prior, rng)
			if err := p.SetDefaultX(meta.Observation); err != nil {
				return nil, fmt.Errorf("conditioning on observation: %w", err)
			}
			return p.Sample(n), nil
		}
	}

	cond, err := model.Condition(meta.Observation, rng)
	if err != nil {
		return nil, fmt.Errorf("conditioning on observation: %w", err)
	}
	return distribution.SampleBatch(cond, n), nil
}
