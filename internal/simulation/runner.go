package simulation

import (
	"context"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/archive"
	"github.com/sequor-dev/sequor/internal/estimator"
	"github.com/sequor-dev/sequor/internal/rounds"
)

// Runner orchestrates scenario experiments against the real controller
// and, optionally, a real SQLite archive.
type Runner struct {
	t *testing.T
}

// NewRunner creates a scenario runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	rng := rand.New(rand.NewSource(scenario.Seed))

	prior, err := scenario.Prior(rng)
	if err != nil {
		r.t.Fatalf("%s: building prior: %v", scenario.Name, err)
	}
	sim, err := scenario.Simulator(rng)
	if err != nil {
		r.t.Fatalf("%s: building simulator: %v", scenario.Name, err)
	}

	ctrl := &rounds.Controller{
		Prior:     prior,
		Simulator: sim,
		Trainer:   estimator.NewGaussianTrainer(prior),
		Source:    rng,
	}

	var result Result
	if scenario.ArchiveRun {
		a, err := archive.Open(r.t.TempDir())
		if err != nil {
			r.t.Fatalf("%s: opening archive: %v", scenario.Name, err)
		}
		r.t.Cleanup(func() { a.Close() })

		meta, err := a.CreateRun(ctx, archive.RunMeta{
			Rounds:              scenario.Rounds,
			SimulationsPerRound: scenario.SimulationsPerRound,
			Seed:                scenario.Seed,
			Observation:         scenario.Observation,
		})
		if err != nil {
			r.t.Fatalf("%s: creating run: %v", scenario.Name, err)
		}
		ctrl.Observer = &archive.Recorder{Archive: a, RunID: meta.ID}
		result.Archive = a
		result.RunID = meta.ID
	}

	runResult, err := ctrl.Run(ctx, rounds.RunSpec{
		Observation:         scenario.Observation,
		Rounds:              scenario.Rounds,
		SimulationsPerRound: scenario.SimulationsPerRound,
	})
	if err != nil {
		r.t.Fatalf("%s: Run: %v", scenario.Name, err)
	}
	result.RunResult = runResult
	return result
}
