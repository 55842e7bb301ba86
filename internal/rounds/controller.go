// Package rounds implements the multi-round proposal loop: sample from the
// current proposal, simulate, accumulate, retrain, rebuild the posterior,
// and condition it on the target observation as the next proposal.
package rounds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/estimator"
	"github.com/sequor-dev/sequor/internal/logging"
	"github.com/sequor-dev/sequor/internal/posterior"
	"github.com/sequor-dev/sequor/internal/simulator"
)

// PriorTag labels data drawn from the prior in round records and the
// trainer; later rounds are tagged "round-<k>" after the posterior that
// proposed them.
const PriorTag = "prior"

// RoundTag returns the proposal tag for data proposed by the round-k
// posterior.
func RoundTag(k int) string { return fmt.Sprintf("round-%d", k) }

// Observer receives each completed round. Used to archive round records
// and fitted models as the loop progresses.
type Observer interface {
	RoundCompleted(ctx context.Context, rec RoundRecord, density estimator.ConditionalDensity) error
}

// RunSpec fixes one inference run.
type RunSpec struct {
	// Observation is the target observation the posterior sequence
	// concentrates around.
	Observation []float64

	// Rounds is the fixed number of simulate-train-build iterations.
	Rounds int

	// SimulationsPerRound is the per-round simulation budget.
	SimulationsPerRound int
}

// Result is the outcome of a run: one posterior per round, in round order,
// plus the accumulated dataset. Later posteriors are increasingly
// concentrated around the target observation and are not valid as a global
// amortized posterior.
type Result struct {
	Posteriors []*posterior.Posterior
	Dataset    *Dataset
}

// Final returns the last posterior of the sequence.
func (r *Result) Final() *posterior.Posterior {
	return r.Posteriors[len(r.Posteriors)-1]
}

// Controller orchestrates the multi-round loop. Execution is strictly
// sequential; the accumulated dataset is owned by the controller alone.
type Controller struct {
	Prior     distribution.Distribution
	Simulator simulator.Simulator
	Trainer   estimator.Trainer

	// Source provides randomness for posterior sampling. Required.
	Source rand.Source

	// Logger receives per-round progress. Optional.
	Logger *slog.Logger

	// Tracer receives per-round JSONL events. Optional, nil-safe.
	Tracer *logging.RoundTracer

	// Observer receives completed rounds. Optional.
	Observer Observer
}

func (c *Controller) validate(spec RunSpec) error {
	switch {
	case c.Prior == nil:
		return fmt.Errorf("rounds: nil prior")
	case c.Simulator == nil:
		return fmt.Errorf("rounds: nil simulator")
	case c.Trainer == nil:
		return fmt.Errorf("rounds: nil trainer")
	case c.Source == nil:
		return fmt.Errorf("rounds: nil random source")
	case spec.Rounds < 1:
		return fmt.Errorf("rounds: round count %d, want >= 1", spec.Rounds)
	case spec.SimulationsPerRound < 1:
		return fmt.Errorf("rounds: simulation budget %d, want >= 1", spec.SimulationsPerRound)
	case c.Prior.Dim() != c.Simulator.ParamDim():
		return fmt.Errorf("rounds: prior dim %d does not match simulator parameter dim %d", c.Prior.Dim(), c.Simulator.ParamDim())
	case len(spec.Observation) != c.Simulator.ObsDim():
		return fmt.Errorf("rounds: observation dim %d does not match simulator observation dim %d", len(spec.Observation), c.Simulator.ObsDim())
	}
	return nil
}

// Run executes the loop for the fixed round count. Simulator and trainer
// errors propagate immediately; there is no retry and no early stopping.
func (c *Controller) Run(ctx context.Context, spec RunSpec) (*Result, error) {
	if err := c.validate(spec); err != nil {
		return nil, err
	}

	log := c.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	result := &Result{Dataset: &Dataset{}}
	proposal := c.Prior
	tag := PriorTag

	for round := 1; round <= spec.Rounds; round++ {
		start := time.Now()

		theta := distribution.SampleBatch(proposal, spec.SimulationsPerRound)
		obs, err := c.Simulator.Simulate(ctx, theta)
		if err != nil {
			return nil, fmt.Errorf("rounds: round %d: simulate: %w", round, err)
		}

		rec := RoundRecord{Round: round, Tag: tag, Theta: theta, Obs: obs, Proposal: proposal}
		result.Dataset.Append(rec)

		if err := c.Trainer.AddRound(theta, obs, proposal, tag); err != nil {
			return nil, fmt.Errorf("rounds: round %d: add data: %w", round, err)
		}
		density, err := c.Trainer.Train(ctx)
		if err != nil {
			return nil, fmt.Errorf("rounds: round %d: train: %w", round, err)
		}

		post := posterior.New(density, c.Prior, c.Source)
		if err := post.SetDefaultX(spec.Observation); err != nil {
			return nil, fmt.Errorf("rounds: round %d: %w", round, err)
		}
		result.Posteriors = append(result.Posteriors, post)

		if c.Observer != nil {
			if err := c.Observer.RoundCompleted(ctx, rec, density); err != nil {
				return nil, fmt.Errorf("rounds: round %d: observer: %w", round, err)
			}
		}

		log.Info("round complete",
			"round", round,
			"proposal", tag,
			"simulations", spec.SimulationsPerRound,
			"dataset_size", result.Dataset.Len(),
			"duration", time.Since(start))
		c.Tracer.Log(map[string]any{
			"round":        round,
			"proposal":     tag,
			"simulations":  spec.SimulationsPerRound,
			"dataset_size": result.Dataset.Len(),
			"duration_ms":  time.Since(start).Milliseconds(),
		})

		proposal = post
		tag = RoundTag(round)
	}

	return result, nil
}
