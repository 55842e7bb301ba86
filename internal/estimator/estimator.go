// Package estimator defines the conditional-density training seam of the
// inference loop and bundles a reference implementation. The seam mirrors
// an external neural trainer: data is handed over round by round together
// with the proposal it was drawn from, and Train refits on everything
// accumulated so far.
package estimator

import (
	"context"

	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/distribution"
	"gonum.org/v1/gonum/mat"
)

// ConditionalDensity approximates a posterior density p(theta | x).
type ConditionalDensity interface {
	// ParamDim returns the parameter dimension.
	ParamDim() int

	// ObsDim returns the observation dimension.
	ObsDim() int

	// Condition fixes the observation and returns the resulting
	// distribution over parameters, sampling from src.
	Condition(x []float64, src rand.Source) (distribution.Distribution, error)

	// LogProb returns the conditional log-density of theta given x.
	LogProb(theta, x []float64) float64
}

// Trainer accumulates per-round training data and fits a conditional
// density on the full accumulated set. Rounds drawn from a proposal other
// than the prior must be corrected internally so the fit remains a valid
// posterior estimate despite proposal shift.
type Trainer interface {
	// AddRound appends a batch of (parameter, observation) pairs drawn
	// from the given proposal. theta and obs must have equal row counts.
	AddRound(theta, obs *mat.Dense, proposal distribution.Distribution, tag string) error

	// Train fits the estimator on all rounds added so far.
	Train(ctx context.Context) (ConditionalDensity, error)
}
