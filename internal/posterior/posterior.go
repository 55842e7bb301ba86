// Package posterior wraps a trained conditional density into an object that
// can be conditioned on a target observation, sampled, and reused as the
// next round's proposal.
package posterior

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/estimator"
)

// maxRejectionAttempts bounds the per-draw rejection loop used to truncate
// samples to the prior support. Exceeding it accepts the final draw so a
// leaky estimator degrades instead of hanging.
const maxRejectionAttempts = 1000

// Posterior is a conditional density fixed to a default observation. Once
// conditioned via SetDefaultX it satisfies distribution.Distribution and is
// valid as a proposal. Samples are truncated to the prior support by
// rejection; LogProb is therefore unnormalized under truncation.
type Posterior struct {
	density estimator.ConditionalDensity
	support distribution.Supporter // nil when the prior is unbounded
	src     rand.Source
	x       []float64
	cond    distribution.Distribution
}

// New wraps a trained conditional density. prior may be nil; when it
// implements distribution.Supporter, samples are truncated to its support.
func New(density estimator.ConditionalDensity, prior distribution.Distribution, src rand.Source) *Posterior {
	p := &Posterior{density: density, src: src}
	if s, ok := prior.(distribution.Supporter); ok {
		p.support = s
	}
	return p
}

// SetDefaultX conditions the posterior on the given observation. It must be
// called before sampling or density evaluation.
func (p *Posterior) SetDefaultX(x []float64) error {
	if len(x) != p.density.ObsDim() {
		return fmt.Errorf("posterior: observation dim %d, want %d", len(x), p.density.ObsDim())
	}
	cond, err := p.density.Condition(x, p.src)
	if err != nil {
		return fmt.Errorf("posterior: conditioning failed: %w", err)
	}
	p.x = append([]float64(nil), x...)
	p.cond = cond
	return nil
}

// DefaultX returns a copy of the conditioning observation, or nil before
// SetDefaultX.
func (p *Posterior) DefaultX() []float64 {
	return append([]float64(nil), p.x...)
}

// Dim returns the parameter dimension.
func (p *Posterior) Dim() int { return p.density.ParamDim() }

// Rand draws one sample from the conditioned posterior, rejecting draws
// outside the prior support. Panics if SetDefaultX has not been called.
func (p *Posterior) Rand(out []float64) []float64 {
	if p.cond == nil {
		panic("posterior: Rand before SetDefaultX")
	}
	out = p.cond.Rand(out)
	if p.support == nil {
		return out
	}
	for attempt := 1; attempt < maxRejectionAttempts && !p.support.Contains(out); attempt++ {
		out = p.cond.Rand(out)
	}
	return out
}

// LogProb returns the conditional log-density at theta for the default
// observation. Points outside the prior support report -Inf. Panics if
// SetDefaultX has not been called.
func (p *Posterior) LogProb(theta []float64) float64 {
	if p.cond == nil {
		panic("posterior: LogProb before SetDefaultX")
	}
	if p.support != nil && !p.support.Contains(theta) {
		return math.Inf(-1)
	}
	return p.cond.LogProb(theta)
}

// Sample draws n samples into a new n×Dim matrix.
func (p *Posterior) Sample(n int) *mat.Dense {
	return distribution.SampleBatch(p, n)
}
