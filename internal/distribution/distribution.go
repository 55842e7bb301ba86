// Package distribution provides the parameter distributions used as priors
// and proposals: sampling and log-density over fixed-dimension real vectors.
package distribution

import (
	"gonum.org/v1/gonum/mat"
)

// Distribution is a distribution over fixed-dimension parameter vectors.
// Implementations carry their own random source; sampling is not safe for
// concurrent use unless the source is.
type Distribution interface {
	// Dim returns the dimension of sampled vectors.
	Dim() int

	// Rand draws one sample. If x is non-nil it is filled in place and
	// returned; its length must equal Dim. If x is nil a new slice is
	// allocated.
	Rand(x []float64) []float64

	// LogProb returns the log-density at x. Points outside the support
	// report math.Inf(-1).
	LogProb(x []float64) float64
}

// Supporter is implemented by distributions with bounded support, allowing
// proposals derived from them to be truncated.
type Supporter interface {
	// Contains reports whether x lies inside the support.
	Contains(x []float64) bool
}

// SampleBatch draws n samples from d into a new n×Dim row-major matrix.
func SampleBatch(d Distribution, n int) *mat.Dense {
	out := mat.NewDense(n, d.Dim(), nil)
	for i := 0; i < n; i++ {
		d.Rand(out.RawRowView(i))
	}
	return out
}
