package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// BoxUniform is a uniform distribution over an axis-aligned box, with
// independent bounds per dimension. It is the usual prior for toy
// inference problems.
type BoxUniform struct {
	low, high []float64
	dims      []distuv.Uniform
	logVol    float64
}

// NewBoxUniform creates a uniform distribution over [low[i], high[i]] per
// dimension. low and high must have equal, non-zero length with
// low[i] < high[i].
func NewBoxUniform(low, high []float64, src rand.Source) (*BoxUniform, error) {
	if len(low) == 0 || len(low) != len(high) {
		return nil, fmt.Errorf("box uniform: bounds must be non-empty and equal length, got %d and %d", len(low), len(high))
	}

	b := &BoxUniform{
		low:  append([]float64(nil), low...),
		high: append([]float64(nil), high...),
		dims: make([]distuv.Uniform, len(low)),
	}
	for i := range low {
		if low[i] >= high[i] {
			return nil, fmt.Errorf("box uniform: dimension %d: low %v >= high %v", i, low[i], high[i])
		}
		b.dims[i] = distuv.Uniform{Min: low[i], Max: high[i], Src: src}
		b.logVol += math.Log(high[i] - low[i])
	}
	return b, nil
}

// Dim returns the dimension of the box.
func (b *BoxUniform) Dim() int { return len(b.dims) }

// Rand draws one sample, filling x in place when non-nil.
func (b *BoxUniform) Rand(x []float64) []float64 {
	if x == nil {
		x = make([]float64, b.Dim())
	}
	for i := range b.dims {
		x[i] = b.dims[i].Rand()
	}
	return x
}

// LogProb returns -log(volume) inside the box and -Inf outside.
func (b *BoxUniform) LogProb(x []float64) float64 {
	if !b.Contains(x) {
		return math.Inf(-1)
	}
	return -b.logVol
}

// Contains reports whether x lies inside the box (bounds inclusive).
func (b *BoxUniform) Contains(x []float64) bool {
	if len(x) != b.Dim() {
		return false
	}
	for i, v := range x {
		if v < b.low[i] || v > b.high[i] {
			return false
		}
	}
	return true
}

// Bounds returns copies of the per-dimension low and high bounds.
func (b *BoxUniform) Bounds() (low, high []float64) {
	return append([]float64(nil), b.low...), append([]float64(nil), b.high...)
}
