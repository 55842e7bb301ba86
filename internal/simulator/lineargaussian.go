package simulator

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LinearGaussian produces observation = parameter + shift + noise, with
// isotropic Gaussian noise. Its true posterior is known in closed form,
// which makes it the standard smoke test for the inference loop.
type LinearGaussian struct {
	shift []float64
	noise distuv.Normal
}

// NewLinearGaussian creates a linear-Gaussian simulator with the given
// per-dimension shift and noise standard deviation.
func NewLinearGaussian(shift []float64, noiseStd float64, src rand.Source) (*LinearGaussian, error) {
	if len(shift) == 0 {
		return nil, fmt.Errorf("linear gaussian: empty shift")
	}
	if noiseStd <= 0 {
		return nil, fmt.Errorf("linear gaussian: noise std must be positive, got %v", noiseStd)
	}
	return &LinearGaussian{
		shift: append([]float64(nil), shift...),
		noise: distuv.Normal{Mu: 0, Sigma: noiseStd, Src: src},
	}, nil
}

// ParamDim returns the parameter dimension.
func (s *LinearGaussian) ParamDim() int { return len(s.shift) }

// ObsDim returns the observation dimension.
func (s *LinearGaussian) ObsDim() int { return len(s.shift) }

// Shift returns a copy of the additive shift.
func (s *LinearGaussian) Shift() []float64 {
	return append([]float64(nil), s.shift...)
}

// Simulate runs the simulator sequentially over the batch.
func (s *LinearGaussian) Simulate(ctx context.Context, theta *mat.Dense) (*mat.Dense, error) {
	rows, err := checkBatch(s, theta)
	if err != nil {
		return nil, err
	}

	obs := mat.NewDense(rows, s.ObsDim(), nil)
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("linear gaussian: simulation aborted at row %d: %w", i, err)
		}
		row := theta.RawRowView(i)
		out := obs.RawRowView(i)
		for j, v := range row {
			out[j] = v + s.shift[j] + s.noise.Rand()
		}
	}
	return obs, nil
}
