package simulator

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TwoMoons is the crescent-shaped two-dimensional toy problem. Its bimodal,
// curved posterior exercises the loop on a target the affine-Gaussian
// estimator can only fit locally, which is exactly what multi-round
// refinement is for.
type TwoMoons struct {
	angle  distuv.Uniform
	radius distuv.Normal
}

// NewTwoMoons creates a two-moons simulator with the conventional
// angle ~ U(-pi/2, pi/2) and radius ~ N(0.1, 0.01) noise model.
func NewTwoMoons(src rand.Source) *TwoMoons {
	return &TwoMoons{
		angle:  distuv.Uniform{Min: -math.Pi / 2, Max: math.Pi / 2, Src: src},
		radius: distuv.Normal{Mu: 0.1, Sigma: 0.01, Src: src},
	}
}

// ParamDim returns 2.
func (s *TwoMoons) ParamDim() int { return 2 }

// ObsDim returns 2.
func (s *TwoMoons) ObsDim() int { return 2 }

// Simulate runs the simulator sequentially over the batch.
func (s *TwoMoons) Simulate(ctx context.Context, theta *mat.Dense) (*mat.Dense, error) {
	rows, err := checkBatch(s, theta)
	if err != nil {
		return nil, err
	}

	obs := mat.NewDense(rows, s.ObsDim(), nil)
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("two moons: simulation aborted at row %d: %w", i, err)
		}
		t1, t2 := theta.At(i, 0), theta.At(i, 1)
		a := s.angle.Rand()
		r := s.radius.Rand()

		px := r*math.Cos(a) + 0.25
		py := r * math.Sin(a)
		obs.Set(i, 0, px-math.Abs(t1+t2)/math.Sqrt2)
		obs.Set(i, 1, py+(-t1+t2)/math.Sqrt2)
	}
	return obs, nil
}
