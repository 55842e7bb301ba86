package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is a multivariate normal distribution. It backs both Gaussian
// priors and the conditioned posteriors produced by the bundled estimator.
type Gaussian struct {
	normal *distmv.Normal
	mean   []float64
	sigma  *mat.SymDense
}

// NewGaussian creates a multivariate normal with the given mean and
// covariance. The covariance must be symmetric positive definite.
func NewGaussian(mean []float64, sigma *mat.SymDense, src rand.Source) (*Gaussian, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("gaussian: empty mean")
	}
	if n := sigma.SymmetricDim(); n != len(mean) {
		return nil, fmt.Errorf("gaussian: mean dim %d does not match covariance dim %d", len(mean), n)
	}

	normal, ok := distmv.NewNormal(mean, sigma, src)
	if !ok {
		return nil, fmt.Errorf("gaussian: covariance is not positive definite")
	}

	cp := mat.NewSymDense(len(mean), nil)
	cp.CopySym(sigma)
	return &Gaussian{
		normal: normal,
		mean:   append([]float64(nil), mean...),
		sigma:  cp,
	}, nil
}

// NewIsotropicGaussian creates a normal with the given mean and covariance
// std²·I. std must be positive.
func NewIsotropicGaussian(mean []float64, std float64, src rand.Source) (*Gaussian, error) {
	if std <= 0 {
		return nil, fmt.Errorf("gaussian: std must be positive, got %v", std)
	}
	sigma := mat.NewSymDense(len(mean), nil)
	for i := range mean {
		sigma.SetSym(i, i, std*std)
	}
	return NewGaussian(mean, sigma, src)
}

// Dim returns the dimension of the distribution.
func (g *Gaussian) Dim() int { return len(g.mean) }

// Rand draws one sample, filling x in place when non-nil.
func (g *Gaussian) Rand(x []float64) []float64 {
	return g.normal.Rand(x)
}

// LogProb returns the log-density at x.
func (g *Gaussian) LogProb(x []float64) float64 {
	return g.normal.LogProb(x)
}

// Mean returns a copy of the mean vector.
func (g *Gaussian) Mean() []float64 {
	return append([]float64(nil), g.mean...)
}

// Covariance returns a copy of the covariance matrix.
func (g *Gaussian) Covariance() *mat.SymDense {
	cp := mat.NewSymDense(g.Dim(), nil)
	cp.CopySym(g.sigma)
	return cp
}
