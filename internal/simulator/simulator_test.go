package simulator

import (
	"context"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/vecmath"
)

func TestNewLinearGaussianValidation(t *testing.T) {
	tests := []struct {
		name     string
		shift    []float64
		noiseStd float64
		wantErr  bool
	}{
		{"valid", []float64{1, 1}, 0.1, false},
		{"empty shift", nil, 0.1, true},
		{"zero noise", []float64{1}, 0, true},
		{"negative noise", []float64{1}, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLinearGaussian(tt.shift, tt.noiseStd, rand.NewSource(1))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLinearGaussian() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinearGaussianMeanShift(t *testing.T) {
	shift := []float64{1.0, -0.5, 2.0}
	sim, err := NewLinearGaussian(shift, 0.1, rand.NewSource(5))
	if err != nil {
		t.Fatalf("NewLinearGaussian() error = %v", err)
	}

	const n = 5000
	theta := mat.NewDense(n, 3, nil) // all-zero parameters
	obs, err := sim.Simulate(context.Background(), theta)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	r, c := obs.Dims()
	if r != n || c != 3 {
		t.Fatalf("Simulate dims = %dx%d, want %dx3", r, c, n)
	}

	means := vecmath.ColumnMeans(obs)
	for j := range shift {
		if math.Abs(means[j]-shift[j]) > 0.01 {
			t.Errorf("mean obs[%d] = %v, want %v +/- 0.01", j, means[j], shift[j])
		}
	}
}

func TestLinearGaussianDimMismatch(t *testing.T) {
	sim, err := NewLinearGaussian([]float64{1, 1}, 0.1, rand.NewSource(1))
	if err != nil {
		t.Fatalf("NewLinearGaussian() error = %v", err)
	}
	if _, err := sim.Simulate(context.Background(), mat.NewDense(3, 5, nil)); err == nil {
		t.Error("expected error for parameter dim mismatch")
	}
}

func TestLinearGaussianContextCancellation(t *testing.T) {
	sim, err := NewLinearGaussian([]float64{1}, 0.1, rand.NewSource(1))
	if err != nil {
		t.Fatalf("NewLinearGaussian() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sim.Simulate(ctx, mat.NewDense(10, 1, nil)); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestTwoMoonsShape(t *testing.T) {
	sim := NewTwoMoons(rand.NewSource(11))
	theta := mat.NewDense(200, 2, nil)
	obs, err := sim.Simulate(context.Background(), theta)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	r, c := obs.Dims()
	if r != 200 || c != 2 {
		t.Fatalf("Simulate dims = %dx%d, want 200x2", r, c)
	}

	// At theta = 0 the crescent sits near x in [0.15, 0.45], |y| <= ~0.15.
	for i := 0; i < r; i++ {
		x, y := obs.At(i, 0), obs.At(i, 1)
		if x < 0.1 || x > 0.5 || math.Abs(y) > 0.2 {
			t.Errorf("row %d = (%v, %v) far from expected crescent", i, x, y)
		}
	}
}

func TestTwoMoonsDeterministicWithSeed(t *testing.T) {
	theta := mat.NewDense(20, 2, nil)
	for i := 0; i < 20; i++ {
		theta.Set(i, 0, float64(i)*0.05)
		theta.Set(i, 1, -float64(i)*0.05)
	}

	run := func() *mat.Dense {
		sim := NewTwoMoons(rand.NewSource(123))
		obs, err := sim.Simulate(context.Background(), theta)
		if err != nil {
			t.Fatalf("Simulate() error = %v", err)
		}
		return obs
	}

	a, b := run(), run()
	if !mat.Equal(a, b) {
		t.Error("same seed produced different observations")
	}
}
