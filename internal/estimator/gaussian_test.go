package estimator

import (
	"context"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/distribution"
)

// linearDataset draws theta from prior and produces obs = theta + shift + noise.
func linearDataset(t *testing.T, prior distribution.Distribution, shift []float64, noiseStd float64, n int, src *rand.Rand) (*mat.Dense, *mat.Dense) {
	t.Helper()
	theta := distribution.SampleBatch(prior, n)
	obs := mat.NewDense(n, len(shift), nil)
	for i := 0; i < n; i++ {
		row := theta.RawRowView(i)
		out := obs.RawRowView(i)
		for j := range shift {
			out[j] = row[j] + shift[j] + noiseStd*src.NormFloat64()
		}
	}
	return theta, obs
}

func TestGaussianTrainerRecoversAffineModel(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prior, err := distribution.NewBoxUniform([]float64{-2, -2}, []float64{2, 2}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}
	shift := []float64{1.0, -0.5}
	theta, obs := linearDataset(t, prior, shift, 0.1, 4000, rng)

	trainer := NewGaussianTrainer(prior)
	if err := trainer.AddRound(theta, obs, prior, "prior"); err != nil {
		t.Fatalf("AddRound() error = %v", err)
	}
	density, err := trainer.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	model, ok := density.(*GaussianModel)
	if !ok {
		t.Fatalf("Train() returned %T, want *GaussianModel", density)
	}
	if err := model.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// obs = theta + shift means theta = obs - shift: unit coefficients on
	// the matching observation column and intercept -shift.
	x0 := []float64{0.3, 0.7}
	mean, err := model.Mean(x0)
	if err != nil {
		t.Fatalf("Mean() error = %v", err)
	}
	want := []float64{x0[0] - shift[0], x0[1] - shift[1]}
	for j := range want {
		if math.Abs(mean[j]-want[j]) > 0.05 {
			t.Errorf("Mean[%d] = %v, want %v +/- 0.05", j, mean[j], want[j])
		}
	}

	// Residual spread should be close to the simulator noise.
	for j := 0; j < 2; j++ {
		std := math.Sqrt(model.Cov[j][j])
		if math.Abs(std-0.1) > 0.03 {
			t.Errorf("residual std[%d] = %v, want 0.1 +/- 0.03", j, std)
		}
	}
}

func TestGaussianTrainerImportanceWeightedSecondRound(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	prior, err := distribution.NewBoxUniform([]float64{-2}, []float64{2}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}
	shift := []float64{1.0}

	trainer := NewGaussianTrainer(prior)

	theta1, obs1 := linearDataset(t, prior, shift, 0.1, 1000, rng)
	if err := trainer.AddRound(theta1, obs1, prior, "prior"); err != nil {
		t.Fatalf("AddRound(round 1) error = %v", err)
	}

	// Second round from a concentrated non-prior proposal around the
	// solution for a zero observation.
	proposal, err := distribution.NewIsotropicGaussian([]float64{-1}, 0.3, rng)
	if err != nil {
		t.Fatalf("NewIsotropicGaussian() error = %v", err)
	}
	theta2, obs2 := linearDataset(t, proposal, shift, 0.1, 1000, rng)
	if err := trainer.AddRound(theta2, obs2, proposal, "round-1"); err != nil {
		t.Fatalf("AddRound(round 2) error = %v", err)
	}

	density, err := trainer.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	mean, err := density.(*GaussianModel).Mean([]float64{0})
	if err != nil {
		t.Fatalf("Mean() error = %v", err)
	}
	if math.Abs(mean[0]-(-1.0)) > 0.05 {
		t.Errorf("Mean(0) = %v, want -1 +/- 0.05 despite proposal shift", mean[0])
	}
}

func TestGaussianTrainerAddRoundValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prior, err := distribution.NewBoxUniform([]float64{-1, -1}, []float64{1, 1}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}
	trainer := NewGaussianTrainer(prior)

	if err := trainer.AddRound(mat.NewDense(1, 2, nil), mat.NewDense(1, 2, nil), prior, "ok"); err != nil {
		t.Errorf("AddRound(valid) error = %v", err)
	}

	tests := []struct {
		name  string
		theta *mat.Dense
		obs   *mat.Dense
	}{
		{"row mismatch", mat.NewDense(3, 2, nil), mat.NewDense(2, 2, nil)},
		{"param dim mismatch", mat.NewDense(3, 4, nil), mat.NewDense(3, 2, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := trainer.AddRound(tt.theta, tt.obs, prior, tt.name); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := trainer.AddRound(mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil), nil, "nil proposal"); err == nil {
		t.Error("expected error for nil proposal")
	}
	if err := trainer.AddRound(mat.NewDense(3, 2, nil), mat.NewDense(3, 3, nil), prior, "obs dim change"); err == nil {
		t.Error("expected error for observation dim change")
	}
}

func TestGaussianTrainerInsufficientData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prior, err := distribution.NewBoxUniform([]float64{-1}, []float64{1}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}
	trainer := NewGaussianTrainer(prior)

	if _, err := trainer.Train(context.Background()); err == nil {
		t.Error("expected error for empty trainer")
	}

	if err := trainer.AddRound(mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil), prior, "tiny"); err != nil {
		t.Fatalf("AddRound() error = %v", err)
	}
	if _, err := trainer.Train(context.Background()); err == nil {
		t.Error("expected error for fewer samples than coefficients")
	}
}

func TestGaussianTrainerCancelledContext(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	prior, err := distribution.NewBoxUniform([]float64{-1}, []float64{1}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}
	trainer := NewGaussianTrainer(prior)
	theta, obs := linearDataset(t, prior, []float64{0}, 0.1, 10, rng)
	if err := trainer.AddRound(theta, obs, prior, "prior"); err != nil {
		t.Fatalf("AddRound() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := trainer.Train(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGaussianModelConditionAndLogProb(t *testing.T) {
	model := &GaussianModel{
		NumParams: 1,
		NumObs:    1,
		Coeff:     [][]float64{{1}, {-1}}, // theta = x - 1
		Cov:       [][]float64{{0.04}},
	}
	if err := model.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cond, err := model.Condition([]float64{0}, rand.NewSource(2))
	if err != nil {
		t.Fatalf("Condition() error = %v", err)
	}
	if cond.Dim() != 1 {
		t.Fatalf("Dim() = %d, want 1", cond.Dim())
	}

	// Log-density should peak at the conditional mean.
	if model.LogProb([]float64{-1}, []float64{0}) <= model.LogProb([]float64{0.5}, []float64{0}) {
		t.Error("LogProb not peaked at conditional mean")
	}
	if lp := model.LogProb([]float64{-1, 0}, []float64{0}); !math.IsInf(lp, -1) {
		t.Errorf("LogProb with wrong theta dim = %v, want -Inf", lp)
	}

	if _, err := model.Condition([]float64{0, 0}, nil); err == nil {
		t.Error("expected error for wrong observation dim")
	}
}

func TestGaussianModelValidateRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name  string
		model GaussianModel
	}{
		{"zero dims", GaussianModel{}},
		{"missing coeff row", GaussianModel{NumParams: 1, NumObs: 1, Coeff: [][]float64{{1}}, Cov: [][]float64{{1}}}},
		{"ragged coeff", GaussianModel{NumParams: 2, NumObs: 1, Coeff: [][]float64{{1, 1}, {1}}, Cov: [][]float64{{1, 0}, {0, 1}}}},
		{"bad cov", GaussianModel{NumParams: 2, NumObs: 1, Coeff: [][]float64{{1, 1}, {1, 1}}, Cov: [][]float64{{1, 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.model.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
