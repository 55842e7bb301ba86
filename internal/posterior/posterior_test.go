package posterior

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/estimator"
)

// identityModel returns theta | x ~ N(x - 1, std^2 I) in one dimension.
func identityModel(std float64) *estimator.GaussianModel {
	return &estimator.GaussianModel{
		NumParams: 1,
		NumObs:    1,
		Coeff:     [][]float64{{1}, {-1}},
		Cov:       [][]float64{{std * std}},
	}
}

func TestPosteriorRequiresConditioning(t *testing.T) {
	p := New(identityModel(0.1), nil, rand.NewSource(1))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from Rand before SetDefaultX")
		}
	}()
	p.Rand(nil)
}

func TestSetDefaultXValidatesDim(t *testing.T) {
	p := New(identityModel(0.1), nil, rand.NewSource(1))
	if err := p.SetDefaultX([]float64{0, 0}); err == nil {
		t.Error("expected error for wrong observation dim")
	}
	if err := p.SetDefaultX([]float64{0}); err != nil {
		t.Errorf("SetDefaultX() error = %v", err)
	}
	if got := p.DefaultX(); len(got) != 1 || got[0] != 0 {
		t.Errorf("DefaultX() = %v, want [0]", got)
	}
}

func TestPosteriorSamplesConcentrate(t *testing.T) {
	p := New(identityModel(0.2), nil, rand.NewSource(9))
	if err := p.SetDefaultX([]float64{0}); err != nil {
		t.Fatalf("SetDefaultX() error = %v", err)
	}

	samples := p.Sample(5000)
	r, c := samples.Dims()
	if r != 5000 || c != 1 {
		t.Fatalf("Sample dims = %dx%d, want 5000x1", r, c)
	}

	var sum float64
	for i := 0; i < r; i++ {
		sum += samples.At(i, 0)
	}
	mean := sum / float64(r)
	if math.Abs(mean-(-1)) > 0.02 {
		t.Errorf("sample mean = %v, want -1 +/- 0.02", mean)
	}
}

func TestPosteriorTruncatesToPriorSupport(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	// Narrow prior box far in the right tail of the conditional density.
	prior, err := distribution.NewBoxUniform([]float64{-0.95}, []float64{-0.85}, rng)
	if err != nil {
		t.Fatalf("NewBoxUniform() error = %v", err)
	}

	p := New(identityModel(0.2), prior, rng)
	if err := p.SetDefaultX([]float64{0}); err != nil {
		t.Fatalf("SetDefaultX() error = %v", err)
	}

	for i := 0; i < 500; i++ {
		x := p.Rand(nil)
		if !prior.Contains(x) {
			t.Fatalf("sample %d = %v outside prior support", i, x)
		}
	}

	if lp := p.LogProb([]float64{-0.5}); !math.IsInf(lp, -1) {
		t.Errorf("LogProb outside support = %v, want -Inf", lp)
	}
	if lp := p.LogProb([]float64{-0.9}); math.IsInf(lp, -1) {
		t.Error("LogProb inside support unexpectedly -Inf")
	}
}

func TestPosteriorUsableAsDistribution(t *testing.T) {
	p := New(identityModel(0.1), nil, rand.NewSource(2))
	if err := p.SetDefaultX([]float64{0.5}); err != nil {
		t.Fatalf("SetDefaultX() error = %v", err)
	}

	var d distribution.Distribution = p
	if d.Dim() != 1 {
		t.Errorf("Dim() = %d, want 1", d.Dim())
	}
	batch := distribution.SampleBatch(d, 10)
	if r, _ := batch.Dims(); r != 10 {
		t.Errorf("SampleBatch rows = %d, want 10", r)
	}
}
