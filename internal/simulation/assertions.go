package simulation

import (
	"math"
	"testing"

	"github.com/sequor-dev/sequor/internal/posterior"
	"github.com/sequor-dev/sequor/internal/vecmath"
)

// AssertPosteriorCount asserts that the run produced exactly want
// posteriors, in round order.
func AssertPosteriorCount(t *testing.T, result Result, want int) {
	t.Helper()
	if got := len(result.RunResult.Posteriors); got != want {
		t.Errorf("AssertPosteriorCount: got %d posteriors, want %d", got, want)
	}
}

// AssertDatasetGrowth asserts that the accumulated dataset after round k
// equals the sum of per-round batch sizes for rounds 1..k.
func AssertDatasetGrowth(t *testing.T, result Result, budget int) {
	t.Helper()
	records := result.RunResult.Dataset.Records()
	var cumulative int
	for k, rec := range records {
		cumulative += budget
		if rec.Rows() != budget {
			t.Errorf("AssertDatasetGrowth: round %d batch size %d, want %d", k+1, rec.Rows(), budget)
		}
	}
	if got := result.RunResult.Dataset.Len(); got != cumulative {
		t.Errorf("AssertDatasetGrowth: dataset size %d, want %d", got, cumulative)
	}
}

// AssertProposalChain asserts that round 1 was proposed by the prior and
// each later round by the previous round's posterior.
func AssertProposalChain(t *testing.T, result Result) {
	t.Helper()
	records := result.RunResult.Dataset.Records()
	for k, rec := range records {
		if k == 0 {
			if rec.Tag != "prior" {
				t.Errorf("AssertProposalChain: round 1 tag %q, want prior", rec.Tag)
			}
			continue
		}
		if rec.Proposal != result.RunResult.Posteriors[k-1] {
			t.Errorf("AssertProposalChain: round %d proposal is not the round-%d posterior", k+1, k)
		}
	}
}

// AssertConcentratesNear asserts that the posterior's sample mean lies
// within tol of center in every dimension.
func AssertConcentratesNear(t *testing.T, p *posterior.Posterior, center []float64, tol float64, n int) {
	t.Helper()
	samples := p.Sample(n)
	means := vecmath.ColumnMeans(samples)
	for j, c := range center {
		if math.Abs(means[j]-c) > tol {
			t.Errorf("AssertConcentratesNear: dim %d mean %.4f, want %.4f +/- %.4f", j, means[j], c, tol)
		}
	}
}

// AssertTighterSpread asserts that the later posterior's per-dimension
// sample standard deviation does not exceed the earlier one's by more than
// slack, which absorbs estimation noise in problems where both rounds are
// already near the noise floor.
func AssertTighterSpread(t *testing.T, earlier, later *posterior.Posterior, n int, slack float64) {
	t.Helper()
	stdEarlier := vecmath.ColumnStds(earlier.Sample(n))
	stdLater := vecmath.ColumnStds(later.Sample(n))
	for j := range stdEarlier {
		if stdLater[j] > stdEarlier[j]+slack {
			t.Errorf("AssertTighterSpread: dim %d spread grew from %.4f to %.4f", j, stdEarlier[j], stdLater[j])
		}
	}
}
