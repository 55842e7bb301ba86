package estimator

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sequor-dev/sequor/internal/distribution"
)

// defaultRidge is the diagonal jitter added to the fitted residual
// covariance to keep it positive definite.
const defaultRidge = 1e-9

type trainRound struct {
	theta    *mat.Dense
	obs      *mat.Dense
	proposal distribution.Distribution
	tag      string
}

// GaussianTrainer fits an affine-Gaussian conditional density
// theta | x ~ N(A·x + b, Sigma) by weighted least squares over all
// accumulated rounds. Rounds whose proposal differs from the prior are
// reweighted by prior(theta)/proposal(theta); the weights are
// self-normalized per round, so unnormalized proposal densities (such as
// truncated posteriors) are acceptable.
type GaussianTrainer struct {
	prior  distribution.Distribution
	ridge  float64
	obsDim int
	rounds []trainRound
}

// NewGaussianTrainer creates a trainer for parameters distributed under the
// given prior.
func NewGaussianTrainer(prior distribution.Distribution) *GaussianTrainer {
	return &GaussianTrainer{prior: prior, ridge: defaultRidge}
}

// AddRound appends one round of training data.
func (g *GaussianTrainer) AddRound(theta, obs *mat.Dense, proposal distribution.Distribution, tag string) error {
	tr, tc := theta.Dims()
	or, oc := obs.Dims()
	if tr == 0 {
		return fmt.Errorf("gaussian trainer: empty round %q", tag)
	}
	if tr != or {
		return fmt.Errorf("gaussian trainer: round %q: %d parameter rows but %d observation rows", tag, tr, or)
	}
	if tc != g.prior.Dim() {
		return fmt.Errorf("gaussian trainer: round %q: parameter dim %d, want %d", tag, tc, g.prior.Dim())
	}
	if proposal == nil {
		return fmt.Errorf("gaussian trainer: round %q: nil proposal", tag)
	}
	if len(g.rounds) == 0 {
		g.obsDim = oc
	} else if oc != g.obsDim {
		return fmt.Errorf("gaussian trainer: round %q: observation dim %d, want %d", tag, oc, g.obsDim)
	}

	g.rounds = append(g.rounds, trainRound{theta: theta, obs: obs, proposal: proposal, tag: tag})
	return nil
}

// Rounds returns the number of rounds added so far.
func (g *GaussianTrainer) Rounds() int { return len(g.rounds) }

// Train fits the conditional density on the full accumulated dataset.
func (g *GaussianTrainer) Train(ctx context.Context) (ConditionalDensity, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("gaussian trainer: %w", err)
	}
	if len(g.rounds) == 0 {
		return nil, fmt.Errorf("gaussian trainer: no training data")
	}

	paramDim := g.prior.Dim()
	design := g.obsDim + 1 // observation columns plus intercept

	var total int
	for _, r := range g.rounds {
		n, _ := r.theta.Dims()
		total += n
	}
	if total <= design {
		return nil, fmt.Errorf("gaussian trainer: %d samples cannot fit %d coefficients", total, design)
	}

	weights, err := g.roundWeights()
	if err != nil {
		return nil, err
	}

	// Weighted least squares: scale design and targets by sqrt(w), then
	// solve the resulting overdetermined system.
	zw := mat.NewDense(total, design, nil)
	tw := mat.NewDense(total, paramDim, nil)
	row := 0
	for ri, r := range g.rounds {
		n, _ := r.theta.Dims()
		for i := 0; i < n; i++ {
			sw := math.Sqrt(weights[ri][i])
			x := r.obs.RawRowView(i)
			for j, v := range x {
				zw.Set(row, j, sw*v)
			}
			zw.Set(row, g.obsDim, sw)
			th := r.theta.RawRowView(i)
			for j, v := range th {
				tw.Set(row, j, sw*v)
			}
			row++
		}
	}

	var coeff mat.Dense
	if err := coeff.Solve(zw, tw); err != nil {
		return nil, fmt.Errorf("gaussian trainer: least squares fit: %w", err)
	}

	cov, err := g.residualCovariance(&coeff, weights)
	if err != nil {
		return nil, err
	}

	model := &GaussianModel{
		NumParams: paramDim,
		NumObs:    g.obsDim,
		Coeff:     denseToRows(&coeff),
		Cov:       cov,
	}
	return model, nil
}

// roundWeights computes self-normalized importance weights per round.
// Round weights sum to the round's sample count; the first round (or any
// round whose proposal is the prior) is unweighted.
func (g *GaussianTrainer) roundWeights() ([][]float64, error) {
	weights := make([][]float64, len(g.rounds))
	for ri, r := range g.rounds {
		n, _ := r.theta.Dims()
		w := make([]float64, n)
		if r.proposal == g.prior {
			for i := range w {
				w[i] = 1
			}
			weights[ri] = w
			continue
		}

		var sum float64
		for i := 0; i < n; i++ {
			th := r.theta.RawRowView(i)
			lw := g.prior.LogProb(th) - r.proposal.LogProb(th)
			v := math.Exp(lw)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			w[i] = v
			sum += v
		}
		if sum == 0 {
			return nil, fmt.Errorf("gaussian trainer: round %q: proposal correction degenerate, all weights zero", r.tag)
		}
		scale := float64(n) / sum
		for i := range w {
			w[i] *= scale
		}
		weights[ri] = w
	}
	return weights, nil
}

// residualCovariance computes the weighted covariance of the fit residuals
// with diagonal jitter.
func (g *GaussianTrainer) residualCovariance(coeff *mat.Dense, weights [][]float64) ([][]float64, error) {
	paramDim := g.prior.Dim()
	acc := make([][]float64, paramDim)
	for j := range acc {
		acc[j] = make([]float64, paramDim)
	}

	var wsum float64
	resid := make([]float64, paramDim)
	for ri, r := range g.rounds {
		n, _ := r.theta.Dims()
		for i := 0; i < n; i++ {
			x := r.obs.RawRowView(i)
			th := r.theta.RawRowView(i)
			for j := 0; j < paramDim; j++ {
				mean := coeff.At(g.obsDim, j)
				for k, v := range x {
					mean += coeff.At(k, j) * v
				}
				resid[j] = th[j] - mean
			}
			w := weights[ri][i]
			wsum += w
			for j := 0; j < paramDim; j++ {
				for k := j; k < paramDim; k++ {
					acc[j][k] += w * resid[j] * resid[k]
				}
			}
		}
	}
	if wsum == 0 {
		return nil, fmt.Errorf("gaussian trainer: zero total weight")
	}

	for j := 0; j < paramDim; j++ {
		for k := j; k < paramDim; k++ {
			acc[j][k] /= wsum
			acc[k][j] = acc[j][k]
		}
		acc[j][j] += g.ridge
	}
	return acc, nil
}

func denseToRows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		copy(rows[i], m.RawRowView(i))
	}
	return rows
}

// GaussianModel is the fitted affine-Gaussian conditional density. It is
// JSON-serializable so trained posteriors can be archived and reloaded.
type GaussianModel struct {
	NumParams int         `json:"param_dim"`
	NumObs    int         `json:"obs_dim"`
	Coeff     [][]float64 `json:"coeff"` // (obs_dim+1) x param_dim; last row is the intercept
	Cov       [][]float64 `json:"cov"`   // param_dim x param_dim residual covariance
}

// ParamDim returns the parameter dimension.
func (m *GaussianModel) ParamDim() int { return m.NumParams }

// ObsDim returns the observation dimension.
func (m *GaussianModel) ObsDim() int { return m.NumObs }

// Validate checks internal shape consistency, e.g. after JSON decoding.
func (m *GaussianModel) Validate() error {
	if m.NumParams <= 0 || m.NumObs <= 0 {
		return fmt.Errorf("gaussian model: non-positive dims %dx%d", m.NumParams, m.NumObs)
	}
	if len(m.Coeff) != m.NumObs+1 {
		return fmt.Errorf("gaussian model: %d coefficient rows, want %d", len(m.Coeff), m.NumObs+1)
	}
	for i, row := range m.Coeff {
		if len(row) != m.NumParams {
			return fmt.Errorf("gaussian model: coefficient row %d has %d columns, want %d", i, len(row), m.NumParams)
		}
	}
	if len(m.Cov) != m.NumParams {
		return fmt.Errorf("gaussian model: %d covariance rows, want %d", len(m.Cov), m.NumParams)
	}
	for i, row := range m.Cov {
		if len(row) != m.NumParams {
			return fmt.Errorf("gaussian model: covariance row %d has %d columns, want %d", i, len(row), m.NumParams)
		}
	}
	return nil
}

// Mean returns the conditional mean A·x + b.
func (m *GaussianModel) Mean(x []float64) ([]float64, error) {
	if len(x) != m.NumObs {
		return nil, fmt.Errorf("gaussian model: observation dim %d, want %d", len(x), m.NumObs)
	}
	mean := make([]float64, m.NumParams)
	for j := 0; j < m.NumParams; j++ {
		mean[j] = m.Coeff[m.NumObs][j]
		for k, v := range x {
			mean[j] += m.Coeff[k][j] * v
		}
	}
	return mean, nil
}

// Condition fixes the observation and returns the conditional Gaussian.
func (m *GaussianModel) Condition(x []float64, src rand.Source) (distribution.Distribution, error) {
	mean, err := m.Mean(x)
	if err != nil {
		return nil, err
	}
	sigma := mat.NewSymDense(m.NumParams, nil)
	for j := 0; j < m.NumParams; j++ {
		for k := j; k < m.NumParams; k++ {
			sigma.SetSym(j, k, m.Cov[j][k])
		}
	}
	return distribution.NewGaussian(mean, sigma, src)
}

// LogProb returns the conditional log-density of theta given x.
// Shape mismatches report -Inf.
func (m *GaussianModel) LogProb(theta, x []float64) float64 {
	if len(theta) != m.NumParams {
		return math.Inf(-1)
	}
	cond, err := m.Condition(x, nil)
	if err != nil {
		return math.Inf(-1)
	}
	return cond.LogProb(theta)
}
