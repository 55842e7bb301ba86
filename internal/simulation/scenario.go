package simulation

import (
	"golang.org/x/exp/rand"

	"github.com/sequor-dev/sequor/internal/archive"
	"github.com/sequor-dev/sequor/internal/distribution"
	"github.com/sequor-dev/sequor/internal/rounds"
	"github.com/sequor-dev/sequor/internal/simulator"
)

// Scenario defines a complete inference experiment.
type Scenario struct {
	Name string

	// Seed fixes all randomness of the run.
	Seed uint64

	// Prior builds the parameter prior from the run's random source.
	Prior func(src rand.Source) (distribution.Distribution, error)

	// Simulator builds the simulator from the run's random source.
	Simulator func(src rand.Source) (simulator.Simulator, error)

	// Observation is the target observation.
	Observation []float64

	Rounds              int
	SimulationsPerRound int

	// ArchiveRun, when true, wires a SQLite archive observer into the
	// run so persistence is exercised alongside the loop.
	ArchiveRun bool
}

// LinearGaussianScenario is the reference experiment: a dim-dimensional
// box-uniform prior on [-2, 2], observation = parameter + shift + noise,
// and a zero target observation.
func LinearGaussianScenario(dim int, shift, noiseStd float64, numRounds, budget int, seed uint64) Scenario {
	low := make([]float64, dim)
	high := make([]float64, dim)
	shifts := make([]float64, dim)
	obs := make([]float64, dim)
	for i := 0; i < dim; i++ {
		low[i], high[i], shifts[i] = -2, 2, shift
	}

	return Scenario{
		Name: "linear-gaussian",
		Seed: seed,
		Prior: func(src rand.Source) (distribution.Distribution, error) {
			return distribution.NewBoxUniform(low, high, src)
		},
		Simulator: func(src rand.Source) (simulator.Simulator, error) {
			return simulator.NewLinearGaussian(shifts, noiseStd, src)
		},
		Observation:         obs,
		Rounds:              numRounds,
		SimulationsPerRound: budget,
	}
}

// Result captures the outcome of a scenario run.
type Result struct {
	RunResult *rounds.Result

	// Archive and RunID are set when the scenario archived the run.
	Archive *archive.SQLiteArchive
	RunID   string
}
