// Package simulation provides a multi-round test harness for validating
// statistical properties of the inference loop.
//
// The harness exercises the real Controller, GaussianTrainer, and
// SQLiteArchive with no mocks. Scenarios are Go builders that construct a
// seeded prior/simulator pair and run a configurable number of rounds,
// capturing the posterior sequence and accumulated dataset for
// property-based assertions.
//
// Each test gets an isolated SQLite archive via t.TempDir().
//
// Usage:
//
//	func TestConcentration(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "linear-gaussian-2-rounds",
//	        Seed:    42,
//	        Rounds:  2,
//	        ...
//	    })
//	    simulation.AssertPosteriorCount(t, result, 2)
//	}
package simulation
