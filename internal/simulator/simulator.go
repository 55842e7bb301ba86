// Package simulator defines the black-box simulator seam of the inference
// loop and a couple of toy simulators used by the bundled examples and the
// test harness. Simulators are consumed only through repeated invocation;
// the loop never inspects their internals.
package simulator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Simulator maps parameter vectors to observation vectors, deterministically
// up to simulator-internal noise.
type Simulator interface {
	// ParamDim returns the expected parameter dimension.
	ParamDim() int

	// ObsDim returns the produced observation dimension.
	ObsDim() int

	// Simulate runs the simulator once per row of theta and returns a
	// matching batch of observations. Rows are processed strictly in
	// order; a context error aborts the remainder of the batch.
	Simulate(ctx context.Context, theta *mat.Dense) (*mat.Dense, error)
}

// checkBatch validates a parameter batch against the simulator's dimension.
func checkBatch(s Simulator, theta *mat.Dense) (rows int, err error) {
	r, c := theta.Dims()
	if c != s.ParamDim() {
		return 0, fmt.Errorf("simulator: parameter dim %d, want %d", c, s.ParamDim())
	}
	return r, nil
}
