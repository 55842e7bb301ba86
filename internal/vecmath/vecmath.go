// Package vecmath provides small float64 vector helpers shared by the
// simulators and diagnostics. Batches are row-major: one sample per row.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Add returns a new vector a+b. Panics on length mismatch.
func Add(a, b []float64) []float64 {
	if len(a) != len(b) {
		panic("vecmath: length mismatch")
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// Sub returns a new vector a-b. Panics on length mismatch.
func Sub(a, b []float64) []float64 {
	if len(a) != len(b) {
		panic("vecmath: length mismatch")
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Norm2 returns the Euclidean norm of v.
func Norm2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// ColumnMeans returns the per-column mean of a row-major sample batch.
func ColumnMeans(x *mat.Dense) []float64 {
	r, c := x.Dims()
	means := make([]float64, c)
	if r == 0 {
		return means
	}
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(r)
	}
	return means
}

// ColumnStds returns the per-column sample standard deviation of a
// row-major batch. Columns of a single-row batch report zero.
func ColumnStds(x *mat.Dense) []float64 {
	r, c := x.Dims()
	stds := make([]float64, c)
	if r < 2 {
		return stds
	}
	means := ColumnMeans(x)
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(r-1))
	}
	return stds
}
