package vecmath

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAddSub(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{0.5, -2, 1}

	sum := Add(a, b)
	want := []float64{1.5, 0, 4}
	for i := range want {
		if sum[i] != want[i] {
			t.Errorf("Add[%d] = %v, want %v", i, sum[i], want[i])
		}
	}

	diff := Sub(a, b)
	want = []float64{0.5, 4, 2}
	for i := range want {
		if diff[i] != want[i] {
			t.Errorf("Sub[%d] = %v, want %v", i, diff[i], want[i])
		}
	}
}

func TestAddLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on length mismatch")
		}
	}()
	Add([]float64{1}, []float64{1, 2})
}

func TestNorm2(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
		want float64
	}{
		{"empty", nil, 0},
		{"unit", []float64{1, 0, 0}, 1},
		{"pythagorean", []float64{3, 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Norm2(tt.v); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Norm2(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestColumnMeansStds(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	means := ColumnMeans(x)
	if math.Abs(means[0]-2.5) > 1e-12 || math.Abs(means[1]-10) > 1e-12 {
		t.Errorf("ColumnMeans = %v, want [2.5 10]", means)
	}

	stds := ColumnStds(x)
	// Sample std of 1..4 is sqrt(5/3); constant column has zero spread.
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(stds[0]-want) > 1e-12 {
		t.Errorf("ColumnStds[0] = %v, want %v", stds[0], want)
	}
	if stds[1] != 0 {
		t.Errorf("ColumnStds[1] = %v, want 0", stds[1])
	}
}

func TestColumnStdsSingleRow(t *testing.T) {
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	for j, s := range ColumnStds(x) {
		if s != 0 {
			t.Errorf("single-row ColumnStds[%d] = %v, want 0", j, s)
		}
	}
}
