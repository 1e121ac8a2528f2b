package matutils

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaxVec(t *testing.T) {
	v := mat.NewVecDense(4, []float64{-1, 5, 3, 5})
	if got := MaxVec(v); got != 1 {
		t.Errorf("MaxVec = %v, want the first maximum at index 1", got)
	}

	single := mat.NewVecDense(1, []float64{2})
	if got := MaxVec(single); got != 0 {
		t.Errorf("MaxVec of a single element = %v, want 0", got)
	}
}

func TestRowMean(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})

	means := RowMean(m)
	if means.Len() != 2 {
		t.Fatalf("got %v means, want 2", means.Len())
	}
	if means.AtVec(0) != 2 || means.AtVec(1) != 5 {
		t.Errorf("row means (%v, %v), want (2, 5)", means.AtVec(0),
			means.AtVec(1))
	}
}
