package weights

import (
	"testing"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestLinearUVFillsWithinBounds(t *testing.T) {
	init := NewLinearUV(distuv.Uniform{
		Min: -0.5,
		Max: 0.5,
		Src: rand.NewSource(42),
	})

	w := mat.NewDense(3, 4, nil)
	init.Initialize(w)

	nonzero := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			v := w.At(i, j)
			if v < -0.5 || v > 0.5 {
				t.Errorf("weight (%v, %v) = %v outside [-0.5, 0.5]", i, j, v)
			}
			if v != 0 {
				nonzero++
			}
		}
	}
	if nonzero == 0 {
		t.Error("every initialized weight is zero")
	}
}

func TestZeroUV(t *testing.T) {
	init := NewLinearUV(NewZeroUV())

	w := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	init.Initialize(w)

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if w.At(i, j) != 0 {
				t.Errorf("weight (%v, %v) = %v, want 0", i, j, w.At(i, j))
			}
		}
	}
}

func TestInitializeNilIsNoOp(t *testing.T) {
	init := NewLinearUV(NewZeroUV())
	init.Initialize(nil) // must not panic
}
