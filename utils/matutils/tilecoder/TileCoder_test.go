package tilecoder

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEncodeActiveTiles(t *testing.T) {
	tc := New(
		mat.NewVecDense(2, []float64{0, 0}),
		mat.NewVecDense(2, []float64{1, 1}),
		[][]int{{4, 4}, {2, 3}},
		12,
		true,
	)

	if want := 1 + 4*4 + 2*3; tc.VecLength() != want {
		t.Errorf("vector length %v, want %v", tc.VecLength(), want)
	}
	if tc.NumTilings() != 2 {
		t.Errorf("tilings %v, want 2", tc.NumTilings())
	}

	coded := tc.Encode(mat.NewVecDense(2, []float64{0.5, 0.5}))

	// One active tile per tiling, plus the bias unit
	active := 0
	for i := 0; i < coded.Len(); i++ {
		switch coded.AtVec(i) {
		case 1.0:
			active++
		case 0.0:
		default:
			t.Fatalf("feature value %v, want 0 or 1", coded.AtVec(i))
		}
	}
	if active != 3 {
		t.Errorf("%v active features, want 3", active)
	}
	if coded.AtVec(0) != 1.0 {
		t.Error("bias unit not set")
	}
}

func TestEncodeWithoutBias(t *testing.T) {
	tc := New(
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}),
		[][]int{{8}},
		12,
		false,
	)

	if tc.VecLength() != 8 {
		t.Errorf("vector length %v, want 8", tc.VecLength())
	}

	coded := tc.Encode(mat.NewVecDense(1, []float64{0.3}))
	active := 0
	for i := 0; i < coded.Len(); i++ {
		if coded.AtVec(i) == 1.0 {
			active++
		}
	}
	if active != 1 {
		t.Errorf("%v active features, want 1", active)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	tc := New(
		mat.NewVecDense(2, []float64{0, 0}),
		mat.NewVecDense(2, []float64{1, 1}),
		[][]int{{4, 4}, {4, 4}},
		12,
		true,
	)

	v := mat.NewVecDense(2, []float64{0.25, 0.75})
	first := tc.Encode(v)
	second := tc.Encode(v)
	if !mat.EqualApprox(first, second, 0) {
		t.Error("encoding the same vector twice gave different features")
	}
}

func TestEncodeSeparatesDistantPoints(t *testing.T) {
	tc := New(
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}),
		[][]int{{8}},
		12,
		false,
	)

	low := tc.Encode(mat.NewVecDense(1, []float64{0.05}))
	high := tc.Encode(mat.NewVecDense(1, []float64{0.95}))
	if mat.EqualApprox(low, high, 0) {
		t.Error("opposite ends of the range share an encoding")
	}
}

func BenchmarkTileCoder(b *testing.B) {
	tc := New(
		mat.NewVecDense(8, []float64{0, 0, 0, 0, 0, 0, 0, 0}),
		mat.NewVecDense(8, []float64{1, 1, 1, 1, 1, 1, 1, 1}),
		[][]int{{8, 8, 8, 8, 8, 8, 8, 8}},
		12,
		true,
	)

	y := mat.NewVecDense(8, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
		0.5})

	for i := 0; i < b.N; i++ {
		tc.Encode(y)
	}
}
