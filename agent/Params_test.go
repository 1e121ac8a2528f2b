package agent

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestParamsCloneIsIndependent(t *testing.T) {
	original := Params{
		Version: 3,
		Weights: map[string]*mat.Dense{
			"policy": mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		},
	}

	clone := original.Clone()
	clone.Weights["policy"].Set(0, 0, 99)

	if got := original.Weights["policy"].At(0, 0); got != 1 {
		t.Errorf("mutating a clone changed the original: got %v, want 1",
			got)
	}
	if clone.Version != 3 {
		t.Errorf("clone version %v, want 3", clone.Version)
	}
}

func TestParamsGet(t *testing.T) {
	p := Params{Weights: map[string]*mat.Dense{
		"q": mat.NewDense(1, 1, []float64{5}),
	}}

	w, err := p.Get("q")
	if err != nil {
		t.Fatal(err)
	}
	if w.At(0, 0) != 5 {
		t.Errorf("got %v, want 5", w.At(0, 0))
	}

	if _, err := p.Get("missing"); err == nil {
		t.Error("missing key returned no error")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := Params{
		Version: 7,
		Weights: map[string]*mat.Dense{
			"policy": mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
			"value":  mat.NewDense(1, 3, []float64{-1, 0, 1}),
		},
	}

	restored, err := Unmarshal(original.Marshal())
	if err != nil {
		t.Fatal(err)
	}

	if restored.Version != original.Version {
		t.Errorf("restored version %v, want %v", restored.Version,
			original.Version)
	}
	for name, w := range original.Weights {
		got, err := restored.Get(name)
		if err != nil {
			t.Fatal(err)
		}
		if !mat.EqualApprox(got, w, 1e-12) {
			t.Errorf("weights %q changed across the round trip", name)
		}
	}
}

func TestUnmarshalRejectsInconsistentShapes(t *testing.T) {
	s := Snapshot{
		Version: 1,
		Weights: map[string]WeightMatrix{
			"policy": {Rows: 2, Cols: 2, Data: []float64{1, 2, 3}},
		},
	}
	if _, err := Unmarshal(s); err == nil {
		t.Error("snapshot with wrong data length accepted")
	}
}

func TestMarshalCopiesData(t *testing.T) {
	w := mat.NewDense(1, 2, []float64{1, 2})
	p := Params{Weights: map[string]*mat.Dense{"q": w}}

	snap := p.Marshal()
	w.Set(0, 0, 42)

	if snap.Weights["q"].Data[0] != 1 {
		t.Error("mutating the source weights changed the snapshot")
	}
}
