package agent

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Params is a versioned snapshot of model parameters. The learner owns
// the canonical parameters and publishes copies; everything outside the
// learner treats a Params as read-only. Versions increase monotonically
// within one run.
type Params struct {
	Version int64
	Weights map[string]*mat.Dense
}

// Clone deep-copies a snapshot so that readers never observe a
// partially-written parameter set
func (p Params) Clone() Params {
	weights := make(map[string]*mat.Dense, len(p.Weights))
	for name, w := range p.Weights {
		weights[name] = mat.DenseCopyOf(w)
	}
	return Params{Version: p.Version, Weights: weights}
}

// Get returns the named weight matrix of a snapshot
func (p Params) Get(name string) (*mat.Dense, error) {
	w, ok := p.Weights[name]
	if !ok {
		return nil, fmt.Errorf("get: no weights named %q", name)
	}
	return w, nil
}

// WeightMatrix is the serializable form of one weight matrix
type WeightMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Snapshot is the serializable form of Params, used on the wire and in
// checkpoints
type Snapshot struct {
	Version int64                   `json:"version"`
	Weights map[string]WeightMatrix `json:"weights"`
}

// Marshal converts a Params into its serializable form
func (p Params) Marshal() Snapshot {
	weights := make(map[string]WeightMatrix, len(p.Weights))
	for name, w := range p.Weights {
		r, c := w.Dims()
		data := make([]float64, r*c)
		copy(data, w.RawMatrix().Data)
		weights[name] = WeightMatrix{Rows: r, Cols: c, Data: data}
	}
	return Snapshot{Version: p.Version, Weights: weights}
}

// Unmarshal converts a serialized Snapshot back into Params
func Unmarshal(s Snapshot) (Params, error) {
	weights := make(map[string]*mat.Dense, len(s.Weights))
	for name, w := range s.Weights {
		if len(w.Data) != w.Rows*w.Cols {
			return Params{}, fmt.Errorf("unmarshal: weights %q have %v "+
				"values, want %v", name, len(w.Data), w.Rows*w.Cols)
		}
		data := make([]float64, len(w.Data))
		copy(data, w.Data)
		weights[name] = mat.NewDense(w.Rows, w.Cols, data)
	}
	return Params{Version: s.Version, Weights: weights}, nil
}
