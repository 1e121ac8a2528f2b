// Package replay implements the trajectory queue between actors and
// the learner, along with the trajectory types exchanged on the wire
// and the selectors that drive sampling from sequence buffers.
package replay

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Step is one environment transition as shipped from actors to the
// learner. Log probabilities and value estimates come from the
// behaviour policy that served the actor's inference request.
type Step struct {
	Obs      []float64 `json:"obs"`
	Action   int       `json:"action"`
	Reward   float64   `json:"reward"`
	Discount float64   `json:"discount"`
	First    bool      `json:"first,omitempty"`
	LogProb  float64   `json:"log_prob"`
	Value    float64   `json:"value"`
}

// Trajectory is the unit exchanged between one actor and the learner:
// an ordered run of Steps of bounded length, cut at the unroll length
// or at episode boundaries. BootstrapObs is the observation following
// the final step, used to bootstrap value targets. A Trajectory is
// consumed exactly once or discarded under backpressure, never
// duplicated.
type Trajectory struct {
	Task          int       `json:"task"`
	RunID         string    `json:"run_id"`
	ParamsVersion int64     `json:"params_version"`
	Steps         []Step    `json:"steps"`
	BootstrapObs  []float64 `json:"bootstrap_obs"`
	CreatedAtMs   int64     `json:"created_at_ms"`
}

// Validate checks that a trajectory is well formed: non-empty, with a
// bootstrap observation and a consistent observation size throughout
func (t Trajectory) Validate() error {
	if len(t.Steps) == 0 {
		return fmt.Errorf("validate: trajectory from task %v has no steps",
			t.Task)
	}

	features := len(t.Steps[0].Obs)
	if features == 0 {
		return fmt.Errorf("validate: trajectory from task %v has empty "+
			"observations", t.Task)
	}
	for i, step := range t.Steps {
		if len(step.Obs) != features {
			return fmt.Errorf("validate: step %v observation length %v, "+
				"want %v", i, len(step.Obs), features)
		}
	}
	if len(t.BootstrapObs) != features {
		return fmt.Errorf("validate: bootstrap observation length %v, "+
			"want %v", len(t.BootstrapObs), features)
	}

	return nil
}

// Obs returns the observation of step i as a vector
func (t Trajectory) Obs(i int) mat.Vector {
	return mat.NewVecDense(len(t.Steps[i].Obs), t.Steps[i].Obs)
}

// Bootstrap returns the bootstrap observation as a vector
func (t Trajectory) Bootstrap() mat.Vector {
	return mat.NewVecDense(len(t.BootstrapObs), t.BootstrapObs)
}
