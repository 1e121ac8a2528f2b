package replay

import (
	"fmt"

	"gorgonia.org/tensor"

	"sfneuman.com/stampede/utils/tensorutils"
)

// Batch is a trajectory batch flattened into dense tensors for the
// learner's update step. All trajectories in a Batch share one unroll
// length T and one observation size F.
type Batch struct {
	N int // number of trajectories
	T int // steps per trajectory
	F int // features per observation

	// Obs has shape (N, T+1, F); index T holds the bootstrap
	// observation of each trajectory
	Obs *tensor.Dense

	// Actions, Rewards, Discounts, LogProbs and Values have shape
	// (N, T)
	Actions   *tensor.Dense
	Rewards   *tensor.Dense
	Discounts *tensor.Dense
	LogProbs  *tensor.Dense
	Values    *tensor.Dense
}

// NewBatch flattens trajectories into a Batch. Every trajectory must
// validate and have the same unroll length and observation size.
func NewBatch(trajectories []Trajectory) (*Batch, error) {
	if len(trajectories) == 0 {
		return nil, fmt.Errorf("newBatch: no trajectories")
	}

	// The first trajectory sets the batch's shape, so it must be
	// validated before its steps are indexed
	if err := trajectories[0].Validate(); err != nil {
		return nil, fmt.Errorf("newBatch: %w", err)
	}

	n := len(trajectories)
	t := len(trajectories[0].Steps)
	f := len(trajectories[0].Steps[0].Obs)

	obs := make([]float64, n*(t+1)*f)
	actions := make([]float64, n*t)
	rewards := make([]float64, n*t)
	discounts := make([]float64, n*t)
	logProbs := make([]float64, n*t)
	values := make([]float64, n*t)

	for i, traj := range trajectories {
		if err := traj.Validate(); err != nil {
			return nil, fmt.Errorf("newBatch: %w", err)
		}
		if len(traj.Steps) != t {
			return nil, fmt.Errorf("newBatch: trajectory %v has %v steps, "+
				"want %v", i, len(traj.Steps), t)
		}

		for j, step := range traj.Steps {
			copy(obs[(i*(t+1)+j)*f:], step.Obs)
			actions[i*t+j] = float64(step.Action)
			rewards[i*t+j] = step.Reward
			discounts[i*t+j] = step.Discount
			logProbs[i*t+j] = step.LogProb
			values[i*t+j] = step.Value
		}
		copy(obs[(i*(t+1)+t)*f:], traj.BootstrapObs)
	}

	return &Batch{
		N:   n,
		T:   t,
		F:   f,
		Obs: tensor.New(tensor.WithShape(n, t+1, f), tensor.WithBacking(obs)),
		Actions: tensor.New(tensor.WithShape(n, t),
			tensor.WithBacking(actions)),
		Rewards: tensor.New(tensor.WithShape(n, t),
			tensor.WithBacking(rewards)),
		Discounts: tensor.New(tensor.WithShape(n, t),
			tensor.WithBacking(discounts)),
		LogProbs: tensor.New(tensor.WithShape(n, t),
			tensor.WithBacking(logProbs)),
		Values: tensor.New(tensor.WithShape(n, t),
			tensor.WithBacking(values)),
	}, nil
}

// ObsAt returns the observation of trajectory i at step j as a slice.
// Step index T refers to the bootstrap observation.
func (b *Batch) ObsAt(i, j int) []float64 {
	view, err := b.Obs.Slice(tensorutils.Index(i), tensorutils.Index(j),
		nil)
	if err != nil {
		panic(fmt.Sprintf("obsAt: %v", err))
	}
	return view.Data().([]float64)[:b.F]
}

// At returns the value at trajectory i, step j of one of the (N, T)
// tensors
func At(d *tensor.Dense, i, j, t int) float64 {
	return d.Data().([]float64)[i*t+j]
}
