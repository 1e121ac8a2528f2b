// Package r2d2 implements a value-based off-policy learner over
// sequence replay. Incoming trajectories are kept in a bounded replay
// of sequences sampled uniformly for updates; targets are n-step
// double-Q estimates against a periodically-synced target network, and
// actors explore on an epsilon ladder spread across task indices.
package r2d2

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/policy"
	"sfneuman.com/stampede/replay"
	"sfneuman.com/stampede/utils/matutils"
	"sfneuman.com/stampede/utils/matutils/initializers/weights"
)

// InitWeightRange is the half-width of the uniform interval that
// online weights are drawn from at construction
const InitWeightRange float64 = 0.01

// R2D2 owns the canonical action-value parameters of a run
type R2D2 struct {
	config    Config
	features  int
	actions   int
	numActors int
	seed      uint64

	q      *mat.Dense // online weights: actions x features
	target *mat.Dense // target weights, synced periodically

	buffer  []replay.Trajectory // sequence replay, FIFO removal
	sampler replay.Selector

	updates int
	version int64
}

// New constructs a new R2D2 learner for observation vectors of the
// given size and the given number of discrete actions
func New(config Config, features, actions, numActors int,
	seed uint64) (*R2D2, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if features < 1 || actions < 2 {
		return nil, fmt.Errorf("new: illegal dimensions %vx%v", actions,
			features)
	}

	sampler, err := replay.NewSelector(replay.Uniform, seed)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	q := mat.NewDense(actions, features, nil)
	init := weights.NewLinearUV(distuv.Uniform{
		Min: -InitWeightRange,
		Max: InitWeightRange,
		Src: rand.NewSource(seed),
	})
	init.Initialize(q)

	target := mat.NewDense(actions, features, nil)
	target.Copy(q)

	return &R2D2{
		config:    config,
		features:  features,
		actions:   actions,
		numActors: numActors,
		seed:      seed,
		q:         q,
		target:    target,
		buffer:    make([]replay.Trajectory, 0, config.ReplayCapacity),
		sampler:   sampler,
	}, nil
}

// ReplaySize returns the number of sequences currently held in the
// internal replay
func (r *R2D2) ReplaySize() int {
	return len(r.buffer)
}

// Step adds a batch of trajectories to the sequence replay and, once
// the replay holds enough sequences, performs one update from a
// uniformly sampled batch
func (r *R2D2) Step(batch []replay.Trajectory) (agent.StepResult, error) {
	frames := 0
	for _, traj := range batch {
		if err := traj.Validate(); err != nil {
			return agent.StepResult{}, fmt.Errorf("step: %w", err)
		}
		if len(r.buffer) >= r.config.ReplayCapacity {
			r.buffer = r.buffer[1:]
		}
		r.buffer = append(r.buffer, traj)
		frames += len(traj.Steps)
	}

	if len(r.buffer) < r.config.MinReplay {
		return agent.StepResult{Frames: frames}, nil
	}

	grad := mat.NewDense(r.actions, r.features, nil)
	var loss float64
	var samples int

	for _, idx := range r.sampler.Choose(r.config.SampleBatch,
		len(r.buffer)) {
		traj := r.buffer[idx]

		for t := range traj.Steps {
			g, discount := r.nStepReturn(traj, t)
			obs := traj.Obs(t)
			action := traj.Steps[t].Action

			// Double-Q bootstrap: online network picks the action,
			// target network evaluates it
			bootstrapObs := r.obsAfter(traj, t)
			if bootstrapObs != nil && discount != 0 {
				best := r.argmaxOnline(bootstrapObs)
				g += discount * r.actionValue(r.target, bootstrapObs, best)
			}

			tdError := g - r.actionValue(r.q, obs, action)
			loss += 0.5 * tdError * tdError

			row := grad.RawRowView(action)
			for f := 0; f < r.features; f++ {
				row[f] += tdError * obs.AtVec(f)
			}
			samples++
		}
	}

	if samples > 0 {
		r.q.Add(r.q, scaled(grad, r.config.LearningRate/float64(samples)))
		loss /= float64(samples)
	}

	r.updates++
	if r.updates%r.config.TargetSyncPeriod == 0 {
		r.target.Copy(r.q)
	}
	r.version++

	return agent.StepResult{
		Loss:      loss,
		ValueLoss: loss,
		Frames:    frames,
	}, nil
}

// Params returns a copy of the current parameters as a versioned
// snapshot
func (r *R2D2) Params() agent.Params {
	return agent.Params{
		Version: r.version,
		Weights: map[string]*mat.Dense{
			policy.QWeightsKey: r.q,
		},
	}.Clone()
}

// SetParams restores the learner's parameters from a snapshot. The
// target network is synced to the restored online weights.
func (r *R2D2) SetParams(p agent.Params) error {
	q, err := p.Get(policy.QWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	rows, cols := q.Dims()
	if rows != r.actions || cols != r.features {
		return fmt.Errorf("setParams: action-value weights are %vx%v, "+
			"want %vx%v", rows, cols, r.actions, r.features)
	}

	r.q.Copy(q)
	r.target.Copy(q)
	r.version = p.Version

	return nil
}

// Policy returns a new epsilon-greedy ladder policy backed by a copy
// of the agent's current parameters
func (r *R2D2) Policy() agent.Policy {
	p := policy.NewEGreedy(r.features, r.actions, r.config.Epsilon,
		r.config.EpsilonAlpha, r.numActors, r.seed)
	if err := p.SetParams(r.Params()); err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return p
}

// nStepReturn accumulates up to NStep discounted rewards from step t
// and returns the accumulated reward along with the product of
// discounts to apply to the bootstrap term. A discount product of 0
// means the run hit a terminal step and needs no bootstrap.
func (r *R2D2) nStepReturn(traj replay.Trajectory, t int) (float64,
	float64) {
	g := 0.0
	discount := 1.0
	for k := 0; k < r.config.NStep && t+k < len(traj.Steps); k++ {
		step := traj.Steps[t+k]
		g += discount * step.Reward
		discount *= step.Discount
		if discount == 0 {
			break
		}
	}
	return g, discount
}

// obsAfter returns the observation n steps past t, or the trajectory's
// bootstrap observation when the run extends past the end. Returns nil
// when no bootstrap is needed.
func (r *R2D2) obsAfter(traj replay.Trajectory, t int) mat.Vector {
	after := t + r.config.NStep
	if after < len(traj.Steps) {
		return traj.Obs(after)
	}
	return traj.Bootstrap()
}

// argmaxOnline returns the greedy action of the online network
func (r *R2D2) argmaxOnline(obs mat.Vector) int {
	values := mat.NewVecDense(r.actions, nil)
	values.MulVec(r.q, obs)
	return matutils.MaxVec(values)
}

// actionValue computes one action's value under a weight matrix
func (r *R2D2) actionValue(weights *mat.Dense, obs mat.Vector,
	action int) float64 {
	row := weights.RawRowView(action)
	value := 0.0
	for f := 0; f < r.features; f++ {
		value += row[f] * obs.AtVec(f)
	}
	return value
}

// scaled returns a newly-allocated copy of m scaled by c
func scaled(m *mat.Dense, c float64) *mat.Dense {
	r, cols := m.Dims()
	out := mat.NewDense(r, cols, nil)
	out.Scale(c, m)
	return out
}
