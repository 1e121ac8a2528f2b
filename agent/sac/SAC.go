// Package sac implements a maximum-entropy actor-critic learner for
// discrete actions over linear function approximation. Twin action-
// value heads bound the critic estimate, soft targets mix in the
// policy's entropy at a fixed temperature, and the softmax policy is
// updated toward the entropy-regularized critic.
package sac

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/policy"
	"sfneuman.com/stampede/replay"
	"sfneuman.com/stampede/utils/floatutils"
	"sfneuman.com/stampede/utils/matutils"
	"sfneuman.com/stampede/utils/matutils/initializers/weights"
)

const (
	// Keys for the twin critic heads in the weights map
	Q1WeightsKey string = "q1"
	Q2WeightsKey string = "q2"

	// InitWeightRange is the half-width of the uniform interval that
	// critic weights are drawn from at construction
	InitWeightRange float64 = 0.01
)

// SAC owns the canonical parameters of a run: softmax policy
// preferences and twin linear action-value heads with polyak-averaged
// targets
type SAC struct {
	config   Config
	features int
	actions  int
	seed     uint64

	policyWeights *mat.Dense // actions x features
	q1            *mat.Dense
	q2            *mat.Dense
	targetQ1      *mat.Dense
	targetQ2      *mat.Dense

	buffer  []replay.Trajectory
	sampler replay.Selector

	version int64
}

// New constructs a new SAC learner for observation vectors of the
// given size and the given number of discrete actions
func New(config Config, features, actions int, seed uint64) (*SAC, error) {
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

	q1 := mat.NewDense(actions, features, nil)
	q2 := mat.NewDense(actions, features, nil)
	init := weights.NewLinearUV(distuv.Uniform{
		Min: -InitWeightRange,
		Max: InitWeightRange,
		Src: rand.NewSource(seed),
	})
	init.Initialize(q1)
	init.Initialize(q2)

	targetQ1 := mat.NewDense(actions, features, nil)
	targetQ2 := mat.NewDense(actions, features, nil)
	targetQ1.Copy(q1)
	targetQ2.Copy(q2)

	// Policy preferences start at zero so that the initial policy is
	// uniform over actions
	policyWeights := mat.NewDense(actions, features, nil)
	weights.NewLinearUV(weights.NewZeroUV()).Initialize(policyWeights)

	return &SAC{
		config:        config,
		features:      features,
		actions:       actions,
		seed:          seed,
		policyWeights: policyWeights,
		q1:            q1,
		q2:            q2,
		targetQ1:      targetQ1,
		targetQ2:      targetQ2,
		buffer:        make([]replay.Trajectory, 0, config.ReplayCapacity),
		sampler:       sampler,
	}, nil
}

// Step adds a batch of trajectories to the replay and, once the replay
// holds enough sequences, performs one soft update from a uniformly
// sampled batch
func (s *SAC) Step(batch []replay.Trajectory) (agent.StepResult, error) {
	frames := 0
	for _, traj := range batch {
		if err := traj.Validate(); err != nil {
			return agent.StepResult{}, fmt.Errorf("step: %w", err)
		}
		if len(s.buffer) >= s.config.ReplayCapacity {
			s.buffer = s.buffer[1:]
		}
		s.buffer = append(s.buffer, traj)
		frames += len(traj.Steps)
	}

	if len(s.buffer) < s.config.MinReplay {
		return agent.StepResult{Frames: frames}, nil
	}

	q1Grad := mat.NewDense(s.actions, s.features, nil)
	q2Grad := mat.NewDense(s.actions, s.features, nil)
	policyGrad := mat.NewDense(s.actions, s.features, nil)

	var valueLoss, policyLoss, entropySum float64
	var samples int

	for _, idx := range s.sampler.Choose(s.config.SampleBatch,
		len(s.buffer)) {
		traj := s.buffer[idx]

		for t := range traj.Steps {
			step := traj.Steps[t]
			obs := traj.Obs(t)

			var nextObs mat.Vector
			if t+1 < len(traj.Steps) {
				nextObs = traj.Obs(t + 1)
			} else {
				nextObs = traj.Bootstrap()
			}

			// Soft target: r + gamma * E_pi[min Q_target - alpha*log pi]
			target := step.Reward
			if step.Discount != 0 {
				target += step.Discount * s.softValue(nextObs)
			}

			td1 := target - s.actionValue(s.q1, obs, step.Action)
			td2 := target - s.actionValue(s.q2, obs, step.Action)
			valueLoss += 0.5 * (td1*td1 + td2*td2)

			row1 := q1Grad.RawRowView(step.Action)
			row2 := q2Grad.RawRowView(step.Action)
			for f := 0; f < s.features; f++ {
				row1[f] += td1 * obs.AtVec(f)
				row2[f] += td2 * obs.AtVec(f)
			}

			// Policy ascends on E_pi[min Q - alpha*log pi]; the
			// softmax gradient at logit k is pi_k * (f_k - E_pi[f])
			probs := s.probabilities(obs)
			f := make([]float64, s.actions)
			var fBar, entropy float64
			for a := 0; a < s.actions; a++ {
				logProb := math.Log(probs[a] + 1e-8)
				minQ := floatutils.Min(s.actionValue(s.q1, obs, a),
					s.actionValue(s.q2, obs, a))
				f[a] = minQ - s.config.Temperature*logProb
				fBar += probs[a] * f[a]
				entropy -= probs[a] * logProb
			}
			for a := 0; a < s.actions; a++ {
				scale := probs[a] * (f[a] - fBar)
				row := policyGrad.RawRowView(a)
				for i := 0; i < s.features; i++ {
					row[i] += scale * obs.AtVec(i)
				}
			}

			policyLoss -= fBar
			entropySum += entropy
			samples++
		}
	}

	if samples > 0 {
		n := float64(samples)
		s.q1.Add(s.q1, scaled(q1Grad, s.config.CriticLearningRate/n))
		s.q2.Add(s.q2, scaled(q2Grad, s.config.CriticLearningRate/n))
		s.policyWeights.Add(s.policyWeights,
			scaled(policyGrad, s.config.PolicyLearningRate/n))

		polyak(s.targetQ1, s.q1, s.config.Tau)
		polyak(s.targetQ2, s.q2, s.config.Tau)

		valueLoss /= n
		policyLoss /= n
		entropySum /= n
	}

	s.version++

	return agent.StepResult{
		Loss:       valueLoss + policyLoss,
		PolicyLoss: policyLoss,
		ValueLoss:  valueLoss,
		Entropy:    entropySum,
		Frames:     frames,
	}, nil
}

// Params returns a copy of the current parameters as a versioned
// snapshot. The published value head is the action-mean of the twin
// critics; trajectories only carry it for logging.
func (s *SAC) Params() agent.Params {
	avg := mat.NewDense(s.actions, s.features, nil)
	avg.Add(s.q1, s.q2)
	avg.Scale(0.5, avg)
	means := matutils.RowMean(mat.DenseCopyOf(avg.T()))
	value := mat.NewDense(1, s.features, means.RawVector().Data)

	return agent.Params{
		Version: s.version,
		Weights: map[string]*mat.Dense{
			policy.PolicyWeightsKey: s.policyWeights,
			policy.ValueWeightsKey:  value,
			Q1WeightsKey:            s.q1,
			Q2WeightsKey:            s.q2,
		},
	}.Clone()
}

// SetParams restores the learner's parameters from a snapshot
func (s *SAC) SetParams(p agent.Params) error {
	for key, dst := range map[string]*mat.Dense{
		policy.PolicyWeightsKey: s.policyWeights,
		Q1WeightsKey:            s.q1,
		Q2WeightsKey:            s.q2,
	} {
		w, err := p.Get(key)
		if err != nil {
			return fmt.Errorf("setParams: %w", err)
		}
		r, c := w.Dims()
		if r != s.actions || c != s.features {
			return fmt.Errorf("setParams: weights %q are %vx%v, want %vx%v",
				key, r, c, s.actions, s.features)
		}
		dst.Copy(w)
	}

	s.targetQ1.Copy(s.q1)
	s.targetQ2.Copy(s.q2)
	s.version = p.Version

	return nil
}

// Policy returns a new softmax policy backed by a copy of the agent's
// current parameters
func (s *SAC) Policy() agent.Policy {
	p := policy.NewSoftmax(s.features, s.actions, s.seed)
	if err := p.SetParams(s.Params()); err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return p
}

// softValue computes the entropy-regularized state value under the
// target critics
func (s *SAC) softValue(obs mat.Vector) float64 {
	probs := s.probabilities(obs)

	value := 0.0
	for a := 0; a < s.actions; a++ {
		logProb := math.Log(probs[a] + 1e-8)
		minQ := floatutils.Min(s.actionValue(s.targetQ1, obs, a),
			s.actionValue(s.targetQ2, obs, a))
		value += probs[a] * (minQ - s.config.Temperature*logProb)
	}
	return value
}

// probabilities computes the softmax action distribution at obs
func (s *SAC) probabilities(obs mat.Vector) []float64 {
	logits := mat.NewVecDense(s.actions, nil)
	logits.MulVec(s.policyWeights, obs)
	return policy.Probabilities(logits)
}

// actionValue computes one action's value under a weight matrix
func (s *SAC) actionValue(weights *mat.Dense, obs mat.Vector,
	action int) float64 {
	row := weights.RawRowView(action)
	value := 0.0
	for f := 0; f < s.features; f++ {
		value += row[f] * obs.AtVec(f)
	}
	return value
}

// polyak moves target weights toward online weights by rate tau
func polyak(target, online *mat.Dense, tau float64) {
	r, c := target.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			target.Set(i, j, (1.0-tau)*target.At(i, j)+tau*online.At(i, j))
		}
	}
}

// scaled returns a newly-allocated copy of m scaled by c
func scaled(m *mat.Dense, c float64) *mat.Dense {
	r, cols := m.Dims()
	out := mat.NewDense(r, cols, nil)
	out.Scale(c, m)
	return out
}
