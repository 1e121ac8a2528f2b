// Package vtrace implements an actor-critic learner with
// importance-weighted off-policy corrections over linear function
// approximation. Trajectories generated by slightly stale behaviour
// policies are corrected with clipped per-step importance ratios before
// the policy-gradient and baseline updates.
package vtrace

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/policy"
	"sfneuman.com/stampede/replay"
	"sfneuman.com/stampede/utils/floatutils"
	"sfneuman.com/stampede/utils/matutils/initializers/weights"
)

// VTrace owns the canonical parameters of a run: softmax policy
// preferences and a linear state-value baseline
type VTrace struct {
	config   Config
	features int
	actions  int
	seed     uint64

	policyWeights *mat.Dense    // actions x features
	valueWeights  *mat.VecDense // features
	version       int64
}

// New constructs a new VTrace learner for observation vectors of the
// given size and the given number of discrete actions
func New(config Config, features, actions int, seed uint64) (*VTrace,
	error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if features < 1 || actions < 2 {
		return nil, fmt.Errorf("new: illegal dimensions %vx%v", actions,
			features)
	}

	// Policy preferences start at zero so that the initial policy is
	// uniform over actions
	policyWeights := mat.NewDense(actions, features, nil)
	weights.NewLinearUV(weights.NewZeroUV()).Initialize(policyWeights)

	return &VTrace{
		config:        config,
		features:      features,
		actions:       actions,
		seed:          seed,
		policyWeights: policyWeights,
		valueWeights:  mat.NewVecDense(features, nil),
	}, nil
}

// Step performs a single update to the learner from a batch of
// trajectories
func (v *VTrace) Step(batch []replay.Trajectory) (agent.StepResult, error) {
	b, err := replay.NewBatch(batch)
	if err != nil {
		return agent.StepResult{}, fmt.Errorf("step: %w", err)
	}
	if b.F != v.features {
		return agent.StepResult{}, fmt.Errorf("step: batch observation "+
			"size %v, want %v", b.F, v.features)
	}

	policyGrad := mat.NewDense(v.actions, v.features, nil)
	valueGrad := mat.NewVecDense(v.features, nil)

	var policyLoss, valueLoss, entropySum float64
	samples := float64(b.N * b.T)

	for i := 0; i < b.N; i++ {
		targetLogProbs := make([]float64, b.T)
		behaviourLogProbs := make([]float64, b.T)
		discounts := make([]float64, b.T)
		rewards := make([]float64, b.T)
		values := make([]float64, b.T)
		probs := make([][]float64, b.T)

		for t := 0; t < b.T; t++ {
			obs := mat.NewVecDense(b.F, b.ObsAt(i, t))

			logits := mat.NewVecDense(v.actions, nil)
			logits.MulVec(v.policyWeights, obs)
			probs[t] = policy.Probabilities(logits)

			action := int(replay.At(b.Actions, i, t, b.T))
			targetLogProbs[t] = math.Log(probs[t][action] + 1e-8)
			behaviourLogProbs[t] = replay.At(b.LogProbs, i, t, b.T)
			discounts[t] = replay.At(b.Discounts, i, t, b.T)
			rewards[t] = v.clipReward(replay.At(b.Rewards, i, t, b.T))
			values[t] = mat.Dot(v.valueWeights, obs)
		}

		bootstrap := mat.Dot(v.valueWeights,
			mat.NewVecDense(b.F, b.ObsAt(i, b.T)))

		returns := ComputeReturns(targetLogProbs, behaviourLogProbs,
			discounts, rewards, values, bootstrap, v.config.RhoBar,
			v.config.CBar, v.config.Lambda)

		for t := 0; t < b.T; t++ {
			obs := mat.NewVecDense(b.F, b.ObsAt(i, t))
			action := int(replay.At(b.Actions, i, t, b.T))
			adv := returns.PGAdvantages[t]

			// Policy gradient: adv * d log pi(a|x) / dW, where the
			// softmax log-prob gradient of row k is (1{k=a} -
			// pi(k|x)) * x
			entropy := 0.0
			for k := 0; k < v.actions; k++ {
				logProb := math.Log(probs[t][k] + 1e-8)
				entropy -= probs[t][k] * logProb

				indicator := 0.0
				if k == action {
					indicator = 1.0
				}
				scale := adv * (indicator - probs[t][k])
				row := policyGrad.RawRowView(k)
				for f := 0; f < v.features; f++ {
					row[f] += scale * obs.AtVec(f) / samples
				}
			}

			// Entropy bonus: dH/dlogit_k = -pi_k*(log pi_k + H)
			for k := 0; k < v.actions; k++ {
				logProb := math.Log(probs[t][k] + 1e-8)
				scale := -v.config.EntropyCost * probs[t][k] *
					(logProb + entropy)
				row := policyGrad.RawRowView(k)
				for f := 0; f < v.features; f++ {
					row[f] += scale * obs.AtVec(f) / samples
				}
			}

			// Baseline follows the corrected value targets
			vError := returns.VS[t] - values[t]
			valueGrad.AddScaledVec(valueGrad,
				v.config.BaselineCost*vError/samples, obs)

			policyLoss -= targetLogProbs[t] * adv / samples
			valueLoss += 0.5 * vError * vError / samples
			entropySum += entropy / samples
		}
	}

	v.policyWeights.Add(v.policyWeights, scaled(policyGrad,
		v.config.LearningRate))
	v.valueWeights.AddScaledVec(v.valueWeights, v.config.LearningRate,
		valueGrad)
	v.version++

	return agent.StepResult{
		Loss: policyLoss + v.config.BaselineCost*valueLoss -
			v.config.EntropyCost*entropySum,
		PolicyLoss: policyLoss,
		ValueLoss:  valueLoss,
		Entropy:    entropySum,
		Frames:     b.N * b.T,
	}, nil
}

// Params returns a copy of the current parameters as a versioned
// snapshot
func (v *VTrace) Params() agent.Params {
	return agent.Params{
		Version: v.version,
		Weights: map[string]*mat.Dense{
			policy.PolicyWeightsKey: v.policyWeights,
			policy.ValueWeightsKey: mat.NewDense(1, v.features,
				v.valueWeights.RawVector().Data),
		},
	}.Clone()
}

// SetParams restores the learner's parameters from a snapshot
func (v *VTrace) SetParams(p agent.Params) error {
	pw, err := p.Get(policy.PolicyWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	r, c := pw.Dims()
	if r != v.actions || c != v.features {
		return fmt.Errorf("setParams: policy weights are %vx%v, want %vx%v",
			r, c, v.actions, v.features)
	}

	vw, err := p.Get(policy.ValueWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	if _, c := vw.Dims(); c != v.features {
		return fmt.Errorf("setParams: value weights have %v features, "+
			"want %v", c, v.features)
	}

	v.policyWeights.Copy(pw)
	copy(v.valueWeights.RawVector().Data, vw.RawMatrix().Data)
	v.version = p.Version

	return nil
}

// Policy returns a new softmax policy backed by a copy of the agent's
// current parameters
func (v *VTrace) Policy() agent.Policy {
	p := policy.NewSoftmax(v.features, v.actions, v.seed)
	if err := p.SetParams(v.Params()); err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return p
}

// clipReward clips a reward to [-MaxAbsReward, MaxAbsReward] when
// clipping is enabled
func (v *VTrace) clipReward(r float64) float64 {
	if v.config.MaxAbsReward == 0 {
		return r
	}
	return floatutils.Clip(r, -v.config.MaxAbsReward, v.config.MaxAbsReward)
}

// scaled returns a newly-allocated copy of m scaled by c
func scaled(m *mat.Dense, c float64) *mat.Dense {
	r, cols := m.Dims()
	out := mat.NewDense(r, cols, nil)
	out.Scale(c, m)
	return out
}
