// Package policy implements the inference-side policies of the agents
// using linear function approximation
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/stampede/agent"
)

const (
	// Keys for weights map: map[string]*mat.Dense
	PolicyWeightsKey string = "policy"
	ValueWeightsKey  string = "value"
)

// Softmax implements a softmax policy over linear action preferences
// with a linear state-value estimate. It is the behaviour policy of the
// vtrace and sac agents.
type Softmax struct {
	params   agent.Params
	policy   *mat.Dense    // actions x features
	value    *mat.VecDense // features
	features int
	actions  int
	source   rand.Source
}

// NewSoftmax constructs a new Softmax policy for observation vectors of
// the given size and the given number of discrete actions
func NewSoftmax(features, actions int, seed uint64) *Softmax {
	if features < 1 || actions < 1 {
		panic(fmt.Sprintf("newSoftmax: illegal dimensions %vx%v", actions,
			features))
	}

	s := &Softmax{
		features: features,
		actions:  actions,
		source:   rand.NewSource(seed),
	}

	params := agent.Params{Weights: map[string]*mat.Dense{
		PolicyWeightsKey: mat.NewDense(actions, features, nil),
		ValueWeightsKey:  mat.NewDense(1, features, nil),
	}}
	if err := s.SetParams(params); err != nil {
		panic(fmt.Sprintf("newSoftmax: %v", err))
	}

	return s
}

// SelectAction samples an action from the softmax distribution over
// action preferences of the observation
func (s *Softmax) SelectAction(obs mat.Vector, _ int) agent.Decision {
	logits := mat.NewVecDense(s.actions, nil)
	logits.MulVec(s.policy, obs)

	probs := Probabilities(logits)
	dist := distuv.NewCategorical(probs, s.source)
	action := int(dist.Rand())

	return agent.Decision{
		Action:  action,
		LogProb: math.Log(probs[action] + 1e-8),
		Value:   mat.Dot(s.value, obs),
	}
}

// SetParams replaces the snapshot the policy acts from
func (s *Softmax) SetParams(p agent.Params) error {
	policy, err := p.Get(PolicyWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	r, c := policy.Dims()
	if r != s.actions || c != s.features {
		return fmt.Errorf("setParams: policy weights are %vx%v, want %vx%v",
			r, c, s.actions, s.features)
	}

	value, err := p.Get(ValueWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	if _, c := value.Dims(); c != s.features {
		return fmt.Errorf("setParams: value weights have %v features, "+
			"want %v", c, s.features)
	}

	s.params = p
	s.policy = policy
	s.value = mat.NewVecDense(s.features, value.RawMatrix().Data)

	return nil
}

// ParamsVersion returns the version of the current snapshot
func (s *Softmax) ParamsVersion() int64 {
	return s.params.Version
}

// Probabilities computes the softmax distribution of a logits vector
func Probabilities(logits mat.Vector) []float64 {
	maxLogit := logits.AtVec(0)
	for i := 1; i < logits.Len(); i++ {
		if logits.AtVec(i) > maxLogit {
			maxLogit = logits.AtVec(i)
		}
	}

	probs := make([]float64, logits.Len())
	var sum float64
	for i := range probs {
		probs[i] = math.Exp(logits.AtVec(i) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}
