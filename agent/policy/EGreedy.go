package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/utils/matutils"
)

const (
	// Key for the action-value weights in the weights map
	QWeightsKey string = "q"
)

// EGreedy implements an ε-greedy policy over linear action values with
// a per-task exploration ladder: actor task i of n explores with
//
//	ε_i = ε^(1 + α·i/(n-1))
//
// so that a fleet of actors covers a spread of exploration rates. It is
// the behaviour policy of the r2d2 agent.
type EGreedy struct {
	params    agent.Params
	q         *mat.Dense // actions x features
	features  int
	actions   int
	epsilon   float64
	alpha     float64
	numActors int
	source    rand.Source
}

// NewEGreedy constructs a new EGreedy policy. The epsilon argument is
// the base exploration rate of the ladder and alpha its exponent
// spread; numActors is the total number of actor tasks in the run.
func NewEGreedy(features, actions int, epsilon, alpha float64,
	numActors int, seed uint64) *EGreedy {
	if features < 1 || actions < 1 {
		panic(fmt.Sprintf("newEGreedy: illegal dimensions %vx%v", actions,
			features))
	}
	if epsilon <= 0.0 || epsilon >= 1.0 {
		panic(fmt.Sprintf("newEGreedy: base epsilon %v not in (0, 1)",
			epsilon))
	}

	e := &EGreedy{
		features:  features,
		actions:   actions,
		epsilon:   epsilon,
		alpha:     alpha,
		numActors: numActors,
		source:    rand.NewSource(seed),
	}

	params := agent.Params{Weights: map[string]*mat.Dense{
		QWeightsKey: mat.NewDense(actions, features, nil),
	}}
	if err := e.SetParams(params); err != nil {
		panic(fmt.Sprintf("newEGreedy: %v", err))
	}

	return e
}

// Epsilon returns the exploration rate of actor task i
func (e *EGreedy) Epsilon(task int) float64 {
	if e.numActors <= 1 {
		return e.epsilon
	}
	exponent := 1.0 + e.alpha*float64(task)/float64(e.numActors-1)
	return math.Pow(e.epsilon, exponent)
}

// SelectAction selects an action from the ε-greedy policy of the
// requesting task
func (e *EGreedy) SelectAction(obs mat.Vector, task int) agent.Decision {
	actionValues := mat.NewVecDense(e.actions, nil)
	actionValues.MulVec(e.q, obs)

	greedy := matutils.MaxVec(actionValues)
	best := actionValues.AtVec(greedy)

	epsilon := e.Epsilon(task)
	probs := make([]float64, e.actions)
	for i := range probs {
		probs[i] = epsilon / float64(e.actions)
	}
	probs[greedy] += 1.0 - epsilon

	dist := distuv.NewCategorical(probs, e.source)
	action := int(dist.Rand())

	return agent.Decision{
		Action:  action,
		LogProb: math.Log(probs[action] + 1e-8),
		Value:   best,
	}
}

// SetParams replaces the snapshot the policy acts from
func (e *EGreedy) SetParams(p agent.Params) error {
	q, err := p.Get(QWeightsKey)
	if err != nil {
		return fmt.Errorf("setParams: %w", err)
	}
	r, c := q.Dims()
	if r != e.actions || c != e.features {
		return fmt.Errorf("setParams: action-value weights are %vx%v, "+
			"want %vx%v", r, c, e.actions, e.features)
	}

	e.params = p
	e.q = q

	return nil
}

// ParamsVersion returns the version of the current snapshot
func (e *EGreedy) ParamsVersion() int64 {
	return e.params.Version
}
