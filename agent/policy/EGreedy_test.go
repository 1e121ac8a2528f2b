package policy

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
)

func TestEGreedyEpsilonLadder(t *testing.T) {
	epsilon, alpha := 0.4, 7.0
	numActors := 8
	e := NewEGreedy(2, 3, epsilon, alpha, numActors, 42)

	// epsilon_i = epsilon^(1 + alpha*i/(n-1))
	for task := 0; task < numActors; task++ {
		exponent := 1.0 + alpha*float64(task)/float64(numActors-1)
		want := math.Pow(epsilon, exponent)
		if got := e.Epsilon(task); math.Abs(got-want) > 1e-12 {
			t.Errorf("epsilon of task %v = %v, want %v", task, got, want)
		}
	}

	// The first actor explores the most
	if e.Epsilon(0) != epsilon {
		t.Errorf("task 0 epsilon %v, want the base rate %v", e.Epsilon(0),
			epsilon)
	}
	for task := 1; task < numActors; task++ {
		if e.Epsilon(task) >= e.Epsilon(task-1) {
			t.Errorf("epsilon of task %v (%v) not below task %v (%v)",
				task, e.Epsilon(task), task-1, e.Epsilon(task-1))
		}
	}
}

func TestEGreedySingleActorUsesBaseEpsilon(t *testing.T) {
	e := NewEGreedy(2, 3, 0.1, 7.0, 1, 42)
	if e.Epsilon(0) != 0.1 {
		t.Errorf("epsilon %v, want 0.1", e.Epsilon(0))
	}
}

func TestEGreedyPrefersGreedyAction(t *testing.T) {
	e := NewEGreedy(2, 3, 0.05, 7.0, 4, 42)

	// Action 2 dominates under these weights
	params := agent.Params{
		Version: 2,
		Weights: map[string]*mat.Dense{
			QWeightsKey: mat.NewDense(3, 2, []float64{
				0, 0,
				1, 0,
				10, 10,
			}),
		},
	}
	if err := e.SetParams(params); err != nil {
		t.Fatal(err)
	}
	if e.ParamsVersion() != 2 {
		t.Errorf("params version %v, want 2", e.ParamsVersion())
	}

	obs := mat.NewVecDense(2, []float64{1, 1})
	greedy := 0
	for i := 0; i < 1000; i++ {
		d := e.SelectAction(obs, 0)
		if d.Action == 2 {
			greedy++
		}
		if d.Value != 20 {
			t.Fatalf("value estimate %v, want the greedy value 20", d.Value)
		}
	}

	// With epsilon 0.05 the greedy action is taken about 96.7% of the
	// time
	if greedy < 900 {
		t.Errorf("greedy action taken %v times of 1000", greedy)
	}
}

func TestEGreedyExploresMoreOnHigherEpsilon(t *testing.T) {
	e := NewEGreedy(1, 2, 0.8, 0.0, 1, 42)

	params := agent.Params{Weights: map[string]*mat.Dense{
		QWeightsKey: mat.NewDense(2, 1, []float64{0, 1}),
	}}
	if err := e.SetParams(params); err != nil {
		t.Fatal(err)
	}

	obs := mat.NewVecDense(1, []float64{1})
	nonGreedy := 0
	for i := 0; i < 1000; i++ {
		if d := e.SelectAction(obs, 0); d.Action != 1 {
			nonGreedy++
		}
	}

	// With epsilon 0.8 the non-greedy action has probability 0.4
	if nonGreedy < 300 || nonGreedy > 500 {
		t.Errorf("non-greedy action taken %v times of 1000, want about 400",
			nonGreedy)
	}
}

func TestEGreedySetParamsRejectsWrongShape(t *testing.T) {
	e := NewEGreedy(2, 3, 0.1, 7.0, 4, 42)

	bad := agent.Params{Weights: map[string]*mat.Dense{
		QWeightsKey: mat.NewDense(2, 2, nil),
	}}
	if err := e.SetParams(bad); err == nil {
		t.Error("mismatched action-value weight shape accepted")
	}
}
