package r2d2

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/policy"
	"sfneuman.com/stampede/replay"
)

// testConfig returns a configuration that updates from the very first
// trajectory, so tests need not fill a large replay
func testConfig() Config {
	c := DefaultConfig()
	c.MinReplay = 1
	c.ReplayCapacity = 4
	c.SampleBatch = 2
	c.TargetSyncPeriod = 2
	return c
}

func testTrajectory(reward float64) replay.Trajectory {
	return replay.Trajectory{
		Steps: []replay.Step{
			{Obs: []float64{1, 0}, Action: 0, Reward: reward,
				Discount: 0.9},
			{Obs: []float64{0, 1}, Action: 1, Reward: reward,
				Discount: 0.0},
		},
		BootstrapObs: []float64{1, 1},
	}
}

func TestR2D2InitialWeightsAreSmall(t *testing.T) {
	r, err := New(testConfig(), 3, 2, 4, 42)
	if err != nil {
		t.Fatal(err)
	}

	q, err := r.Params().Get(policy.QWeightsKey)
	if err != nil {
		t.Fatal(err)
	}

	var nonzero int
	rows, cols := q.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			w := q.At(i, j)
			if math.Abs(w) > InitWeightRange {
				t.Errorf("initial weight (%v, %v) = %v outside the init "+
					"range", i, j, w)
			}
			if w != 0 {
				nonzero++
			}
		}
	}
	if nonzero == 0 {
		t.Error("every initial weight is zero")
	}
}

func TestR2D2NoUpdateBelowMinReplay(t *testing.T) {
	c := testConfig()
	c.MinReplay = 3
	r, err := New(c, 2, 2, 4, 42)
	if err != nil {
		t.Fatal(err)
	}

	before := r.Params()
	res, err := r.Step([]replay.Trajectory{testTrajectory(1)})
	if err != nil {
		t.Fatal(err)
	}

	if res.Frames != 2 {
		t.Errorf("step reported %v frames, want 2", res.Frames)
	}
	if r.ReplaySize() != 1 {
		t.Errorf("replay holds %v sequences, want 1", r.ReplaySize())
	}

	bq, _ := before.Get(policy.QWeightsKey)
	aq, _ := r.Params().Get(policy.QWeightsKey)
	if !mat.EqualApprox(bq, aq, 1e-15) {
		t.Error("weights changed before the replay filled")
	}
}

func TestR2D2StepUpdatesWeights(t *testing.T) {
	r, err := New(testConfig(), 2, 2, 4, 42)
	if err != nil {
		t.Fatal(err)
	}

	before := r.Params()
	if _, err := r.Step([]replay.Trajectory{testTrajectory(5)}); err != nil {
		t.Fatal(err)
	}
	after := r.Params()

	if after.Version != before.Version+1 {
		t.Errorf("version went from %v to %v, want one increment",
			before.Version, after.Version)
	}

	bq, _ := before.Get(policy.QWeightsKey)
	aq, _ := after.Get(policy.QWeightsKey)
	if mat.EqualApprox(bq, aq, 1e-15) {
		t.Error("weights unchanged by an update")
	}
}

func TestR2D2ReplayEvictsOldestSequences(t *testing.T) {
	c := testConfig()
	c.ReplayCapacity = 2
	c.MinReplay = 2
	r, err := New(c, 2, 2, 4, 42)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := r.Step([]replay.Trajectory{
			testTrajectory(float64(i))}); err != nil {
			t.Fatal(err)
		}
	}
	if r.ReplaySize() != 2 {
		t.Errorf("replay holds %v sequences, want the capacity 2",
			r.ReplaySize())
	}
}

func TestR2D2SetParamsSyncsTarget(t *testing.T) {
	r, err := New(testConfig(), 2, 2, 4, 42)
	if err != nil {
		t.Fatal(err)
	}

	snapshot := agent.Params{
		Version: 11,
		Weights: map[string]*mat.Dense{
			policy.QWeightsKey: mat.NewDense(2, 2,
				[]float64{1, 2, 3, 4}),
		},
	}
	if err := r.SetParams(snapshot); err != nil {
		t.Fatal(err)
	}

	restored := r.Params()
	if restored.Version != 11 {
		t.Errorf("restored version %v, want 11", restored.Version)
	}
	q, _ := restored.Get(policy.QWeightsKey)
	want, _ := snapshot.Get(policy.QWeightsKey)
	if !mat.EqualApprox(q, want, 1e-12) {
		t.Error("weights changed across the round trip")
	}

	bad := agent.Params{Weights: map[string]*mat.Dense{
		policy.QWeightsKey: mat.NewDense(3, 3, nil),
	}}
	if err := r.SetParams(bad); err == nil {
		t.Error("mismatched weight shape accepted")
	}
}

func TestR2D2PolicyCarriesLadder(t *testing.T) {
	r, err := New(testConfig(), 2, 2, 8, 42)
	if err != nil {
		t.Fatal(err)
	}

	p, ok := r.Policy().(*policy.EGreedy)
	if !ok {
		t.Fatalf("policy has type %T, want *policy.EGreedy", r.Policy())
	}
	if p.Epsilon(0) <= p.Epsilon(7) {
		t.Errorf("epsilon ladder not decreasing: task 0 %v, task 7 %v",
			p.Epsilon(0), p.Epsilon(7))
	}
}

func TestR2D2ConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}

	c := DefaultConfig()
	c.NStep = 0
	if err := c.Validate(); err == nil {
		t.Error("zero n-step accepted")
	}

	c = DefaultConfig()
	c.MinReplay = c.ReplayCapacity + 1
	if err := c.Validate(); err == nil {
		t.Error("min replay above capacity accepted")
	}

	c = DefaultConfig()
	c.Epsilon = 1.0
	if err := c.Validate(); err == nil {
		t.Error("epsilon of 1 accepted")
	}
}
