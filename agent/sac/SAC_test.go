package sac

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/policy"
	"sfneuman.com/stampede/replay"
)

func testConfig() Config {
	c := DefaultConfig()
	c.MinReplay = 1
	c.ReplayCapacity = 4
	c.SampleBatch = 2
	return c
}

func testTrajectory(reward float64) replay.Trajectory {
	return replay.Trajectory{
		Steps: []replay.Step{
			{Obs: []float64{1, 0}, Action: 0, Reward: reward,
				Discount: 0.9, LogProb: -0.7},
			{Obs: []float64{0, 1}, Action: 1, Reward: reward,
				Discount: 0.0, LogProb: -0.7},
		},
		BootstrapObs: []float64{1, 1},
	}
}

func TestSACInitialPolicyIsUniform(t *testing.T) {
	s, err := New(testConfig(), 2, 3, 42)
	if err != nil {
		t.Fatal(err)
	}

	pw, err := s.Params().Get(policy.PolicyWeightsKey)
	if err != nil {
		t.Fatal(err)
	}
	r, c := pw.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if pw.At(i, j) != 0 {
				t.Fatalf("initial policy weight (%v, %v) = %v, want 0",
					i, j, pw.At(i, j))
			}
		}
	}
}

func TestSACTwinCriticsInitializedIndependently(t *testing.T) {
	s, err := New(testConfig(), 3, 2, 42)
	if err != nil {
		t.Fatal(err)
	}

	q1, _ := s.Params().Get(Q1WeightsKey)
	q2, _ := s.Params().Get(Q2WeightsKey)

	if mat.EqualApprox(q1, q2, 1e-15) {
		t.Error("twin critics share identical initial weights")
	}
	for _, q := range []*mat.Dense{q1, q2} {
		r, c := q.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if math.Abs(q.At(i, j)) > InitWeightRange {
					t.Fatalf("initial critic weight %v outside the init "+
						"range", q.At(i, j))
				}
			}
		}
	}
}

func TestSACStepUpdatesWeights(t *testing.T) {
	s, err := New(testConfig(), 2, 2, 42)
	if err != nil {
		t.Fatal(err)
	}

	before := s.Params()
	res, err := s.Step([]replay.Trajectory{testTrajectory(5)})
	if err != nil {
		t.Fatal(err)
	}
	after := s.Params()

	if after.Version != before.Version+1 {
		t.Errorf("version went from %v to %v, want one increment",
			before.Version, after.Version)
	}
	if res.Frames != 2 {
		t.Errorf("update consumed %v frames, want 2", res.Frames)
	}
	if res.Entropy <= 0 {
		t.Errorf("entropy %v, want positive for a stochastic policy",
			res.Entropy)
	}

	bq, _ := before.Get(Q1WeightsKey)
	aq, _ := after.Get(Q1WeightsKey)
	if mat.EqualApprox(bq, aq, 1e-15) {
		t.Error("critic weights unchanged by an update")
	}
}

func TestSACNoUpdateBelowMinReplay(t *testing.T) {
	c := testConfig()
	c.MinReplay = 4
	s, err := New(c, 2, 2, 42)
	if err != nil {
		t.Fatal(err)
	}

	before := s.Params()
	if _, err := s.Step([]replay.Trajectory{testTrajectory(1)}); err != nil {
		t.Fatal(err)
	}

	bq, _ := before.Get(Q1WeightsKey)
	aq, _ := s.Params().Get(Q1WeightsKey)
	if !mat.EqualApprox(bq, aq, 1e-15) {
		t.Error("weights changed before the replay filled")
	}
}

func TestSACParamsCarryValueHead(t *testing.T) {
	s, err := New(testConfig(), 2, 2, 42)
	if err != nil {
		t.Fatal(err)
	}

	p := s.Params()
	for _, key := range []string{policy.PolicyWeightsKey,
		policy.ValueWeightsKey, Q1WeightsKey, Q2WeightsKey} {
		if _, err := p.Get(key); err != nil {
			t.Errorf("snapshot missing weights %q", key)
		}
	}

	v, _ := p.Get(policy.ValueWeightsKey)
	if r, c := v.Dims(); r != 1 || c != 2 {
		t.Errorf("value head is %vx%v, want 1x2", r, c)
	}
}

func TestSACSetParamsRoundTrip(t *testing.T) {
	s, err := New(testConfig(), 2, 2, 42)
	if err != nil {
		t.Fatal(err)
	}

	snapshot := agent.Params{
		Version: 4,
		Weights: map[string]*mat.Dense{
			policy.PolicyWeightsKey: mat.NewDense(2, 2,
				[]float64{0.1, 0.2, 0.3, 0.4}),
			Q1WeightsKey: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			Q2WeightsKey: mat.NewDense(2, 2, []float64{4, 3, 2, 1}),
		},
	}
	if err := s.SetParams(snapshot); err != nil {
		t.Fatal(err)
	}

	restored := s.Params()
	if restored.Version != 4 {
		t.Errorf("restored version %v, want 4", restored.Version)
	}
	q1, _ := restored.Get(Q1WeightsKey)
	want, _ := snapshot.Get(Q1WeightsKey)
	if !mat.EqualApprox(q1, want, 1e-12) {
		t.Error("critic weights changed across the round trip")
	}
}

func TestSACConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config rejected: %v", err)
	}

	c := DefaultConfig()
	c.Temperature = 0
	if err := c.Validate(); err == nil {
		t.Error("zero temperature accepted")
	}

	c = DefaultConfig()
	c.Tau = 1.5
	if err := c.Validate(); err == nil {
		t.Error("tau above 1 accepted")
	}
}
