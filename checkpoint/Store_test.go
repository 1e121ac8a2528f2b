package checkpoint

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "stampede.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testParams(version int64) agent.Params {
	return agent.Params{
		Version: version,
		Weights: map[string]*mat.Dense{
			"policy": mat.NewDense(2, 2,
				[]float64{1, 2, 3, float64(version)}),
		},
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveCheckpoint("run-1", "vtrace", testParams(3), 1200)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Error("saved checkpoint has no ID")
	}

	loaded, err := s.LatestCheckpoint("run-1", "vtrace")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("no checkpoint found after saving one")
	}
	if loaded.Version != 3 || loaded.Frames != 1200 {
		t.Errorf("loaded version %v frames %v, want 3 and 1200",
			loaded.Version, loaded.Frames)
	}

	w, err := loaded.Params.Get("policy")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := testParams(3).Get("policy")
	if !mat.EqualApprox(w, want, 1e-12) {
		t.Error("weights changed across the round trip")
	}
}

func TestLatestCheckpointPicksNewestVersion(t *testing.T) {
	s := newTestStore(t)

	for v := int64(1); v <= 3; v++ {
		if _, err := s.SaveCheckpoint("run-1", "vtrace", testParams(v),
			v*100); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := s.LatestCheckpoint("run-1", "vtrace")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Version != 3 {
		t.Errorf("latest version %v, want 3", loaded.Version)
	}
}

func TestLatestCheckpointMissesOtherRunsAndAgents(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveCheckpoint("run-1", "vtrace", testParams(1),
		100); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.LatestCheckpoint("run-2", "vtrace"); got != nil {
		t.Error("checkpoint leaked across runs")
	}
	if got, _ := s.LatestCheckpoint("run-1", "sac"); got != nil {
		t.Error("checkpoint leaked across agent types")
	}
}

func TestLatestForAgentSpansRuns(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SaveCheckpoint("run-1", "r2d2", testParams(5),
		100); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveCheckpoint("run-2", "r2d2", testParams(9),
		900); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LatestForAgent("r2d2")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("no checkpoint found across runs")
	}
	if loaded.RunID != "run-2" || loaded.Version != 9 {
		t.Errorf("latest checkpoint from run %q version %v, want run-2 "+
			"version 9", loaded.RunID, loaded.Version)
	}

	if got, _ := s.LatestForAgent("sac"); got != nil {
		t.Error("checkpoint leaked across agent types")
	}
}

func TestPruneCheckpoints(t *testing.T) {
	s := newTestStore(t)

	for v := int64(1); v <= 5; v++ {
		if _, err := s.SaveCheckpoint("run-1", "vtrace", testParams(v),
			v); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.PruneCheckpoints("run-1", 2); err != nil {
		t.Fatal(err)
	}

	// The newest checkpoints survive pruning
	loaded, err := s.LatestCheckpoint("run-1", "vtrace")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Version != 5 {
		t.Errorf("latest version after pruning %v, want 5", loaded.Version)
	}

	if err := s.PruneCheckpoints("run-1", 0); err == nil {
		t.Error("prune keeping zero checkpoints accepted")
	}
}

func TestMetrics(t *testing.T) {
	s := newTestStore(t)

	values := []float64{1.5, 2.5, 3.5}
	for i, v := range values {
		if err := s.RecordMetric("run-1", int64(i), int64(i*100),
			"episode_return", v); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordMetric("run-1", 0, 0, "loss", 0.25); err != nil {
		t.Fatal(err)
	}

	metrics, err := s.Metrics("run-1", "episode_return")
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != len(values) {
		t.Fatalf("got %v measurements, want %v", len(metrics), len(values))
	}
	for i, m := range metrics {
		if m.Step != int64(i) || m.Value != values[i] {
			t.Errorf("measurement %v: step %v value %v, want %v and %v",
				i, m.Step, m.Value, i, values[i])
		}
	}

	names, err := s.MetricNames("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("metric names %v, want episode_return and loss", names)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0] != "run-1" {
		t.Errorf("runs %v, want [run-1]", runs)
	}
}
