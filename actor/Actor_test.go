package actor

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/config"
	"sfneuman.com/stampede/inference"
	"sfneuman.com/stampede/replay"
	"sfneuman.com/stampede/transport"
)

// uniformPolicy answers every inference request with action 0 at a
// fixed parameter version
type uniformPolicy struct {
	version int64
}

func (u *uniformPolicy) SelectAction(_ mat.Vector, _ int) agent.Decision {
	return agent.Decision{Action: 0, LogProb: -1.0986, Value: 0.1}
}

func (u *uniformPolicy) SetParams(p agent.Params) error {
	u.version = p.Version
	return nil
}

func (u *uniformPolicy) ParamsVersion() int64 {
	return u.version
}

// captureStream collects sent trajectories and cancels the actor once
// it has enough
type captureStream struct {
	mu     sync.Mutex
	got    []replay.Trajectory
	want   int
	cancel context.CancelFunc
}

func (c *captureStream) Send(_ context.Context,
	traj replay.Trajectory) (transport.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.got = append(c.got, traj)
	if len(c.got) == c.want {
		c.cancel()
	}
	return transport.Ack{Accepted: true}, nil
}

func (c *captureStream) trajectories() []replay.Trajectory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]replay.Trajectory(nil), c.got...)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	c := config.Default()
	c.RunMode = config.ModeActor
	c.Environment = "atari"
	c.Agent = "vtrace"
	c.NumActors = 1
	c.Task = 0
	c.Seed = 42
	c.UnrollLength = 5
	c.EnvBatchSize = 1
	c.LogDir = t.TempDir()
	return c
}

func runActor(t *testing.T, cfg config.Config,
	wantTrajectories int) []replay.Trajectory {
	t.Helper()

	server, err := inference.NewServer(&uniformPolicy{version: 3}, 8,
		time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	addr := strings.TrimPrefix(ts.URL, "http://")

	ctx, cancel := context.WithTimeout(context.Background(),
		30*time.Second)
	defer cancel()

	stream := &captureStream{want: wantTrajectories, cancel: cancel}
	client := inference.NewClient(addr, time.Second, 1, time.Millisecond)

	actor, err := New(cfg, client, stream)
	if err != nil {
		t.Fatal(err)
	}
	if err := actor.Run(ctx); err != nil {
		t.Fatal(err)
	}
	return stream.trajectories()
}

func TestActorShipsBoundedUnrolls(t *testing.T) {
	cfg := testConfig(t)
	got := runActor(t, cfg, 4)

	if len(got) < 4 {
		t.Fatalf("actor shipped %v trajectories, want at least 4",
			len(got))
	}

	for i, traj := range got {
		if err := traj.Validate(); err != nil {
			t.Errorf("trajectory %v invalid: %v", i, err)
		}
		if len(traj.Steps) > cfg.UnrollLength {
			t.Errorf("trajectory %v has %v steps, want at most %v", i,
				len(traj.Steps), cfg.UnrollLength)
		}
		if traj.Task != 0 {
			t.Errorf("trajectory %v from task %v, want 0", i, traj.Task)
		}
		if traj.ParamsVersion != 3 {
			t.Errorf("trajectory %v carries version %v, want the "+
				"server's 3", i, traj.ParamsVersion)
		}
		if traj.RunID == "" {
			t.Errorf("trajectory %v has no loop run ID", i)
		}
	}
}

func TestActorCutsUnrollsAtEpisodeBoundaries(t *testing.T) {
	// Catch episodes last 9 steps, so an unroll of 5 splits each
	// episode into trajectories of 5 and 4 steps
	cfg := testConfig(t)
	got := runActor(t, cfg, 4)

	if len(got[0].Steps) != 5 || len(got[1].Steps) != 4 {
		t.Errorf("first episode split into %v and %v steps, want 5 and 4",
			len(got[0].Steps), len(got[1].Steps))
	}
	if !got[0].Steps[0].First {
		t.Error("first step of a fresh loop not marked First")
	}
	if got[1].Steps[len(got[1].Steps)-1].Discount != 0 {
		t.Error("episode-ending trajectory has no terminal discount")
	}

	// The next episode starts a fresh unroll with a First step
	if !got[2].Steps[0].First {
		t.Error("first step after a reset not marked First")
	}
}

func TestActorRunsBatchedLoops(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnvBatchSize = 2
	got := runActor(t, cfg, 6)

	loops := make(map[string]bool)
	for _, traj := range got {
		loops[traj.RunID] = true
	}
	if len(loops) != 2 {
		t.Errorf("trajectories came from %v loops, want 2", len(loops))
	}
}
