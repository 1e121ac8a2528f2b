package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"sfneuman.com/stampede/config"
)

func TestSupervisorCollectsCleanExits(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skipf("/bin/true unavailable: %v", err)
	}

	cfg := config.Default()
	cfg.NumActors = 2
	cfg.LogDir = t.TempDir()

	sup := NewSupervisor(cfg, "/bin/true", nil)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}

	statuses := sup.Wait()
	if len(statuses) != cfg.NumActors {
		t.Fatalf("got %v statuses, want %v", len(statuses), cfg.NumActors)
	}
	for _, st := range statuses {
		if st.Err != nil {
			t.Errorf("actor %v failed: %v", st.Task, st.Err)
		}
		if st.Restarts != 0 {
			t.Errorf("actor %v restarted %v times after a clean exit",
				st.Task, st.Restarts)
		}
	}

	for task := 0; task < cfg.NumActors; task++ {
		logPath := filepath.Join(cfg.LogDir,
			fmt.Sprintf("actor-%v.log", task))
		if _, err := os.Stat(logPath); err != nil {
			t.Errorf("missing actor log: %v", err)
		}
	}
}

func TestSupervisorClearsErrorAfterRecovery(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skipf("/bin/sh unavailable: %v", err)
	}

	// Crashes on the first run, exits cleanly once the marker exists
	marker := filepath.Join(t.TempDir(), "crashed-once")
	script := filepath.Join(t.TempDir(), "actor.sh")
	body := fmt.Sprintf("#!/bin/sh\n[ -f %q ] && exit 0\ntouch %q\nexit 1\n",
		marker, marker)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.NumActors = 1
	cfg.LogDir = t.TempDir()

	sup := NewSupervisor(cfg, script, nil)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}

	statuses := sup.Wait()
	if statuses[0].Restarts != 1 {
		t.Errorf("actor restarted %v times, want 1", statuses[0].Restarts)
	}
	if statuses[0].Err != nil {
		t.Errorf("recovered actor still reports error: %v", statuses[0].Err)
	}
	if got := Failed(statuses); got != 0 {
		t.Errorf("counted %v failures after recovery", got)
	}
}

func TestSupervisorWithoutActors(t *testing.T) {
	cfg := config.Default()
	cfg.NumActors = 0
	cfg.LogDir = t.TempDir()

	sup := NewSupervisor(cfg, "/bin/true", nil)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("could not start supervisor: %v", err)
	}
	if statuses := sup.Wait(); len(statuses) != 0 {
		t.Errorf("got %v statuses for a learner-only run", len(statuses))
	}
}

func TestFailed(t *testing.T) {
	statuses := []ActorStatus{
		{Task: 0},
		{Task: 1, Err: errors.New("crashed")},
		{Task: 2, Restarts: 3, Err: errors.New("gave up")},
	}

	if got := Failed(statuses); got != 2 {
		t.Errorf("counted %v failures, want 2", got)
	}
	if got := Failed(nil); got != 0 {
		t.Errorf("counted %v failures in an empty slice", got)
	}
}
