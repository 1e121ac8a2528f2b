package launch

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"

	"sfneuman.com/stampede/config"
)

// Restart policy of supervised actors
const (
	MaxRestarts    = 5
	RestartBackoff = time.Second
)

// ActorStatus is the final status of one supervised actor task
type ActorStatus struct {
	Task     int
	Restarts int
	Err      error // nil when the actor exited cleanly
}

// Supervisor spawns and monitors the actor processes of a run. Each
// actor is a child invocation of the launcher's own binary in actor
// mode, with its output sent to a per-actor log file. A crashed actor
// is restarted with backoff until its restart budget is spent; the
// supervisor never restarts an actor that exited cleanly.
type Supervisor struct {
	cfg    config.Config
	binary string
	extra  []string // passthrough flags for the children

	wg       sync.WaitGroup
	mu       sync.Mutex
	statuses []ActorStatus
}

// NewSupervisor creates a supervisor spawning actors by re-invoking
// binary with extra passthrough flags
func NewSupervisor(cfg config.Config, binary string,
	extra []string) *Supervisor {
	return &Supervisor{cfg: cfg, binary: binary, extra: extra}
}

// Start spawns one supervised goroutine per actor task. Cancelling the
// context kills the children; call Wait to collect their statuses.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.LogDir, 0755); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.statuses = make([]ActorStatus, s.cfg.NumActors)
	for task := 0; task < s.cfg.NumActors; task++ {
		s.wg.Add(1)
		go func(task int) {
			defer s.wg.Done()
			status := s.supervise(ctx, task)
			s.mu.Lock()
			s.statuses[task] = status
			s.mu.Unlock()
		}(task)
	}
	return nil
}

// Wait blocks until every actor task is done and returns their final
// statuses, indexed by task
func (s *Supervisor) Wait() []ActorStatus {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActorStatus(nil), s.statuses...)
}

// Failed returns how many of the statuses are failures
func Failed(statuses []ActorStatus) int {
	var n int
	for _, st := range statuses {
		if st.Err != nil {
			n++
		}
	}
	return n
}

// supervise runs one actor task, restarting it on failure until the
// restart budget is spent
func (s *Supervisor) supervise(ctx context.Context, task int) ActorStatus {
	status := ActorStatus{Task: task}

	for {
		log.Printf("%v", aurora.Green(fmt.Sprintf("supervisor: actor %v up",
			task)))
		err := s.runActor(ctx, task)
		if err == nil {
			// A recovered actor is not a failure
			status.Err = nil
			return status
		}
		if ctx.Err() != nil {
			return status
		}

		status.Err = err
		if status.Restarts >= MaxRestarts {
			log.Printf("%v", aurora.Red(fmt.Sprintf(
				"supervisor: actor %v gave up after %v restarts: %v",
				task, status.Restarts, err)))
			return status
		}

		status.Restarts++
		log.Printf("%v", aurora.Yellow(fmt.Sprintf(
			"supervisor: actor %v crashed (%v), restart %v/%v",
			task, err, status.Restarts, MaxRestarts)))

		select {
		case <-ctx.Done():
			return status
		case <-time.After(RestartBackoff):
		}
	}
}

// runActor runs one actor child process to completion
func (s *Supervisor) runActor(ctx context.Context, task int) error {
	logPath := filepath.Join(s.cfg.LogDir,
		fmt.Sprintf("actor-%v.log", task))
	logFile, err := os.OpenFile(logPath,
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("runActor: %w", err)
	}
	defer logFile.Close()

	args := []string{
		"run",
		"--run_mode=actor",
		fmt.Sprintf("--environment=%v", s.cfg.Environment),
		fmt.Sprintf("--agent=%v", s.cfg.Agent),
		fmt.Sprintf("--num_actors=%v", s.cfg.NumActors),
		fmt.Sprintf("--task=%v", task),
	}
	args = append(args, s.extra...)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		"ENVIRONMENT="+s.cfg.Environment,
		"AGENT="+s.cfg.Agent,
		fmt.Sprintf("NUM_ACTORS=%v", s.cfg.NumActors),
		"CONFIG="+s.cfg.Environment,
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("runActor: task %v: %w", task, err)
	}
	return nil
}
