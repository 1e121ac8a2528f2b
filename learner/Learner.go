// Package learner implements the learner process of a training run.
// The learner is the hub of the system: it hosts the inference service
// and the trajectory endpoint, consumes trajectories off the queue,
// updates the agent's parameters, publishes fresh snapshots,
// checkpoints to the database, and stops once the frame budget is
// spent.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/agent/r2d2"
	"sfneuman.com/stampede/agent/sac"
	"sfneuman.com/stampede/agent/vtrace"
	"sfneuman.com/stampede/checkpoint"
	"sfneuman.com/stampede/config"
	"sfneuman.com/stampede/inference"
	"sfneuman.com/stampede/replay"
	"sfneuman.com/stampede/tracker"
	"sfneuman.com/stampede/transport"
	"sfneuman.com/stampede/utils/progressbar"
)

// Learner drives one training run
type Learner struct {
	cfg   config.Config
	runID string

	agt    agent.Agent
	queue  *replay.Queue
	server *inference.Server
	store  *checkpoint.Store

	returns  *tracker.Return
	losses   *tracker.Loss
	progress *progressbar.ProgressBar

	updates int64
	frames  int64
	stale   int64
}

// NewAgent creates the configured agent with its default algorithm
// configuration. The environment is constructed only to size the
// agent's parameters from its specs.
func NewAgent(cfg config.Config) (agent.Agent, error) {
	e, _, err := cfg.EnvConfig().Create(cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("newAgent: %w", err)
	}

	switch agent.Type(cfg.Agent) {
	case agent.VTrace:
		return vtrace.DefaultConfig().CreateAgent(e, cfg.Seed)
	case agent.R2D2:
		return r2d2.DefaultConfig().CreateAgent(e, cfg.Seed, cfg.NumActors)
	case agent.SAC:
		return sac.DefaultConfig().CreateAgent(e, cfg.Seed)
	}
	return nil, fmt.Errorf("newAgent: no such agent %q", cfg.Agent)
}

// New creates a learner from the run configuration. When the
// checkpoint database holds an earlier checkpoint of the same agent
// type, the learner restores it and resumes counting frames from it.
func New(cfg config.Config) (*Learner, error) {
	agt, err := NewAgent(cfg)
	if err != nil {
		return nil, fmt.Errorf("new learner: %w", err)
	}

	queue, err := replay.NewQueue(cfg.QueueCapacity,
		replay.OverflowPolicy(cfg.QueuePolicy))
	if err != nil {
		return nil, fmt.Errorf("new learner: %w", err)
	}

	server, err := inference.NewServer(agt.Policy(), cfg.InferenceBatch,
		cfg.InferenceWait)
	if err != nil {
		return nil, fmt.Errorf("new learner: %w", err)
	}

	store, err := checkpoint.New(cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("new learner: %w", err)
	}

	l := &Learner{
		cfg:    cfg,
		runID:  uuid.New().String(),
		agt:    agt,
		queue:  queue,
		server: server,
		store:  store,
	}
	l.returns = tracker.NewReturn(store, l.runID)
	l.losses = tracker.NewLoss(store, l.runID)
	l.progress = progressbar.New(40, int64(cfg.TotalFrames))

	if err := l.restore(); err != nil {
		store.Close()
		return nil, fmt.Errorf("new learner: %w", err)
	}

	return l, nil
}

// RunID returns the identifier the learner records metrics under
func (l *Learner) RunID() string {
	return l.runID
}

// restore loads the newest checkpoint of the configured agent type, if
// one exists
func (l *Learner) restore() error {
	ckpt, err := l.store.LatestForAgent(l.cfg.Agent)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if ckpt == nil {
		return nil
	}

	if err := l.agt.SetParams(ckpt.Params); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	l.frames = ckpt.Frames
	l.progress.Add(ckpt.Frames)
	log.Printf("learner: restored checkpoint version %v (%v frames)",
		ckpt.Version, ckpt.Frames)
	return nil
}

// Run trains until the frame budget is spent or the context is
// cancelled. It serves the inference and trajectory endpoints for the
// duration of training and saves a final checkpoint on the way out.
func (l *Learner) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/inference", l.server.Handler())
	mux.Handle("/trajectories", transport.Handler(l.queue))

	httpSrv := &http.Server{Addr: l.cfg.ServerAddr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
		l.server.Close()
		l.queue.Close()
		l.store.Close()
	}()

	l.server.Publish(l.agt.Params())
	lastCheckpoint := time.Now()

	for l.frames < int64(l.cfg.TotalFrames) {
		select {
		case err := <-errc:
			return fmt.Errorf("run: serve: %w", err)
		case <-ctx.Done():
			return l.checkpoint()
		default:
		}

		if err := l.step(ctx); err != nil {
			if ctx.Err() != nil {
				return l.checkpoint()
			}
			return err
		}

		if time.Since(lastCheckpoint) >= l.cfg.CheckpointPeriod {
			if err := l.checkpoint(); err != nil {
				return err
			}
			lastCheckpoint = time.Now()
		}
	}

	log.Printf("learner: frame budget spent after %v updates", l.updates)
	return l.checkpoint()
}

// step consumes one batch and performs one agent update
func (l *Learner) step(ctx context.Context) error {
	batch, err := l.queue.Dequeue(ctx, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	kept := l.filterStale(batch)
	if len(kept) == 0 {
		return nil
	}
	for _, traj := range kept {
		l.returns.Track(traj)
	}

	res, err := l.agt.Step(kept)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	l.losses.Track(res)
	l.frames += int64(res.Frames)
	l.progress.Add(int64(res.Frames))
	l.updates++

	if l.updates%int64(l.cfg.PublishPeriod) == 0 {
		l.server.Publish(l.agt.Params())
	}
	return nil
}

// filterStale drops trajectories generated by parameters more than
// the staleness bound behind the published snapshot. Off-policy
// corrections only stretch so far.
func (l *Learner) filterStale(batch []replay.Trajectory) []replay.Trajectory {
	version := l.server.ParamsVersion()
	kept := batch[:0]
	for _, traj := range batch {
		if version-traj.ParamsVersion > l.cfg.StaleBound {
			l.stale++
			continue
		}
		kept = append(kept, traj)
	}
	if dropped := len(batch) - len(kept); dropped > 0 {
		log.Printf("learner: dropped %v stale trajectories (%v total)",
			dropped, l.stale)
	}
	return kept
}

// checkpoint saves the current parameters and flushes the trackers
func (l *Learner) checkpoint() error {
	if _, err := l.store.SaveCheckpoint(l.runID, l.cfg.Agent,
		l.agt.Params(), l.frames); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := l.returns.Flush(l.updates, l.frames); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := l.losses.Flush(l.updates, l.frames); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	log.Printf("learner: checkpoint at update %v (%v frames, queue %v/%v)",
		l.updates, l.frames, l.queue.Len(), l.queue.Capacity())
	log.Printf("learner: %v", l.progress)
	return nil
}
