// Package actor implements the actor process of a training run. An
// actor owns a batch of environment loops, asks the central inference
// service for every action, accumulates fixed-length unrolls, and
// ships completed unrolls to the learner over the trajectory stream.
// Actors hold no agent parameters of their own.
package actor

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/config"
	env "sfneuman.com/stampede/environment"
	"sfneuman.com/stampede/environment/render"
	"sfneuman.com/stampede/inference"
	"sfneuman.com/stampede/replay"
	ts "sfneuman.com/stampede/timestep"
	"sfneuman.com/stampede/transport"
)

const statsPeriod = time.Second

// Stream ships one trajectory to the learner and reports its
// acknowledgement. Implemented by the websocket trajectory stream.
type Stream interface {
	Send(ctx context.Context, traj replay.Trajectory) (transport.Ack, error)
}

// envLoop is one environment loop within an actor. Each loop carries
// its own run ID so the learner and the inference service can tell
// the loops of one actor apart.
type envLoop struct {
	env   env.Environment
	runID string
	step  ts.TimeStep

	pending []replay.Step
	version int64

	frames   *render.FrameWriter
	episodes int
}

// Actor runs a batch of environment loops against the inference
// service
type Actor struct {
	cfg    config.Config
	client *inference.Client
	stream Stream
	loops  []*envLoop

	steps     int64
	fallbacks int64
	rejected  int64
}

// New creates an actor from the run configuration. The first loop of
// task 0 renders frames to the log directory when rendering is
// enabled; all other loops never render.
func New(cfg config.Config, client *inference.Client,
	stream Stream) (*Actor, error) {
	loops := make([]*envLoop, cfg.EnvBatchSize)
	for i := range loops {
		e, first, err := cfg.EnvConfig().Create(cfg.EnvSeed(i))
		if err != nil {
			return nil, fmt.Errorf("new actor: %w", err)
		}

		loop := &envLoop{
			env:   e,
			runID: uuid.New().String(),
			step:  first,
		}

		if cfg.Render && cfg.Task == 0 && i == 0 {
			rows, cols := frameShape(e)
			w, err := render.NewFrameWriter(
				filepath.Join(cfg.LogDir, "frames"), rows, cols)
			if err != nil {
				return nil, fmt.Errorf("new actor: %w", err)
			}
			loop.frames = w
		}
		loops[i] = loop
	}

	return &Actor{
		cfg:    cfg,
		client: client,
		stream: stream,
		loops:  loops,
	}, nil
}

// Run steps the environment loops until the context is cancelled,
// round-robin so the loops advance in lockstep. Run returns nil on
// cancellation.
func (a *Actor) Run(ctx context.Context) error {
	lastStats := time.Now()
	var lastSteps int64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		for _, loop := range a.loops {
			if err := a.advance(ctx, loop); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("actor %v: %v", a.cfg.Task, err)
			}
			a.steps++
		}

		if elapsed := time.Since(lastStats); elapsed >= statsPeriod {
			rate := float64(a.steps-lastSteps) / elapsed.Seconds()
			log.Printf("actor %v: %.0f steps/s, %v episodes, "+
				"%v fallbacks, %v rejected", a.cfg.Task, rate,
				a.episodes(), a.fallbacks, a.rejected)
			lastStats = time.Now()
			lastSteps = a.steps
		}
	}
}

// advance takes one environment step in one loop: query the inference
// service, step the environment, extend the unroll, and flush the
// unroll when it is full or the episode ended.
func (a *Actor) advance(ctx context.Context, loop *envLoop) error {
	obs := loop.step.Observation
	result, err := a.client.Infer(ctx, a.cfg.Task, loop.runID,
		vectorData(obs))
	if err != nil && !result.Fallback {
		return err
	}

	action := mat.NewVecDense(1, []float64{float64(result.Action)})
	next, last := loop.env.Step(action)
	loop.version = result.ParamsVersion

	if result.Fallback {
		// A fallback carries no usable log probability or value, so
		// the partial unroll it would join cannot be trained on. The
		// environment still advances; a fresh unroll starts at the
		// next step.
		a.fallbacks++
		loop.pending = loop.pending[:0]
	} else {
		tr := ts.NewTransition(loop.step, action, next)
		loop.pending = append(loop.pending, replay.Step{
			Obs:      vectorData(tr.State),
			Action:   result.Action,
			Reward:   tr.Reward,
			Discount: tr.Discount,
			First:    loop.step.First(),
			LogProb:  result.LogProb,
			Value:    result.Value,
		})
	}

	if loop.frames != nil {
		if err := loop.frames.Write(next.Observation); err != nil {
			log.Printf("actor %v: render: %v", a.cfg.Task, err)
			loop.frames = nil
		}
	}

	if last || len(loop.pending) >= a.cfg.UnrollLength {
		if err := a.flush(ctx, loop, next); err != nil {
			return err
		}
	}

	if last {
		loop.episodes++
		loop.step = loop.env.Reset()
	} else {
		loop.step = next
	}
	return nil
}

// flush ships the loop's pending unroll. The observation after the
// final step is carried along as the bootstrap observation.
func (a *Actor) flush(ctx context.Context, loop *envLoop,
	next ts.TimeStep) error {
	if len(loop.pending) == 0 {
		return nil
	}

	traj := replay.Trajectory{
		Task:          a.cfg.Task,
		RunID:         loop.runID,
		ParamsVersion: loop.version,
		Steps:         loop.pending,
		BootstrapObs:  vectorData(next.Observation),
		CreatedAtMs:   time.Now().UnixMilli(),
	}
	loop.pending = nil

	ack, err := a.stream.Send(ctx, traj)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if ack.Dropped {
		a.rejected++
	}
	return nil
}

// episodes counts completed episodes across the actor's loops
func (a *Actor) episodes() int {
	var n int
	for _, loop := range a.loops {
		n += loop.episodes
	}
	return n
}

// vectorData copies a vector's elements into a fresh slice
func vectorData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}

// frameShape guesses a renderable grid shape from an environment's
// observation length. Observations that are not evenly divisible
// grids are rendered as a single row.
func frameShape(e env.Environment) (rows, cols int) {
	n := e.ObservationSpec().Shape.Len()
	for r := 2; r*r <= n; r++ {
		if n%r == 0 {
			rows = r
		}
	}
	if rows == 0 {
		return 1, n
	}
	return rows, n / rows
}
