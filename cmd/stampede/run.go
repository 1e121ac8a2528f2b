package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sfneuman.com/stampede/actor"
	"sfneuman.com/stampede/config"
	"sfneuman.com/stampede/inference"
	"sfneuman.com/stampede/learner"
	"sfneuman.com/stampede/transport"
)

// Timing of the actor-side clients
const (
	inferTimeout  = 2 * time.Second
	inferRetries  = 3
	inferBackoff  = 250 * time.Millisecond
	streamBackoff = 500 * time.Millisecond
)

var cfg = config.Default()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single actor or learner process",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg = applyEnvFallbacks(cfg, cmd.Flags())
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch cfg.RunMode {
		case config.ModeActor:
			return runActor(ctx)
		case config.ModeLearner:
			return runLearner(ctx)
		}
		return fmt.Errorf("no such run mode %q", cfg.RunMode)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringVar(&cfg.RunMode, "run_mode", cfg.RunMode,
		"actor or learner")
	flags.StringVar(&cfg.Environment, "environment", cfg.Environment,
		"game to play")
	flags.StringVar(&cfg.Agent, "agent", cfg.Agent, "algorithm to train")
	flags.IntVar(&cfg.NumActors, "num_actors", cfg.NumActors,
		"actor processes in the run")
	flags.IntVar(&cfg.Task, "task", cfg.Task, "this actor's task index")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "run seed")
	flags.Float64Var(&cfg.Discount, "discount", cfg.Discount,
		"environment discount factor")
	flags.IntVar(&cfg.EnvBatchSize, "env_batch_size", cfg.EnvBatchSize,
		"environment loops per actor")
	flags.BoolVar(&cfg.Render, "render", cfg.Render,
		"render frames from the first loop of task 0")
	flags.IntVar(&cfg.UnrollLength, "unroll_length", cfg.UnrollLength,
		"steps per trajectory")
	flags.IntVar(&cfg.QueueCapacity, "queue_capacity", cfg.QueueCapacity,
		"trajectory queue capacity")
	flags.StringVar(&cfg.QueuePolicy, "queue_policy", cfg.QueuePolicy,
		"queue overflow policy: drop-oldest or block")
	flags.Int64Var(&cfg.StaleBound, "stale_bound", cfg.StaleBound,
		"max parameter versions a trajectory may lag")
	flags.IntVar(&cfg.BatchSize, "batch_size", cfg.BatchSize,
		"trajectories per learner update")
	flags.IntVar(&cfg.TotalFrames, "total_environment_frames",
		cfg.TotalFrames, "frame budget of the run")
	flags.IntVar(&cfg.PublishPeriod, "publish_period", cfg.PublishPeriod,
		"updates between parameter publications")
	flags.DurationVar(&cfg.CheckpointPeriod, "checkpoint_period",
		cfg.CheckpointPeriod, "time between checkpoints")
	flags.StringVar(&cfg.CheckpointPath, "checkpoint_path",
		cfg.CheckpointPath, "checkpoint database path")
	flags.StringVar(&cfg.ServerAddr, "server_address", cfg.ServerAddr,
		"learner address (host:port)")
	flags.IntVar(&cfg.InferenceBatch, "inference_batch",
		cfg.InferenceBatch, "max observations per inference batch")
	flags.DurationVar(&cfg.InferenceWait, "inference_wait",
		cfg.InferenceWait, "max wait to fill an inference batch")
	flags.StringVar(&cfg.LogDir, "logdir", cfg.LogDir, "log directory")
}

// applyEnvFallbacks fills the run's identity fields from the
// environment variables, but only where no flag was given on the
// command line: an explicit flag always wins
func applyEnvFallbacks(c config.Config,
	flags *pflag.FlagSet) config.Config {
	env := c.FromEnv()
	if !flags.Changed("environment") {
		c.Environment = env.Environment
	}
	if !flags.Changed("agent") {
		c.Agent = env.Agent
	}
	if !flags.Changed("num_actors") {
		c.NumActors = env.NumActors
	}
	return c
}

func runActor(ctx context.Context) error {
	client := inference.NewClient(cfg.ServerAddr, inferTimeout,
		inferRetries, inferBackoff)
	stream := transport.NewStream(cfg.ServerAddr, streamBackoff)
	defer stream.Close()

	a, err := actor.New(cfg, client, stream)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func runLearner(ctx context.Context) error {
	l, err := learner.New(cfg)
	if err != nil {
		return err
	}
	return l.Run(ctx)
}
