package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sfneuman.com/stampede/config"
	"sfneuman.com/stampede/launch"
)

var trainCmd = &cobra.Command{
	Use:   "train <environment> <agent> <num_actors> [flags...]",
	Short: "Launch a full training run: actors plus learner",
	Long: `Train launches num_actors supervised actor processes with task
indices 0..num_actors-1 and one foreground learner process, all sharing
a common configuration. Flags after the three positional arguments are
passed through to every process. Actor output goes to per-actor log
files; learner output is inherited.`,
	// Passthrough flags belong to the children, not to this command
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 {
			return fmt.Errorf("usage: stampede train <environment> "+
				"<agent> <num_actors> [flags...], got %v arguments",
				len(args))
		}
		return train(args[0], args[1], args[2], args[3:])
	},
}

// train validates the run arguments, then launches and supervises the
// run. Validation failures exit before any process is spawned.
func train(environment, agentName, actors string, extra []string) error {
	if err := launch.ValidateGame(environment); err != nil {
		return err
	}
	if err := launch.ValidateAgent(agentName); err != nil {
		return err
	}
	numActors, err := launch.ParseActorCount(actors)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.Environment = environment
	cfg.Agent = agentName
	cfg.NumActors = numActors

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()
	actorCtx, cancelActors := context.WithCancel(ctx)
	defer cancelActors()

	sup := launch.NewSupervisor(cfg, binary, extra)
	if err := sup.Start(actorCtx); err != nil {
		return err
	}

	learnerErr := runLearnerChild(ctx, binary, cfg, extra)

	// The learner owns the run: once it is done, the actors are too
	cancelActors()
	statuses := sup.Wait()
	if failed := launch.Failed(statuses); failed > 0 {
		fmt.Fprintf(os.Stderr, "train: %v of %v actors failed "+
			"permanently\n", failed, cfg.NumActors)
	}

	return learnerErr
}

// runLearnerChild runs the learner as a foreground child process with
// inherited output
func runLearnerChild(ctx context.Context, binary string,
	cfg config.Config, extra []string) error {
	args := []string{
		"run",
		"--run_mode=learner",
		fmt.Sprintf("--environment=%v", cfg.Environment),
		fmt.Sprintf("--agent=%v", cfg.Agent),
		fmt.Sprintf("--num_actors=%v", cfg.NumActors),
	}
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"ENVIRONMENT="+cfg.Environment,
		"AGENT="+cfg.Agent,
		fmt.Sprintf("NUM_ACTORS=%v", cfg.NumActors),
		"CONFIG="+cfg.Environment,
	)

	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("train: learner: %w", err)
	}
	return nil
}
