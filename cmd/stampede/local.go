package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sfneuman.com/stampede/launch"
)

var localCmd = &cobra.Command{
	Use:   "local <environment> <agent> <num_actors>",
	Short: "Validate arguments and launch a local training run",
	Long: `Local validates its arguments, exports the run's environment
variables (ENVIRONMENT, AGENT, NUM_ACTORS, and CONFIG mirroring
ENVIRONMENT), and launches a training run on this machine. Any
validation failure exits with status 1 before anything is launched.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		environment, agentName, actors := args[0], args[1], args[2]

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

		os.Setenv("ENVIRONMENT", environment)
		os.Setenv("AGENT", agentName)
		os.Setenv("NUM_ACTORS", fmt.Sprint(numActors))
		os.Setenv("CONFIG", environment)

		return train(environment, agentName, actors, nil)
	},
}
