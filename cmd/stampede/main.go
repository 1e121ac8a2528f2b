// Stampede is a distributed actor/learner training system: many actor
// processes stream environment trajectories to one learner process,
// which updates agent parameters and serves them back through a
// central batched inference service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stampede",
	Short: "Stampede - distributed actor/learner training",
	Long: `Stampede trains reinforcement learning agents with many actor
processes feeding trajectories to a single learner process. Actions are
selected centrally by a batched inference service, so actors stay thin
and parameter updates take effect everywhere at once.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
