package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sfneuman.com/stampede/checkpoint"
	"sfneuman.com/stampede/report"
)

var (
	reportRunID string
	reportDir   string
	reportDB    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML report of a training run",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := checkpoint.New(reportDB)
		if err != nil {
			return err
		}
		defer store.Close()

		path, err := report.Write(store, reportRunID, reportDir)
		if err != nil {
			return err
		}
		fmt.Printf("report written to %v\n", path)
		return nil
	},
}

func init() {
	flags := reportCmd.Flags()
	flags.StringVar(&reportRunID, "run_id", "",
		"run to report on (default: newest)")
	flags.StringVar(&reportDir, "out", "/tmp/agent",
		"directory to write the report into")
	flags.StringVar(&reportDB, "checkpoint_path", "stampede.db",
		"checkpoint database path")
}
