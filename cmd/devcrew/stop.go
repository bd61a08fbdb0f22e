package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/signals"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the crew running in this directory",
	Long: `Ask a 'devcrew run' started from the current directory to stop.

The running crew finishes its current LLM call, records the run as
canceled and exits. Resume it later with 'devcrew run --replay <run-id>'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		if err := signals.SendKill(cwd); err != nil {
			return err
		}
		printStatus("■", "Stop signal sent", color.FgYellow)
		return nil
	},
}
