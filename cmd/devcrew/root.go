package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/config"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

var (
	rootLogLevel string
	rootLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "devcrew",
	Short: "Run the PythonApp design, code and debug crew",
	Long: `devcrew runs a three-agent crew that designs, implements and debugs a
Python application from a short brief.

The crew runs four tasks in order:
  system_design_task  SystemDesigner drafts the architecture
  coding_task         Coder writes the implementation (report.md)
  debugging_task      Debugger reviews and fixes it (report.md)
  output_task         SystemDesigner summarises the project
                      (final_project_summary.md)

Agents and tasks are defined in config/agents.yaml and config/tasks.yaml.
Built-in definitions are used unless --agents/--tasks or the crew config
keys point elsewhere.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := rootLogLevel
		if level == "" {
			if cfg, err := config.Load(); err == nil {
				level = cfg.Log.Level
			}
		}
		xlog.Configure(xlog.Config{
			Level:   level,
			Output:  os.Stderr,
			Console: !rootLogJSON,
		})
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version()
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&rootLogJSON, "log-json", false, "Write logs as JSON lines")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
