package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/pythonapp"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the crew definition without calling the API",
	Long: `Load agents.yaml and tasks.yaml, assemble the PythonApp crew and print
its agents, ordered tasks, output files and process.

Reports every {placeholder} the YAML expects so you know which --input
values 'devcrew run' needs.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&runAgents, "agents", "", "Path to agents.yaml (default: built-in)")
	validateCmd.Flags().StringVar(&runTasks, "tasks", "", "Path to tasks.yaml (default: built-in)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)

	app, err := pythonapp.Load(cfg.Crew.AgentsConfig, cfg.Crew.TasksConfig)
	if err != nil {
		printStatus("✗", "Crew definition could not be loaded", color.FgRed)
		return err
	}
	printStatus("✓", fmt.Sprintf("Loaded %s and %s", sourceName(cfg.Crew.AgentsConfig, pythonapp.AgentsConfigPath), sourceName(cfg.Crew.TasksConfig, pythonapp.TasksConfigPath)), color.FgGreen)

	c, err := app.Crew(nil)
	if err != nil {
		printStatus("✗", "Crew is invalid", color.FgRed)
		return err
	}
	printStatus("✓", fmt.Sprintf("%s crew is valid (process: %s, verbose: %t)", c.Name(), c.Process(), c.Verbose()), color.FgGreen)

	fmt.Println("\nAgents:")
	for _, a := range c.Agents() {
		fmt.Printf("  %-16s %s\n", a.Name, a.Role)
	}

	fmt.Println("\nTasks:")
	for i, t := range c.Tasks() {
		line := fmt.Sprintf("  %d. %-20s %s", i+1, t.Name, t.Agent.Name)
		if t.OutputFile != "" {
			line += " → " + t.OutputFile
		}
		fmt.Println(line)
	}

	if placeholders := c.Placeholders(); len(placeholders) > 0 {
		fmt.Println("\nRequired inputs:")
		for _, name := range placeholders {
			fmt.Printf("  --input %s=...\n", name)
		}
	}
	return nil
}

func sourceName(path, builtin string) string {
	if path == "" {
		return builtin + " (built-in)"
	}
	return path
}
