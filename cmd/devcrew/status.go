package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/state"
)

var (
	statusLimit int
	statusPurge time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recorded runs",
	Long: `Without arguments, list the most recent runs.
With a run ID, show that run's tasks, token usage and errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of recent runs to list")
	statusCmd.Flags().DurationVar(&statusPurge, "purge", 0, "Delete finished runs older than this (e.g. 720h)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.StatePath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Run 'devcrew run' to start.")
		return nil
	}

	db, err := state.OpenAndMigrate(dbPath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	if _, err := db.RecoverInterrupted(); err != nil {
		return fmt.Errorf("recover interrupted runs: %w", err)
	}

	if statusPurge > 0 {
		n, err := db.PurgeOldRuns(statusPurge)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Purged %d run(s) older than %s", n, statusPurge), color.FgGreen)
	}

	if len(args) == 1 {
		return displayRun(db, args[0])
	}
	return displayRecentRuns(db, statusLimit)
}

func displayRun(db *state.DB, id string) error {
	run, err := db.GetRun(id)
	if errors.Is(err, state.ErrRunNotFound) {
		return fmt.Errorf("no run with ID %s", id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Crew:     %s (%s)\n", run.Crew, run.Process)
	fmt.Printf("Status:   %s\n", statusColor(string(run.Status)).Sprint(run.Status))
	fmt.Printf("Started:  %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), formatDuration(runDuration(run)))
	if run.ReplayOf != "" {
		fmt.Printf("Replay:   of %s from %s\n", run.ReplayOf, run.FromTask)
	}
	for _, k := range sortedKeys(run.Inputs) {
		fmt.Printf("Input:    %s=%s\n", k, run.Inputs[k])
	}
	fmt.Printf("Tokens:   %s in / %s out\n", formatNumber(run.InputTokens), formatNumber(run.OutputTokens))
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}

	tasks, err := db.ListTaskRuns(run.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	fmt.Println("\nTasks:")
	for _, t := range tasks {
		line := fmt.Sprintf("  %d. %-20s %-16s %s", t.Seq+1, t.Task, t.Agent, statusColor(string(t.Status)).Sprint(t.Status))
		if t.Replayed {
			line += " (replayed)"
		}
		if t.OutputFile != "" {
			line += " → " + t.OutputFile
		}
		fmt.Println(line)
		if t.Error != "" {
			fmt.Printf("     %s\n", t.Error)
		}
	}
	return nil
}

func displayRecentRuns(db *state.DB, limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'devcrew run' to start.")
		return nil
	}

	fmt.Println("Recent runs:")
	for i := range runs {
		r := &runs[i]
		fmt.Printf("  %s  %-11s %-10s %6s  %s tokens\n",
			r.ID,
			statusColor(string(r.Status)).Sprint(r.Status),
			r.Crew,
			formatDuration(runDuration(r)),
			formatNumber(r.InputTokens+r.OutputTokens))
	}
	return nil
}

func runDuration(r *state.Run) time.Duration {
	end := time.Now()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	return end.Sub(r.StartedAt)
}

func statusColor(status string) *color.Color {
	switch status {
	case string(state.RunCompleted), string(state.TaskDone):
		return color.New(color.FgGreen)
	case string(state.RunFailed):
		return color.New(color.FgRed)
	case string(state.RunRunning):
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		result.WriteString(",")
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
