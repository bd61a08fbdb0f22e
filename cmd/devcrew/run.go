package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/crew"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
	"github.com/ShayCichocki/devcrew/internal/pythonapp"
	"github.com/ShayCichocki/devcrew/internal/signals"
	"github.com/ShayCichocki/devcrew/internal/state"
)

var (
	runInputs    []string
	runAgents    string
	runTasks     string
	runOutputDir string
	runTUI       bool
	runReplay    string
	runFromTask  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Kick off the PythonApp crew",
	Long: `Run the PythonApp crew once, in order:
system_design_task, coding_task, debugging_task, output_task.

Inputs fill {placeholders} in the agent and task YAML:
  devcrew run --input project="a CLI todo manager"

coding_task and debugging_task write report.md, output_task writes
final_project_summary.md, all under --output-dir (default: crew.output_dir).

Every run is recorded in the state database. To re-run the tail of an
earlier run without paying for the tasks that already finished:
  devcrew run --replay <run-id> --from-task debugging_task

Without --from-task, a replay resumes at the first task the earlier
run did not finish.

The run stops early on Ctrl+C, 'devcrew stop', or when timeouts.run elapses.`,
	Args: cobra.NoArgs,
	RunE: runCrew,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "Kickoff input as key=value (repeatable)")
	runCmd.Flags().StringVar(&runAgents, "agents", "", "Path to agents.yaml (default: built-in)")
	runCmd.Flags().StringVar(&runTasks, "tasks", "", "Path to tasks.yaml (default: built-in)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Directory for report files")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live task progress")
	runCmd.Flags().StringVar(&runReplay, "replay", "", "Reuse finished task outputs from an earlier run ID")
	runCmd.Flags().StringVar(&runFromTask, "from-task", "", "With --replay, execute from this task onwards")
}

func runCrew(cmd *cobra.Command, args []string) error {
	if runFromTask != "" && runReplay == "" {
		return fmt.Errorf("--from-task requires --replay")
	}

	inputs, err := parseInputs(runInputs)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)

	var progress *progressRun
	if runTUI {
		progress = newProgressRun()
	}

	app, err := pythonapp.Load(cfg.Crew.AgentsConfig, cfg.Crew.TasksConfig)
	if err != nil {
		return err
	}

	runner, err := createRunner(cfg)
	if err != nil {
		return err
	}

	db, err := state.OpenAndMigrate(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	if ids, err := db.RecoverInterrupted(); err != nil {
		printStatus("⚠", fmt.Sprintf("Could not recover interrupted runs: %v", err), color.FgYellow)
	} else if len(ids) > 0 {
		printStatus("⚠", fmt.Sprintf("Marked %d abandoned run(s) as interrupted", len(ids)), color.FgYellow)
	}

	runID := state.NewRunID()
	recorder := state.NewRecorder(db, runID)
	crewOpts := []crew.Option{
		crew.WithOutputDir(cfg.Crew.OutputDir),
		crew.WithRetryDelay(cfg.Crew.RetryDelay),
		crew.WithObserver(recorder),
	}
	if progress != nil {
		crewOpts = append(crewOpts, crew.WithObserver(progress.observer()))
	}

	c, err := app.Crew(runner, crewOpts...)
	if err != nil {
		return err
	}

	kickoff := crew.KickoffOptions{Inputs: inputs}
	if runReplay != "" {
		earlier, err := db.GetRun(runReplay)
		if err != nil {
			return fmt.Errorf("load run %s: %w", runReplay, err)
		}
		kickoff.Inputs = mergeInputs(earlier.Inputs, inputs)

		prior, err := db.PriorOutputs(runReplay)
		if err != nil {
			return fmt.Errorf("load run %s: %w", runReplay, err)
		}
		fromTask := runFromTask
		if fromTask == "" {
			fromTask, err = resumePoint(c.TaskNames(), prior)
			if err != nil {
				return err
			}
		}
		kickoff.FromTask = fromTask
		kickoff.Prior = prior
	}

	if err := checkInputs(c, kickoff); err != nil {
		return err
	}

	if err := db.CreateRun(&state.Run{
		ID:       runID,
		Crew:     c.Name(),
		Process:  string(c.Process()),
		Inputs:   kickoff.Inputs,
		PID:      os.Getpid(),
		ReplayOf: runReplay,
		FromTask: kickoff.FromTask,
	}); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	watcher, err := signals.NewWatcher(cwd)
	if err != nil {
		return fmt.Errorf("watch stop signal: %w", err)
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeouts.Run > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Timeouts.Run)
		defer cancelTimeout()
	}
	ctx, cancelWatch := watcher.Watch(ctx)
	defer cancelWatch()
	ctx = xlog.ContextWithRunID(ctx, runID)

	logger := xlog.FromContext(ctx, "cli")
	logger.Info().
		Str(xlog.FieldCrew, c.Name()).
		Str("replay_of", runReplay).
		Str("from_task", kickoff.FromTask).
		Msg("run started")

	printStatus("▶", fmt.Sprintf("Run %s: %s crew, %d tasks", runID, c.Name(), len(c.Tasks())), color.FgCyan)

	var out *crew.CrewOutput
	if progress != nil {
		out, err = progress.run(ctx, cancelWatch, c, kickoff)
	} else {
		out, err = c.KickoffWithOptions(ctx, kickoff)
	}

	if recErr := recorder.Err(); recErr != nil {
		printStatus("⚠", fmt.Sprintf("Run history incomplete: %v", recErr), color.FgYellow)
	}

	if err != nil {
		switch {
		case errors.Is(context.Cause(ctx), signals.ErrStopRequested):
			printStatus("■", "Stopped by 'devcrew stop'", color.FgYellow)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			printStatus("✗", fmt.Sprintf("Run exceeded timeouts.run (%s)", cfg.Timeouts.Run), color.FgRed)
		default:
			printStatus("✗", "Run failed", color.FgRed)
		}
		fmt.Printf("  Resume with: devcrew run --replay %s\n", runID)
		return err
	}

	printResult(out)
	printStatus("✓", fmt.Sprintf("Run %s completed", runID), color.FgGreen)
	return nil
}

// applyRunFlags lets command-line flags override the loaded config.
func applyRunFlags(cfg *config.Config) {
	if runAgents != "" {
		cfg.Crew.AgentsConfig = runAgents
	}
	if runTasks != "" {
		cfg.Crew.TasksConfig = runTasks
	}
	if runOutputDir != "" {
		cfg.Crew.OutputDir = runOutputDir
	}
}

// parseInputs turns repeated key=value flags into kickoff inputs.
func parseInputs(pairs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --input %q: expected key=value", pair)
		}
		inputs[key] = value
	}
	return inputs, nil
}

// mergeInputs returns the inputs of an earlier run with explicit flags applied on top.
func mergeInputs(earlier, flags map[string]string) map[string]string {
	merged := make(map[string]string, len(earlier)+len(flags))
	for k, v := range earlier {
		merged[k] = v
	}
	for k, v := range flags {
		merged[k] = v
	}
	return merged
}

// checkInputs fails when a task the kickoff would execute uses a placeholder
// with no input, before any run is recorded or tokens are spent.
func checkInputs(c *crew.Crew, opts crew.KickoffOptions) error {
	missing := c.MissingInputs(opts.Inputs, opts.FromTask)
	if len(missing) == 0 {
		return nil
	}
	hint := make([]string, len(missing))
	for i, name := range missing {
		hint[i] = fmt.Sprintf("--input %s=...", name)
	}
	return fmt.Errorf("%w: %s (pass %s)", crew.ErrMissingInput, strings.Join(missing, ", "), strings.Join(hint, " "))
}

// resumePoint returns the first task in order that has no prior output.
func resumePoint(tasks []string, prior []crew.TaskOutput) (string, error) {
	done := make(map[string]bool, len(prior))
	for _, p := range prior {
		done[p.Task] = true
	}
	for _, name := range tasks {
		if !done[name] {
			return name, nil
		}
	}
	return "", fmt.Errorf("every task already finished in that run; pass --from-task to re-run one")
}

// printResult shows the per-task outcome and the final output.
func printResult(out *crew.CrewOutput) {
	fmt.Println()
	for _, t := range out.Tasks {
		line := fmt.Sprintf("%s (%s)", t.Task, t.Agent)
		if t.Replayed {
			line += " [replayed]"
		}
		if t.OutputFile != "" {
			line += " → " + t.OutputFile
		}
		printStatus("✓", line, color.FgGreen)
	}

	fmt.Printf("\nTokens: %s in / %s out over %d calls\n",
		formatNumber(out.Usage.InputTokens), formatNumber(out.Usage.OutputTokens), out.Usage.Calls)

	fmt.Println()
	fmt.Println(color.New(color.Bold).Sprint("Final output"))
	fmt.Println(strings.TrimSpace(out.Raw))
	fmt.Println()
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
