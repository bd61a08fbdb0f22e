package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

// TaskState is the display state of a task row.
type TaskState string

const (
	StatePending TaskState = "pending"
	StateRunning TaskState = "running"
	StateDone    TaskState = "done"
	StateFailed  TaskState = "failed"
)

// TaskRow is one task line in the progress view.
type TaskRow struct {
	Name       string
	Agent      string
	State      TaskState
	Replayed   bool
	OutputFile string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Elapsed returns how long the task ran, or has been running as of now.
func (r TaskRow) Elapsed(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	end := r.FinishedAt
	if end.IsZero() {
		end = now
	}
	return end.Sub(r.StartedAt).Round(time.Second)
}

// EventMsg carries a crew lifecycle event into the program.
type EventMsg struct {
	Event crew.Event
}

// DoneMsg is sent when Kickoff returns.
type DoneMsg struct {
	Output *crew.CrewOutput
	Err    error
}

// maxLogLines bounds the activity log shown under the task list.
const maxLogLines = 8

type logEntry struct {
	at      time.Time
	message string
}

// ProgressApp is the bubbletea model for a running crew.
type ProgressApp struct {
	crewName string
	rows     []TaskRow
	index    map[string]int
	logs     []logEntry
	spinner  spinner.Model
	cancel   func()
	now      func() time.Time

	output   *crew.CrewOutput
	done     bool
	err      error
	quitting bool
	width    int
	height   int

	headerStyle  lipgloss.Style
	nameStyle    lipgloss.Style
	agentStyle   lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	dimStyle     lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewProgressApp creates a model listing tasks in execution order. cancel, if
// non-nil, is called when the user quits before the run finishes.
func NewProgressApp(crewName string, tasks []string, cancel func()) *ProgressApp {
	a := &ProgressApp{
		crewName: crewName,
		index:    make(map[string]int, len(tasks)),
		cancel:   cancel,
		now:      time.Now,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("34"))),
		),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		nameStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Width(22),

		agentStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Width(16),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")),

		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
	for i, name := range tasks {
		a.rows = append(a.rows, TaskRow{Name: name, State: StatePending})
		a.index[name] = i
	}
	return a
}

// Rows returns a copy of the task rows.
func (a *ProgressApp) Rows() []TaskRow {
	return append([]TaskRow(nil), a.rows...)
}

// Done reports whether the run has finished, and its error.
func (a *ProgressApp) Done() (bool, error) {
	return a.done, a.err
}

// Init implements tea.Model.
func (a *ProgressApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *ProgressApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !a.done && a.cancel != nil {
				a.cancel()
			}
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.apply(msg.Event)

	case DoneMsg:
		a.done = true
		a.output = msg.Output
		a.err = msg.Err
	}
	return a, nil
}

func (a *ProgressApp) apply(e crew.Event) {
	i, ok := a.index[e.Task]
	row := &TaskRow{}
	if ok {
		row = &a.rows[i]
	}

	switch e.Type {
	case crew.EventCrewStarted:
		a.log(e.Time, fmt.Sprintf("%s started with %d tasks", e.Crew, e.Total))
	case crew.EventTaskStarted:
		row.State = StateRunning
		row.Agent = e.Agent
		row.StartedAt = e.Time
		a.log(e.Time, fmt.Sprintf("%s picked up %s", e.Agent, e.Task))
	case crew.EventTaskCompleted:
		row.State = StateDone
		row.Agent = e.Agent
		row.FinishedAt = e.Time
		if e.Output != nil {
			row.Replayed = e.Output.Replayed
			row.OutputFile = e.Output.OutputFile
		}
		if row.Replayed {
			a.log(e.Time, fmt.Sprintf("%s replayed from earlier run", e.Task))
		} else {
			a.log(e.Time, fmt.Sprintf("%s completed", e.Task))
		}
	case crew.EventTaskFailed:
		row.State = StateFailed
		row.FinishedAt = e.Time
		row.Err = e.Err
		a.log(e.Time, fmt.Sprintf("%s failed: %v", e.Task, e.Err))
	case crew.EventCrewCompleted:
		a.log(e.Time, "crew completed")
	case crew.EventCrewFailed:
		a.log(e.Time, fmt.Sprintf("crew failed: %v", e.Err))
	}
}

func (a *ProgressApp) log(at time.Time, message string) {
	a.logs = append(a.logs, logEntry{at: at, message: message})
	if len(a.logs) > maxLogLines {
		a.logs = a.logs[len(a.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (a *ProgressApp) View() string {
	if a.quitting && !a.done {
		return "Run cancelled.\n"
	}

	var b strings.Builder
	b.WriteString(a.headerStyle.Render(fmt.Sprintf("=== %s crew ===", a.crewName)))
	b.WriteString("\n")

	now := a.now()
	for _, row := range a.rows {
		b.WriteString(a.renderRow(row, now))
		b.WriteString("\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		for _, entry := range a.logs {
			b.WriteString(fmt.Sprintf("  %s %s\n", a.dimStyle.Render(entry.at.Format("15:04:05")), entry.message))
		}
	}

	b.WriteString("\n")
	switch {
	case a.done && a.err != nil:
		b.WriteString(a.errorStyle.Render(fmt.Sprintf("Error: %v", a.err)))
		b.WriteString("\n")
		b.WriteString(a.dimStyle.Render("Press q to exit"))
	case a.done:
		b.WriteString(a.doneStyle.Render("Crew finished! Press q to exit."))
		if a.output != nil {
			b.WriteString("\n")
			b.WriteString(a.dimStyle.Render(fmt.Sprintf("tokens: %d in / %d out over %d calls",
				a.output.Usage.InputTokens, a.output.Usage.OutputTokens, a.output.Usage.Calls)))
		}
	default:
		b.WriteString(a.dimStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *ProgressApp) renderRow(row TaskRow, now time.Time) string {
	var marker string
	switch row.State {
	case StateRunning:
		marker = a.spinner.View()
	case StateDone:
		marker = a.doneStyle.Render("✓")
	case StateFailed:
		marker = a.failedStyle.Render("✗")
	default:
		marker = a.pendingStyle.Render("○")
	}

	line := fmt.Sprintf("  %s %s %s", marker, a.nameStyle.Render(row.Name), a.agentStyle.Render(row.Agent))
	if d := row.Elapsed(now); d > 0 {
		line += " " + a.dimStyle.Render(d.String())
	}
	if row.Replayed {
		line += " " + a.pendingStyle.Render("(replayed)")
	}
	if row.OutputFile != "" {
		line += " " + a.dimStyle.Render("→ "+row.OutputFile)
	}
	return line
}

// Observer forwards crew events to a running program.
func Observer(p *tea.Program) crew.Observer {
	return crew.ObserverFunc(func(e crew.Event) {
		p.Send(EventMsg{Event: e})
	})
}

// NewProgressProgram creates a bubbletea program around a new ProgressApp.
func NewProgressProgram(crewName string, tasks []string, cancel func()) (*tea.Program, *ProgressApp) {
	app := NewProgressApp(crewName, tasks, cancel)
	return tea.NewProgram(app, tea.WithAltScreen()), app
}
