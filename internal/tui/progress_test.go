package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

var taskNames = []string{"system_design_task", "coding_task", "debugging_task", "output_task"}

func send(a *ProgressApp, events ...crew.Event) {
	for _, e := range events {
		a.Update(EventMsg{Event: e})
	}
}

func TestNewProgressApp(t *testing.T) {
	app := NewProgressApp("PythonApp", taskNames, nil)

	rows := app.Rows()
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Name != taskNames[i] {
			t.Errorf("row %d = %q, want %q", i, row.Name, taskNames[i])
		}
		if row.State != StatePending {
			t.Errorf("row %d state = %q, want pending", i, row.State)
		}
	}
	if app.Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestProgressApp_Events(t *testing.T) {
	app := NewProgressApp("PythonApp", taskNames, nil)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	app.now = func() time.Time { return start.Add(time.Minute) }

	send(app,
		crew.Event{Type: crew.EventCrewStarted, Crew: "PythonApp", Total: 4, Time: start},
		crew.Event{Type: crew.EventTaskCompleted, Task: "system_design_task", Agent: "SystemDesigner", Time: start,
			Output: &crew.TaskOutput{Task: "system_design_task", Replayed: true}},
		crew.Event{Type: crew.EventTaskStarted, Task: "coding_task", Agent: "Coder", Time: start},
		crew.Event{Type: crew.EventTaskCompleted, Task: "coding_task", Agent: "Coder", Time: start.Add(42 * time.Second),
			Output: &crew.TaskOutput{Task: "coding_task", OutputFile: "report.md"}},
		crew.Event{Type: crew.EventTaskStarted, Task: "debugging_task", Agent: "Debugger", Time: start.Add(45 * time.Second)},
		crew.Event{Type: crew.EventTaskFailed, Task: "debugging_task", Agent: "Debugger", Time: start.Add(50 * time.Second), Err: errors.New("boom")},
	)

	rows := app.Rows()
	tests := []struct {
		name     string
		state    TaskState
		replayed bool
		output   string
	}{
		{"system_design_task", StateDone, true, ""},
		{"coding_task", StateDone, false, "report.md"},
		{"debugging_task", StateFailed, false, ""},
		{"output_task", StatePending, false, ""},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := rows[i]
			if row.State != tt.state {
				t.Errorf("state = %q, want %q", row.State, tt.state)
			}
			if row.Replayed != tt.replayed {
				t.Errorf("replayed = %v, want %v", row.Replayed, tt.replayed)
			}
			if row.OutputFile != tt.output {
				t.Errorf("output file = %q, want %q", row.OutputFile, tt.output)
			}
		})
	}

	if got := rows[1].Elapsed(app.now()); got != 42*time.Second {
		t.Errorf("coding elapsed = %v, want 42s", got)
	}

	view := app.View()
	for _, want := range []string{"PythonApp crew", "(replayed)", "report.md", "debugging_task failed: boom", "Press q to cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressApp_Done(t *testing.T) {
	app := NewProgressApp("PythonApp", taskNames, nil)

	app.Update(DoneMsg{Output: &crew.CrewOutput{Usage: crew.Usage{InputTokens: 100, OutputTokens: 20, Calls: 4}}})
	done, err := app.Done()
	if !done || err != nil {
		t.Fatalf("Done() = %v, %v", done, err)
	}
	if view := app.View(); !strings.Contains(view, "100 in / 20 out over 4 calls") {
		t.Errorf("view missing usage summary:\n%s", view)
	}

	failed := NewProgressApp("PythonApp", taskNames, nil)
	failed.Update(DoneMsg{Err: errors.New("no key")})
	if view := failed.View(); !strings.Contains(view, "Error: no key") {
		t.Errorf("view missing error:\n%s", view)
	}
}

func TestProgressApp_QuitCancelsRun(t *testing.T) {
	tests := []struct {
		name       string
		key        tea.KeyMsg
		finished   bool
		wantCancel bool
	}{
		{"q while running", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, false, true},
		{"ctrl+c while running", tea.KeyMsg{Type: tea.KeyCtrlC}, false, true},
		{"q after finish", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cancelled := false
			app := NewProgressApp("PythonApp", taskNames, func() { cancelled = true })
			if tt.finished {
				app.Update(DoneMsg{})
			}

			_, cmd := app.Update(tt.key)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
			if cancelled != tt.wantCancel {
				t.Errorf("cancelled = %v, want %v", cancelled, tt.wantCancel)
			}
		})
	}
}

func TestProgressApp_LogBounded(t *testing.T) {
	app := NewProgressApp("PythonApp", taskNames, nil)
	for i := 0; i < 20; i++ {
		send(app, crew.Event{Type: crew.EventCrewStarted, Crew: "PythonApp", Time: time.Now()})
	}
	if len(app.logs) != maxLogLines {
		t.Errorf("log length = %d, want %d", len(app.logs), maxLogLines)
	}
}
