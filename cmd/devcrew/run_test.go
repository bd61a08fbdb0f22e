package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/crew"
	"github.com/ShayCichocki/devcrew/internal/pythonapp"
	"github.com/ShayCichocki/devcrew/internal/state"
)

func TestParseInputs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "no inputs",
			pairs: nil,
			want:  map[string]string{},
		},
		{
			name:  "single pair",
			pairs: []string{"topic=todo app"},
			want:  map[string]string{"topic": "todo app"},
		},
		{
			name:  "value keeps later equals signs",
			pairs: []string{"expr=a=b"},
			want:  map[string]string{"expr": "a=b"},
		},
		{
			name:  "empty value allowed",
			pairs: []string{"topic="},
			want:  map[string]string{"topic": ""},
		},
		{
			name:  "last value wins",
			pairs: []string{"topic=a", "topic=b"},
			want:  map[string]string{"topic": "b"},
		},
		{
			name:    "missing equals",
			pairs:   []string{"topic"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{" =x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInputs(tt.pairs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseInputs(%q) expected error", tt.pairs)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseInputs(%q) unexpected error: %v", tt.pairs, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseInputs(%q) = %v, want %v", tt.pairs, got, tt.want)
			}
		})
	}
}

func TestResumePoint(t *testing.T) {
	tasks := []string{
		pythonapp.TaskSystemDesign,
		pythonapp.TaskCoding,
		pythonapp.TaskDebugging,
		pythonapp.TaskOutput,
	}

	got, err := resumePoint(tasks, []crew.TaskOutput{
		{Task: pythonapp.TaskSystemDesign},
		{Task: pythonapp.TaskCoding},
	})
	if err != nil {
		t.Fatalf("resumePoint() unexpected error: %v", err)
	}
	if got != pythonapp.TaskDebugging {
		t.Errorf("resumePoint() = %q, want %q", got, pythonapp.TaskDebugging)
	}

	got, err = resumePoint(tasks, nil)
	if err != nil || got != pythonapp.TaskSystemDesign {
		t.Errorf("resumePoint(nil) = %q, %v; want %q", got, err, pythonapp.TaskSystemDesign)
	}

	all := make([]crew.TaskOutput, 0, len(tasks))
	for _, name := range tasks {
		all = append(all, crew.TaskOutput{Task: name})
	}
	if _, err := resumePoint(tasks, all); err == nil {
		t.Error("resumePoint() on a finished run expected error")
	}
}

func TestApplyRunFlags(t *testing.T) {
	t.Cleanup(func() {
		runAgents, runTasks, runOutputDir = "", "", ""
	})

	cfg := config.Default()
	cfg.Crew.AgentsConfig = "from-config.yaml"
	applyRunFlags(cfg)
	if cfg.Crew.AgentsConfig != "from-config.yaml" {
		t.Errorf("AgentsConfig overridden by empty flag: %q", cfg.Crew.AgentsConfig)
	}

	runAgents, runTasks, runOutputDir = "a.yaml", "t.yaml", "out"
	applyRunFlags(cfg)
	if cfg.Crew.AgentsConfig != "a.yaml" || cfg.Crew.TasksConfig != "t.yaml" || cfg.Crew.OutputDir != "out" {
		t.Errorf("flags not applied: %+v", cfg.Crew)
	}
}

func TestCheckInputs(t *testing.T) {
	app, err := pythonapp.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := app.Crew(nil)
	if err != nil {
		t.Fatal(err)
	}

	err = checkInputs(c, crew.KickoffOptions{})
	if !errors.Is(err, crew.ErrMissingInput) {
		t.Fatalf("checkInputs() without inputs = %v, want ErrMissingInput", err)
	}
	if !strings.Contains(err.Error(), "--input project=") {
		t.Errorf("error %q does not suggest the missing flag", err)
	}

	if err := checkInputs(c, crew.KickoffOptions{Inputs: map[string]string{"topic": "x"}}); !errors.Is(err, crew.ErrMissingInput) {
		t.Errorf("checkInputs() with wrong key = %v, want ErrMissingInput", err)
	}
	if err := checkInputs(c, crew.KickoffOptions{Inputs: map[string]string{"project": "todo CLI"}}); err != nil {
		t.Errorf("checkInputs() with project = %v, want nil", err)
	}
}

func TestMergeInputs(t *testing.T) {
	earlier := map[string]string{"project": "todo CLI", "language": "python"}
	got := mergeInputs(earlier, map[string]string{"language": "go"})
	want := map[string]string{"project": "todo CLI", "language": "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeInputs() = %v, want %v", got, want)
	}
	if earlier["language"] != "python" {
		t.Error("mergeInputs() modified the earlier run's inputs")
	}
	if got := mergeInputs(nil, nil); len(got) != 0 {
		t.Errorf("mergeInputs(nil, nil) = %v, want empty", got)
	}
}

func TestReplayReusesRecordedInputs(t *testing.T) {
	db, err := state.OpenAndMigrate(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	earlier := &state.Run{Crew: pythonapp.CrewName, Process: "sequential", Inputs: map[string]string{"project": "todo CLI"}}
	if err := db.CreateRun(earlier); err != nil {
		t.Fatal(err)
	}
	stored, err := db.GetRun(earlier.ID)
	if err != nil {
		t.Fatal(err)
	}

	app, err := pythonapp.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := app.Crew(nil)
	if err != nil {
		t.Fatal(err)
	}

	opts := crew.KickoffOptions{Inputs: mergeInputs(stored.Inputs, nil), FromTask: pythonapp.TaskDebugging}
	if err := checkInputs(c, opts); err != nil {
		t.Errorf("replay without --input should reuse recorded inputs: %v", err)
	}
}

func TestDocumentedInputsMatchDefaultCrew(t *testing.T) {
	app, err := pythonapp.Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := app.Crew(nil)
	if err != nil {
		t.Fatal(err)
	}

	for name, text := range map[string]string{"run help": runCmd.Long, "init next steps": initRunExample} {
		for _, key := range c.Placeholders() {
			if !strings.Contains(text, "--input "+key+"=") {
				t.Errorf("%s does not show --input %s=", name, key)
			}
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.n); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 30*time.Minute, "2h30m"},
		{50 * time.Hour, "2d"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestScaffoldFile(t *testing.T) {
	t.Cleanup(func() { initForce = false })
	root := t.TempDir()

	if err := scaffoldFile(root, "config/agents.yaml", []byte("first")); err != nil {
		t.Fatalf("scaffoldFile() error: %v", err)
	}
	if err := scaffoldFile(root, "config/agents.yaml", []byte("second")); err != nil {
		t.Fatalf("scaffoldFile() second call error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "config", "agents.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Errorf("existing file overwritten without --force: %q", data)
	}

	initForce = true
	if err := scaffoldFile(root, "config/agents.yaml", []byte("third")); err != nil {
		t.Fatalf("scaffoldFile() forced error: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(root, "config", "agents.yaml"))
	if string(data) != "third" {
		t.Errorf("forced scaffold = %q, want %q", data, "third")
	}
}

func TestUpdateGitignore(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	if err := os.WriteFile(path, []byte("bin/"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := updateGitignore(root); err != nil {
		t.Fatalf("updateGitignore() error: %v", err)
	}
	if err := updateGitignore(root); err != nil {
		t.Fatalf("updateGitignore() second call error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "bin/\n") {
		t.Errorf("existing entries not preserved: %q", content)
	}
	if n := strings.Count(content, ".devcrew/"); n != 1 {
		t.Errorf(".devcrew/ appears %d times, want 1", n)
	}
}

func TestProjectConfigTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ProjectConfigName)
	if err := os.WriteFile(path, []byte(projectConfigTemplate), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Crew.AgentsConfig != pythonapp.AgentsConfigPath {
		t.Errorf("agents_config = %q, want %q", cfg.Crew.AgentsConfig, pythonapp.AgentsConfigPath)
	}
	if cfg.Crew.TasksConfig != pythonapp.TasksConfigPath {
		t.Errorf("tasks_config = %q, want %q", cfg.Crew.TasksConfig, pythonapp.TasksConfigPath)
	}
}
