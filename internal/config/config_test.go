package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/devcrew/internal/state"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected default model, got %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 8192 {
		t.Errorf("expected max_tokens 8192, got %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Crew.OutputDir != "." {
		t.Errorf("expected output_dir '.', got %q", cfg.Crew.OutputDir)
	}
	if cfg.Crew.RetryDelay != time.Second {
		t.Errorf("expected retry_delay 1s, got %v", cfg.Crew.RetryDelay)
	}
	if cfg.Timeouts.Run != 30*time.Minute {
		t.Errorf("expected run timeout 30m, got %v", cfg.Timeouts.Run)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Log.Level)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DEVCREW_TEST_KEY", "expanded-key")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
anthropic:
  api_key: ${DEVCREW_TEST_KEY}
  model: claude-3-5-haiku-20241022
  max_tokens: 4096
crew:
  agents_config: crew/agents.yaml
  output_dir: out
  retry_delay: 250ms
timeouts:
  run: 10m
state:
  path: /tmp/devcrew.db
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "expanded-key" {
		t.Errorf("expected expanded api_key, got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-3-5-haiku-20241022" {
		t.Errorf("unexpected model %q", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("expected max_tokens 4096, got %d", cfg.Anthropic.MaxTokens)
	}
	if cfg.Crew.AgentsConfig != "crew/agents.yaml" {
		t.Errorf("unexpected agents_config %q", cfg.Crew.AgentsConfig)
	}
	if cfg.Crew.TasksConfig != "" {
		t.Errorf("expected empty tasks_config, got %q", cfg.Crew.TasksConfig)
	}
	if cfg.Crew.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected retry_delay 250ms, got %v", cfg.Crew.RetryDelay)
	}
	if cfg.Timeouts.Run != 10*time.Minute {
		t.Errorf("expected run timeout 10m, got %v", cfg.Timeouts.Run)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %q", cfg.Log.Level)
	}
	if cfg.StatePath() != "/tmp/devcrew.db" {
		t.Errorf("unexpected state path %q", cfg.StatePath())
	}
}

func TestLoadFromPathEnvOverride(t *testing.T) {
	t.Setenv("DEVCREW_ANTHROPIC_MODEL", "claude-opus-4-1-20250805")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("anthropic:\n  model: claude-3-5-haiku-20241022\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.Model != "claude-opus-4-1-20250805" {
		t.Errorf("env override not applied, got %q", cfg.Anthropic.Model)
	}
}

func TestLoadProjectOverride(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("ANTHROPIC_API_KEY", "")

	user := Default()
	user.Crew.OutputDir = "user-out"
	user.Log.Level = "debug"
	if err := Save(user); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte("crew:\n  output_dir: project-out\n"), 0644); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Crew.OutputDir) || filepath.Base(cfg.Crew.OutputDir) != "project-out" {
		t.Errorf("project override not applied, got %q", cfg.Crew.OutputDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("user config not applied, got %q", cfg.Log.Level)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	if dir := getUserConfigDir(); dir != "/custom/config/devcrew" {
		t.Errorf("expected /custom/config/devcrew, got %q", dir)
	}
	if path := GetUserConfigPath(); path != "/custom/config/devcrew/config.yaml" {
		t.Errorf("unexpected user config path %q", path)
	}
}

func TestGetSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"anthropic.model", "claude-3-5-haiku-20241022", "claude-3-5-haiku-20241022"},
		{"anthropic.max_tokens", "2048", "2048"},
		{"anthropic.use_bedrock", "true", "true"},
		{"anthropic.aws_region", "us-west-2", "us-west-2"},
		{"crew.output_dir", "build", "build"},
		{"crew.retry_delay", "2s", "2s"},
		{"timeouts.run", "1h", "1h0m0s"},
		{"log.level", "DEBUG", "debug"},
		{"anthropic.api_key", "sk-ant-REDACTED", "sk-ant-...wxyz"},
	}

	cfg := Default()
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q) failed: %v", tt.key, err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) failed: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSetInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"anthropic.max_tokens", "lots"},
		{"anthropic.max_tokens", "0"},
		{"anthropic.use_bedrock", "maybe"},
		{"crew.retry_delay", "soon"},
		{"log.level", "loud"},
		{"defaults.tier", "builder"},
	}

	cfg := Default()
	for _, tt := range tests {
		if err := cfg.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
		}
	}
	if _, err := cfg.Get("nope"); err == nil {
		t.Error("Get of unknown key should fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"
	cfg.Crew.OutputDir = "reports"
	cfg.Timeouts.Run = 5 * time.Minute

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Anthropic.APIKey != cfg.Anthropic.APIKey {
		t.Errorf("api key not saved unmasked, got %q", loaded.Anthropic.APIKey)
	}
	if loaded.Crew.OutputDir != "reports" || loaded.Timeouts.Run != 5*time.Minute {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadProjectRelativePaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
	project := t.TempDir()

	content := "crew:\n  agents_config: config/agents.yaml\n  tasks_config: /abs/tasks.yaml\nstate:\n  path: .devcrew/state.db\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(project, "src")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	// Compare against the directory as the process sees it, which may differ
	// from t.TempDir when the temp root is a symlink.
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	root := filepath.Dir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := filepath.Join(root, "config", "agents.yaml"); cfg.Crew.AgentsConfig != want {
		t.Errorf("agents_config = %q, want %q", cfg.Crew.AgentsConfig, want)
	}
	if cfg.Crew.TasksConfig != "/abs/tasks.yaml" {
		t.Errorf("absolute tasks_config changed: %q", cfg.Crew.TasksConfig)
	}
	if want := filepath.Join(root, ".devcrew", "state.db"); cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
	if cfg.Crew.OutputDir != Default().Crew.OutputDir {
		t.Errorf("unset output_dir should keep the default, got %q", cfg.Crew.OutputDir)
	}
}

func TestStatePathDefault(t *testing.T) {
	cfg := Default()
	if got := cfg.StatePath(); got != state.DefaultPath() {
		t.Errorf("StatePath() = %q, want %q", got, state.DefaultPath())
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
