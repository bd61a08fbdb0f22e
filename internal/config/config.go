// Package config handles configuration loading and management for devcrew.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/devcrew/internal/state"
)

// ProjectConfigName is the per-project override file, searched upward from the
// working directory.
const ProjectConfigName = ".devcrew.yaml"

// Config holds all configuration for devcrew.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Crew      CrewConfig      `mapstructure:"crew"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	State     StateConfig     `mapstructure:"state"`
	Log       LogConfig       `mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// CrewConfig locates the crew definition and its outputs.
type CrewConfig struct {
	// AgentsConfig and TasksConfig point at YAML files. Empty selects the
	// built-in definitions.
	AgentsConfig string `mapstructure:"agents_config"`
	TasksConfig  string `mapstructure:"tasks_config"`
	// OutputDir is where report.md and final_project_summary.md are written.
	OutputDir  string        `mapstructure:"output_dir"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Run bounds a whole kickoff. Zero disables the limit.
	Run time.Duration `mapstructure:"run"`
}

// StateConfig locates the run history database.
type StateConfig struct {
	// Path is the SQLite file. Empty selects ~/.devcrew/state.db.
	Path string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, DEVCREW_*)
// 2. Project config (.devcrew.yaml in current directory or parent)
// 3. User config (~/.config/devcrew/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		resolveProjectPaths(projectViper, filepath.Dir(projectConfig))
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path, with environment overrides.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("DEVCREW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range Keys() {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "DEVCREW_ANTHROPIC_API_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(cfg, GetUserConfigPath())
}

// SaveTo writes the configuration to path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for _, key := range Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		v.Set(key, value)
	}
	// Get masks the key for display.
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.max_tokens", d.Anthropic.MaxTokens)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("crew.agents_config", "")
	v.SetDefault("crew.tasks_config", "")
	v.SetDefault("crew.output_dir", d.Crew.OutputDir)
	v.SetDefault("crew.retry_delay", d.Crew.RetryDelay.String())

	v.SetDefault("timeouts.run", d.Timeouts.Run.String())
	v.SetDefault("state.path", "")
	v.SetDefault("log.level", d.Log.Level)
}

// getUserConfigDir returns the XDG config directory for devcrew.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "devcrew")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "devcrew")
	}
	return filepath.Join(home, ".config", "devcrew")
}

// findProjectConfig searches for .devcrew.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// projectPathKeys hold paths that a project config states relative to itself.
var projectPathKeys = []string{"crew.agents_config", "crew.tasks_config", "crew.output_dir", "state.path"}

// resolveProjectPaths rewrites relative path values in a project config to sit
// under dir, so runs from a subdirectory find the same files.
func resolveProjectPaths(v *viper.Viper, dir string) {
	for _, key := range projectPathKeys {
		if !v.IsSet(key) {
			continue
		}
		p := v.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		v.Set(key, filepath.Join(dir, p))
	}
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Crew: CrewConfig{
			OutputDir:  ".",
			RetryDelay: time.Second,
		},
		Timeouts: TimeoutsConfig{
			Run: 30 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// StatePath returns the configured database path, or ~/.devcrew/state.db.
func (c *Config) StatePath() string {
	if c.State.Path != "" {
		return c.State.Path
	}
	return state.DefaultPath()
}
