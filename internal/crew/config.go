package crew

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// AgentConfig is one named record from agents.yaml.
type AgentConfig struct {
	Role          string `yaml:"role"`
	Goal          string `yaml:"goal"`
	Backstory     string `yaml:"backstory"`
	LLM           string `yaml:"llm,omitempty"`
	MaxRetryLimit *int   `yaml:"max_retry_limit,omitempty"`
	Verbose       bool   `yaml:"verbose,omitempty"`
}

// TaskConfig is one named record from tasks.yaml.
type TaskConfig struct {
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output"`
	Agent          string   `yaml:"agent"`
	Context        []string `yaml:"context,omitempty"`
	OutputFile     string   `yaml:"output_file,omitempty"`
}

// AgentsConfig maps agent name to its record.
type AgentsConfig map[string]AgentConfig

// TasksConfig maps task name to its record.
type TasksConfig map[string]TaskConfig

// Lookup returns the record for name.
func (c AgentsConfig) Lookup(name string) (AgentConfig, error) {
	cfg, ok := c[name]
	if !ok {
		return AgentConfig{}, fmt.Errorf("%w: %s", ErrUnknownAgentConfig, name)
	}
	return cfg, nil
}

// Names returns the configured agent names in sorted order.
func (c AgentsConfig) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the record for name.
func (c TasksConfig) Lookup(name string) (TaskConfig, error) {
	cfg, ok := c[name]
	if !ok {
		return TaskConfig{}, fmt.Errorf("%w: %s", ErrUnknownTaskConfig, name)
	}
	return cfg, nil
}

// Names returns the configured task names in sorted order.
func (c TasksConfig) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseAgentsConfig decodes an agents.yaml document.
func ParseAgentsConfig(data []byte) (AgentsConfig, error) {
	cfg := AgentsConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTasksConfig decodes a tasks.yaml document.
func ParseTasksConfig(data []byte) (TasksConfig, error) {
	cfg := TasksConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAgentsConfig reads and decodes an agents.yaml file from disk.
func LoadAgentsConfig(path string) (AgentsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeAgents(path, data)
}

// LoadTasksConfig reads and decodes a tasks.yaml file from disk.
func LoadTasksConfig(path string) (TasksConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeTasks(path, data)
}

// LoadAgentsConfigFS reads agents.yaml from fsys.
func LoadAgentsConfigFS(fsys fs.FS, path string) (AgentsConfig, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeAgents(path, data)
}

// LoadTasksConfigFS reads tasks.yaml from fsys.
func LoadTasksConfigFS(fsys fs.FS, path string) (TasksConfig, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeTasks(path, data)
}

func decodeAgents(path string, data []byte) (AgentsConfig, error) {
	cfg, err := ParseAgentsConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func decodeTasks(path string, data []byte) (TasksConfig, error) {
	cfg, err := ParseTasksConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
