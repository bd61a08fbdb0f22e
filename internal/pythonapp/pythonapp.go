// Package pythonapp declares the PythonApp crew: a system designer, a coder and a
// debugger that design, implement, debug and summarise a Python application.
//
// Agent and task text lives in agents.yaml and tasks.yaml. The embedded copies
// under config/ are used unless the caller supplies its own files.
package pythonapp

import (
	"embed"
	"fmt"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

const (
	// CrewName is the name the crew runs under.
	CrewName = "PythonApp"

	// AgentsConfigPath and TasksConfigPath are the conventional config locations,
	// relative to the project root and to the embedded filesystem.
	AgentsConfigPath = "config/agents.yaml"
	TasksConfigPath  = "config/tasks.yaml"

	// ReportFile receives the coding and debugging task output. The debugging
	// output replaces the coding output.
	ReportFile = "report.md"
	// SummaryFile receives the output task result.
	SummaryFile = "final_project_summary.md"
)

// Agent names as they appear in agents.yaml.
const (
	AgentSystemDesigner = "SystemDesigner"
	AgentCoder          = "Coder"
	AgentDebugger       = "Debugger"
)

// Task names as they appear in tasks.yaml, in execution order.
const (
	TaskSystemDesign = "system_design_task"
	TaskCoding       = "coding_task"
	TaskDebugging    = "debugging_task"
	TaskOutput       = "output_task"
)

//go:embed config/agents.yaml config/tasks.yaml
var defaultConfig embed.FS

// PythonApp builds the crew's agents and tasks from named config records.
// It is not safe for concurrent use.
type PythonApp struct {
	agentsConfig crew.AgentsConfig
	tasksConfig  crew.TasksConfig

	// agents memoizes factory results so tasks share the crew's agent instances.
	agents map[string]*crew.Agent
}

// New returns a PythonApp over already-loaded config records.
func New(agents crew.AgentsConfig, tasks crew.TasksConfig) *PythonApp {
	return &PythonApp{
		agentsConfig: agents,
		tasksConfig:  tasks,
		agents:       make(map[string]*crew.Agent),
	}
}

// Load reads agents.yaml and tasks.yaml from the given paths. An empty path
// selects the embedded default for that file.
func Load(agentsPath, tasksPath string) (*PythonApp, error) {
	var (
		agents crew.AgentsConfig
		tasks  crew.TasksConfig
		err    error
	)

	if agentsPath == "" {
		agents, err = crew.LoadAgentsConfigFS(defaultConfig, AgentsConfigPath)
	} else {
		agents, err = crew.LoadAgentsConfig(agentsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load agents config: %w", err)
	}

	if tasksPath == "" {
		tasks, err = crew.LoadTasksConfigFS(defaultConfig, TasksConfigPath)
	} else {
		tasks, err = crew.LoadTasksConfig(tasksPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load tasks config: %w", err)
	}

	return New(agents, tasks), nil
}

// DefaultConfigFile returns the embedded contents of AgentsConfigPath or TasksConfigPath.
func DefaultConfigFile(path string) ([]byte, error) {
	return defaultConfig.ReadFile(path)
}

// SystemDesigner is the architect agent.
func (p *PythonApp) SystemDesigner() (*crew.Agent, error) {
	return p.agent(AgentSystemDesigner)
}

// Coder is the implementation agent.
func (p *PythonApp) Coder() (*crew.Agent, error) {
	return p.agent(AgentCoder)
}

// Debugger is the review and fix agent.
func (p *PythonApp) Debugger() (*crew.Agent, error) {
	return p.agent(AgentDebugger)
}

// SystemDesignTask produces the design document. It writes no file.
func (p *PythonApp) SystemDesignTask() (*crew.Task, error) {
	return p.task(TaskSystemDesign)
}

// CodingTask implements the design and writes ReportFile.
func (p *PythonApp) CodingTask() (*crew.Task, error) {
	return p.task(TaskCoding, crew.WithOutputFile(ReportFile))
}

// DebuggingTask fixes the implementation and rewrites ReportFile.
func (p *PythonApp) DebuggingTask() (*crew.Task, error) {
	return p.task(TaskDebugging, crew.WithOutputFile(ReportFile))
}

// OutputTask summarises the project into SummaryFile.
func (p *PythonApp) OutputTask() (*crew.Task, error) {
	return p.task(TaskOutput, crew.WithOutputFile(SummaryFile))
}

type agentFactory struct {
	name string
	fn   func() (*crew.Agent, error)
}

type taskFactory struct {
	name string
	fn   func() (*crew.Task, error)
}

// agentFactories is the agent registration list, in declaration order.
func (p *PythonApp) agentFactories() []agentFactory {
	return []agentFactory{
		{AgentSystemDesigner, p.SystemDesigner},
		{AgentCoder, p.Coder},
		{AgentDebugger, p.Debugger},
	}
}

// taskFactories is the task registration list, in execution order.
func (p *PythonApp) taskFactories() []taskFactory {
	return []taskFactory{
		{TaskSystemDesign, p.SystemDesignTask},
		{TaskCoding, p.CodingTask},
		{TaskDebugging, p.DebuggingTask},
		{TaskOutput, p.OutputTask},
	}
}

// Agents builds every registered agent in declaration order.
func (p *PythonApp) Agents() ([]*crew.Agent, error) {
	factories := p.agentFactories()
	agents := make([]*crew.Agent, 0, len(factories))
	for _, f := range factories {
		a, err := f.fn()
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Tasks builds every registered task in execution order.
func (p *PythonApp) Tasks() ([]*crew.Task, error) {
	factories := p.taskFactories()
	tasks := make([]*crew.Task, 0, len(factories))
	for _, f := range factories {
		t, err := f.fn()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Crew assembles the sequential, verbose PythonApp crew.
func (p *PythonApp) Crew(llm crew.LLM, opts ...crew.Option) (*crew.Crew, error) {
	agents, err := p.Agents()
	if err != nil {
		return nil, err
	}
	tasks, err := p.Tasks()
	if err != nil {
		return nil, err
	}
	return crew.New(crew.Config{
		Name:    CrewName,
		Agents:  agents,
		Tasks:   tasks,
		Process: crew.ProcessSequential,
		Verbose: true,
		LLM:     llm,
	}, opts...)
}

func (p *PythonApp) agent(name string) (*crew.Agent, error) {
	if a, ok := p.agents[name]; ok {
		return a, nil
	}
	cfg, err := p.agentsConfig.Lookup(name)
	if err != nil {
		return nil, err
	}
	a := crew.NewAgent(name, cfg, crew.WithVerbose(true))
	p.agents[name] = a
	return a, nil
}

func (p *PythonApp) task(name string, opts ...crew.TaskOption) (*crew.Task, error) {
	cfg, err := p.tasksConfig.Lookup(name)
	if err != nil {
		return nil, err
	}
	agent, err := p.registeredAgent(cfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", name, err)
	}
	return crew.NewTask(name, cfg, agent, opts...), nil
}

// registeredAgent resolves a tasks.yaml agent reference through the registration list.
func (p *PythonApp) registeredAgent(name string) (*crew.Agent, error) {
	for _, f := range p.agentFactories() {
		if f.name == name {
			return f.fn()
		}
	}
	return nil, fmt.Errorf("%w: %q is not a registered agent", crew.ErrUnknownAgentConfig, name)
}
