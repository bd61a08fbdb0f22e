package crew

import "strings"

// Task is one unit of work assigned to an agent.
type Task struct {
	// Name is the registration key, e.g. "coding_task".
	Name string
	// Description tells the agent what to do.
	Description string
	// ExpectedOutput describes what a complete answer looks like.
	ExpectedOutput string
	// Agent performs the task.
	Agent *Agent
	// Context names earlier tasks whose output feeds this task. When empty, the
	// outputs of every earlier task are used.
	Context []string
	// OutputFile, when set, receives the task's raw output.
	OutputFile string
}

// TaskOption customises a Task built by NewTask.
type TaskOption func(*Task)

// WithOutputFile sets the file that receives the task's raw output, overriding
// any output_file in the task config.
func WithOutputFile(path string) TaskOption {
	return func(t *Task) { t.OutputFile = path }
}

// NewTask builds a task from its YAML record, performed by agent.
func NewTask(name string, cfg TaskConfig, agent *Agent, opts ...TaskOption) *Task {
	t := &Task{
		Name:           name,
		Description:    strings.TrimSpace(cfg.Description),
		ExpectedOutput: strings.TrimSpace(cfg.ExpectedOutput),
		Agent:          agent,
		OutputFile:     cfg.OutputFile,
	}
	if len(cfg.Context) > 0 {
		t.Context = append([]string(nil), cfg.Context...)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) interpolated(inputs map[string]string) (*Task, error) {
	cp := *t
	if err := interpolateAll(inputs, &cp.Description, &cp.ExpectedOutput, &cp.OutputFile); err != nil {
		return nil, err
	}
	return &cp, nil
}
