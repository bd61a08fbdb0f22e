package crew

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

// DefaultRetryDelay is the base delay between LLM retries.
const DefaultRetryDelay = time.Second

// Config declares the members and execution mode of a crew.
type Config struct {
	Name    string
	Agents  []*Agent
	Tasks   []*Task
	Process Process
	Verbose bool
	// LLM performs completions. It may be nil for crews that are only validated.
	LLM LLM
}

// BeforeKickoffFunc may rewrite the kickoff inputs before any task runs.
type BeforeKickoffFunc func(inputs map[string]string) (map[string]string, error)

// AfterKickoffFunc may rewrite the crew output after the last task completes.
type AfterKickoffFunc func(out *CrewOutput) (*CrewOutput, error)

// Option customises a Crew built by New.
type Option func(*Crew)

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(c *Crew) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithOutputDir sets the directory relative output files are written under.
func WithOutputDir(dir string) Option {
	return func(c *Crew) { c.outputDir = dir }
}

// WithRetryDelay sets the base delay between LLM retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Crew) { c.retryDelay = d }
}

// WithLogger replaces the crew's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Crew) { c.logger = l }
}

// WithBeforeKickoff registers a hook run before the first task.
func WithBeforeKickoff(fn BeforeKickoffFunc) Option {
	return func(c *Crew) { c.before = append(c.before, fn) }
}

// WithAfterKickoff registers a hook run after the last task.
func WithAfterKickoff(fn AfterKickoffFunc) Option {
	return func(c *Crew) { c.after = append(c.after, fn) }
}

// WithLLM sets the LLM, overriding Config.LLM.
func WithLLM(llm LLM) Option {
	return func(c *Crew) { c.llm = llm }
}

// Crew binds agents and tasks to an execution process.
type Crew struct {
	name    string
	agents  []*Agent
	tasks   []*Task
	process Process
	verbose bool
	llm     LLM

	observers  []Observer
	before     []BeforeKickoffFunc
	after      []AfterKickoffFunc
	outputDir  string
	retryDelay time.Duration
	logger     zerolog.Logger
	sleep      func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	running bool
}

// New validates cfg and returns a crew ready for Kickoff.
func New(cfg Config, opts ...Option) (*Crew, error) {
	process := cfg.Process
	if process == "" {
		process = ProcessSequential
	}
	if !process.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProcess, process)
	}
	if process == ProcessHierarchical {
		return nil, fmt.Errorf("%w: hierarchical process requires a manager agent", ErrUnsupportedProcess)
	}
	if err := validate(cfg.Agents, cfg.Tasks); err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = "crew"
	}

	c := &Crew{
		name:       name,
		agents:     append([]*Agent(nil), cfg.Agents...),
		tasks:      append([]*Task(nil), cfg.Tasks...),
		process:    process,
		verbose:    cfg.Verbose,
		llm:        cfg.LLM,
		retryDelay: DefaultRetryDelay,
		logger:     xlog.WithComponent("crew"),
		sleep:      time.After,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func validate(agents []*Agent, tasks []*Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalidCrew)
	}

	members := make(map[*Agent]bool, len(agents))
	names := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a == nil {
			return fmt.Errorf("%w: nil agent", ErrInvalidCrew)
		}
		if names[a.Name] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidCrew, a.Name)
		}
		names[a.Name] = true
		members[a] = true
	}

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t == nil {
			return fmt.Errorf("%w: nil task", ErrInvalidCrew)
		}
		if t.Name == "" {
			return fmt.Errorf("%w: task missing name", ErrInvalidCrew)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidCrew, t.Name)
		}
		if t.Agent == nil {
			return fmt.Errorf("%w: task %q has no agent", ErrInvalidCrew, t.Name)
		}
		if !members[t.Agent] {
			return fmt.Errorf("%w: task %q agent %q is not a crew member", ErrInvalidCrew, t.Name, t.Agent.Name)
		}
		for _, dep := range t.Context {
			if !seen[dep] {
				return fmt.Errorf("%w: task %q context %q must name an earlier task", ErrInvalidCrew, t.Name, dep)
			}
		}
		seen[t.Name] = true
	}
	return nil
}

// Name returns the crew name.
func (c *Crew) Name() string { return c.name }

// Process returns the crew's execution mode.
func (c *Crew) Process() Process { return c.process }

// Verbose reports whether the crew logs task progress at info level.
func (c *Crew) Verbose() bool { return c.verbose }

// OutputDir returns the directory relative output files are written under.
func (c *Crew) OutputDir() string { return c.outputDir }

// Agents returns the crew's agents in registration order.
func (c *Crew) Agents() []*Agent {
	return append([]*Agent(nil), c.agents...)
}

// Tasks returns the crew's tasks in execution order.
func (c *Crew) Tasks() []*Task {
	return append([]*Task(nil), c.tasks...)
}

// TaskNames returns the task names in execution order.
func (c *Crew) TaskNames() []string {
	names := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		names[i] = t.Name
	}
	return names
}

// TaskIndex returns the position of the named task, or -1.
func (c *Crew) TaskIndex(name string) int {
	for i, t := range c.tasks {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// Placeholders returns the distinct {placeholder} names the crew's agents and
// tasks use, output files included, in task order.
func (c *Crew) Placeholders() []string {
	return taskPlaceholders(c.tasks)
}

// MissingInputs returns the placeholders that inputs does not supply for the
// tasks a kickoff from fromTask would execute. An empty or unknown fromTask
// covers every task.
func (c *Crew) MissingInputs(inputs map[string]string, fromTask string) []string {
	start := 0
	if i := c.TaskIndex(fromTask); i > 0 {
		start = i
	}
	return missingInputs(c.tasks[start:], inputs)
}
