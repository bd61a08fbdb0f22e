package crew

import "strings"

// DefaultMaxRetryLimit is the number of LLM retries an agent makes when its config
// does not set max_retry_limit.
const DefaultMaxRetryLimit = 2

// Agent is an autonomous role that performs tasks through an LLM.
type Agent struct {
	// Name is the registration key, e.g. "SystemDesigner".
	Name string
	// Role is the agent's role title.
	Role string
	// Goal is the agent's personal goal.
	Goal string
	// Backstory is background injected into the system prompt.
	Backstory string
	// Model overrides the crew LLM's default model when non-empty.
	Model string
	// MaxRetryLimit is the number of retries after a failed LLM call.
	MaxRetryLimit int
	// Verbose enables per-task log output for this agent.
	Verbose bool
}

// AgentOption customises an Agent built by NewAgent.
type AgentOption func(*Agent)

// WithVerbose sets the agent's verbose flag.
func WithVerbose(v bool) AgentOption {
	return func(a *Agent) { a.Verbose = v }
}

// WithModel overrides the model from the agent config.
func WithModel(model string) AgentOption {
	return func(a *Agent) { a.Model = model }
}

// NewAgent builds an agent from its YAML record.
func NewAgent(name string, cfg AgentConfig, opts ...AgentOption) *Agent {
	a := &Agent{
		Name:          name,
		Role:          strings.TrimSpace(cfg.Role),
		Goal:          strings.TrimSpace(cfg.Goal),
		Backstory:     strings.TrimSpace(cfg.Backstory),
		Model:         cfg.LLM,
		MaxRetryLimit: DefaultMaxRetryLimit,
		Verbose:       cfg.Verbose,
	}
	if cfg.MaxRetryLimit != nil && *cfg.MaxRetryLimit >= 0 {
		a.MaxRetryLimit = *cfg.MaxRetryLimit
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// interpolated returns a copy of the agent with inputs applied to its text fields.
func (a *Agent) interpolated(inputs map[string]string) (*Agent, error) {
	cp := *a
	if err := interpolateAll(inputs, &cp.Role, &cp.Goal, &cp.Backstory); err != nil {
		return nil, err
	}
	return &cp, nil
}
