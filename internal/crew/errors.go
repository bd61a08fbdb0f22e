package crew

import "errors"

var (
	// ErrUnknownAgentConfig is returned when an agent name has no entry in agents.yaml.
	ErrUnknownAgentConfig = errors.New("agent config not found")
	// ErrUnknownTaskConfig is returned when a task name has no entry in tasks.yaml.
	ErrUnknownTaskConfig = errors.New("task config not found")
	// ErrMissingInput is returned when a {placeholder} has no kickoff input.
	ErrMissingInput = errors.New("missing template input")
	// ErrUnsupportedProcess is returned for process modes this runtime does not run.
	ErrUnsupportedProcess = errors.New("unsupported process")
	// ErrInvalidCrew is returned by New when the agent/task wiring is inconsistent.
	ErrInvalidCrew = errors.New("invalid crew")
	// ErrAlreadyRunning is returned when Kickoff is called on a crew that is mid-run.
	ErrAlreadyRunning = errors.New("crew is already running")
	// ErrOutputTruncated is returned by an LLM whose completion hit its output
	// token limit. The crew does not retry it.
	ErrOutputTruncated = errors.New("llm output truncated at token limit")
	// ErrMissingPriorOutput is returned when a replay lacks output for a skipped task.
	ErrMissingPriorOutput = errors.New("missing prior task output")
)
