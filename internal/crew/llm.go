package crew

import "context"

// Request is a single completion request made on behalf of an agent.
type Request struct {
	// Model overrides the LLM's default model when non-empty.
	Model string
	// System is the agent persona prompt.
	System string
	// Prompt is the task prompt including context.
	Prompt string
}

// Response is the text an LLM returned plus its token usage.
type Response struct {
	Text  string
	Usage Usage
}

// LLM performs completions for agents.
type LLM interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// LLMFunc adapts a function to the LLM interface.
type LLMFunc func(ctx context.Context, req Request) (Response, error)

// Call implements LLM.
func (f LLMFunc) Call(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
