package llm

import "errors"

var (
	// ErrNoAPIKey is returned when neither the config nor the environment carries an API key.
	ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY environment variable is not set")
	// ErrEmptyResponse is returned when the model answers without any text block.
	ErrEmptyResponse = errors.New("model returned no text")
)
