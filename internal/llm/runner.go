package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/devcrew/internal/crew"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

var _ crew.LLM = (*Runner)(nil)

// Runner performs text-in/text-out completions for crew agents.
type Runner struct {
	client *Client
}

// NewRunner creates a new API runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client}
}

// Client returns the underlying client.
func (r *Runner) Client() *Client {
	return r.client
}

// Call sends the agent persona as the system block and the task prompt as the
// single user message.
func (r *Runner) Call(ctx context.Context, req crew.Request) (crew.Response, error) {
	model := r.client.ResolveModel(req.Model)
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: r.client.MaxTokens(),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := r.client.inner.Messages.New(ctx, params)
	if err != nil {
		return crew.Response{}, fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	logger := xlog.FromContext(ctx, "llm")
	logger.Debug().
		Str("model", string(model)).
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Str("stop_reason", string(resp.StopReason)).
		Msg("completion")

	text := textOf(resp)
	if strings.TrimSpace(text) == "" {
		return crew.Response{}, ErrEmptyResponse
	}
	if resp.StopReason == anthropic.StopReasonMaxTokens {
		logger.Warn().
			Str("model", string(model)).
			Int64("max_tokens", r.client.MaxTokens()).
			Msg("completion truncated, raise anthropic.max_tokens")
		return crew.Response{}, fmt.Errorf("%w: stopped after %d output tokens (anthropic.max_tokens is %d)",
			crew.ErrOutputTruncated, resp.Usage.OutputTokens, r.client.MaxTokens())
	}

	return crew.Response{
		Text: text,
		Usage: crew.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func textOf(resp *anthropic.Message) string {
	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String()
}
