package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/devcrew/internal/config"
	"github.com/ShayCichocki/devcrew/internal/llm"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

// createRunner builds the crew LLM from configuration. The API key comes from
// the environment or the config file unless Bedrock is enabled.
func createRunner(cfg *config.Config) (*llm.Runner, error) {
	apiKey, source, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		MaxTokens:     cfg.Anthropic.MaxTokens,
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	logger := xlog.WithComponent("cli")
	logger.Debug().
		Str("key_source", string(source)).
		Str("model", string(client.Model())).
		Msg("llm client ready")

	return llm.NewRunner(client), nil
}
