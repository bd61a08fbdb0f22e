package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys returns every settable configuration key in display order.
func Keys() []string {
	return []string{
		"anthropic.api_key",
		"anthropic.model",
		"anthropic.max_tokens",
		"anthropic.use_bedrock",
		"anthropic.aws_region",
		"anthropic.aws_profile",
		"crew.agents_config",
		"crew.tasks_config",
		"crew.output_dir",
		"crew.retry_delay",
		"timeouts.run",
		"state.path",
		"log.level",
	}
}

// Get returns a configuration value by dot-notation key. The API key is masked.
func (c *Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return MaskAPIKey(c.Anthropic.APIKey), nil
	case "anthropic.model":
		return c.Anthropic.Model, nil
	case "anthropic.max_tokens":
		return strconv.FormatInt(c.Anthropic.MaxTokens, 10), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(c.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return c.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return c.Anthropic.AWSProfile, nil
	case "crew.agents_config":
		return c.Crew.AgentsConfig, nil
	case "crew.tasks_config":
		return c.Crew.TasksConfig, nil
	case "crew.output_dir":
		return c.Crew.OutputDir, nil
	case "crew.retry_delay":
		return c.Crew.RetryDelay.String(), nil
	case "timeouts.run":
		return c.Timeouts.Run.String(), nil
	case "state.path":
		return c.State.Path, nil
	case "log.level":
		return c.Log.Level, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set assigns a configuration value by dot-notation key.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		c.Anthropic.APIKey = value
	case "anthropic.model":
		c.Anthropic.Model = value
	case "anthropic.max_tokens":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value for anthropic.max_tokens: %q", value)
		}
		c.Anthropic.MaxTokens = n
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.use_bedrock: %w", err)
		}
		c.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		c.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		c.Anthropic.AWSProfile = value
	case "crew.agents_config":
		c.Crew.AgentsConfig = value
	case "crew.tasks_config":
		c.Crew.TasksConfig = value
	case "crew.output_dir":
		c.Crew.OutputDir = value
	case "crew.retry_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for crew.retry_delay: %w", err)
		}
		c.Crew.RetryDelay = d
	case "timeouts.run":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.run: %w", err)
		}
		c.Timeouts.Run = d
	case "state.path":
		c.State.Path = value
	case "log.level":
		switch strings.ToLower(value) {
		case "trace", "debug", "info", "warn", "error":
			c.Log.Level = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log level: %q", value)
		}
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
