package openai

import (
	"errors"
	"time"

	"github.com/flemzord/crew/internal/provider"
)

// defaultTimeout bounds a single round-trip.
const defaultTimeout = 60 * time.Second

// Config holds the configuration for the provider.openai module. API keys are not
// configured here: each invocation supplies the agent's own key.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = provider.DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	if c.MaxTokens < 0 {
		return errors.New("provider.openai: max_tokens must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("provider.openai: timeout must not be negative")
	}
	return nil
}
