package llm

import (
	"fmt"
	"log/slog"
	"time"
)

// Config selects and tunes the model behind the client.
type Config struct {
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"-"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature *float64      `yaml:"temperature" json:"temperature,omitempty"`
	MaxRetries  *int          `yaml:"max_retries" json:"max_retries,omitempty"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// DefaultConfig returns OpenAI with the catalog default model.
func DefaultConfig() Config {
	retries := DefaultRetryPolicy().MaxRetries
	return Config{
		Provider:   "openai",
		MaxTokens:  4096,
		MaxRetries: &retries,
		RetryDelay: DefaultRetryPolicy().BaseDelay,
	}
}

// Merge applies non-zero fields from source onto c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.Temperature != nil {
		c.Temperature = source.Temperature
	}
	if source.MaxRetries != nil {
		c.MaxRetries = source.MaxRetries
	}
	if source.RetryDelay > 0 {
		c.RetryDelay = source.RetryDelay
	}
}

// ResolvedModel returns the configured model or the provider default.
func (c Config) ResolvedModel() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel(c.Provider)
}

// RetryPolicy returns the retry policy described by c.
func (c Config) RetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	if c.MaxRetries != nil {
		p.MaxRetries = *c.MaxRetries
	}
	if c.RetryDelay > 0 {
		p.BaseDelay = c.RetryDelay
	}
	return p
}

// NewClientFromConfig builds a Client with one gollm-backed provider and
// request logging.
func NewClientFromConfig(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Provider == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "llm provider is empty"}}
	}
	opts := []GollmAdapterOption{WithModel(cfg.ResolvedModel())}
	if cfg.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, WithTemperature(*cfg.Temperature))
	}
	adapter, err := NewGollmAdapter(cfg.Provider, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", cfg.Provider, err)
	}
	return NewClient(
		WithProvider(cfg.Provider, adapter),
		WithMiddleware(LoggingMiddleware(logger)),
	), nil
}
