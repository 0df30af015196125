package inference

import (
	"log/slog"
	"time"
)

// Config holds model client configuration.
type Config struct {
	// Connection
	BaseURL string // model server base URL
	APIKey  string // bearer token (optional)

	// Model
	Model string // model name on the server
	Shape Shape  // expected vector lengths, zero to skip checks

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring clients.
type Option func(*Config)

// WithBaseURL sets the server base URL.
// Example: "http://localhost:8080"
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithShape sets the expected input and output lengths.
func WithShape(input, output int) Option {
	return func(c *Config) { c.Shape = Shape{InputSize: input, OutputSize: output} }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for a model server on localhost.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:8080",
		Model:      "locomotion",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		RetryDelay: 50 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Model == "" {
		return ErrNoModel
	}
	return nil
}
