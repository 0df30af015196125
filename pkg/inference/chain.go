package inference

import (
	"context"
	"log/slog"
)

// Chain tries multiple models in order until one succeeds.
type Chain struct {
	models []Model
	logger *slog.Logger
}

// NewChain creates a model chain.
// At least one model is required.
func NewChain(models ...Model) (*Chain, error) {
	if len(models) == 0 {
		return nil, ErrModelUnavailable
	}
	return &Chain{
		models: models,
		logger: slog.Default().With("component", "inference.chain"),
	}, nil
}

// NewChainWithLogger creates a model chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, models ...Model) (*Chain, error) {
	chain, err := NewChain(models...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "inference.chain")
	return chain, nil
}

// Infer tries each model until one returns a non-empty output.
func (c *Chain) Infer(ctx context.Context, input []float32) ([]float32, error) {
	var errors []error

	for i, m := range c.models {
		out, err := m.Infer(ctx, input)
		if err == nil && len(out) == 0 {
			err = WrapError("chain", ErrEmptyOutput)
		}
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback model succeeded",
					"model_index", i,
				)
			}
			return out, nil
		}

		errors = append(errors, err)
		c.logger.Warn("model failed, trying next",
			"model_index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errors}
}

// Health checks all models and returns error if all are unhealthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error

	for _, m := range c.models {
		if err := m.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}

	if healthy == 0 {
		return WrapError("chain", lastErr)
	}

	c.logger.Debug("health check complete",
		"healthy", healthy,
		"total", len(c.models),
	)

	return nil
}

// Close closes all models.
func (c *Chain) Close() error {
	var lastErr error
	for _, m := range c.models {
		if err := m.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Models returns the list of models in the chain.
func (c *Chain) Models() []Model {
	return c.models
}

// Verify Chain implements Model at compile time.
var _ Model = (*Chain)(nil)
