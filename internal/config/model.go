package config

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-locomotion/pkg/inference"
)

// NewModel builds the model described by m: a client for the primary
// server, a fallback chain when fallbacks are configured, and a
// normalizing wrapper when a stats file is set.
func NewModel(m Model, logger *slog.Logger) (inference.Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	urls := append([]string{m.URL}, m.Fallbacks...)

	clients := make([]inference.Model, 0, len(urls))
	for _, url := range urls {
		c, err := inference.NewClient(
			inference.WithBaseURL(url),
			inference.WithModel(m.Name),
			inference.WithAPIKey(m.APIKey),
			inference.WithTimeout(m.Timeout),
			inference.WithRetry(m.MaxRetries, m.RetryDelay),
			inference.WithLogger(logger),
		)
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("model %s: %w", url, err)
		}
		clients = append(clients, c)
	}

	var model inference.Model = clients[0]
	if len(clients) > 1 {
		chain, err := inference.NewChainWithLogger(logger, clients...)
		if err != nil {
			closeAll(clients)
			return nil, err
		}
		model = chain
	}

	if m.Stats == "" {
		return model, nil
	}
	stats, err := inference.LoadStats(m.Stats)
	if err != nil {
		model.Close()
		return nil, err
	}
	norm, err := inference.NewNormalized(model, stats)
	if err != nil {
		model.Close()
		return nil, err
	}
	return norm, nil
}

func closeAll(models []inference.Model) {
	for _, m := range models {
		m.Close()
	}
}
