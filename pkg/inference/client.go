package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-locomotion/internal/httpc"
)

const sourceClient = "client"

// Client runs the model on a remote server speaking the KServe v1 JSON
// protocol (TorchServe, KServe, Triton and most ONNX runtimes expose it):
//
//	POST {base}/v1/models/{model}:predict  {"instances": [[...]]} -> {"predictions": [[...]]}
//	GET  {base}/v1/models/{model}          readiness
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

type predictRequest struct {
	Instances [][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
}

type modelStatus struct {
	Name  string `json:"name"`
	Ready *bool  `json:"ready,omitempty"`
}

// NewClient creates a new model client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "inference.client", "model", cfg.Model),
	}, nil
}

// Infer runs one forward pass.
func (c *Client) Infer(ctx context.Context, input []float32) ([]float32, error) {
	if n := c.config.Shape.InputSize; n > 0 && len(input) != n {
		return nil, WrapError(sourceClient, fmt.Errorf("%w: input %d, want %d", ErrShapeMismatch, len(input), n))
	}

	start := time.Now()

	resp, err := c.post(ctx, c.modelPath()+":predict", predictRequest{Instances: [][]float32{input}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(sourceClient, fmt.Errorf("decode response: %w", err))
	}

	if len(result.Predictions) == 0 || len(result.Predictions[0]) == 0 {
		return nil, WrapError(sourceClient, ErrEmptyOutput)
	}
	out := result.Predictions[0]

	if n := c.config.Shape.OutputSize; n > 0 && len(out) != n {
		return nil, WrapError(sourceClient, fmt.Errorf("%w: output %d, want %d", ErrShapeMismatch, len(out), n))
	}

	c.logger.Debug("inference complete",
		"input", len(input),
		"output", len(out),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return out, nil
}

// Shape returns the configured vector lengths.
func (c *Client) Shape() Shape {
	return c.config.Shape
}

// Health checks that the model is loaded and ready.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, c.modelPath())
	if err != nil {
		return WrapError(sourceClient, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	var status modelStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err == nil && status.Ready != nil && !*status.Ready {
		return WrapError(sourceClient, fmt.Errorf("%w: %s not ready", ErrModelUnavailable, c.config.Model))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) modelPath() string {
	return "/v1/models/" + c.config.Model
}

// post makes a POST request with JSON body.
func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(sourceClient, fmt.Errorf("marshal payload: %w", err))
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(sourceClient, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.doWithRetry(ctx, req, body)
}

// get makes a GET request.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, WrapError(sourceClient, fmt.Errorf("create request: %w", err))
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.http.Do(req)
}

// doWithRetry performs the request with retry logic.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = WrapError(sourceClient, err)
			c.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := c.parseError(resp)
			resp.Body.Close()
			if !apiErr.IsRetryable() {
				return nil, apiErr
			}
			lastErr = apiErr
			c.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (c *Client) parseError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error string `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Source:     sourceClient,
	}
}

// Verify Client implements Model at compile time.
var _ Model = (*Client)(nil)
