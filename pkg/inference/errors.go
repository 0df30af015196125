package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoModel is returned when a model name is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrNoBaseURL is returned when the server URL is missing.
	ErrNoBaseURL = errors.New("inference: base URL required")

	// ErrModelUnavailable is returned when no models are available.
	ErrModelUnavailable = errors.New("inference: model unavailable")

	// ErrEmptyOutput is returned when a model produces no values.
	ErrEmptyOutput = errors.New("inference: empty output")

	// ErrShapeMismatch is returned when a vector has the wrong length.
	ErrShapeMismatch = errors.New("inference: shape mismatch")
)

// APIError represents an error response from a model server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the server.
	Message string

	// Source identifies which model returned the error.
	Source string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Source, e.StatusCode, e.Message)
}

// IsNotFound returns true if the model was not found (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ModelError wraps an error with model context.
type ModelError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with model context.
func WrapError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &ModelError{Source: source, Err: err}
}

// ChainError aggregates errors from all models in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "inference chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("inference chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("inference chain: all %d models failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
