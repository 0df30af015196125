package inference

import (
	"context"
	"sync"
	"time"
)

// Mock implements Model for testing.
type Mock struct {
	// InferFunc is called when Infer is invoked.
	InferFunc func(ctx context.Context, input []float32) ([]float32, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method    string
	InputSize int
	Time      time.Time
}

// NewMock creates a mock that returns a zero vector of outputSize.
func NewMock(outputSize int) *Mock {
	return &Mock{
		InferFunc: func(ctx context.Context, input []float32) ([]float32, error) {
			return make([]float32, outputSize), nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Infer calls InferFunc and records the call.
func (m *Mock) Infer(ctx context.Context, input []float32) ([]float32, error) {
	m.record("Infer", len(input))
	if m.InferFunc != nil {
		return m.InferFunc(ctx, input)
	}
	return nil, WrapError("mock", ErrModelUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", 0)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close", 0)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string, inputSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		InputSize: inputSize,
		Time:      time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		InferFunc: func(ctx context.Context, input []float32) ([]float32, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// EmptyAt returns a mock producing zero vectors of outputSize that returns
// an empty output on its n-th Infer call (0-based) and every call after.
func EmptyAt(n, outputSize int) *Mock {
	m := &Mock{}
	m.InferFunc = func(ctx context.Context, input []float32) ([]float32, error) {
		if m.CallCount("Infer") > n {
			return []float32{}, nil
		}
		return make([]float32, outputSize), nil
	}
	return m
}

// Verify Mock implements Model at compile time.
var _ Model = (*Mock)(nil)
