package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientInfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/gnn:predict" {
			t.Errorf("Expected /v1/models/gnn:predict, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Instances) != 1 || len(req.Instances[0]) != 3 {
			t.Errorf("Unexpected instances: %v", req.Instances)
		}

		// Echo the input doubled.
		out := make([]float32, len(req.Instances[0]))
		for i, v := range req.Instances[0] {
			out[i] = v * 2
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float32{out}})
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithModel("gnn"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	out, err := client.Infer(context.Background(), []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(out) != 3 || out[2] != 6 {
		t.Errorf("Unexpected output: %v", out)
	}
}

func TestClientShapeCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float32{{1, 2}}})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithShape(3, 4))
	defer client.Close()

	if _, err := client.Infer(context.Background(), []float32{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for input, got %v", err)
	}
	if _, err := client.Infer(context.Background(), []float32{1, 2, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch for output, got %v", err)
	}
}

func TestClientEmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions": []}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	if _, err := client.Infer(context.Background(), []float32{1}); !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("Expected ErrEmptyOutput, got %v", err)
	}
}

func TestClientRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": "warming up"}`))
			return
		}
		json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float32{{7}}})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(3, time.Millisecond))
	defer client.Close()

	out, err := client.Infer(context.Background(), []float32{1})
	if err != nil {
		t.Fatalf("Infer failed after retries: %v", err)
	}
	if out[0] != 7 || attempts.Load() != 3 {
		t.Errorf("out=%v attempts=%d", out, attempts.Load())
	}
}

func TestClientNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad instances"}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(3, time.Millisecond))
	defer client.Close()

	_, err := client.Infer(context.Background(), []float32{1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 APIError, got %v", err)
	}
	if apiErr.Message != "bad instances" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestClientRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(2, time.Millisecond))
	defer client.Close()

	_, err := client.Infer(context.Background(), []float32{1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
		t.Fatalf("Expected rate limit APIError, got %v", err)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "model gnn not found"}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithModel("gnn"))
	defer client.Close()

	_, err := client.Infer(context.Background(), []float32{1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsNotFound() || apiErr.IsRetryable() {
		t.Errorf("Unexpected classification: %+v", apiErr)
	}
	if apiErr.Message != "model gnn not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClientHealth(t *testing.T) {
	ready := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/locomotion" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(modelStatus{Name: "locomotion", Ready: &ready})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	ready = false
	if err := client.Health(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(WithBaseURL("")); !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("Expected ErrNoBaseURL, got %v", err)
	}
	if _, err := NewClient(WithModel("")); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}
}

func TestChainFallback(t *testing.T) {
	failing := WithError(errors.New("model 1 failed"))
	empty := &Mock{InferFunc: func(ctx context.Context, input []float32) ([]float32, error) {
		return nil, nil
	}}
	working := NewMock(4)

	chain, err := NewChain(failing, empty, working)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	defer chain.Close()

	out, err := chain.Infer(context.Background(), []float32{1})
	if err != nil {
		t.Fatalf("Chain infer failed: %v", err)
	}
	if len(out) != 4 {
		t.Errorf("Expected 4 outputs, got %d", len(out))
	}
	if working.CallCount("Infer") != 1 || empty.CallCount("Infer") != 1 {
		t.Errorf("Each model should be tried once")
	}
}

func TestChainAllFail(t *testing.T) {
	chain, _ := NewChain(WithError(errors.New("a")), WithError(errors.New("b")))
	defer chain.Close()

	_, err := chain.Infer(context.Background(), nil)
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(chainErr.Errors))
	}

	if err := chain.Health(context.Background()); err == nil {
		t.Error("Expected health error when all models fail")
	}
}

func TestNewChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Expected ErrModelUnavailable, got %v", err)
	}
}

func TestEmptyAt(t *testing.T) {
	m := EmptyAt(2, 5)
	for i := 0; i < 4; i++ {
		out, err := m.Infer(context.Background(), nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		want := 5
		if i >= 2 {
			want = 0
		}
		if len(out) != want {
			t.Errorf("call %d: len %d, want %d", i, len(out), want)
		}
	}
}

func TestNormalized(t *testing.T) {
	var seen []float32
	inner := &Mock{InferFunc: func(ctx context.Context, input []float32) ([]float32, error) {
		seen = append([]float32(nil), input...)
		return []float32{1, -1}, nil
	}}

	stats := &Stats{
		InputMean:  []float32{10, 0},
		InputStd:   []float32{2, 0},
		OutputMean: []float32{5, 5},
		OutputStd:  []float32{3, 0.5},
	}
	n, err := NewNormalized(inner, stats)
	if err != nil {
		t.Fatalf("NewNormalized failed: %v", err)
	}

	out, err := n.Infer(context.Background(), []float32{14, 3})
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if seen[0] != 2 || seen[1] != 3 {
		t.Errorf("normalized input = %v, want [2 3]", seen)
	}
	if out[0] != 8 || out[1] != 4.5 {
		t.Errorf("denormalized output = %v, want [8 4.5]", out)
	}

	if _, err := n.Infer(context.Background(), []float32{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
	if s := n.Shape(); s.InputSize != 2 || s.OutputSize != 2 {
		t.Errorf("Shape = %+v", s)
	}
}

func TestLoadStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	data := `{"input_mean": [1], "input_std": [2], "output_mean": [], "output_std": []}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadStats(path)
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if len(s.InputMean) != 1 || s.InputStd[0] != 2 {
		t.Errorf("Unexpected stats: %+v", s)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"input_mean": [1, 2], "input_std": [1]}`), 0o644)
	if _, err := LoadStats(bad); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}
