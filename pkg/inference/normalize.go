package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Stats holds the per-feature normalization the network was trained with.
type Stats struct {
	InputMean  []float32 `json:"input_mean"`
	InputStd   []float32 `json:"input_std"`
	OutputMean []float32 `json:"output_mean"`
	OutputStd  []float32 `json:"output_std"`
}

// LoadStats reads normalization statistics from a JSON file.
func LoadStats(path string) (*Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}

	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse stats file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that means and deviations pair up.
func (s *Stats) Validate() error {
	if len(s.InputMean) != len(s.InputStd) {
		return fmt.Errorf("%w: input mean %d, std %d", ErrShapeMismatch, len(s.InputMean), len(s.InputStd))
	}
	if len(s.OutputMean) != len(s.OutputStd) {
		return fmt.Errorf("%w: output mean %d, std %d", ErrShapeMismatch, len(s.OutputMean), len(s.OutputStd))
	}
	return nil
}

// Normalized standardizes inputs and de-standardizes outputs around an
// inner model that works in normalized space. Empty stat vectors disable
// the corresponding side.
type Normalized struct {
	Model
	stats *Stats
}

// NewNormalized wraps m with stats.
func NewNormalized(m Model, stats *Stats) (*Normalized, error) {
	if err := stats.Validate(); err != nil {
		return nil, err
	}
	return &Normalized{Model: m, stats: stats}, nil
}

// Infer normalizes input, runs the inner model and denormalizes its output.
func (n *Normalized) Infer(ctx context.Context, input []float32) ([]float32, error) {
	x := input
	if len(n.stats.InputMean) > 0 {
		if len(input) != len(n.stats.InputMean) {
			return nil, WrapError("normalized", fmt.Errorf("%w: input %d, stats %d", ErrShapeMismatch, len(input), len(n.stats.InputMean)))
		}
		x = make([]float32, len(input))
		for i, v := range input {
			x[i] = (v - n.stats.InputMean[i]) / nonZero(n.stats.InputStd[i])
		}
	}

	y, err := n.Model.Infer(ctx, x)
	if err != nil || len(y) == 0 || len(n.stats.OutputMean) == 0 {
		return y, err
	}
	if len(y) != len(n.stats.OutputMean) {
		return nil, WrapError("normalized", fmt.Errorf("%w: output %d, stats %d", ErrShapeMismatch, len(y), len(n.stats.OutputMean)))
	}

	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = v*nonZero(n.stats.OutputStd[i]) + n.stats.OutputMean[i]
	}
	return out, nil
}

// Shape reports the vector lengths implied by the statistics.
func (n *Normalized) Shape() Shape {
	return Shape{InputSize: len(n.stats.InputMean), OutputSize: len(n.stats.OutputMean)}
}

func nonZero(v float32) float32 {
	if v == 0 {
		return 1
	}
	return v
}

// Verify Normalized implements Model at compile time.
var _ Model = (*Normalized)(nil)
