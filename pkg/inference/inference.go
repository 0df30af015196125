// Package inference provides access to the locomotion network.
//
// The network is an opaque function from a fixed-length float32 input
// vector to a fixed-length float32 output vector. Model abstracts where it
// runs: a remote model server (Client), an ordered fallback across servers
// (Chain), a normalizing wrapper (Normalized), or a test double (Mock).
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithBaseURL("http://localhost:8080"),
//	    inference.WithModel("locomotion"),
//	)
//	defer client.Close()
//
//	out, err := client.Infer(ctx, input)
package inference

import (
	"context"
)

// Model runs one step of the locomotion network.
// All implementations must satisfy this interface.
type Model interface {
	// Infer maps one input vector to one output vector.
	Infer(ctx context.Context, input []float32) ([]float32, error)

	// Health checks that the model is loaded and reachable.
	Health(ctx context.Context) error

	// Close releases any resources held by the model.
	Close() error
}

// Shape describes the vector lengths a model expects. Zero means unchecked.
type Shape struct {
	InputSize  int
	OutputSize int
}

// Shaped is implemented by models that know their vector lengths.
type Shaped interface {
	Shape() Shape
}
