package locomotion

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when Generate runs before a skeleton and
	// seed animation are set.
	ErrNotInitialized = errors.New("locomotion: skeleton and animation required")

	// ErrInferenceFailed is returned when the model fails or produces no output.
	ErrInferenceFailed = errors.New("locomotion: inference failed")

	// ErrJointCountMismatch is returned when the generated joint count does
	// not match the seed animation.
	ErrJointCountMismatch = errors.New("locomotion: joint count mismatch")

	// ErrBusy is returned when Generate is called while a run is in progress.
	ErrBusy = errors.New("locomotion: generation already running")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("locomotion: invalid config")
)

// FrameError reports the frame at which generation stopped.
type FrameError struct {
	Frame int
	Err   error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	return fmt.Sprintf("locomotion: frame %d: %v", e.Frame, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameError) Unwrap() error {
	return e.Err
}
