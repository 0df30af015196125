// Package codec converts between the controller's state and the flat
// float32 vectors the locomotion model consumes and produces.
//
// The field order here is fixed by the trained model:
//
//	input:  trajectory keys (7 each), joints (12 each), phase embedding (2 per channel per key)
//	output: root delta (3), future trajectory keys (7 each), joints (12 each),
//	        per future phase slot: phases (2 per channel), amplitudes, frequencies
package codec

import (
	"errors"
	"fmt"
)

// Per-element widths.
const (
	TrajectoryWidth = 7  // pos.xy, dir.xy, vel.xy, speed
	JointWidth      = 12 // pos.xyz, 6D rotation, vel.xyz
	DeltaWidth      = 3
)

var (
	// ErrInputShape is returned when a frame does not match the layout.
	ErrInputShape = errors.New("codec: input frame does not match layout")

	// ErrOutputLength is returned when a model output has the wrong length.
	ErrOutputLength = errors.New("codec: output length mismatch")
)

// Layout fixes the tensor dimensions shared with the model.
type Layout struct {
	TrajectoryKeys int // trajectory keys fed to the model, past + pivot + future
	PastKeys       int // trajectory keys before the pivot
	Joints         int
	PhaseChannels  int
	PhaseKeys      int // keys in the phase window
}

// DefaultLayout returns the layout for a skeleton with joints bones.
func DefaultLayout(joints int) Layout {
	return Layout{
		TrajectoryKeys: 13,
		PastKeys:       6,
		Joints:         joints,
		PhaseChannels:  5,
		PhaseKeys:      13,
	}
}

// FutureTrajectoryKeys is the number of trajectory keys the model predicts.
func (l Layout) FutureTrajectoryKeys() int {
	return l.TrajectoryKeys - l.PastKeys - 1
}

// FuturePhaseSlots is the number of phase slots the model predicts: the
// pivot and every future key.
func (l Layout) FuturePhaseSlots() int {
	return l.FutureTrajectoryKeys() + 1
}

// InputSize is the length of the model input vector.
func (l Layout) InputSize() int {
	return TrajectoryWidth*l.TrajectoryKeys + JointWidth*l.Joints + 2*l.PhaseChannels*l.PhaseKeys
}

// OutputSize is the length of the model output vector.
func (l Layout) OutputSize() int {
	return DeltaWidth + TrajectoryWidth*l.FutureTrajectoryKeys() + JointWidth*l.Joints +
		(2+1+1)*l.PhaseChannels*l.FuturePhaseSlots()
}

// Validate checks that the layout is usable.
func (l Layout) Validate() error {
	switch {
	case l.TrajectoryKeys <= 0 || l.PastKeys < 0 || l.FutureTrajectoryKeys() < 0:
		return fmt.Errorf("codec: invalid trajectory keys %d (past %d)", l.TrajectoryKeys, l.PastKeys)
	case l.Joints <= 0:
		return fmt.Errorf("codec: invalid joint count %d", l.Joints)
	case l.PhaseChannels <= 0 || l.PhaseKeys <= 0:
		return fmt.Errorf("codec: invalid phase shape %dx%d", l.PhaseKeys, l.PhaseChannels)
	}
	return nil
}
