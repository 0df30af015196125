// Package anim provides the skeletal animation data model consumed and
// produced by the locomotion generator.
//
// A Skeleton names the bones and their hierarchy. An Animation holds one
// keyed Bone channel per skeleton bone, index-aligned with the skeleton.
// A ControlPath is the user-authored route the character should follow.
package anim

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultFrameRate is the native frame rate of generated animations.
const DefaultFrameRate = 60

// KeyPosition is a keyed translation.
type KeyPosition struct {
	Frame float64
	Value r3.Vec
}

// KeyRotation is a keyed orientation.
type KeyRotation struct {
	Frame float64
	Value quat.Number
}

// KeyScale is a keyed scale.
type KeyScale struct {
	Frame float64
	Value r3.Vec
}

// Bone is a single animation channel. Each key track is sorted by frame.
type Bone struct {
	// Name matches a skeleton bone name.
	Name string

	// ID is the bone's index in the skeleton, or -1 when unknown.
	ID int

	PositionKeys []KeyPosition
	RotationKeys []KeyRotation
	ScaleKeys    []KeyScale

	// RestingTransform and RestingRotation describe the bind pose.
	RestingTransform r3.Vec
	RestingRotation  quat.Number
}

// NumPositionKeys returns the number of position keys.
func (b *Bone) NumPositionKeys() int { return len(b.PositionKeys) }

// NumRotationKeys returns the number of rotation keys.
func (b *Bone) NumRotationKeys() int { return len(b.RotationKeys) }

// NumScaleKeys returns the number of scale keys.
func (b *Bone) NumScaleKeys() int { return len(b.ScaleKeys) }

// Animation is an ordered list of bone channels plus clip metadata.
type Animation struct {
	// Bones is index-aligned with the skeleton the animation targets.
	Bones []Bone

	// DurationFrames is the number of frames in the clip.
	DurationFrames int

	// FrameRate is frames per second. Zero means DefaultFrameRate.
	FrameRate float64

	// SourceName identifies where the clip came from.
	SourceName string

	// DataSetID and SequenceID identify the clip within a data set.
	DataSetID  string
	SequenceID int
}

// Rate returns the animation's frame rate, falling back to DefaultFrameRate.
func (a *Animation) Rate() float64 {
	if a.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return a.FrameRate
}

// Duration returns the clip length in wall-clock time.
func (a *Animation) Duration() time.Duration {
	return time.Duration(float64(a.DurationFrames) / a.Rate() * float64(time.Second))
}

// BoneByName returns the first bone with the given name.
func (a *Animation) BoneByName(name string) (*Bone, bool) {
	for i := range a.Bones {
		if a.Bones[i].Name == name {
			return &a.Bones[i], true
		}
	}
	return nil, false
}

// ControlPoint is one waypoint of a control path.
type ControlPoint struct {
	// Frame is the waypoint's timestamp in frames.
	Frame int

	// Position is the waypoint in world space, in metres.
	Position r3.Vec

	// LookAt is the desired facing of the character.
	LookAt quat.Number

	// Velocity is an optional authored speed. Zero means unspecified.
	Velocity float64
}

// ControlPath is the ordered route the generated character follows.
type ControlPath struct {
	Points []ControlPoint
}

// Len returns the number of waypoints.
func (p *ControlPath) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Points)
}
