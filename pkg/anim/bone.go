package anim

import (
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// bracket locates frame within n sorted keys. It returns the indices of the
// surrounding keys and the blend factor between them. Frames outside the
// keyed range clamp to the nearest endpoint.
func bracket(n int, frameAt func(int) float64, frame float64) (lo, hi int, t float64) {
	idx := sort.Search(n, func(i int) bool {
		return frameAt(i) > frame
	})

	if idx == 0 {
		return 0, 0, 0
	}
	if idx >= n {
		return n - 1, n - 1, 0
	}

	lo, hi = idx-1, idx
	f0, f1 := frameAt(lo), frameAt(hi)
	if f1 == f0 {
		return lo, lo, 0
	}
	return lo, hi, (frame - f0) / (f1 - f0)
}

// Position returns the bone translation at frame. An empty track yields
// the zero vector.
func (b *Bone) Position(frame float64) r3.Vec {
	n := len(b.PositionKeys)
	if n == 0 {
		return r3.Vec{}
	}
	lo, hi, t := bracket(n, func(i int) float64 { return b.PositionKeys[i].Frame }, frame)
	return geom.Lerp(b.PositionKeys[lo].Value, b.PositionKeys[hi].Value, t)
}

// Orientation returns the bone rotation at frame. An empty track yields
// the identity.
func (b *Bone) Orientation(frame float64) quat.Number {
	n := len(b.RotationKeys)
	if n == 0 {
		return geom.IdentityQuat()
	}
	lo, hi, t := bracket(n, func(i int) float64 { return b.RotationKeys[i].Frame }, frame)
	if lo == hi {
		return b.RotationKeys[lo].Value
	}
	return geom.Slerp(b.RotationKeys[lo].Value, b.RotationKeys[hi].Value, t)
}

// Scale returns the bone scale at frame. An empty track yields unit scale.
func (b *Bone) Scale(frame float64) r3.Vec {
	n := len(b.ScaleKeys)
	if n == 0 {
		return r3.Vec{X: 1, Y: 1, Z: 1}
	}
	lo, hi, t := bracket(n, func(i int) float64 { return b.ScaleKeys[i].Frame }, frame)
	return geom.Lerp(b.ScaleKeys[lo].Value, b.ScaleKeys[hi].Value, t)
}

// Snapshot returns a copy of the bone holding a single key per track,
// sampled at frame and keyed at frame 0.
func (b *Bone) Snapshot(frame float64) Bone {
	return Bone{
		Name:             b.Name,
		ID:               b.ID,
		PositionKeys:     []KeyPosition{{Value: b.Position(frame)}},
		RotationKeys:     []KeyRotation{{Value: b.Orientation(frame)}},
		ScaleKeys:        []KeyScale{{Value: b.Scale(frame)}},
		RestingTransform: b.RestingTransform,
		RestingRotation:  b.RestingRotation,
	}
}
