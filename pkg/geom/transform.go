// Package geom provides the rigid-body math used by the locomotion generator.
//
// Vectors are gonum r3.Vec and rotations are unit quaternions (quat.Number).
// The character's up axis is +Y and its forward axis is +Z; planar motion
// happens in the XZ plane.
package geom

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Common axes.
var (
	Up      = r3.Vec{Y: 1}
	Forward = r3.Vec{Z: 1}
)

// Transform is a rigid transform: a rotation followed by a translation.
// It stands in for a 4x4 matrix without scale or shear.
type Transform struct {
	Position r3.Vec
	Rotation quat.Number
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: IdentityQuat()}
}

// Translate returns a pure translation.
func Translate(v r3.Vec) Transform {
	return Transform{Position: v, Rotation: IdentityQuat()}
}

// FromRotation returns a pure rotation.
func FromRotation(q quat.Number) Transform {
	return Transform{Rotation: q}
}

// NewTransform builds a transform from a translation and a rotation,
// equivalent to translate(p) * toMat4(q).
func NewTransform(p r3.Vec, q quat.Number) Transform {
	return Transform{Position: p, Rotation: q}
}

// Mul composes a and b so that the result applies b first, then a.
func Mul(a, b Transform) Transform {
	return Transform{
		Position: r3.Add(a.Position, Rotate(a.Rotation, b.Position)),
		Rotation: Normalize(quat.Mul(a.rotation(), b.rotation())),
	}
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(t.rotation())
	return Transform{
		Position: r3.Scale(-1, Rotate(inv, t.Position)),
		Rotation: inv,
	}
}

// rotation returns the transform's rotation, mapping the zero value to
// the identity.
func (t Transform) rotation() quat.Number {
	return orIdentity(t.Rotation)
}

// Apply transforms a point.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Position, Rotate(t.Rotation, p))
}

// ApplyDir transforms a direction, ignoring translation.
func (t Transform) ApplyDir(d r3.Vec) r3.Vec {
	return Rotate(t.Rotation, d)
}

// PositionTo expresses the world point p in the space of root.
func PositionTo(p r3.Vec, root Transform) r3.Vec {
	return root.Inverse().Apply(p)
}

// DirectionTo expresses the world direction d in the space of root and
// normalizes the result.
func DirectionTo(d r3.Vec, root Transform) r3.Vec {
	return Unit(root.Inverse().ApplyDir(d))
}

// VelocityTo expresses the world velocity v in the space of root.
// Unlike DirectionTo the magnitude is kept.
func VelocityTo(v r3.Vec, root Transform) r3.Vec {
	return root.Inverse().ApplyDir(v)
}

// MixTransform blends a toward b, lerping the translation by wTranslation
// and slerping the rotation by wRotation.
func MixTransform(a, b Transform, wTranslation, wRotation float64) Transform {
	return Transform{
		Position: Lerp(a.Position, b.Position, wTranslation),
		Rotation: Slerp(a.rotation(), b.rotation(), wRotation),
	}
}

// Lerp linearly interpolates between two vectors.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Unit returns v normalized, or the zero vector when v has no length.
func Unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < epsilon {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// Planar drops the height component of v.
func Planar(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}
