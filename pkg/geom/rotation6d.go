package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation6D is the continuous rotation encoding consumed by the model:
// the first two columns of the rotation matrix, each normalized.
type Rotation6D [6]float64

// Mat3 is a 3x3 rotation matrix stored by columns.
type Mat3 [3]r3.Vec

// ToMatrix returns the rotation matrix of the unit quaternion q.
func ToMatrix(q quat.Number) Mat3 {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	return Mat3{
		{X: 1 - 2*(y*y+z*z), Y: 2 * (x*y + w*z), Z: 2 * (x*z - w*y)},
		{X: 2 * (x*y - w*z), Y: 1 - 2*(x*x+z*z), Z: 2 * (y*z + w*x)},
		{X: 2 * (x*z + w*y), Y: 2 * (y*z - w*x), Z: 1 - 2*(x*x+y*y)},
	}
}

// FromMatrix converts an orthonormal rotation matrix to a unit quaternion.
func FromMatrix(m Mat3) quat.Number {
	// Element (row r, column c) is m[c] component r.
	m00, m11, m22 := m[0].X, m[1].Y, m[2].Z
	trace := m00 + m11 + m22

	var q quat.Number
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{
			Real: 0.25 * s,
			Imag: (m[1].Z - m[2].Y) / s,
			Jmag: (m[2].X - m[0].Z) / s,
			Kmag: (m[0].Y - m[1].X) / s,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{
			Real: (m[1].Z - m[2].Y) / s,
			Imag: 0.25 * s,
			Jmag: (m[1].X + m[0].Y) / s,
			Kmag: (m[2].X + m[0].Z) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{
			Real: (m[2].X - m[0].Z) / s,
			Imag: (m[1].X + m[0].Y) / s,
			Jmag: 0.25 * s,
			Kmag: (m[2].Y + m[1].Z) / s,
		}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{
			Real: (m[0].Y - m[1].X) / s,
			Imag: (m[2].X + m[0].Z) / s,
			Jmag: (m[2].Y + m[1].Z) / s,
			Kmag: 0.25 * s,
		}
	}
	return Normalize(q)
}

// ConvertRotationTo6D encodes q as its normalized first two matrix columns.
func ConvertRotationTo6D(q quat.Number) Rotation6D {
	m := ToMatrix(q)
	a, b := Unit(m[0]), Unit(m[1])
	return Rotation6D{a.X, a.Y, a.Z, b.X, b.Y, b.Z}
}

// Convert6DToRotation decodes a 6D rotation. The two columns are
// orthonormalized with Gram-Schmidt and the third axis is their cross
// product. Degenerate input decodes to the identity.
func Convert6DToRotation(r Rotation6D) quat.Number {
	a := Unit(r3.Vec{X: r[0], Y: r[1], Z: r[2]})
	b := r3.Vec{X: r[3], Y: r[4], Z: r[5]}
	b = Unit(r3.Sub(b, r3.Scale(r3.Dot(a, b), a)))
	if r3.Norm(a) < epsilon || r3.Norm(b) < epsilon {
		return IdentityQuat()
	}
	c := r3.Cross(a, b)
	return FromMatrix(Mat3{a, b, c})
}

// ConvertRotationsTo6D encodes a slice of rotations.
func ConvertRotationsTo6D(qs []quat.Number) []Rotation6D {
	out := make([]Rotation6D, len(qs))
	for i, q := range qs {
		out[i] = ConvertRotationTo6D(q)
	}
	return out
}
