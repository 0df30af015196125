package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-9

// IdentityQuat returns the identity rotation.
func IdentityQuat() quat.Number {
	return quat.Number{Real: 1}
}

// orIdentity maps the zero quaternion to the identity.
func orIdentity(q quat.Number) quat.Number {
	if q == (quat.Number{}) {
		return IdentityQuat()
	}
	return q
}

// Normalize returns q scaled to unit length. A zero quaternion becomes
// the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < epsilon {
		return IdentityQuat()
	}
	return quat.Scale(1/n, q)
}

// AngleAxis returns the rotation of angle radians about axis.
func AngleAxis(angle float64, axis r3.Vec) quat.Number {
	return quat.Number(r3.NewRotation(angle, Unit(axis)))
}

// Rotate applies the unit quaternion q to v. The zero quaternion is
// treated as the identity so zero-value Transforms are usable.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	if q == (quat.Number{}) {
		return v
	}
	return r3.Rotation(q).Rotate(v)
}

// Dot returns the four-dimensional dot product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Slerp spherically interpolates between a and b along the shorter arc.
func Slerp(a, b quat.Number, t float64) quat.Number {
	a, b = orIdentity(a), orIdentity(b)
	cos := Dot(a, b)
	if cos < 0 {
		b = quat.Scale(-1, b)
		cos = -cos
	}

	// Nearly parallel: sin(theta) vanishes, fall back to nlerp.
	if cos > 1-1e-6 {
		return Normalize(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return quat.Add(quat.Scale(wa, a), quat.Scale(wb, b))
}

// RotationBetween returns the shortest rotation taking direction from onto
// direction to. Both are normalized first; a zero vector yields the
// identity.
func RotationBetween(from, to r3.Vec) quat.Number {
	from, to = Unit(from), Unit(to)
	if from == (r3.Vec{}) || to == (r3.Vec{}) {
		return IdentityQuat()
	}
	cos := r3.Dot(from, to)

	if cos >= 1-1e-6 {
		return IdentityQuat()
	}

	if cos < -1+1e-6 {
		// Opposite directions: any perpendicular axis works.
		axis := r3.Cross(r3.Vec{Z: 1}, from)
		if r3.Norm2(axis) < 0.01 {
			axis = r3.Cross(r3.Vec{X: 1}, from)
		}
		return AngleAxis(math.Pi, axis)
	}

	axis := r3.Cross(from, to)
	s := math.Sqrt((1 + cos) * 2)
	inv := 1 / s
	return quat.Number{
		Real: s * 0.5,
		Imag: axis.X * inv,
		Jmag: axis.Y * inv,
		Kmag: axis.Z * inv,
	}
}

// YawRotation returns the rotation about +Y that turns Forward toward the
// planar projection of dir. A vertical or zero dir yields the identity.
func YawRotation(dir r3.Vec) quat.Number {
	flat := Planar(dir)
	if r3.Norm(flat) < epsilon {
		return IdentityQuat()
	}
	return AngleAxis(math.Atan2(flat.X, flat.Z), Up)
}

// OrientedAngle returns the signed angle in radians from unit vector x to
// unit vector y in the plane. Counter-clockwise is positive.
func OrientedAngle(x, y [2]float64) float64 {
	cos := clamp(x[0]*y[0]+x[1]*y[1], -1, 1)
	angle := math.Acos(cos)
	if x[0]*y[1]-x[1]*y[0] < 0 {
		return -angle
	}
	return angle
}

// SameRotation reports whether a and b encode the same rotation within tol,
// treating q and -q as equal.
func SameRotation(a, b quat.Number, tol float64) bool {
	return math.Abs(math.Abs(Dot(Normalize(a), Normalize(b)))-1) <= tol
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
