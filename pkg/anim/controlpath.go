package anim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// Test path defaults used when no control path is supplied.
const (
	TestPathSamples = 360
	TestPathStride  = 0.07
)

// TestControlPath returns a closed circular path of samples waypoints, one
// per frame. The first waypoint sits at origin; each subsequent one advances
// by step rotated by the current heading, and the heading turns a full
// circle over the path. startAngle is the initial heading in radians.
func TestControlPath(samples int, origin, step r3.Vec, startAngle float64) *ControlPath {
	path := &ControlPath{Points: make([]ControlPoint, 0, samples)}
	if samples <= 0 {
		return path
	}

	turn := 2 * math.Pi / float64(samples)
	pos := origin
	for i := 0; i < samples; i++ {
		heading := geom.AngleAxis(startAngle+float64(i)*turn, geom.Up)
		delta := geom.Rotate(heading, step)
		if i > 0 {
			pos = r3.Add(pos, delta)
		}
		path.Points = append(path.Points, ControlPoint{
			Frame:    i,
			Position: pos,
			LookAt:   geom.YawRotation(delta),
			Velocity: r3.Norm(step) * DefaultFrameRate,
		})
	}
	return path
}

// DefaultTestControlPath returns the fallback path substituted for an empty
// control path.
func DefaultTestControlPath() *ControlPath {
	return TestControlPath(TestPathSamples, r3.Vec{}, r3.Vec{Z: TestPathStride}, 0)
}

// Resample returns a path with one waypoint per frame between the first and
// last timestamps, interpolating position and slerping look-at. Paths whose
// timestamps are not strictly increasing, or that are already dense, are
// returned as a copy unchanged.
func (p *ControlPath) Resample() *ControlPath {
	out := &ControlPath{Points: append([]ControlPoint(nil), p.Points...)}
	n := len(p.Points)
	if n < 2 {
		return out
	}
	for i := 1; i < n; i++ {
		if p.Points[i].Frame <= p.Points[i-1].Frame {
			return out
		}
	}

	first, last := p.Points[0].Frame, p.Points[n-1].Frame
	if last-first+1 == n {
		return out
	}

	dense := make([]ControlPoint, 0, last-first+1)
	seg := 0
	for f := first; f <= last; f++ {
		for seg < n-2 && p.Points[seg+1].Frame < f {
			seg++
		}
		a, b := p.Points[seg], p.Points[seg+1]
		t := float64(f-a.Frame) / float64(b.Frame-a.Frame)
		if t > 1 {
			t = 1
		}
		dense = append(dense, ControlPoint{
			Frame:    f,
			Position: geom.Lerp(a.Position, b.Position, t),
			LookAt:   geom.Slerp(a.LookAt, b.LookAt, t),
			Velocity: a.Velocity + t*(b.Velocity-a.Velocity),
		})
	}
	out.Points = dense
	return out
}
