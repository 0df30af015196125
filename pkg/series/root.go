package series

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// DefaultMaxTau bounds the control stiffness multiplier.
const DefaultMaxTau = 10

// RootSeries is the trajectory window around the character's root: one
// rigid transform and one velocity per sample. Samples before the pivot are
// history; samples after it are predictions pulled toward the control path.
type RootSeries struct {
	window     Window
	maxTau     float64
	transforms []geom.Transform
	velocities []r3.Vec
}

// NewRootSeries creates a series over w filled with the identity.
func NewRootSeries(w Window) *RootSeries {
	n := w.NumSamples()
	s := &RootSeries{
		window:     w,
		maxTau:     DefaultMaxTau,
		transforms: make([]geom.Transform, n),
		velocities: make([]r3.Vec, n),
	}
	s.Setup(geom.Identity())
	return s
}

// SetMaxTau changes the upper bound used to remap control stiffness.
func (s *RootSeries) SetMaxTau(maxTau float64) {
	if maxTau > 1 {
		s.maxTau = maxTau
	}
}

// Window returns the series geometry.
func (s *RootSeries) Window() Window { return s.window }

// Len returns the number of samples.
func (s *RootSeries) Len() int { return len(s.transforms) }

// Setup fills every sample with t and zero velocity.
func (s *RootSeries) Setup(t geom.Transform) {
	for i := range s.transforms {
		s.transforms[i] = t
		s.velocities[i] = r3.Vec{}
	}
}

// Shift moves every sample one step toward the past. The oldest sample is
// dropped and the last sample keeps its value until the caller overwrites it.
func (s *RootSeries) Shift() {
	copy(s.transforms, s.transforms[1:])
	copy(s.velocities, s.velocities[1:])
}

// ApplyControls shifts the window and then blends every sample from the
// pivot onward toward the control trajectory. Control slices are indexed
// relative to the pivot and must cover the rest of the window; positions
// and velocities are projected onto the ground plane. tauTranslation and
// tauRotation are stiffness values in [0,1], remapped with MapAlphaToMixValue.
func (s *RootSeries) ApplyControls(positions []r3.Vec, rotations []quat.Number, velocities []r3.Vec, tauTranslation, tauRotation float64) error {
	pivot := s.window.Pivot()
	need := s.Len() - pivot
	if len(positions) < need || len(rotations) < need || len(velocities) < need {
		return fmt.Errorf("series: controls need %d samples, got %d/%d/%d",
			need, len(positions), len(rotations), len(velocities))
	}

	s.Shift()

	tauT := MapAlphaToMixValue(tauTranslation, s.maxTau)
	tauR := MapAlphaToMixValue(tauRotation, s.maxTau)

	for i := pivot; i < s.Len(); i++ {
		c := i - pivot
		progress := float64(c) / float64(need)
		wT := CalculateMixWeight(progress, tauT)
		wR := CalculateMixWeight(progress, tauR)

		cur := s.transforms[i]
		s.transforms[i] = geom.NewTransform(
			geom.Lerp(cur.Position, geom.Planar(positions[c]), wT),
			geom.Slerp(cur.Rotation, rotations[c], wR),
		)
		s.velocities[i] = geom.Lerp(s.velocities[i], geom.Planar(velocities[c]), wT)
	}
	return nil
}

// Interpolate rebuilds every sample in [start, end) that lies between two
// keys from those keys: position and velocity are lerped, rotation is
// slerped. Samples on a key are left untouched.
func (s *RootSeries) Interpolate(start, end int) {
	res := s.window.Resolution
	for i := start; i < end; i++ {
		if i%res == 0 {
			continue
		}
		prev := (i / res) * res
		next := prev + res
		if next >= s.Len() {
			continue
		}
		w := float64(i%res) / float64(res)

		a, b := s.transforms[prev], s.transforms[next]
		s.transforms[i] = geom.NewTransform(
			geom.Lerp(a.Position, b.Position, w),
			geom.Slerp(a.Rotation, b.Rotation, w),
		)
		s.velocities[i] = geom.Lerp(s.velocities[prev], s.velocities[next], w)
	}
}

// UpdateTransform overwrites sample i.
func (s *RootSeries) UpdateTransform(i int, t geom.Transform) {
	s.transforms[i] = t
}

// UpdateVelocity overwrites the velocity of sample i.
func (s *RootSeries) UpdateVelocity(i int, v r3.Vec) {
	s.velocities[i] = v
}

// Transform returns sample i.
func (s *RootSeries) Transform(i int) geom.Transform { return s.transforms[i] }

// Position returns the translation of sample i.
func (s *RootSeries) Position(i int) r3.Vec { return s.transforms[i].Position }

// Rotation returns the rotation of sample i.
func (s *RootSeries) Rotation(i int) quat.Number { return s.transforms[i].Rotation }

// Velocity returns the velocity of sample i.
func (s *RootSeries) Velocity(i int) r3.Vec { return s.velocities[i] }

// Transforms returns a copy of every sample transform.
func (s *RootSeries) Transforms() []geom.Transform {
	return append([]geom.Transform(nil), s.transforms...)
}

// Clone returns an independent copy of the series.
func (s *RootSeries) Clone() *RootSeries {
	return &RootSeries{
		window:     s.window,
		maxTau:     s.maxTau,
		transforms: append([]geom.Transform(nil), s.transforms...),
		velocities: append([]r3.Vec(nil), s.velocities...),
	}
}

// MapAlphaToMixValue remaps a stiffness slider in [0,1] onto an exponential
// curve from 1/maxTau to maxTau, so that alpha 0.5 yields 1.
func MapAlphaToMixValue(alpha, maxTau float64) float64 {
	minTau := 1 / maxTau
	return minTau * math.Pow(maxTau/minTau, alpha)
}

// CalculateMixWeight returns the blend weight at progress in [0,1] for
// stiffness tau. Tau of at least 1 starts slowly (progress^tau); smaller
// tau front-loads the blend (1-(1-progress)^(1/tau)).
func CalculateMixWeight(progress, tau float64) float64 {
	if tau >= 1 {
		return math.Pow(progress, tau)
	}
	return 1 - math.Pow(1-progress, 1/tau)
}
