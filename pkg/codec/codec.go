package codec

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
	"github.com/teslashibe/go-locomotion/pkg/series"
)

// TrajectoryKey is one root-relative trajectory sample on the ground plane.
type TrajectoryKey struct {
	Position  series.Vec2 // x, z
	Direction series.Vec2 // forward x, z
	Velocity  series.Vec2 // x, z
	Speed     float64
}

// TrajectoryFrame holds the trajectory keys of one frame.
type TrajectoryFrame []TrajectoryKey

// JointsFrame holds per-joint state for one frame, in root space.
type JointsFrame struct {
	Positions  []r3.Vec
	Rotations  []quat.Number
	Velocities []r3.Vec
}

// Len returns the number of joints, or -1 when the slices disagree.
func (f JointsFrame) Len() int {
	n := len(f.Positions)
	if len(f.Rotations) != n || len(f.Velocities) != n {
		return -1
	}
	return n
}

// Clone returns a deep copy.
func (f JointsFrame) Clone() JointsFrame {
	return JointsFrame{
		Positions:  append([]r3.Vec(nil), f.Positions...),
		Rotations:  append([]quat.Number(nil), f.Rotations...),
		Velocities: append([]r3.Vec(nil), f.Velocities...),
	}
}

// Output is a decoded model output.
type Output struct {
	// Delta is the root displacement (X, Y on the ground plane) and turn
	// angle in radians (Z).
	Delta r3.Vec

	// Trajectory holds the predicted future keys, root-relative.
	Trajectory TrajectoryFrame

	// Joints holds the predicted pose.
	Joints JointsFrame

	// Phases, Amplitudes and Frequencies are indexed [slot][channel].
	Phases      [][]series.Vec2
	Amplitudes  [][]float64
	Frequencies [][]float64
}

// BuildInputTensor flattens a frame into the model input vector.
func (l Layout) BuildInputTensor(traj TrajectoryFrame, joints JointsFrame, phases []series.Vec2) ([]float32, error) {
	if len(traj) != l.TrajectoryKeys {
		return nil, fmt.Errorf("%w: %d trajectory keys, want %d", ErrInputShape, len(traj), l.TrajectoryKeys)
	}
	if joints.Len() != l.Joints {
		return nil, fmt.Errorf("%w: %d/%d/%d joints, want %d", ErrInputShape,
			len(joints.Positions), len(joints.Rotations), len(joints.Velocities), l.Joints)
	}
	if len(phases) != l.PhaseChannels*l.PhaseKeys {
		return nil, fmt.Errorf("%w: %d phase entries, want %d", ErrInputShape, len(phases), l.PhaseChannels*l.PhaseKeys)
	}

	in := make([]float32, 0, l.InputSize())

	for _, k := range traj {
		in = append(in,
			float32(k.Position[0]), float32(k.Position[1]),
			float32(k.Direction[0]), float32(k.Direction[1]),
			float32(k.Velocity[0]), float32(k.Velocity[1]),
			float32(k.Speed),
		)
	}

	for i := 0; i < l.Joints; i++ {
		p, v := joints.Positions[i], joints.Velocities[i]
		r := geom.ConvertRotationTo6D(joints.Rotations[i])
		in = append(in, float32(p.X), float32(p.Y), float32(p.Z))
		for _, x := range r {
			in = append(in, float32(x))
		}
		in = append(in, float32(v.X), float32(v.Y), float32(v.Z))
	}

	for _, p := range phases {
		in = append(in, float32(p[0]), float32(p[1]))
	}

	return in, nil
}

// DecodeOutput parses a model output vector. The vector must be exactly
// OutputSize long.
func (l Layout) DecodeOutput(out []float32) (*Output, error) {
	if len(out) != l.OutputSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrOutputLength, len(out), l.OutputSize())
	}

	r := reader{buf: out}
	o := &Output{
		Delta:      r3.Vec{X: r.next(), Y: r.next(), Z: r.next()},
		Trajectory: make(TrajectoryFrame, l.FutureTrajectoryKeys()),
		Joints: JointsFrame{
			Positions:  make([]r3.Vec, l.Joints),
			Rotations:  make([]quat.Number, l.Joints),
			Velocities: make([]r3.Vec, l.Joints),
		},
	}

	for i := range o.Trajectory {
		o.Trajectory[i] = TrajectoryKey{
			Position:  series.Vec2{r.next(), r.next()},
			Direction: series.Vec2{r.next(), r.next()},
			Velocity:  series.Vec2{r.next(), r.next()},
			Speed:     r.next(),
		}
	}

	for i := 0; i < l.Joints; i++ {
		o.Joints.Positions[i] = r.vec3()
		var r6 geom.Rotation6D
		for j := range r6 {
			r6[j] = r.next()
		}
		o.Joints.Rotations[i] = geom.Convert6DToRotation(r6)
		o.Joints.Velocities[i] = r.vec3()
	}

	slots := l.FuturePhaseSlots()
	o.Phases = make([][]series.Vec2, slots)
	o.Amplitudes = make([][]float64, slots)
	o.Frequencies = make([][]float64, slots)
	for s := 0; s < slots; s++ {
		o.Phases[s] = make([]series.Vec2, l.PhaseChannels)
		o.Amplitudes[s] = make([]float64, l.PhaseChannels)
		o.Frequencies[s] = make([]float64, l.PhaseChannels)
		for c := range o.Phases[s] {
			o.Phases[s][c] = series.Vec2{r.next(), r.next()}
		}
		for c := range o.Amplitudes[s] {
			o.Amplitudes[s][c] = r.next()
		}
		for c := range o.Frequencies[s] {
			o.Frequencies[s][c] = r.next()
		}
	}

	return o, nil
}

type reader struct {
	buf []float32
	pos int
}

func (r *reader) next() float64 {
	v := r.buf[r.pos]
	r.pos++
	return float64(v)
}

func (r *reader) vec3() r3.Vec {
	return r3.Vec{X: r.next(), Y: r.next(), Z: r.next()}
}
