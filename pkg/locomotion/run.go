package locomotion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/anim"
	"github.com/teslashibe/go-locomotion/pkg/codec"
	"github.com/teslashibe/go-locomotion/pkg/geom"
	"github.com/teslashibe/go-locomotion/pkg/inference"
	"github.com/teslashibe/go-locomotion/pkg/series"
)

// progressEvery is how often, in frames, the loop logs at debug level.
const progressEvery = 60

// Progress describes the state after one generated frame.
type Progress struct {
	Frame  int            `json:"frame"`
	Total  int            `json:"total"`
	Root   geom.Transform `json:"root"`
	Phases []float64      `json:"phases"` // pivot phase per channel
}

// run is the state of one generation. It is owned by a single goroutine.
type run struct {
	cfg      Config
	window   series.Window
	layout   codec.Layout
	model    inference.Model
	skeleton *anim.Skeleton
	seed     *anim.Animation
	series   *series.RootSeries
	phases   *series.PhaseBank
	observer Observer
	logger   *slog.Logger

	// Control trajectory in model units, one sample per frame.
	ctrlPos []r3.Vec
	ctrlRot []quat.Number
	ctrlVel []r3.Vec

	initial codec.JointsFrame

	// History. roots holds the seed root followed by one root per frame.
	roots  []geom.Transform
	frames []codec.JointsFrame
}

// prepareControlTrajectory converts the path to model units: planar
// positions scaled by PositionScale and finite-difference velocities scaled
// back to path units per second.
func (r *run) prepareControlTrajectory(path *anim.ControlPath) {
	n := path.Len()
	r.ctrlPos = make([]r3.Vec, n)
	r.ctrlRot = make([]quat.Number, n)
	r.ctrlVel = make([]r3.Vec, n)

	for i, p := range path.Points {
		r.ctrlPos[i] = r3.Scale(r.cfg.PositionScale, geom.Planar(p.Position))
		r.ctrlRot[i] = geom.Normalize(p.LookAt)
		if i > 0 {
			d := r3.Sub(r.ctrlPos[i], r.ctrlPos[i-1])
			r.ctrlVel[i] = r3.Scale(r.cfg.FrameRate/r.cfg.PositionScale, d)
		}
	}
}

// controlSlice returns the n control samples starting at frame, padded
// with the last sample at rest.
func (r *run) controlSlice(frame, n int) ([]r3.Vec, []quat.Number, []r3.Vec) {
	pos := make([]r3.Vec, 0, n)
	rot := make([]quat.Number, 0, n)
	vel := make([]r3.Vec, 0, n)

	end := min(frame+n, len(r.ctrlPos))
	pos = append(pos, r.ctrlPos[frame:end]...)
	rot = append(rot, r.ctrlRot[frame:end]...)
	vel = append(vel, r.ctrlVel[frame:end]...)

	last := len(r.ctrlPos) - 1
	for len(pos) < n {
		pos = append(pos, r.ctrlPos[last])
		rot = append(rot, r.ctrlRot[last])
		vel = append(vel, r3.Vec{})
	}
	return pos, rot, vel
}

// generate runs the frame loop and assembles the animation.
func (r *run) generate(ctx context.Context) (*anim.Animation, error) {
	total := len(r.ctrlPos)
	start := time.Now()

	r.logger.Info("generating animation",
		"frames", total,
		"joints", r.layout.Joints,
		"input_size", r.layout.InputSize(),
		"output_size", r.layout.OutputSize(),
	)

	root := geom.NewTransform(r.ctrlPos[0], r.ctrlRot[0])
	r.series.Setup(root)
	r.roots = append(r.roots[:0], root)
	r.frames = r.frames[:0]
	prev := r.initial

	for frame := 0; frame < total; frame++ {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("generation cancelled", "frame", frame)
			return nil, err
		}

		joints, next, err := r.step(ctx, frame, root, prev)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Error("stopping generation",
				"frame", frame,
				"error", err,
			)
			return nil, &FrameError{Frame: frame, Err: err}
		}

		root, prev = next, joints
		r.roots = append(r.roots, root)

		if (frame+1)%progressEvery == 0 {
			r.logger.Debug("generated frames",
				"frame", frame+1,
				"total", total,
			)
		}
		if r.observer != nil {
			r.observer(r.progress(frame, total, root))
		}
	}

	out, err := BuildAnimationSequence(r.skeleton, r.seed, r.frames, r.roots)
	if err != nil {
		r.logger.Error("assembling animation failed", "error", err)
		return nil, err
	}
	out.FrameRate = r.cfg.FrameRate
	out.SourceName = "locomotion"

	r.logger.Info("animation generated",
		"frames", out.DurationFrames,
		"bones", len(out.Bones),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// step generates one frame from the current root and the previous pose.
// It returns the generated pose and the new root.
func (r *run) step(ctx context.Context, frame int, root geom.Transform, prev codec.JointsFrame) (codec.JointsFrame, geom.Transform, error) {
	pivot := r.window.Pivot()
	n := r.series.Len()

	pos, rot, vel := r.controlSlice(frame, n-pivot)
	if err := r.series.ApplyControls(pos, rot, vel, r.cfg.TauTranslation, r.cfg.TauRotation); err != nil {
		return codec.JointsFrame{}, root, err
	}

	input, err := r.layout.BuildInputTensor(r.trajectoryFrame(root), prev, r.phases.FlattenedPhaseSequence())
	if err != nil {
		return codec.JointsFrame{}, root, err
	}

	values, err := r.model.Infer(ctx, input)
	if err != nil {
		return codec.JointsFrame{}, root, fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}
	if len(values) == 0 {
		return codec.JointsFrame{}, root, fmt.Errorf("%w: empty output", ErrInferenceFailed)
	}

	out, err := r.layout.DecodeOutput(values)
	if err != nil {
		return codec.JointsFrame{}, root, fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}

	r.phases.AdvancePast()
	if err := r.phases.UpdateFuture(out.Phases, out.Frequencies, out.Amplitudes, r.cfg.NetworkPhaseBias); err != nil {
		return codec.JointsFrame{}, root, err
	}

	// Blend the predicted position with the previous one advanced by the
	// predicted velocity.
	joints := out.Joints
	step := r.cfg.PositionScale / r.cfg.FrameRate
	for i := range joints.Positions {
		advanced := r3.Add(prev.Positions[i], r3.Scale(step, joints.Velocities[i]))
		joints.Positions[i] = geom.Lerp(advanced, joints.Positions[i], 0.5)
	}
	r.frames = append(r.frames, joints)

	deltaRot := geom.AngleAxis(-out.Delta.Z, geom.Up)
	delta := geom.NewTransform(r3.Vec{X: out.Delta.X, Z: out.Delta.Y}, deltaRot)
	inferred := geom.Mul(root, delta)
	root = geom.MixTransform(inferred, r.series.Transform(pivot+1), r.cfg.RootTranslationWeight, r.cfg.RootRotationWeight)
	r.series.UpdateTransform(pivot, root)

	r.spliceFuture(root, out.Trajectory)
	r.series.Interpolate(pivot, n-1)

	return joints, root, nil
}

// trajectoryFrame samples every key of the window relative to root.
func (r *run) trajectoryFrame(root geom.Transform) codec.TrajectoryFrame {
	samples := r.window.KeySamples()
	traj := make(codec.TrajectoryFrame, len(samples))
	for k, i := range samples {
		p := geom.PositionTo(r.series.Position(i), root)
		d := geom.DirectionTo(geom.Rotate(r.series.Rotation(i), geom.Forward), root)
		v := geom.VelocityTo(r.series.Velocity(i), root)
		traj[k] = codec.TrajectoryKey{
			Position:  series.Vec2{p.X, p.Z},
			Direction: series.Vec2{d.X, d.Z},
			Velocity:  series.Vec2{v.X, v.Z},
			Speed:     r3.Norm(v),
		}
	}
	return traj
}

// spliceFuture blends the predicted root-relative future keys into the
// window in world space.
func (r *run) spliceFuture(root geom.Transform, traj codec.TrajectoryFrame) {
	bias := r.cfg.NetworkControlBias
	for j, i := range r.window.FutureKeySamples() {
		if j >= len(traj) {
			break
		}
		key := traj[j]

		dir := r3.Vec{X: key.Direction[0], Z: key.Direction[1]}
		local := geom.NewTransform(
			r3.Vec{X: key.Position[0], Z: key.Position[1]},
			geom.RotationBetween(geom.Forward, dir),
		)
		predicted := geom.Mul(root, local)

		r.series.UpdateTransform(i, geom.MixTransform(r.series.Transform(i), predicted, bias, bias))
		r.series.UpdateVelocity(i, root.ApplyDir(r3.Vec{X: key.Velocity[0], Z: key.Velocity[1]}))
	}
}

func (r *run) progress(frame, total int, root geom.Transform) Progress {
	k := r.window.PivotKey()
	phases := make([]float64, r.phases.Channels())
	for c := range phases {
		phases[c] = r.phases.Phase(k, c)
	}
	return Progress{Frame: frame, Total: total, Root: root, Phases: phases}
}

// initialPose returns the seed's first frame in the space of its
// ground-projected root. Velocities come from the first two frames when
// the seed has them.
func initialPose(skel *anim.Skeleton, seed *anim.Animation, cfg Config) codec.JointsFrame {
	n := skel.NumBones()
	pose := codec.JointsFrame{
		Positions:  make([]r3.Vec, n),
		Rotations:  make([]quat.Number, n),
		Velocities: make([]r3.Vec, n),
	}

	g0 := anim.ForwardKinematics(skel, seed, 0)
	toRoot := anim.GroundProjection(g0[skel.Root]).Inverse()
	for i := range g0 {
		local := geom.Mul(toRoot, g0[i])
		pose.Positions[i] = local.Position
		pose.Rotations[i] = local.Rotation
	}

	if seed.DurationFrames > 1 {
		g1 := anim.ForwardKinematics(skel, seed, 1)
		scale := seed.Rate() / cfg.PositionScale
		for i := range g1 {
			p1 := toRoot.Apply(g1[i].Position)
			pose.Velocities[i] = r3.Scale(scale, r3.Sub(p1, pose.Positions[i]))
		}
	}
	return pose
}
