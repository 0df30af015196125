package anim

import (
	"log/slog"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// ForwardKinematics returns the global transform of every skeleton bone at
// frame. Bones missing from the animation contribute an identity local
// transform.
func ForwardKinematics(skel *Skeleton, a *Animation, frame float64) []geom.Transform {
	globals := make([]geom.Transform, skel.NumBones())

	skel.Walk(func(i int) {
		local := geom.Identity()
		if i < len(a.Bones) {
			b := &a.Bones[i]
			local = geom.NewTransform(b.Position(frame), b.Orientation(frame))
		}

		if p := skel.Parent(i); p >= 0 {
			globals[i] = geom.Mul(globals[p], local)
		} else {
			globals[i] = local
		}
	})

	return globals
}

// GroundProjection projects a bone's global transform onto the floor: the
// position loses its height and the rotation keeps only the yaw that turns
// the bone's forward axis.
func GroundProjection(t geom.Transform) geom.Transform {
	return geom.NewTransform(
		geom.Planar(t.Position),
		geom.YawRotation(t.ApplyDir(geom.Forward)),
	)
}

// AlignToSkeleton returns a copy of a whose bones are reordered to match
// skel by name. Bones whose names are not in the skeleton are skipped with
// a warning; skeleton bones the animation lacks get an empty channel.
func AlignToSkeleton(a *Animation, skel *Skeleton, logger *slog.Logger) *Animation {
	if logger == nil {
		logger = slog.Default()
	}

	out := *a
	out.Bones = make([]Bone, skel.NumBones())
	for i, name := range skel.Names {
		out.Bones[i] = Bone{Name: name, ID: i, RestingRotation: geom.IdentityQuat()}
	}

	for _, b := range a.Bones {
		idx, err := skel.BoneIndex(b.Name)
		if err != nil {
			logger.Warn("skipping bone not in skeleton", "bone", b.Name)
			continue
		}
		b.ID = idx
		out.Bones[idx] = b
	}

	return &out
}
