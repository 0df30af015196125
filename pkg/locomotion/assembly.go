package locomotion

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/anim"
	"github.com/teslashibe/go-locomotion/pkg/codec"
	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// RootBoneName names the synthetic bone that carries the root motion.
const RootBoneName = "Armature"

// BuildAnimationSequence assembles generated frames into an animation.
//
// Joint rotations are converted from root space to parent space. The
// skeleton root keeps the planar root position with the generated height;
// every other joint is rotation only. A bone named RootBoneName is then
// inserted first, keyed with roots[f] for frame f, so joint j of the
// skeleton becomes bone j+1. roots must hold at least one entry per frame.
func BuildAnimationSequence(skel *anim.Skeleton, seed *anim.Animation, frames []codec.JointsFrame, roots []geom.Transform) (*anim.Animation, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no generated frames", anim.ErrEmptyAnimation)
	}
	joints := len(seed.Bones)
	if n := len(frames[0].Rotations); n != joints {
		return nil, fmt.Errorf("%w: generated %d joints, animation has %d", ErrJointCountMismatch, n, joints)
	}
	if skel.NumBones() != joints {
		return nil, fmt.Errorf("%w: skeleton has %d bones, animation has %d", ErrJointCountMismatch, skel.NumBones(), joints)
	}
	if len(roots) < len(frames) {
		return nil, fmt.Errorf("locomotion: %d root samples for %d frames", len(roots), len(frames))
	}

	bones := make([]anim.Bone, joints+1)
	bones[0] = anim.Bone{
		Name:            RootBoneName,
		ID:              -1,
		PositionKeys:    make([]anim.KeyPosition, 0, len(frames)),
		RotationKeys:    make([]anim.KeyRotation, 0, len(frames)),
		RestingRotation: geom.IdentityQuat(),
	}
	for j, src := range seed.Bones {
		bones[j+1] = anim.Bone{
			Name:             src.Name,
			ID:               src.ID,
			PositionKeys:     make([]anim.KeyPosition, 0, len(frames)),
			RotationKeys:     make([]anim.KeyRotation, 0, len(frames)),
			RestingTransform: src.RestingTransform,
			RestingRotation:  src.RestingRotation,
		}
	}

	for f, frame := range frames {
		if len(frame.Rotations) != joints || len(frame.Positions) != joints {
			return nil, fmt.Errorf("%w: frame %d has %d joints, want %d", ErrJointCountMismatch, f, len(frame.Rotations), joints)
		}

		at := float64(f)
		root := roots[f]

		// Local space is computed on skeleton indices, before the shift.
		local := ConvertRotationsToLocalSpace(skel, frame.Rotations)
		for j := range local {
			b := &bones[j+1]
			b.RotationKeys = append(b.RotationKeys, anim.KeyRotation{Frame: at, Value: local[j]})

			var p r3.Vec
			if j == skel.Root {
				p = r3.Vec{X: root.Position.X, Y: frame.Positions[j].Y, Z: root.Position.Z}
			}
			b.PositionKeys = append(b.PositionKeys, anim.KeyPosition{Frame: at, Value: p})
		}

		bones[0].PositionKeys = append(bones[0].PositionKeys, anim.KeyPosition{Frame: at, Value: geom.Planar(root.Position)})
		bones[0].RotationKeys = append(bones[0].RotationKeys, anim.KeyRotation{Frame: at, Value: root.Rotation})
	}

	return &anim.Animation{
		Bones:          bones,
		DurationFrames: len(frames),
		FrameRate:      seed.FrameRate,
		SourceName:     seed.SourceName,
		DataSetID:      seed.DataSetID,
		SequenceID:     seed.SequenceID,
	}, nil
}

// ConvertRotationsToLocalSpace converts root-space joint rotations to
// rotations relative to each joint's parent. The skeleton root keeps its
// rotation.
func ConvertRotationsToLocalSpace(skel *anim.Skeleton, rootSpace []quat.Number) []quat.Number {
	local := make([]quat.Number, skel.NumBones())
	for i := range local {
		if p := skel.Parent(i); p >= 0 {
			local[i] = quat.Mul(quat.Conj(rootSpace[p]), rootSpace[i])
		} else {
			local[i] = rootSpace[i]
		}
	}
	return local
}
