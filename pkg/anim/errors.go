package anim

import "errors"

var (
	// ErrUnknownBone is returned when a bone name is not in the skeleton.
	ErrUnknownBone = errors.New("anim: unknown bone")

	// ErrInvalidSkeleton is returned when names and hierarchy do not form a tree.
	ErrInvalidSkeleton = errors.New("anim: invalid skeleton")

	// ErrInvalidScene is returned when a scene file is malformed.
	ErrInvalidScene = errors.New("anim: invalid scene")

	// ErrEmptyAnimation is returned when an animation has no bones.
	ErrEmptyAnimation = errors.New("anim: animation has no bones")
)
