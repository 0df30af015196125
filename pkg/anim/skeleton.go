package anim

import (
	"fmt"
)

// Skeleton is an ordered set of named bones arranged as a tree.
type Skeleton struct {
	// Names maps bone index to bone name.
	Names []string

	// Children maps bone index to its ordered child indices.
	Children [][]int

	// Root is the index of the root bone, conventionally 0.
	Root int

	index   map[string]int
	parents []int
}

// NewSkeleton builds a skeleton from bone names and parent indices.
// parents[i] is -1 for the root. The result is validated.
func NewSkeleton(names []string, parents []int) (*Skeleton, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no bones", ErrInvalidSkeleton)
	}
	if len(names) != len(parents) {
		return nil, fmt.Errorf("%w: %d names but %d parents", ErrInvalidSkeleton, len(names), len(parents))
	}

	s := &Skeleton{
		Names:    append([]string(nil), names...),
		Children: make([][]int, len(names)),
		Root:     -1,
	}

	for i, p := range parents {
		switch {
		case p == -1:
			if s.Root != -1 {
				return nil, fmt.Errorf("%w: bones %d and %d are both roots", ErrInvalidSkeleton, s.Root, i)
			}
			s.Root = i
		case p < 0 || p >= len(names):
			return nil, fmt.Errorf("%w: bone %d has parent %d out of range", ErrInvalidSkeleton, i, p)
		default:
			s.Children[p] = append(s.Children[p], i)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the name bijection and that the hierarchy is a tree rooted
// at Root in which every other bone appears exactly once as a child.
func (s *Skeleton) Validate() error {
	n := len(s.Names)
	if n == 0 {
		return fmt.Errorf("%w: no bones", ErrInvalidSkeleton)
	}
	if s.Root < 0 || s.Root >= n {
		return fmt.Errorf("%w: root %d out of range", ErrInvalidSkeleton, s.Root)
	}
	if len(s.Children) != n {
		return fmt.Errorf("%w: hierarchy has %d entries for %d bones", ErrInvalidSkeleton, len(s.Children), n)
	}

	index := make(map[string]int, n)
	for i, name := range s.Names {
		if _, dup := index[name]; dup {
			return fmt.Errorf("%w: duplicate bone name %q", ErrInvalidSkeleton, name)
		}
		index[name] = i
	}

	parents := make([]int, n)
	for i := range parents {
		parents[i] = -1
	}
	seen := make([]bool, n)
	seen[s.Root] = true

	for p, children := range s.Children {
		for _, c := range children {
			if c < 0 || c >= n {
				return fmt.Errorf("%w: child %d of bone %d out of range", ErrInvalidSkeleton, c, p)
			}
			if c == s.Root || seen[c] {
				return fmt.Errorf("%w: bone %d has more than one parent", ErrInvalidSkeleton, c)
			}
			seen[c] = true
			parents[c] = p
		}
	}

	// Every bone must be reachable from the root, which also rules out cycles.
	visited := 0
	s.walk(s.Root, func(int) { visited++ })
	if visited != n {
		return fmt.Errorf("%w: %d of %d bones unreachable from root", ErrInvalidSkeleton, n-visited, n)
	}

	s.index = index
	s.parents = parents
	return nil
}

// NumBones returns the number of bones.
func (s *Skeleton) NumBones() int {
	return len(s.Names)
}

// BoneIndex returns the index of the named bone.
func (s *Skeleton) BoneIndex(name string) (int, error) {
	if s.index == nil {
		if err := s.Validate(); err != nil {
			return -1, err
		}
	}
	i, ok := s.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownBone, name)
	}
	return i, nil
}

// Parent returns the parent index of bone i, or -1 for the root and for
// indices outside the skeleton.
func (s *Skeleton) Parent(i int) int {
	if s.parents == nil {
		if err := s.Validate(); err != nil {
			return -1
		}
	}
	if i < 0 || i >= len(s.parents) {
		return -1
	}
	return s.parents[i]
}

// Walk visits every bone depth-first, parents before children.
func (s *Skeleton) Walk(fn func(i int)) {
	s.walk(s.Root, fn)
}

func (s *Skeleton) walk(i int, fn func(int)) {
	fn(i)
	for _, c := range s.Children[i] {
		s.walk(c, fn)
	}
}
