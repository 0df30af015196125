package anim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// Scene bundles everything one generation run consumes.
type Scene struct {
	Skeleton    *Skeleton
	Animation   *Animation
	ControlPath *ControlPath
}

// sceneData is the JSON layout of a scene file. Vectors are [x, y, z] and
// quaternions are [w, x, y, z].
type sceneData struct {
	Skeleton struct {
		Bones   []string `json:"bones"`
		Parents []int    `json:"parents"`
	} `json:"skeleton"`

	Animation   animationData      `json:"animation"`
	ControlPath []controlPointData `json:"control_path"`
}

type animationData struct {
	Source         string     `json:"source,omitempty"`
	DataSetID      string     `json:"data_set_id,omitempty"`
	SequenceID     int        `json:"sequence_id,omitempty"`
	FrameRate      float64    `json:"frame_rate,omitempty"`
	DurationFrames int        `json:"duration_frames"`
	Bones          []boneData `json:"bones"`
}

type boneData struct {
	Name         string        `json:"name"`
	PositionKeys []vecKeyData  `json:"position_keys,omitempty"`
	RotationKeys []quatKeyData `json:"rotation_keys,omitempty"`
	ScaleKeys    []vecKeyData  `json:"scale_keys,omitempty"`
}

type vecKeyData struct {
	Frame float64    `json:"frame"`
	Value [3]float64 `json:"value"`
}

type quatKeyData struct {
	Frame float64    `json:"frame"`
	Value [4]float64 `json:"value"`
}

type controlPointData struct {
	Frame    int         `json:"frame"`
	Position [3]float64  `json:"position"`
	LookAt   *[4]float64 `json:"look_at,omitempty"`
	Velocity float64     `json:"velocity,omitempty"`
}

// LoadScene reads a scene from a JSON file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes a JSON scene. The animation is returned as stored;
// callers align it to the skeleton.
func ParseScene(data []byte) (*Scene, error) {
	var raw sceneData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	skel, err := NewSkeleton(raw.Skeleton.Bones, raw.Skeleton.Parents)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	a := raw.Animation.toAnimation()
	if len(a.Bones) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, ErrEmptyAnimation)
	}

	path := &ControlPath{Points: make([]ControlPoint, len(raw.ControlPath))}
	for i, p := range raw.ControlPath {
		look := quat.Number{Real: 1}
		if p.LookAt != nil {
			look = toQuat(*p.LookAt)
		}
		path.Points[i] = ControlPoint{
			Frame:    p.Frame,
			Position: toVec(p.Position),
			LookAt:   look,
			Velocity: p.Velocity,
		}
	}

	return &Scene{Skeleton: skel, Animation: a, ControlPath: path}, nil
}

// ParseAnimation decodes a standalone JSON animation.
func ParseAnimation(data []byte) (*Animation, error) {
	var raw animationData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	return raw.toAnimation(), nil
}

// WriteAnimation encodes a as indented JSON using the scene file's
// animation layout.
func WriteAnimation(w io.Writer, a *Animation) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fromAnimation(a)); err != nil {
		return fmt.Errorf("failed to encode animation: %w", err)
	}
	return nil
}

// MarshalJSON encodes the animation using the scene file's layout.
func (a *Animation) MarshalJSON() ([]byte, error) {
	return json.Marshal(fromAnimation(a))
}

func (d animationData) toAnimation() *Animation {
	a := &Animation{
		Bones:          make([]Bone, len(d.Bones)),
		DurationFrames: d.DurationFrames,
		FrameRate:      d.FrameRate,
		SourceName:     d.Source,
		DataSetID:      d.DataSetID,
		SequenceID:     d.SequenceID,
	}

	for i, b := range d.Bones {
		bone := Bone{Name: b.Name, ID: -1, RestingRotation: quat.Number{Real: 1}}
		for _, k := range b.PositionKeys {
			bone.PositionKeys = append(bone.PositionKeys, KeyPosition{Frame: k.Frame, Value: toVec(k.Value)})
		}
		for _, k := range b.RotationKeys {
			bone.RotationKeys = append(bone.RotationKeys, KeyRotation{Frame: k.Frame, Value: geom.Normalize(toQuat(k.Value))})
		}
		for _, k := range b.ScaleKeys {
			bone.ScaleKeys = append(bone.ScaleKeys, KeyScale{Frame: k.Frame, Value: toVec(k.Value)})
		}
		sortKeys(&bone)
		a.Bones[i] = bone
	}
	return a
}

// sortKeys orders every track by frame. Keys sharing a frame keep their
// file order.
func sortKeys(b *Bone) {
	sort.SliceStable(b.PositionKeys, func(i, j int) bool { return b.PositionKeys[i].Frame < b.PositionKeys[j].Frame })
	sort.SliceStable(b.RotationKeys, func(i, j int) bool { return b.RotationKeys[i].Frame < b.RotationKeys[j].Frame })
	sort.SliceStable(b.ScaleKeys, func(i, j int) bool { return b.ScaleKeys[i].Frame < b.ScaleKeys[j].Frame })
}

func fromAnimation(a *Animation) animationData {
	d := animationData{
		Source:         a.SourceName,
		DataSetID:      a.DataSetID,
		SequenceID:     a.SequenceID,
		FrameRate:      a.FrameRate,
		DurationFrames: a.DurationFrames,
		Bones:          make([]boneData, len(a.Bones)),
	}

	for i, b := range a.Bones {
		bd := boneData{Name: b.Name}
		for _, k := range b.PositionKeys {
			bd.PositionKeys = append(bd.PositionKeys, vecKeyData{Frame: k.Frame, Value: fromVec(k.Value)})
		}
		for _, k := range b.RotationKeys {
			bd.RotationKeys = append(bd.RotationKeys, quatKeyData{Frame: k.Frame, Value: fromQuat(k.Value)})
		}
		for _, k := range b.ScaleKeys {
			bd.ScaleKeys = append(bd.ScaleKeys, vecKeyData{Frame: k.Frame, Value: fromVec(k.Value)})
		}
		d.Bones[i] = bd
	}
	return d
}

func toVec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func fromVec(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func toQuat(v [4]float64) quat.Number {
	return quat.Number{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]}
}

func fromQuat(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}
