package anim

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

func abs(x float64) float64 {
	return math.Abs(x)
}

func vecClose(a, b r3.Vec, tol float64) bool {
	return abs(a.X-b.X) <= tol && abs(a.Y-b.Y) <= tol && abs(a.Z-b.Z) <= tol
}

func testSkeleton(t *testing.T) *Skeleton {
	t.Helper()
	skel, err := NewSkeleton([]string{"Hips", "Spine", "Head", "LeftLeg"}, []int{-1, 0, 1, 0})
	if err != nil {
		t.Fatalf("NewSkeleton failed: %v", err)
	}
	return skel
}

func TestNewSkeleton(t *testing.T) {
	skel := testSkeleton(t)

	if skel.NumBones() != 4 {
		t.Errorf("Expected 4 bones, got %d", skel.NumBones())
	}
	if skel.Root != 0 {
		t.Errorf("Expected root 0, got %d", skel.Root)
	}
	if p := skel.Parent(2); p != 1 {
		t.Errorf("Parent(Head) = %d, want 1", p)
	}
	if p := skel.Parent(0); p != -1 {
		t.Errorf("Parent(root) = %d, want -1", p)
	}

	idx, err := skel.BoneIndex("LeftLeg")
	if err != nil || idx != 3 {
		t.Errorf("BoneIndex(LeftLeg) = %d, %v", idx, err)
	}

	if _, err := skel.BoneIndex("Tail"); !errors.Is(err, ErrUnknownBone) {
		t.Errorf("Expected ErrUnknownBone, got %v", err)
	}

	var order []int
	skel.Walk(func(i int) { order = append(order, i) })
	want := []int{0, 1, 2, 3}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Walk order = %v, want %v", order, want)
		}
	}
}

func TestNewSkeletonInvalid(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		parents []int
	}{
		{"empty", nil, nil},
		{"length mismatch", []string{"a", "b"}, []int{-1}},
		{"two roots", []string{"a", "b"}, []int{-1, -1}},
		{"no root", []string{"a", "b"}, []int{1, 0}},
		{"duplicate name", []string{"a", "a"}, []int{-1, 0}},
		{"parent out of range", []string{"a", "b"}, []int{-1, 5}},
		{"cycle", []string{"a", "b", "c"}, []int{-1, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSkeleton(tt.names, tt.parents); !errors.Is(err, ErrInvalidSkeleton) {
				t.Errorf("Expected ErrInvalidSkeleton, got %v", err)
			}
		})
	}
}

func TestBoneQueries(t *testing.T) {
	b := Bone{
		PositionKeys: []KeyPosition{
			{Frame: 0, Value: r3.Vec{}},
			{Frame: 10, Value: r3.Vec{X: 10}},
		},
		RotationKeys: []KeyRotation{
			{Frame: 0, Value: geom.IdentityQuat()},
			{Frame: 10, Value: geom.AngleAxis(math.Pi/2, geom.Up)},
		},
	}

	tests := []struct {
		frame float64
		pos   float64
		angle float64
	}{
		{-5, 0, 0},
		{0, 0, 0},
		{5, 5, math.Pi / 4},
		{10, 10, math.Pi / 2},
		{20, 10, math.Pi / 2},
	}

	for _, tt := range tests {
		if got := b.Position(tt.frame); abs(got.X-tt.pos) > 1e-9 {
			t.Errorf("Position(%v).X = %v, want %v", tt.frame, got.X, tt.pos)
		}
		want := geom.AngleAxis(tt.angle, geom.Up)
		if got := b.Orientation(tt.frame); !geom.SameRotation(got, want, 1e-9) {
			t.Errorf("Orientation(%v) = %v, want %v", tt.frame, got, want)
		}
	}

	if s := b.Scale(3); s != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Empty scale track should give unit scale, got %v", s)
	}

	var empty Bone
	if empty.Orientation(0) != geom.IdentityQuat() {
		t.Error("Empty rotation track should give identity")
	}
}

func TestSnapshot(t *testing.T) {
	b := Bone{
		Name:         "Spine",
		PositionKeys: []KeyPosition{{Frame: 0}, {Frame: 4, Value: r3.Vec{Y: 8}}},
	}
	s := b.Snapshot(2)
	if s.NumPositionKeys() != 1 || s.NumRotationKeys() != 1 || s.NumScaleKeys() != 1 {
		t.Fatalf("Snapshot should hold one key per track, got %d/%d/%d",
			s.NumPositionKeys(), s.NumRotationKeys(), s.NumScaleKeys())
	}
	if s.PositionKeys[0].Value.Y != 4 {
		t.Errorf("Snapshot position = %v, want y=4", s.PositionKeys[0].Value)
	}
}

func TestForwardKinematics(t *testing.T) {
	skel := testSkeleton(t)
	quarter := geom.AngleAxis(math.Pi/2, geom.Up)
	a := &Animation{Bones: []Bone{
		{Name: "Hips", PositionKeys: []KeyPosition{{Value: r3.Vec{Y: 100}}}, RotationKeys: []KeyRotation{{Value: quarter}}},
		{Name: "Spine", PositionKeys: []KeyPosition{{Value: r3.Vec{Z: 10}}}},
		{Name: "Head", PositionKeys: []KeyPosition{{Value: r3.Vec{Y: 20}}}},
		{Name: "LeftLeg", PositionKeys: []KeyPosition{{Value: r3.Vec{X: 5}}}},
	}}

	g := ForwardKinematics(skel, a, 0)

	// The hips' quarter turn maps the spine's +Z offset onto +X.
	if !vecClose(g[1].Position, r3.Vec{X: 10, Y: 100}, 1e-9) {
		t.Errorf("Spine global = %v", g[1].Position)
	}
	if !vecClose(g[2].Position, r3.Vec{X: 10, Y: 120}, 1e-9) {
		t.Errorf("Head global = %v", g[2].Position)
	}
	if !vecClose(g[3].Position, r3.Vec{Y: 100, Z: -5}, 1e-9) {
		t.Errorf("LeftLeg global = %v", g[3].Position)
	}
	if !geom.SameRotation(g[2].Rotation, quarter, 1e-9) {
		t.Errorf("Head rotation should inherit the hips' turn, got %v", g[2].Rotation)
	}
}

func TestGroundProjection(t *testing.T) {
	tilt := quat.Mul(geom.AngleAxis(math.Pi/2, geom.Up), geom.AngleAxis(0.3, r3.Vec{X: 1}))
	g := GroundProjection(geom.NewTransform(r3.Vec{X: 1, Y: 90, Z: 2}, tilt))

	if !vecClose(g.Position, r3.Vec{X: 1, Z: 2}, 1e-9) {
		t.Errorf("Position = %v, want (1,0,2)", g.Position)
	}
	if !geom.SameRotation(g.Rotation, geom.AngleAxis(math.Pi/2, geom.Up), 1e-9) {
		t.Errorf("Rotation = %v, want quarter yaw", g.Rotation)
	}
}

func TestAlignToSkeleton(t *testing.T) {
	skel := testSkeleton(t)
	a := &Animation{
		DurationFrames: 12,
		Bones: []Bone{
			{Name: "Head"},
			{Name: "Tail"},
			{Name: "Hips"},
		},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	out := AlignToSkeleton(a, skel, logger)

	if len(out.Bones) != 4 {
		t.Fatalf("Expected 4 bones, got %d", len(out.Bones))
	}
	for i, name := range skel.Names {
		if out.Bones[i].Name != name || out.Bones[i].ID != i {
			t.Errorf("bone %d = %q/%d, want %q/%d", i, out.Bones[i].Name, out.Bones[i].ID, name, i)
		}
	}
	if out.DurationFrames != 12 {
		t.Errorf("DurationFrames = %d, want 12", out.DurationFrames)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Tail")) {
		t.Errorf("Expected a warning naming the unknown bone, got %q", buf.String())
	}
}

func TestTestControlPath(t *testing.T) {
	path := DefaultTestControlPath()
	if path.Len() != TestPathSamples {
		t.Fatalf("Expected %d points, got %d", TestPathSamples, path.Len())
	}

	first := path.Points[0]
	if first.Position != (r3.Vec{}) {
		t.Errorf("First point should be the origin, got %v", first.Position)
	}

	for i := 1; i < path.Len(); i++ {
		step := r3.Norm(r3.Sub(path.Points[i].Position, path.Points[i-1].Position))
		if abs(step-TestPathStride) > 1e-9 {
			t.Fatalf("step %d length = %v, want %v", i, step, TestPathStride)
		}
		if path.Points[i].Position.Y != 0 {
			t.Fatalf("point %d left the ground: %v", i, path.Points[i].Position)
		}
	}

	// A full turn brings the path back near its start.
	last := path.Points[path.Len()-1].Position
	if r3.Norm(last) > 2*TestPathStride {
		t.Errorf("Path should close, last point %v", last)
	}
}

func TestResample(t *testing.T) {
	sparse := &ControlPath{Points: []ControlPoint{
		{Frame: 0, Position: r3.Vec{}, LookAt: geom.IdentityQuat()},
		{Frame: 4, Position: r3.Vec{Z: 4}, LookAt: geom.IdentityQuat()},
		{Frame: 6, Position: r3.Vec{Z: 4, X: 2}, LookAt: geom.IdentityQuat()},
	}}

	dense := sparse.Resample()
	if dense.Len() != 7 {
		t.Fatalf("Expected 7 points, got %d", dense.Len())
	}
	for i, p := range dense.Points {
		if p.Frame != i {
			t.Errorf("point %d has frame %d", i, p.Frame)
		}
	}
	if !vecClose(dense.Points[2].Position, r3.Vec{Z: 2}, 1e-9) {
		t.Errorf("frame 2 = %v, want (0,0,2)", dense.Points[2].Position)
	}
	if !vecClose(dense.Points[5].Position, r3.Vec{X: 1, Z: 4}, 1e-9) {
		t.Errorf("frame 5 = %v, want (1,0,4)", dense.Points[5].Position)
	}

	untimed := &ControlPath{Points: []ControlPoint{{}, {}, {}}}
	if got := untimed.Resample(); got.Len() != 3 {
		t.Errorf("Untimed path should be unchanged, got %d points", got.Len())
	}
}

func TestParseScene(t *testing.T) {
	data := []byte(`{
		"skeleton": {"bones": ["Hips", "Spine"], "parents": [-1, 0]},
		"animation": {
			"duration_frames": 2,
			"bones": [
				{"name": "Hips", "position_keys": [{"frame": 0, "value": [0, 90, 0]}],
				 "rotation_keys": [{"frame": 0, "value": [1, 0, 0, 0]}]},
				{"name": "Spine", "position_keys": [{"frame": 0, "value": [0, 10, 0]}]}
			]
		},
		"control_path": [
			{"frame": 0, "position": [0, 0, 0]},
			{"frame": 1, "position": [0, 0, 1], "look_at": [1, 0, 0, 0]}
		]
	}`)

	scene, err := ParseScene(data)
	if err != nil {
		t.Fatalf("ParseScene failed: %v", err)
	}
	if scene.Skeleton.NumBones() != 2 {
		t.Errorf("Expected 2 bones, got %d", scene.Skeleton.NumBones())
	}
	if scene.Animation.Bones[0].Position(0).Y != 90 {
		t.Errorf("Hips height = %v, want 90", scene.Animation.Bones[0].Position(0).Y)
	}
	if scene.ControlPath.Len() != 2 {
		t.Errorf("Expected 2 control points, got %d", scene.ControlPath.Len())
	}
	if scene.ControlPath.Points[0].LookAt != geom.IdentityQuat() {
		t.Errorf("Missing look_at should default to identity")
	}

	var buf bytes.Buffer
	if err := WriteAnimation(&buf, scene.Animation); err != nil {
		t.Fatalf("WriteAnimation failed: %v", err)
	}
	back, err := ParseAnimation(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseAnimation failed: %v", err)
	}
	if len(back.Bones) != 2 || back.DurationFrames != 2 {
		t.Errorf("Re-read animation has %d bones, %d frames", len(back.Bones), back.DurationFrames)
	}
}

func TestParseAnimationSortsKeys(t *testing.T) {
	a, err := ParseAnimation([]byte(`{
		"duration_frames": 3,
		"bones": [{
			"name": "Hips",
			"position_keys": [
				{"frame": 2, "value": [20, 0, 0]},
				{"frame": 0, "value": [0, 0, 0]},
				{"frame": 1, "value": [10, 0, 0]}
			],
			"rotation_keys": [
				{"frame": 1, "value": [0, 0, 2, 0]},
				{"frame": 0, "value": [2, 0, 0, 0]}
			]
		}]
	}`))
	if err != nil {
		t.Fatalf("ParseAnimation failed: %v", err)
	}

	b := &a.Bones[0]
	for f, want := range []float64{0, 10, 20} {
		if got := b.Position(float64(f)); !vecClose(got, r3.Vec{X: want}, 1e-9) {
			t.Errorf("Position(%d) = %v, want (%v,0,0)", f, got, want)
		}
	}
	if got := b.Position(1.5); abs(got.X-15) > 1e-9 {
		t.Errorf("Position(1.5) = %v, want X 15", got)
	}

	if b.RotationKeys[0].Frame != 0 || b.RotationKeys[1].Frame != 1 {
		t.Fatalf("rotation keys not sorted: %+v", b.RotationKeys)
	}
	for i, k := range b.RotationKeys {
		if abs(quat.Abs(k.Value)-1) > 1e-12 {
			t.Errorf("rotation key %d has norm %v, want 1", i, quat.Abs(k.Value))
		}
	}
	if got := b.Orientation(1); !geom.SameRotation(got, geom.AngleAxis(math.Pi, geom.Up), 1e-9) {
		t.Errorf("Orientation(1) = %v, want half turn about Y", got)
	}
}

func TestParseSceneInvalid(t *testing.T) {
	if _, err := ParseScene([]byte(`{`)); !errors.Is(err, ErrInvalidScene) {
		t.Errorf("Expected ErrInvalidScene for bad JSON, got %v", err)
	}
	noBones := []byte(`{"skeleton": {"bones": ["a"], "parents": [-1]}, "animation": {"bones": []}}`)
	if _, err := ParseScene(noBones); !errors.Is(err, ErrEmptyAnimation) {
		t.Errorf("Expected ErrEmptyAnimation, got %v", err)
	}
}
