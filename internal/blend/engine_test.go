package blend_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"posekit/internal/blend"
	"posekit/internal/pose"
	"posekit/internal/rig"
	"posekit/internal/testsupport"
)

type countingViewport struct {
	suspends, resumes int
}

func (v *countingViewport) SuspendRedraw() { v.suspends++ }
func (v *countingViewport) ResumeRedraw()  { v.resumes++ }

type countingRig struct {
	*rig.Scene
	writes map[string]int
}

func (r *countingRig) SetLocalTransform(id string, m mgl64.Mat4) error {
	if r.writes == nil {
		r.writes = make(map[string]int)
	}
	r.writes[id]++
	return r.Scene.SetLocalTransform(id, m)
}

func rotY(deg float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DY(mgl64.DegToRad(deg))
}

func assertClose(t *testing.T, label string, got, want mgl64.Mat4, tol float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("%s: element %d = %v, want %v (got %v)", label, i, got[i], want[i], got)
		}
	}
}

func armScene(t *testing.T) *rig.Scene {
	t.Helper()
	return testsupport.NewScene(t, "hero",
		testsupport.Control{Name: "armL", Matrix: mgl64.Ident4()},
		testsupport.Control{Name: "armR", Matrix: rotY(10)},
		testsupport.Control{Name: "head", Matrix: testsupport.Translate(0, 2, 0)},
	)
}

func armPoses(t *testing.T) (*pose.Snapshot, *pose.Snapshot) {
	t.Helper()
	src := testsupport.MatrixPose(t, "hero", map[string]mgl64.Mat4{
		"armL": mgl64.Ident4(),
		"armR": rotY(10),
		"head": testsupport.Translate(0, 2, 0),
	})
	dst := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{
		"armL": testsupport.Translate(10, 0, 0),
		"armR": rotY(80).Mul4(mgl64.Scale3D(2, 2, 2)),
		"head": testsupport.Translate(0, 2, 0),
	})
	return src, dst
}

func TestBlendHalfwayTranslation(t *testing.T) {
	scene := armScene(t)
	src, dst := armPoses(t)
	engine := blend.NewEngine(scene)

	report, err := engine.Blend(src, dst, blend.Factor(50).Normalized())
	if err != nil {
		t.Fatalf("Blend: %v", err)
	}
	m, _ := scene.LocalTransform("hero:armL")
	got := m.Col(3).Vec3()
	if math.Abs(got[0]-5) > 1e-9 || math.Abs(got[1]) > 1e-9 || math.Abs(got[2]) > 1e-9 {
		t.Fatalf("armL translation = %v, want [5 0 0]", got)
	}
	assertClose(t, "armR", mustTransform(t, scene, "hero:armR"),
		rotY(45).Mul4(mgl64.Scale3D(1.5, 1.5, 1.5)), 1e-9)
	if len(report.Blended) != 2 || len(report.Unchanged) != 1 || report.Unchanged[0] != "head" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestBlendEndpointsReproducePoses(t *testing.T) {
	scene := armScene(t)
	src, dst := armPoses(t)
	engine := blend.NewEngine(scene)

	for _, tc := range []struct {
		factor blend.Factor
		want   *pose.Snapshot
	}{
		{blend.MaxFactor, dst},
		{blend.MinFactor, src},
		{150, dst},
		{-20, src},
	} {
		if _, err := engine.Blend(src, dst, tc.factor.Normalized()); err != nil {
			t.Fatalf("Blend(%d): %v", tc.factor, err)
		}
		for _, name := range []string{"armL", "armR", "head"} {
			v, _ := tc.want.Get(name)
			want, _ := v.Matrix()
			assertClose(t, name, mustTransform(t, scene, "hero:"+name), want, 1e-6)
		}
	}
}

func TestBlendIsIdempotent(t *testing.T) {
	scene := armScene(t)
	src, dst := armPoses(t)
	engine := blend.NewEngine(scene)

	if _, err := engine.Blend(src, dst, 0.37); err != nil {
		t.Fatal(err)
	}
	first := mustTransform(t, scene, "hero:armR")
	if _, err := engine.Blend(src, dst, 0.37); err != nil {
		t.Fatal(err)
	}
	if second := mustTransform(t, scene, "hero:armR"); second != first {
		t.Fatalf("second pass changed the result: %v vs %v", second, first)
	}
}

func TestBlendLeavesSourceOnlyAndMissingControlsAlone(t *testing.T) {
	scene := armScene(t)
	if err := scene.AddControl("hero:tail", testsupport.Translate(0, 0, -1)); err != nil {
		t.Fatal(err)
	}
	src := testsupport.MatrixPose(t, "hero", map[string]mgl64.Mat4{
		"armL":  mgl64.Ident4(),
		"tail":  testsupport.Translate(0, 0, -1),
		"wingL": mgl64.Ident4(),
	})
	dst := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{
		"armL":  testsupport.Translate(10, 0, 0),
		"wingL": testsupport.Translate(3, 0, 0),
		"armR":  testsupport.Translate(3, 0, 0),
	})
	rec := &countingRig{Scene: scene}
	report, err := blend.NewEngine(rec).Blend(src, dst, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Absent) != 1 || report.Absent[0] != "tail" {
		t.Fatalf("tail should be absent: %+v", report)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "wingL" {
		t.Fatalf("wingL should be missing: %+v", report)
	}
	if rec.writes["hero:tail"] != 0 || rec.writes["hero:armR"] != 0 {
		t.Fatalf("unexpected writes: %v", rec.writes)
	}
	if m := mustTransform(t, scene, "hero:tail"); m != testsupport.Translate(0, 0, -1) {
		t.Fatalf("tail moved: %v", m)
	}
}

func TestBlendSkipsEquivalentPairsWithoutWriting(t *testing.T) {
	scene := armScene(t)
	near := testsupport.Translate(0, 2+1e-7, 0)
	src := testsupport.MatrixPose(t, "hero", map[string]mgl64.Mat4{"head": testsupport.Translate(0, 2, 0)})
	dst := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{"head": near})
	rec := &countingRig{Scene: scene}

	report, err := blend.NewEngine(rec).Blend(src, dst, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Unchanged) != 1 || rec.writes["hero:head"] != 0 {
		t.Fatalf("equivalent pair was written: %+v %v", report, rec.writes)
	}

	report, err = blend.NewEngine(rec, blend.WithTolerance(1e-9)).Blend(src, dst, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Blended) != 1 || rec.writes["hero:head"] != 1 {
		t.Fatalf("tighter tolerance should blend: %+v %v", report, rec.writes)
	}
}

func TestBlendUsesOneRedrawBracket(t *testing.T) {
	scene := armScene(t)
	src, dst := armPoses(t)
	vp := &countingViewport{}

	if _, err := blend.NewEngine(scene, blend.WithViewport(vp)).Blend(src, dst, 0.25); err != nil {
		t.Fatal(err)
	}
	if vp.suspends != 1 || vp.resumes != 1 {
		t.Fatalf("expected one suspend/resume pair, got %d/%d", vp.suspends, vp.resumes)
	}
}

func TestBlendContinuesPastFailures(t *testing.T) {
	scene := rig.NewScene()
	if err := scene.AddNode(rig.Node{Name: "armL", Control: true, Locked: true}); err != nil {
		t.Fatal(err)
	}
	if err := scene.AddControl("armR", mgl64.Ident4()); err != nil {
		t.Fatal(err)
	}
	src := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{
		"armL": mgl64.Ident4(),
		"armR": mgl64.Ident4(),
		"face": mgl64.Ident4(),
	})
	b := pose.NewBuilder("")
	for name, m := range map[string]mgl64.Mat4{"armL": testsupport.Translate(4, 0, 0), "armR": testsupport.Translate(4, 0, 0)} {
		if err := b.Set(name, pose.MatrixValue(m)); err != nil {
			t.Fatal(err)
		}
	}
	if err := scene.AddControl("face", mgl64.Ident4()); err != nil {
		t.Fatal(err)
	}
	if err := b.Set("face", pose.AttributeValue(map[string]float64{"smile": 1})); err != nil {
		t.Fatal(err)
	}
	dst := b.Build()

	report, err := blend.NewEngine(scene).Blend(src, dst, 0.5)
	if err != nil {
		t.Fatalf("Blend: %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0] != "armL" {
		t.Fatalf("armL should fail: %+v", report)
	}
	if len(report.NotBlendable) != 1 || report.NotBlendable[0] != "face" {
		t.Fatalf("face should not be blendable: %+v", report)
	}
	if m := mustTransform(t, scene, "armR"); m != testsupport.Translate(2, 0, 0) {
		t.Fatalf("armR = %v", m)
	}
}

func TestBlendSelectedOnly(t *testing.T) {
	scene := armScene(t)
	src, dst := armPoses(t)
	report, err := blend.NewEngine(scene, blend.WithSelectedOnly(true)).Blend(src, dst, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Blended) != 1 || report.Blended[0] != "armL" {
		t.Fatalf("only the selected armL should blend: %+v", report)
	}
	if m := mustTransform(t, scene, "hero:armR"); m != rotY(10) {
		t.Fatal("unselected armR was written")
	}
}

func TestBlendAntipodalRotationTakesShortPath(t *testing.T) {
	scene := testsupport.NewScene(t, "", testsupport.Control{Name: "spine", Matrix: rotY(10)})
	src := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{"spine": rotY(10)})
	dst := testsupport.MatrixPose(t, "", map[string]mgl64.Mat4{"spine": rotY(200)})

	if _, err := blend.NewEngine(scene).Blend(src, dst, 0.5); err != nil {
		t.Fatal(err)
	}
	assertClose(t, "spine", mustTransform(t, scene, "spine"), rotY(-75), 1e-9)
}

func TestBlendRequiresSnapshots(t *testing.T) {
	if _, err := blend.NewEngine(rig.NewScene()).Blend(nil, nil, 0.5); err == nil {
		t.Fatal("expected error for nil snapshots")
	}
}

func TestFactorNormalized(t *testing.T) {
	for _, tc := range []struct {
		in   blend.Factor
		want float64
	}{{-5, 0}, {0, 0}, {25, 0.25}, {100, 1}, {250, 1}} {
		if got := tc.in.Normalized(); got != tc.want {
			t.Fatalf("Factor(%d).Normalized() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func mustTransform(t *testing.T, scene *rig.Scene, id string) mgl64.Mat4 {
	t.Helper()
	m, err := scene.LocalTransform(id)
	if err != nil {
		t.Fatalf("LocalTransform(%s): %v", id, err)
	}
	return m
}
