package testsupport

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"posekit/internal/pose"
	"posekit/internal/rig"
)

// Control describes one control added by NewScene.
type Control struct {
	Name   string
	Matrix mgl64.Mat4
}

// NewScene builds a scene with the given controls under namespace and
// selects the first one so the namespace is current.
func NewScene(t testing.TB, namespace string, controls ...Control) *rig.Scene {
	t.Helper()

	scene := rig.NewScene()
	for _, c := range controls {
		if err := scene.AddControl(pose.Qualify(namespace, c.Name), c.Matrix); err != nil {
			t.Fatalf("add control %s: %v", c.Name, err)
		}
	}
	if len(controls) > 0 {
		if err := scene.Select(pose.Qualify(namespace, controls[0].Name)); err != nil {
			t.Fatalf("select: %v", err)
		}
	}
	return scene
}

// Translate returns a pure translation matrix.
func Translate(x, y, z float64) mgl64.Mat4 {
	return mgl64.Translate3D(x, y, z)
}
