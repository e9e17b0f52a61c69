// Package rig defines the collaborator interfaces the pose engine drives and
// an in-memory Scene that implements them.
package rig

import "github.com/go-gl/mathgl/mgl64"

// Rig exposes the controls of a character rig and their object-local
// transforms.
type Rig interface {
	// ListControls returns control ids in scene order. With selectedOnly
	// set only the current selection is considered.
	ListControls(selectedOnly bool) ([]string, error)
	LocalTransform(id string) (mgl64.Mat4, error)
	SetLocalTransform(id string, m mgl64.Mat4) error
	ControlExists(id string) bool
	// CurrentNamespace reports the namespace of the active selection.
	CurrentNamespace() (string, bool)
}

// AttributeRig is implemented by rigs that expose individual keyable
// attributes in addition to whole transforms.
type AttributeRig interface {
	Rig
	KeyableAttributes(id string) (map[string]float64, error)
	SetAttribute(id, name string, value float64) error
}

// Keyframer records a key for an attribute at the current time.
type Keyframer interface {
	SetKeyframe(id, attribute string) error
}

// Viewport lets callers batch many writes into a single redraw.
type Viewport interface {
	SuspendRedraw()
	ResumeRedraw()
}

// TransformChannels are the keyable channels every transform control has.
var TransformChannels = []string{
	"translateX", "translateY", "translateZ",
	"rotateX", "rotateY", "rotateZ",
	"scaleX", "scaleY", "scaleZ",
}
