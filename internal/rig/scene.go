package rig

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"posekit/internal/pose"
	"posekit/internal/viewport"
	"posekit/internal/xform"
)

// ErrLocked is returned when writing to a locked node.
var ErrLocked = errors.New("node is locked")

// Node is one object in a Scene. Only nodes flagged as controls take part in
// pose capture.
type Node struct {
	Name       string
	Control    bool
	Locked     bool
	Matrix     mgl64.Mat4
	Attributes map[string]float64
}

// Key is a recorded keyframe.
type Key struct {
	Control   string
	Attribute string
	Frame     float64
	Value     float64
}

// Scene is an in-memory rig. It is not safe for concurrent use.
type Scene struct {
	nodes     map[string]*Node
	order     []string
	selection []string
	frame     float64
	keys      []Key
	view      viewport.State

	suspended int
	redraws   int
}

// NewScene returns an empty scene at frame 1 with a perspective view.
func NewScene() *Scene {
	return &Scene{
		nodes: make(map[string]*Node),
		frame: 1,
		view: viewport.State{
			ActiveView: "persp",
			Background: viewport.Background{Solid: viewport.Color{0.63, 0.63, 0.63}},
			Flags: viewport.Flags{
				NurbsCurves: true,
				Polymeshes:  true,
				Joints:      true,
				Locators:    true,
				Grid:        true,
			},
			Render: viewport.RenderGlobals{MultiSampleCount: 4},
		},
	}
}

// AddNode inserts a node. The matrix defaults to identity when left zero.
func (s *Scene) AddNode(n Node) error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return errors.New("node name is empty")
	}
	if _, exists := s.nodes[n.Name]; exists {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	if n.Matrix == (mgl64.Mat4{}) {
		n.Matrix = mgl64.Ident4()
	}
	attrs := make(map[string]float64, len(n.Attributes))
	for name, v := range n.Attributes {
		attrs[name] = v
	}
	n.Attributes = attrs
	s.nodes[n.Name] = &n
	s.order = append(s.order, n.Name)
	return nil
}

// AddControl is shorthand for adding an unlocked control node.
func (s *Scene) AddControl(id string, m mgl64.Mat4) error {
	return s.AddNode(Node{Name: id, Control: true, Matrix: m})
}

// Node returns a copy of the named node.
func (s *Scene) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Attributes = make(map[string]float64, len(n.Attributes))
	for name, v := range n.Attributes {
		cp.Attributes[name] = v
	}
	return cp, true
}

// Nodes returns every node name in insertion order.
func (s *Scene) Nodes() []string {
	return slices.Clone(s.order)
}

// Select replaces the selection. Every id must exist.
func (s *Scene) Select(ids ...string) error {
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("select %q: %w", id, pose.ErrControlNotFound)
		}
	}
	s.selection = slices.Clone(ids)
	return nil
}

// Selection returns the selected ids in selection order.
func (s *Scene) Selection() []string {
	return slices.Clone(s.selection)
}

// CurrentFrame returns the time keys are recorded at.
func (s *Scene) CurrentFrame() float64 { return s.frame }

// SetCurrentFrame moves the playhead.
func (s *Scene) SetCurrentFrame(frame float64) { s.frame = frame }

// Keys returns every recorded key in recording order.
func (s *Scene) Keys() []Key {
	return slices.Clone(s.keys)
}

// Redraws counts viewport refreshes: one per unbatched write plus one per
// outermost ResumeRedraw.
func (s *Scene) Redraws() int { return s.redraws }

// ListControls implements Rig.
func (s *Scene) ListControls(selectedOnly bool) ([]string, error) {
	source := s.order
	if selectedOnly {
		source = s.selection
	}
	ids := make([]string, 0, len(source))
	for _, id := range source {
		if n := s.nodes[id]; n != nil && n.Control {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// LocalTransform implements Rig.
func (s *Scene) LocalTransform(id string) (mgl64.Mat4, error) {
	n, err := s.lookup(id)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return n.Matrix, nil
}

// SetLocalTransform implements Rig.
func (s *Scene) SetLocalTransform(id string, m mgl64.Mat4) error {
	n, err := s.writable(id)
	if err != nil {
		return err
	}
	n.Matrix = m
	s.touched()
	return nil
}

// ControlExists implements Rig.
func (s *Scene) ControlExists(id string) bool {
	n, ok := s.nodes[id]
	return ok && n.Control
}

// CurrentNamespace implements Rig. The namespace is taken from the first
// selected node.
func (s *Scene) CurrentNamespace() (string, bool) {
	if len(s.selection) == 0 {
		return "", false
	}
	return pose.Namespace(s.selection[0])
}

// KeyableAttributes implements AttributeRig: the nine transform channels
// derived from the local matrix plus any custom attributes.
func (s *Scene) KeyableAttributes(id string) (map[string]float64, error) {
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	attrs, err := channels(n.Matrix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	for name, v := range n.Attributes {
		attrs[name] = v
	}
	return attrs, nil
}

// SetAttribute implements AttributeRig.
func (s *Scene) SetAttribute(id, name string, value float64) error {
	n, err := s.writable(id)
	if err != nil {
		return err
	}
	if slices.Contains(TransformChannels, name) {
		m, err := withChannel(n.Matrix, name, value)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", id, name, err)
		}
		n.Matrix = m
	} else {
		if _, ok := n.Attributes[name]; !ok {
			return fmt.Errorf("%s has no attribute %q", id, name)
		}
		n.Attributes[name] = value
	}
	s.touched()
	return nil
}

// SetKeyframe implements Keyframer. Keying an attribute twice on the same
// frame replaces the earlier key.
func (s *Scene) SetKeyframe(id, attribute string) error {
	attrs, err := s.KeyableAttributes(id)
	if err != nil {
		return err
	}
	value, ok := attrs[attribute]
	if !ok {
		return fmt.Errorf("%s has no keyable attribute %q", id, attribute)
	}
	key := Key{Control: id, Attribute: attribute, Frame: s.frame, Value: value}
	for i, existing := range s.keys {
		if existing.Control == id && existing.Attribute == attribute && existing.Frame == s.frame {
			s.keys[i] = key
			return nil
		}
	}
	s.keys = append(s.keys, key)
	return nil
}

// SuspendRedraw implements Viewport. Calls nest.
func (s *Scene) SuspendRedraw() { s.suspended++ }

// ResumeRedraw implements Viewport.
func (s *Scene) ResumeRedraw() {
	if s.suspended == 0 {
		return
	}
	s.suspended--
	if s.suspended == 0 {
		s.redraws++
	}
}

func (s *Scene) touched() {
	if s.suspended == 0 {
		s.redraws++
	}
}

func (s *Scene) lookup(id string) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, pose.ErrControlNotFound)
	}
	return n, nil
}

func (s *Scene) writable(id string) (*Node, error) {
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if n.Locked {
		return nil, fmt.Errorf("%s: %w", id, ErrLocked)
	}
	return n, nil
}

func channels(m mgl64.Mat4) (map[string]float64, error) {
	c, err := xform.Decompose(m)
	if err != nil {
		return nil, err
	}
	rot := xform.EulerXYZ(c.Rotation)
	return map[string]float64{
		"translateX": c.Translation.X(),
		"translateY": c.Translation.Y(),
		"translateZ": c.Translation.Z(),
		"rotateX":    rot.X(),
		"rotateY":    rot.Y(),
		"rotateZ":    rot.Z(),
		"scaleX":     c.Scale.X(),
		"scaleY":     c.Scale.Y(),
		"scaleZ":     c.Scale.Z(),
	}, nil
}

func withChannel(m mgl64.Mat4, name string, value float64) (mgl64.Mat4, error) {
	c, err := xform.Decompose(m)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	rot := xform.EulerXYZ(c.Rotation)
	axis := int(name[len(name)-1] - 'X')
	switch strings.TrimRight(name, "XYZ") {
	case "translate":
		c.Translation[axis] = value
	case "rotate":
		rot[axis] = value
	case "scale":
		c.Scale[axis] = value
	}
	c.Rotation = xform.QuatFromEulerXYZ(rot)
	return c.Matrix(), nil
}
