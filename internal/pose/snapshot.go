package pose

import (
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies how a control's state is represented in a snapshot.
type Kind int

const (
	KindMatrix Kind = iota + 1
	KindAttributes
)

func (k Kind) String() string {
	switch k {
	case KindMatrix:
		return "matrix"
	case KindAttributes:
		return "attributes"
	default:
		return "unknown"
	}
}

// MatrixSize is the number of elements in a persisted transform matrix.
const MatrixSize = 16

// Value is the captured state of one control: either a full local transform
// matrix or a flattened attribute bag. Only matrix values can be blended.
type Value struct {
	kind   Kind
	matrix mgl64.Mat4
	attrs  map[string]float64
}

// MatrixValue wraps a local transform matrix.
func MatrixValue(m mgl64.Mat4) Value {
	return Value{kind: KindMatrix, matrix: m}
}

// AttributeValue wraps a copy of an attribute-name to value mapping.
func AttributeValue(attrs map[string]float64) Value {
	cp := make(map[string]float64, len(attrs))
	for name, v := range attrs {
		cp[name] = v
	}
	return Value{kind: KindAttributes, attrs: cp}
}

// Kind reports the representation held by v.
func (v Value) Kind() Kind { return v.kind }

// Matrix returns the transform matrix when v holds one.
func (v Value) Matrix() (mgl64.Mat4, bool) {
	if v.kind != KindMatrix {
		return mgl64.Mat4{}, false
	}
	return v.matrix, true
}

// Attributes returns a copy of the attribute bag, or nil for matrix values.
func (v Value) Attributes() map[string]float64 {
	if v.kind != KindAttributes {
		return nil
	}
	cp := make(map[string]float64, len(v.attrs))
	for name, value := range v.attrs {
		cp[name] = value
	}
	return cp
}

// AttributeNames lists attribute names in sorted order.
func (v Value) AttributeNames() []string {
	names := make([]string, 0, len(v.attrs))
	for name := range v.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute returns a single attribute value.
func (v Value) Attribute(name string) (float64, bool) {
	value, ok := v.attrs[name]
	return value, ok
}

// Equal reports exact equality of kind and every component.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindMatrix:
		return v.matrix == other.matrix
	case KindAttributes:
		if len(v.attrs) != len(other.attrs) {
			return false
		}
		for name, value := range v.attrs {
			o, ok := other.attrs[name]
			if !ok || o != value {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) validate(control string) error {
	switch v.kind {
	case KindMatrix:
		for i, f := range v.matrix {
			if !isFinite(f) {
				return invalid(control, "matrix element %d is not finite", i)
			}
		}
	case KindAttributes:
		for name, f := range v.attrs {
			if strings.TrimSpace(name) == "" {
				return invalid(control, "empty attribute name")
			}
			if !isFinite(f) {
				return invalid(control, "attribute %q is not finite", name)
			}
		}
	default:
		return invalid(control, "value has no representation")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Snapshot is an immutable mapping from namespace-stripped control name to
// captured state. The namespace it was captured under is remembered so the
// snapshot can be resolved against the live scene again; it is never
// persisted.
type Snapshot struct {
	namespace string
	entries   map[string]Value
}

// Builder accumulates entries for a new Snapshot.
type Builder struct {
	namespace string
	entries   map[string]Value
}

// NewBuilder starts a snapshot that resolves against namespace.
func NewBuilder(namespace string) *Builder {
	return &Builder{namespace: strings.TrimSpace(namespace), entries: make(map[string]Value)}
}

// Set stores v under the namespace-stripped form of id. A second control
// that strips to the same name is rejected so keys stay unique.
func (b *Builder) Set(id string, v Value) error {
	name := StripNamespace(strings.TrimSpace(id))
	if name == "" {
		return invalid(id, "empty control name")
	}
	if _, exists := b.entries[name]; exists {
		return invalid(name, "duplicate control after namespace stripping")
	}
	b.entries[name] = v
	return nil
}

// Len reports how many entries have been set.
func (b *Builder) Len() int { return len(b.entries) }

// Build freezes the builder into a Snapshot. The builder must not be reused.
func (b *Builder) Build() *Snapshot {
	snap := &Snapshot{namespace: b.namespace, entries: b.entries}
	b.entries = nil
	return snap
}

// Namespace returns the namespace the snapshot resolves against.
func (s *Snapshot) Namespace() string {
	if s == nil {
		return ""
	}
	return s.namespace
}

// WithNamespace returns a snapshot sharing the same entries that resolves
// against a different namespace.
func (s *Snapshot) WithNamespace(namespace string) *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{namespace: strings.TrimSpace(namespace), entries: s.entries}
}

// Len returns the number of controls in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Names returns the control names in sorted order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get looks up a control by name; any namespace on name is ignored.
func (s *Snapshot) Get(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.entries[StripNamespace(name)]
	return v, ok
}

// Resolve returns the live scene identifier for a stored control name.
func (s *Snapshot) Resolve(name string) string {
	return Qualify(s.Namespace(), name)
}

// Each visits every entry in sorted name order until fn returns false.
func (s *Snapshot) Each(fn func(name string, v Value) bool) {
	for _, name := range s.Names() {
		if !fn(name, s.entries[name]) {
			return
		}
	}
}

// Equal reports whether both snapshots hold exactly the same entries.
// Namespaces are not compared.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Len() != other.Len() {
		return false
	}
	for name, v := range s.entries {
		o, ok := other.entries[name]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Validate checks every entry for a usable, finite representation.
func (s *Snapshot) Validate() error {
	if s == nil {
		return invalid("", "snapshot is nil")
	}
	for _, name := range s.Names() {
		if err := s.entries[name].validate(name); err != nil {
			return err
		}
	}
	return nil
}
