// Package capture reads pose snapshots from a rig and writes them back.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"posekit/internal/logging"
	"posekit/internal/pose"
	"posekit/internal/rig"
)

// Store captures and applies snapshots against one rig.
type Store struct {
	rig       rig.Rig
	keyframer rig.Keyframer
	viewport  rig.Viewport
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyframer enables keying on apply.
func WithKeyframer(k rig.Keyframer) Option {
	return func(s *Store) { s.keyframer = k }
}

// WithViewport batches apply writes into one redraw.
func WithViewport(v rig.Viewport) Option {
	return func(s *Store) { s.viewport = v }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a Store for r.
func New(r rig.Rig, opts ...Option) *Store {
	s := &Store{rig: r}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "capture")
	return s
}

// Capture reads the local transform of every id. Ids that do not exist or
// cannot be read are logged and left out; the snapshot never holds a partial
// entry. The snapshot resolves against the namespace of the first qualified
// id, or the rig's current namespace when no id carries one.
func (s *Store) Capture(ids []string) (*pose.Snapshot, error) {
	return s.capture(ids, func(id string) (pose.Value, error) {
		m, err := s.rig.LocalTransform(id)
		if err != nil {
			return pose.Value{}, err
		}
		return pose.MatrixValue(m), nil
	})
}

// CaptureAttributes reads every keyable attribute of each id as a flat
// attribute bag. The rig must implement rig.AttributeRig.
func (s *Store) CaptureAttributes(ids []string) (*pose.Snapshot, error) {
	ar, ok := s.rig.(rig.AttributeRig)
	if !ok {
		return nil, errors.New("rig does not expose keyable attributes")
	}
	return s.capture(ids, func(id string) (pose.Value, error) {
		attrs, err := ar.KeyableAttributes(id)
		if err != nil {
			return pose.Value{}, err
		}
		return pose.AttributeValue(attrs), nil
	})
}

// CaptureControls captures every control of the rig, or only the selected
// ones.
func (s *Store) CaptureControls(selectedOnly, attributes bool) (*pose.Snapshot, error) {
	ids, err := s.rig.ListControls(selectedOnly)
	if err != nil {
		return nil, fmt.Errorf("list controls: %w", err)
	}
	if attributes {
		return s.CaptureAttributes(ids)
	}
	return s.Capture(ids)
}

func (s *Store) capture(ids []string, read func(id string) (pose.Value, error)) (*pose.Snapshot, error) {
	if len(ids) == 0 {
		return nil, pose.ErrEmptySelection
	}

	b := pose.NewBuilder(s.namespaceFor(ids))
	for _, id := range ids {
		if !s.rig.ControlExists(id) {
			logging.WarnWithContext(s.logger, "control not found; skipped", "control_missing",
				logging.String(logging.FieldControl, id),
				logging.String(logging.FieldImpact, "control is absent from the captured pose"),
				logging.String(logging.FieldErrorHint, "check the control name and namespace"),
			)
			continue
		}
		v, err := read(id)
		if err != nil {
			logging.WarnWithContext(s.logger, "control could not be read; skipped", "control_read_failed",
				logging.String(logging.FieldControl, id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "control is absent from the captured pose"),
			)
			continue
		}
		if err := b.Set(id, v); err != nil {
			logging.WarnWithContext(s.logger, "control name collides after namespace stripping; skipped", "control_duplicate",
				logging.String(logging.FieldControl, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "capture one namespace at a time"),
			)
			continue
		}
	}
	if b.Len() == 0 {
		return nil, pose.ErrEmptySelection
	}

	snap := b.Build()
	s.logger.Debug("pose captured",
		logging.Int("controls", snap.Len()),
		logging.String(logging.FieldNamespace, snap.Namespace()),
	)
	return snap, nil
}

func (s *Store) namespaceFor(ids []string) string {
	for _, id := range ids {
		if ns, ok := pose.Namespace(id); ok {
			return ns
		}
	}
	ns, _ := s.rig.CurrentNamespace()
	return ns
}

// ApplyOptions narrows and extends Apply.
type ApplyOptions struct {
	// Targets restricts apply to these controls when non-nil. Namespaces on
	// targets are ignored.
	Targets []string
	// Exclude skips controls whose name contains any fragment, ignoring case.
	Exclude []string
	// Key records a keyframe for every attribute right after it is set.
	Key bool
	// Namespace overrides the namespace stored names are resolved in.
	Namespace string
}

// ApplyReport lists what happened to each stored control.
type ApplyReport struct {
	Namespace  string
	Applied    []string
	Missing    []string
	Excluded   []string
	Untargeted []string
	Failed     []string
	Keys       int
}

// Apply writes snap onto the rig. The snapshot is validated before anything
// is written. Stored names are resolved in opts.Namespace, else the rig's
// current namespace, else the namespace the snapshot was captured in.
// Missing, excluded and untargeted controls are skipped. ErrEmptySelection
// is returned when no stored control exists on the rig.
func (s *Store) Apply(snap *pose.Snapshot, opts ApplyOptions) (ApplyReport, error) {
	var report ApplyReport
	if err := snap.Validate(); err != nil {
		return report, err
	}
	if snap.Len() == 0 {
		return report, pose.ErrEmptySelection
	}
	if opts.Key && s.keyframer == nil {
		return report, errors.New("keying requested but the rig has no keyframer")
	}
	ar, hasAttrs := s.rig.(rig.AttributeRig)

	report.Namespace = s.applyNamespace(snap, opts)
	resolved := snap.WithNamespace(report.Namespace)
	targets := targetSet(opts.Targets)
	exclude := foldAll(opts.Exclude)

	if s.viewport != nil {
		s.viewport.SuspendRedraw()
		defer s.viewport.ResumeRedraw()
	}

	resolvedAny := false
	resolved.Each(func(name string, v pose.Value) bool {
		id := resolved.Resolve(name)
		if !s.rig.ControlExists(id) {
			report.Missing = append(report.Missing, name)
			logging.WarnWithContext(s.logger, "control not found; skipped", "control_missing",
				logging.String(logging.FieldControl, id),
				logging.String(logging.FieldImpact, "pose applied without this control"),
				logging.String(logging.FieldErrorHint, "select a control of the target character"),
			)
			return true
		}
		resolvedAny = true
		switch {
		case matchesAny(name, exclude):
			report.Excluded = append(report.Excluded, name)
			return true
		case targets != nil && !targets[name]:
			report.Untargeted = append(report.Untargeted, name)
			return true
		}

		var keys int
		var err error
		switch v.Kind() {
		case pose.KindMatrix:
			keys, err = s.applyMatrix(id, v, opts.Key)
		case pose.KindAttributes:
			if !hasAttrs {
				err = errors.New("rig does not expose keyable attributes")
				break
			}
			keys, err = s.applyAttributes(ar, id, v, opts.Key)
		}
		report.Keys += keys
		if err != nil {
			report.Failed = append(report.Failed, name)
			logging.WarnWithContext(s.logger, "control could not be written", "control_write_failed",
				logging.String(logging.FieldControl, id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "pose applied without this control"),
			)
			return true
		}
		report.Applied = append(report.Applied, name)
		return true
	})

	if !resolvedAny {
		return report, pose.ErrEmptySelection
	}
	s.logger.Info("pose applied",
		logging.Int("applied", len(report.Applied)),
		logging.Int("missing", len(report.Missing)),
		logging.Int("excluded", len(report.Excluded)),
		logging.Int("failed", len(report.Failed)),
		logging.Int("keys", report.Keys),
		logging.String(logging.FieldNamespace, report.Namespace),
	)
	return report, nil
}

func (s *Store) applyNamespace(snap *pose.Snapshot, opts ApplyOptions) string {
	if ns := strings.TrimSpace(opts.Namespace); ns != "" {
		return ns
	}
	if ns, ok := s.rig.CurrentNamespace(); ok {
		return ns
	}
	return snap.Namespace()
}

func (s *Store) applyMatrix(id string, v pose.Value, key bool) (int, error) {
	m, _ := v.Matrix()
	if err := s.rig.SetLocalTransform(id, m); err != nil {
		return 0, err
	}
	if !key {
		return 0, nil
	}
	keys := 0
	for _, channel := range rig.TransformChannels {
		if err := s.keyframer.SetKeyframe(id, channel); err != nil {
			return keys, fmt.Errorf("key %s: %w", channel, err)
		}
		keys++
	}
	return keys, nil
}

// applyAttributes sets attributes in name order, keying each one before
// moving on to the next.
func (s *Store) applyAttributes(ar rig.AttributeRig, id string, v pose.Value, key bool) (int, error) {
	keys := 0
	var errs []error
	for _, name := range v.AttributeNames() {
		value, _ := v.Attribute(name)
		if err := ar.SetAttribute(id, name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if !key {
			continue
		}
		if err := s.keyframer.SetKeyframe(id, name); err != nil {
			errs = append(errs, fmt.Errorf("key %s: %w", name, err))
			continue
		}
		keys++
	}
	return keys, errors.Join(errs...)
}

func targetSet(targets []string) map[string]bool {
	if targets == nil {
		return nil
	}
	set := make(map[string]bool, len(targets))
	for _, id := range targets {
		set[pose.StripNamespace(strings.TrimSpace(id))] = true
	}
	return set
}

func foldAll(fragments []string) []string {
	folder := cases.Fold()
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, folder.String(f))
		}
	}
	sort.Strings(out)
	return out
}

func matchesAny(name string, folded []string) bool {
	if len(folded) == 0 {
		return false
	}
	n := cases.Fold().String(name)
	for _, f := range folded {
		if strings.Contains(n, f) {
			return true
		}
	}
	return false
}
