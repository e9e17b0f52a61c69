package blend

import (
	"errors"
	"log/slog"

	"posekit/internal/logging"
	"posekit/internal/pose"
	"posekit/internal/rig"
	"posekit/internal/xform"
)

// Engine writes blended transforms onto a rig.
type Engine struct {
	rig          rig.Rig
	viewport     rig.Viewport
	tolerance    float64
	selectedOnly bool
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithViewport brackets every pass with SuspendRedraw/ResumeRedraw.
func WithViewport(v rig.Viewport) Option {
	return func(e *Engine) { e.viewport = v }
}

// WithTolerance sets the element-wise tolerance under which a control's
// source and destination are considered identical.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithSelectedOnly restricts blending to the rig's current selection.
func WithSelectedOnly(on bool) Option {
	return func(e *Engine) { e.selectedOnly = on }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine returns an Engine driving r.
func NewEngine(r rig.Rig, opts ...Option) *Engine {
	e := &Engine{rig: r, tolerance: xform.DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "blend")
	return e
}

// Report records the outcome for every source control of one pass.
type Report struct {
	T            float64
	Blended      []string
	Unchanged    []string
	Absent       []string
	Missing      []string
	Unselected   []string
	NotBlendable []string
	Failed       []string
}

// Blend moves every control in src toward its value in dst by t, clamped to
// [0, 1]. Controls only present in src, or no longer on the rig, are left
// untouched. Pairs closer than the tolerance are not rewritten. Per-control
// failures are logged and reported without aborting the pass.
func (e *Engine) Blend(src, dst *pose.Snapshot, t float64) (Report, error) {
	if src == nil || dst == nil {
		return Report{}, errors.New("blend requires source and destination snapshots")
	}
	report := Report{T: xform.Clamp01(t)}

	var selected map[string]bool
	if e.selectedOnly {
		ids, err := e.rig.ListControls(true)
		if err != nil {
			return report, err
		}
		selected = make(map[string]bool, len(ids))
		for _, id := range ids {
			selected[id] = true
		}
	}

	if e.viewport != nil {
		e.viewport.SuspendRedraw()
		defer e.viewport.ResumeRedraw()
	}

	src.Each(func(name string, sv pose.Value) bool {
		dv, ok := dst.Get(name)
		if !ok {
			report.Absent = append(report.Absent, name)
			return true
		}
		id := src.Resolve(name)
		if !e.rig.ControlExists(id) {
			report.Missing = append(report.Missing, name)
			e.logger.Debug("control no longer on rig", logging.String(logging.FieldControl, id))
			return true
		}
		if selected != nil && !selected[id] {
			report.Unselected = append(report.Unselected, name)
			return true
		}
		sm, sok := sv.Matrix()
		dm, dok := dv.Matrix()
		if !sok || !dok {
			report.NotBlendable = append(report.NotBlendable, name)
			return true
		}
		if xform.Equivalent(sm, dm, e.tolerance) {
			report.Unchanged = append(report.Unchanged, name)
			return true
		}

		m, err := xform.Blend(sm, dm, report.T)
		if err == nil {
			err = e.rig.SetLocalTransform(id, m)
		}
		if err != nil {
			report.Failed = append(report.Failed, name)
			logging.WarnWithContext(e.logger, "control could not be blended", "blend_control_failed",
				logging.String(logging.FieldControl, id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "control keeps its previous transform"),
			)
			return true
		}
		report.Blended = append(report.Blended, name)
		return true
	})

	e.logger.Debug("blend pass",
		logging.Float64("t", report.T),
		logging.Int("blended", len(report.Blended)),
		logging.Int("unchanged", len(report.Unchanged)),
		logging.Int("failed", len(report.Failed)),
	)
	return report, nil
}
