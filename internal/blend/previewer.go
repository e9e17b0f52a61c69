package blend

import (
	"errors"
	"log/slog"

	"posekit/internal/logging"
	"posekit/internal/pose"
)

// ErrNoSession is returned when scrubbing without a selected pose.
var ErrNoSession = errors.New("no pose selected for blending")

// SourceCapturer captures the live rig pose a session starts from.
type SourceCapturer interface {
	CaptureControls(selectedOnly, attributes bool) (*pose.Snapshot, error)
}

// Previewer owns at most one Session at a time.
type Previewer struct {
	engine       *Engine
	capturer     SourceCapturer
	load         func(path string) (*pose.Snapshot, error)
	selectedOnly bool
	session      *Session
	logger       *slog.Logger
}

// PreviewerOption configures a Previewer.
type PreviewerOption func(*Previewer)

// WithLoader replaces pose.ReadFile as the destination loader.
func WithLoader(load func(path string) (*pose.Snapshot, error)) PreviewerOption {
	return func(p *Previewer) { p.load = load }
}

// WithSelectedSource captures only selected controls as the source.
func WithSelectedSource(on bool) PreviewerOption {
	return func(p *Previewer) { p.selectedOnly = on }
}

// WithPreviewLogger sets the base logger.
func WithPreviewLogger(logger *slog.Logger) PreviewerOption {
	return func(p *Previewer) { p.logger = logger }
}

// NewPreviewer returns an idle previewer.
func NewPreviewer(engine *Engine, capturer SourceCapturer, opts ...PreviewerOption) *Previewer {
	p := &Previewer{engine: engine, capturer: capturer, load: pose.ReadFile}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "preview")
	return p
}

// Select discards the current session, loads the destination pose at path
// and captures a fresh source from the rig. The new session starts armed at
// factor zero. On error the previewer is left without a session.
func (p *Previewer) Select(path string) (*Session, error) {
	p.session = nil
	dst, err := p.load(path)
	if err != nil {
		return nil, err
	}
	return p.SelectSnapshot(dst, path)
}

// SelectSnapshot is Select for a destination already in memory.
func (p *Previewer) SelectSnapshot(dst *pose.Snapshot, label string) (*Session, error) {
	p.session = nil
	src, err := p.capturer.CaptureControls(p.selectedOnly, false)
	if err != nil {
		return nil, err
	}
	session := NewSession(p.engine)
	if err := session.CaptureSource(src); err != nil {
		return nil, err
	}
	if err := session.Arm(dst, label); err != nil {
		return nil, err
	}
	p.session = session
	p.logger.Info("pose selected",
		logging.String(logging.FieldPose, label),
		logging.String(logging.FieldSessionID, session.ID().String()),
		logging.Int("controls", dst.Len()),
	)
	return session, nil
}

// SetFactor scrubs the current session.
func (p *Previewer) SetFactor(f Factor) (Report, error) {
	if p.session == nil {
		return Report{}, ErrNoSession
	}
	report, err := p.session.SetFactor(f)
	if err != nil {
		return report, err
	}
	p.logger.Debug("factor set",
		logging.String(logging.FieldSessionID, p.session.ID().String()),
		logging.Int(logging.FieldFactor, int(p.session.Factor())),
		logging.Int("blended", len(report.Blended)),
	)
	return report, nil
}

// Session returns the current session, or nil when idle.
func (p *Previewer) Session() *Session { return p.session }

// Close discards the current session. The rig keeps whatever was last
// written.
func (p *Previewer) Close() {
	p.session = nil
}
