package blend

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"posekit/internal/pose"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateSourceCaptured
	StateArmed
	StateBlending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSourceCaptured:
		return "source-captured"
	case StateArmed:
		return "armed"
	case StateBlending:
		return "blending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition reports a session operation issued in the wrong
// state.
var ErrInvalidTransition = errors.New("invalid blend session transition")

// Session is one interactive blend between a freshly captured source and a
// selected destination.
type Session struct {
	id          uuid.UUID
	engine      *Engine
	state       State
	source      *pose.Snapshot
	destination *pose.Snapshot
	label       string
	factor      Factor
	last        Report
}

// NewSession starts an idle session bound to engine.
func NewSession(engine *Engine) *Session {
	return &Session{id: uuid.New(), engine: engine}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State { return s.state }

func (s *Session) Factor() Factor { return s.factor }

func (s *Session) Source() *pose.Snapshot { return s.source }

func (s *Session) Destination() *pose.Snapshot { return s.destination }

// Label names the destination, usually its file path.
func (s *Session) Label() string { return s.label }

// LastReport returns the report of the most recent SetFactor.
func (s *Session) LastReport() Report { return s.last }

// CaptureSource records the pose the blend starts from.
func (s *Session) CaptureSource(src *pose.Snapshot) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: capture source while %s", ErrInvalidTransition, s.state)
	}
	if src.Len() == 0 {
		return pose.ErrEmptySelection
	}
	s.source = src
	s.state = StateSourceCaptured
	return nil
}

// Arm records the destination and resets the factor to zero. Nothing is
// written to the rig.
func (s *Session) Arm(dst *pose.Snapshot, label string) error {
	if s.state != StateSourceCaptured {
		return fmt.Errorf("%w: arm while %s", ErrInvalidTransition, s.state)
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	s.destination = dst
	s.label = label
	s.factor = MinFactor
	s.state = StateArmed
	return nil
}

// SetFactor runs one blend pass at f.
func (s *Session) SetFactor(f Factor) (Report, error) {
	if s.state != StateArmed && s.state != StateBlending {
		return Report{}, fmt.Errorf("%w: set factor while %s", ErrInvalidTransition, s.state)
	}
	f = f.Clamp()
	report, err := s.engine.Blend(s.source, s.destination, f.Normalized())
	if err != nil {
		return report, err
	}
	s.factor = f
	s.last = report
	s.state = StateBlending
	return report, nil
}
