package pose

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrControlNotFound = errors.New("control not found")
	ErrValidation      = errors.New("structural validation error")
	ErrIO              = errors.New("io failure")
	ErrEmptySelection  = errors.New("no controls to operate on")
)

// ValidationError describes a malformed pose structure. Control is empty when
// the problem is at the top level.
type ValidationError struct {
	Control string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Control == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: control %q: %s", ErrValidation, e.Control, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(control, format string, args ...any) error {
	return &ValidationError{Control: control, Reason: fmt.Sprintf(format, args...)}
}

// Wrap tags err with one of the sentinel markers above so callers can branch
// with errors.Is while still seeing which control or file failed.
func Wrap(marker error, subject, operation string, err error) error {
	detail := buildDetail(subject, operation)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(subject, operation string) string {
	parts := make([]string, 0, 2)
	if subject = strings.TrimSpace(subject); subject != "" {
		parts = append(parts, subject)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pose operation"
	}
	return strings.Join(parts, ": ")
}
