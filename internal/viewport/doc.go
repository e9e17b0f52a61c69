// Package viewport models the display state a thumbnail capture has to
// change and put back.
//
// Every display flag is a named field on Flags; there is no lookup by flag
// name. Saving and restoring is plain value passing: CaptureState returns a
// State, ApplyState consumes one, and WithState brackets a callback so the
// original state is always reapplied.
package viewport
