package logging

const (
	// FieldComponent names the subsystem that emitted a record.
	FieldComponent = "component"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldControl is a rig control identifier.
	FieldControl = "control"
	// FieldPose is a pose name or path.
	FieldPose = "pose"
	// FieldNamespace is the rig namespace a snapshot resolves against.
	FieldNamespace = "namespace"
	// FieldSessionID identifies a blend session.
	FieldSessionID = "session_id"
	// FieldFactor is a blend factor in the 0..100 slider range.
	FieldFactor = "factor"
	// FieldAlert flags records that should stand out.
	FieldAlert = "alert"
)
