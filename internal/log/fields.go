package log

// Canonical field names.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldCrew      = "crew"
	FieldTask      = "task"
	FieldAgent     = "agent"
	FieldAttempt   = "attempt"
	FieldPath      = "path"
)
