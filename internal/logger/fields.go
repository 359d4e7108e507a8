package logger

// Standard field names for structured logging.
const (
	FieldComponent  = "component"
	FieldPath       = "path"
	FieldProbe      = "probe"
	FieldKind       = "kind"
	FieldModules    = "modules"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldRunID      = "run_id"
	FieldMode       = "mode"
	FieldError      = "error"
	FieldMessage    = "message"
)
