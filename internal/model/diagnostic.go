package model

// DiagnosticKind classifies a non-fatal problem observed during a session.
type DiagnosticKind string

const (
	// DiagnosticAnalysis means a module could not be parsed and was left uninstrumented.
	DiagnosticAnalysis DiagnosticKind = "analysis_failure"
	// DiagnosticInstrumentation means instrumented output failed validation.
	DiagnosticInstrumentation DiagnosticKind = "instrumentation_failure"
	// DiagnosticStaleProbe means counts referenced a probe or module that no longer exists.
	DiagnosticStaleProbe DiagnosticKind = "stale_probe_reference"
)

// Diagnostic is one non-fatal problem tied to a module.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Path    Path           `json:"path" yaml:"path"`
	Message string         `json:"message" yaml:"message"`
}
