// Package errors provides error handling for covpatch.
//
// It re-exports github.com/cockroachdb/errors and declares the sentinel errors
// that classify coverage failures. Callers check a failure class with Is:
//
//	if errors.Is(err, errors.ErrHookFailure) {
//	    // the host could not install counting functions
//	}
//
// Failures are classified with Mark so that the original message and stack
// are preserved while Is still matches the sentinel.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection and classification
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	Mark          = crdb.Mark
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	CombineErrors = crdb.CombineErrors
)

// Sentinel errors for the coverage pipeline.
var (
	// ErrAnalysisFailure indicates a module could not be parsed.
	ErrAnalysisFailure = New("analysis failure")

	// ErrInstrumentationFailure indicates instrumented source failed validation.
	ErrInstrumentationFailure = New("instrumentation failure")

	// ErrHookFailure indicates the host refused to install counting functions or overrides.
	ErrHookFailure = New("hook failure")

	// ErrStaleProbeReference indicates a counter update referenced an unknown module or probe.
	ErrStaleProbeReference = New("stale probe reference")

	// ErrReportBuildFailure indicates boundary maps and counters disagree in shape.
	ErrReportBuildFailure = New("report build failure")

	// ErrNotInstrumented indicates an operation that needs an active session was called without one.
	ErrNotInstrumented = New("not instrumented")
)

// AnalysisFailure marks err as an analysis failure.
func AnalysisFailure(err error) error {
	return Mark(err, ErrAnalysisFailure)
}

// InstrumentationFailure marks err as an instrumentation failure.
func InstrumentationFailure(err error) error {
	return Mark(err, ErrInstrumentationFailure)
}

// HookFailure marks err as a hook failure.
func HookFailure(err error) error {
	return Mark(err, ErrHookFailure)
}

// StaleProbeReference marks err as a stale probe reference.
func StaleProbeReference(err error) error {
	return Mark(err, ErrStaleProbeReference)
}

// ReportBuildFailure marks err as a report build failure.
func ReportBuildFailure(err error) error {
	return Mark(err, ErrReportBuildFailure)
}
