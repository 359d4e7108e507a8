package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkedFailuresMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"analysis", AnalysisFailure(New("unexpected symbol near 'end'")), ErrAnalysisFailure},
		{"instrumentation", InstrumentationFailure(New("reparse failed")), ErrInstrumentationFailure},
		{"hook", HookFailure(New("override refused")), ErrHookFailure},
		{"stale", StaleProbeReference(Newf("unknown module %s", "a.lua")), ErrStaleProbeReference},
		{"report", ReportBuildFailure(New("length mismatch")), ErrReportBuildFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.NotEqual(t, tt.sentinel.Error(), tt.err.Error())
		})
	}
}

func TestMarkedFailureKeepsMessage(t *testing.T) {
	err := Wrap(HookFailure(New("override refused")), "instrument")

	assert.True(t, Is(err, ErrHookFailure))
	assert.False(t, Is(err, ErrAnalysisFailure))
	assert.Contains(t, err.Error(), "override refused")
}
