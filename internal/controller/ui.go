// Package controller renders covpatch results for the terminal.
package controller

import (
	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeList StartMode = iota
	ModeInstrument
	ModeRun
	ModeReport
	ModeView
)

func (s StartMode) String() string {
	switch s {
	case ModeList:
		return "Modules"
	case ModeInstrument:
		return "Instrument"
	case ModeRun:
		return "Coverage Run"
	case ModeReport:
		return "Coverage Report"
	case ModeView:
		return "Saved Reports"
	default:
		return "covpatch"
	}
}

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithListMode sets the UI to module listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithInstrumentMode sets the UI to workspace instrumentation mode.
func WithInstrumentMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeInstrument
	}
}

// WithRunMode sets the UI to coverage run mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithReportMode sets the UI to dump reporting mode.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithViewMode sets the UI to saved report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// ModuleRow is one module of a listing.
type ModuleRow struct {
	Path    m.Path
	Counts  m.ProbeCounts
	Ignored bool
	// Test is the root-relative .spec or .test companion, if any.
	Test m.Path
}

// UI defines how workflow results are shown.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(options ...StartOption) error
	Close()
	DisplayModules(rows []ModuleRow, diagnostics []m.Diagnostic) error
	DisplayCoverage(summary m.CoverageSummary, diagnostics []m.Diagnostic) error
	DisplayStats(stats m.RuntimeStats) error
	DisplayRuns(runs []adapter.RunEntry) error
	DisplayMessage(format string, args ...any)
}
