package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func newBufferedSimpleUI() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return NewSimpleUI(cmd), &buf
}

func assertOutputContains(t *testing.T, output string, wants ...string) {
	t.Helper()

	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q\noutput:\n%s", want, output)
		}
	}
}

func sampleCoverageSummary() m.CoverageSummary {
	a := m.FileSummary{
		Lines:      m.Metric{Total: 4, Covered: 3, Pct: 75},
		Statements: m.Metric{Total: 4, Covered: 3, Pct: 75},
		Functions:  m.Metric{Total: 1, Covered: 1, Pct: 100},
		Branches:   m.Metric{Total: 3, Covered: 1, Pct: 33.333},
	}

	return m.CoverageSummary{"src/A.lua": a, "src/B.lua": a, m.SummaryTotalKey: a}
}

func sampleStats() m.RuntimeStats {
	return m.RuntimeStats{
		Statements:    m.Totals{Points: 2, Hits: 9},
		Functions:     m.Totals{Points: 1, Hits: 3},
		Branches:      m.Totals{Points: 1, Hits: 4},
		TopStatements: []m.HotSpot{{Kind: m.ProbeStatement, ID: 1, File: "src/A.lua", Line: 7, Hits: 6}},
		TopFunctions:  []m.HotSpot{{Kind: m.ProbeFunction, ID: 0, File: "src/A.lua", Line: 3, Hits: 3, Name: "Calc.sum"}},
		TopBranches:   []m.HotSpot{{Kind: m.ProbeBranch, ID: 0, File: "src/B.lua", Line: 2, Hits: 4, Type: m.BranchIf, Paths: []uint64{3, 1}}},
		HotFiles:      []m.HotFile{{File: "src/A.lua", Hits: 12, Statements: 9, Functions: 3}},
	}
}

func TestSimpleUI_DisplayModules_PrintsTable(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	rows := []ModuleRow{
		{Path: "src/A.lua", Test: "src/A.spec.lua", Counts: m.ProbeCounts{Statements: 4, Functions: 1, Branches: 1, BranchPaths: 2}},
		{Path: "src/B.lua", Counts: m.ProbeCounts{Statements: 2, Functions: 2, Branches: 2, BranchPaths: 5}},
		{Path: "src/Generated.lua", Ignored: true},
	}
	diags := []m.Diagnostic{{Kind: m.DiagnosticAnalysis, Path: "src/Bad.lua", Message: "unexpected symbol"}}

	if err := ui.DisplayModules(rows, diags); err != nil {
		t.Fatalf("DisplayModules() error = %v", err)
	}

	assertOutputContains(t, buf.String(),
		"src/A.lua",
		"src/B.lua",
		"src/Generated.lua (ignored)",
		"src/A.spec.lua",
		"TOTAL MODULES 3",
		"7",
		"warning: src/Bad.lua: unexpected symbol (analysis_failure)",
	)
}

func TestSimpleUI_DisplayCoverage_PrintsIstanbulColumns(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	if err := ui.DisplayCoverage(sampleCoverageSummary(), nil); err != nil {
		t.Fatalf("DisplayCoverage() error = %v", err)
	}

	output := buf.String()
	assertOutputContains(t, output, "% STMTS", "% BRANCH", "src/A.lua", "src/B.lua", "75.00", "33.33", "100.00", "ALL FILES")

	if strings.Index(output, "src/A.lua") > strings.Index(output, "src/B.lua") {
		t.Fatalf("modules are not sorted\noutput:\n%s", output)
	}

	if strings.Contains(output, "\ntotal") {
		t.Fatalf("total key should only appear as the footer\noutput:\n%s", output)
	}
}

func TestSimpleUI_DisplayStats(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	if err := ui.DisplayStats(sampleStats()); err != nil {
		t.Fatalf("DisplayStats() error = %v", err)
	}

	assertOutputContains(t, buf.String(),
		"statements", "functions", "branches",
		"Top Statements", "Top Functions", "Top Branches", "Hot Files",
		"Calc.sum", "if [3 1]", "12",
	)
}

func TestSimpleUI_DisplayStats_SkipsEmptySections(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	if err := ui.DisplayStats(m.RuntimeStats{}); err != nil {
		t.Fatalf("DisplayStats() error = %v", err)
	}

	output := buf.String()
	for _, unwanted := range []string{"Top Statements", "Hot Files"} {
		if strings.Contains(output, unwanted) {
			t.Fatalf("output unexpectedly contains %q\noutput:\n%s", unwanted, output)
		}
	}
}

func TestSimpleUI_DisplayRuns(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	if err := ui.DisplayRuns(nil); err != nil {
		t.Fatalf("DisplayRuns() error = %v", err)
	}

	assertOutputContains(t, buf.String(), "no saved runs")
	buf.Reset()

	runs := []adapter.RunEntry{{
		ID:         "3f1c",
		CreatedAt:  time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
		Origin:     "dump",
		Modules:    3,
		Statements: 80,
		Branches:   50,
		Functions:  100,
		Lines:      80,
	}}

	if err := ui.DisplayRuns(runs); err != nil {
		t.Fatalf("DisplayRuns() error = %v", err)
	}

	assertOutputContains(t, buf.String(), "3f1c", "2026-05-06 07:08:09", "dump", "80.00", "50.00")
}

func TestSimpleUI_DisplayMessage(t *testing.T) {
	ui, buf := newBufferedSimpleUI()

	if err := ui.Start(WithRunMode()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ui.Close()

	ui.DisplayMessage("workspace written to %s", "out")

	if got := buf.String(); got != "workspace written to out\n" {
		t.Fatalf("DisplayMessage() output = %q", got)
	}
}
