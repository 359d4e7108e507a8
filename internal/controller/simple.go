package controller

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// SimpleUI implements UI with plain tables written to the command output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(_ ...StartOption) error {
	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {

}

// DisplayModules prints the probe counts of every module.
func (s *SimpleUI) DisplayModules(rows []ModuleRow, diagnostics []m.Diagnostic) error {
	table, buf := newTable([]string{"Path", "Statements", "Functions", "Branches", "Paths", "Test"})

	var total m.ProbeCounts

	for _, row := range rows {
		if row.Ignored {
			table.Append([]string{string(row.Path) + " (ignored)", "-", "-", "-", "-", testCell(row.Test)})
			continue
		}

		total.Statements += row.Counts.Statements
		total.Functions += row.Counts.Functions
		total.Branches += row.Counts.Branches
		total.BranchPaths += row.Counts.BranchPaths

		table.Append([]string{
			string(row.Path),
			fmt.Sprintf("%d", row.Counts.Statements),
			fmt.Sprintf("%d", row.Counts.Functions),
			fmt.Sprintf("%d", row.Counts.Branches),
			fmt.Sprintf("%d", row.Counts.BranchPaths),
			testCell(row.Test),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Modules %d", len(rows)),
		fmt.Sprintf("%d", total.Statements),
		fmt.Sprintf("%d", total.Functions),
		fmt.Sprintf("%d", total.Branches),
		fmt.Sprintf("%d", total.BranchPaths),
		"",
	})

	table.Render()
	s.printf("\n%s", buf.String())
	s.printDiagnostics(diagnostics)

	return nil
}

// DisplayCoverage prints the Istanbul summary percentages per module.
func (s *SimpleUI) DisplayCoverage(summary m.CoverageSummary, diagnostics []m.Diagnostic) error {
	table, buf := newTable([]string{"File", "% Stmts", "% Branch", "% Funcs", "% Lines"})

	for _, path := range summaryPaths(summary) {
		table.Append(summaryRow(path, summary[path]))
	}

	table.SetFooter(summaryRow("All files", summary[m.SummaryTotalKey]))
	table.Render()
	s.printf("\n%s", buf.String())
	s.printDiagnostics(diagnostics)

	return nil
}

// DisplayStats prints the runtime totals, hot spots and hot files.
func (s *SimpleUI) DisplayStats(stats m.RuntimeStats) error {
	totals, buf := newTable([]string{"Kind", "Points", "Hits"})
	totals.Append([]string{"statements", fmt.Sprintf("%d", stats.Statements.Points), fmt.Sprintf("%d", stats.Statements.Hits)})
	totals.Append([]string{"functions", fmt.Sprintf("%d", stats.Functions.Points), fmt.Sprintf("%d", stats.Functions.Hits)})
	totals.Append([]string{"branches", fmt.Sprintf("%d", stats.Branches.Points), fmt.Sprintf("%d", stats.Branches.Hits)})
	totals.Render()
	s.printf("\n%s", buf.String())

	for _, section := range hotSpotSections(stats) {
		if len(section.spots) == 0 {
			continue
		}

		table, buf := newTable([]string{"#", "File", "Line", "Probe", "Hits"})
		for i, spot := range section.spots {
			table.Append([]string{
				fmt.Sprintf("%d", i+1),
				string(spot.File),
				fmt.Sprintf("%d", spot.Line),
				hotSpotLabel(spot),
				fmt.Sprintf("%d", spot.Hits),
			})
		}

		table.Render()
		s.printf("\n%s\n%s", section.title, buf.String())
	}

	if len(stats.HotFiles) == 0 {
		return nil
	}

	table, buf := newTable([]string{"File", "Hits", "Statements", "Functions", "Branches"})
	for _, file := range stats.HotFiles {
		table.Append([]string{
			string(file.File),
			fmt.Sprintf("%d", file.Hits),
			fmt.Sprintf("%d", file.Statements),
			fmt.Sprintf("%d", file.Functions),
			fmt.Sprintf("%d", file.Branches),
		})
	}

	table.Render()
	s.printf("\nHot Files\n%s", buf.String())

	return nil
}

// DisplayRuns prints the saved run index, oldest first.
func (s *SimpleUI) DisplayRuns(runs []adapter.RunEntry) error {
	if len(runs) == 0 {
		s.printf("no saved runs\n")
		return nil
	}

	table, buf := newTable([]string{"Run", "Created", "Origin", "Modules", "% Stmts", "% Branch", "% Funcs", "% Lines"})
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Origin,
			fmt.Sprintf("%d", run.Modules),
			formatPct(run.Statements),
			formatPct(run.Branches),
			formatPct(run.Functions),
			formatPct(run.Lines),
		})
	}

	table.Render()
	s.printf("\n%s", buf.String())

	return nil
}

// DisplayMessage prints one line.
func (s *SimpleUI) DisplayMessage(format string, args ...any) {
	s.printf(format+"\n", args...)
}

func (s *SimpleUI) printDiagnostics(diagnostics []m.Diagnostic) {
	for _, d := range diagnostics {
		s.printf("warning: %s: %s (%s)\n", d.Path, d.Message, d.Kind)
	}
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(header []string) (*tablewriter.Table, *bytes.Buffer) {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	alignment := make([]int, len(header))
	for i := range alignment {
		alignment[i] = tablewriter.ALIGN_RIGHT
	}

	alignment[0] = tablewriter.ALIGN_LEFT
	table.SetColumnAlignment(alignment)

	return table, &buf
}

func testCell(test m.Path) string {
	if test == "" {
		return "-"
	}

	return string(test)
}
