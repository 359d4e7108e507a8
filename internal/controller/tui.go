package controller

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const (
	defaultWidth  = 80
	barWidth      = 20
	goodCoverage  = 80.0
	fairCoverage  = 50.0
	pathMinWidth  = 24
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUI implements UI with styled output and, on a terminal, an interactive
// hot-spot browser.
type TUI struct {
	output  io.Writer
	mode    StartMode
	width   int
	height  int
	runStat func(model tea.Model) error
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	t := &TUI{output: output, width: defaultWidth}
	t.runStat = t.runProgram

	return t
}

// Start records the mode and measures the terminal.
func (t *TUI) Start(options ...StartOption) error {
	t.mode = newStartConfig(options).mode

	if f, ok := t.output.(*os.File); ok {
		if width, height, err := term.GetSize(int(f.Fd())); err == nil {
			t.width = width
			t.height = height
		}
	}

	t.printf("%s\n\n", titleStyle.Render("covpatch · "+t.mode.String()))

	return nil
}

// Close finalizes the UI.
func (t *TUI) Close() {}

// DisplayModules shows the probe counts of every module.
func (t *TUI) DisplayModules(rows []ModuleRow, diagnostics []m.Diagnostic) error {
	pathWidth := t.pathWidth(40)

	t.printf("%s\n", headerStyle.Render(fmt.Sprintf("%-*s %6s %6s %6s %6s", pathWidth, "Module", "Stmts", "Funcs", "Branch", "Paths")))

	var total m.ProbeCounts

	for _, row := range rows {
		path := pathStyle.Render(fmt.Sprintf("%-*s", pathWidth, truncateToWidth(string(row.Path), pathWidth)))

		if row.Ignored {
			t.printf("%s %s\n", path, mutedStyle.Render("ignored"))
			continue
		}

		total.Statements += row.Counts.Statements
		total.Functions += row.Counts.Functions
		total.Branches += row.Counts.Branches
		total.BranchPaths += row.Counts.BranchPaths

		counts := countStyle.Render(fmt.Sprintf("%6d %6d %6d %6d",
			row.Counts.Statements, row.Counts.Functions, row.Counts.Branches, row.Counts.BranchPaths))

		if row.Test != "" {
			counts += " " + mutedStyle.Render(string(row.Test))
		}

		t.printf("%s %s\n", path, counts)
	}

	t.printf("\n%s %s\n", headerStyle.Render(fmt.Sprintf("%-*s", pathWidth, fmt.Sprintf("%d modules", len(rows)))),
		countStyle.Render(fmt.Sprintf("%6d %6d %6d %6d", total.Statements, total.Functions, total.Branches, total.BranchPaths)))

	t.printDiagnostics(diagnostics)

	return nil
}

// DisplayCoverage shows statement coverage bars and the Istanbul percentages.
func (t *TUI) DisplayCoverage(summary m.CoverageSummary, diagnostics []m.Diagnostic) error {
	pathWidth := t.pathWidth(barWidth + 36)
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage())

	t.printf("%s\n", headerStyle.Render(fmt.Sprintf("%-*s %-*s %8s %8s %8s %8s",
		pathWidth, "File", barWidth, "", "% Stmts", "% Branch", "% Funcs", "% Lines")))

	render := func(label string, s m.FileSummary, style lipgloss.Style) {
		t.printf("%s %s %s %s %s %s\n",
			style.Render(fmt.Sprintf("%-*s", pathWidth, truncateToWidth(label, pathWidth))),
			bar.ViewAs(s.Statements.Pct/100),
			pctStyle(s.Statements.Pct).Render(fmt.Sprintf("%8s", formatPct(s.Statements.Pct))),
			pctStyle(s.Branches.Pct).Render(fmt.Sprintf("%8s", formatPct(s.Branches.Pct))),
			pctStyle(s.Functions.Pct).Render(fmt.Sprintf("%8s", formatPct(s.Functions.Pct))),
			pctStyle(s.Lines.Pct).Render(fmt.Sprintf("%8s", formatPct(s.Lines.Pct))),
		)
	}

	for _, path := range summaryPaths(summary) {
		render(path, summary[path], pathStyle)
	}

	t.printf("\n")
	render("All files", summary[m.SummaryTotalKey], headerStyle)
	t.printDiagnostics(diagnostics)

	return nil
}

// DisplayStats shows the runtime hot spots. When the output is a terminal too
// small for them, the interactive browser is opened instead.
func (t *TUI) DisplayStats(stats m.RuntimeStats) error {
	if t.height > 0 && t.statsLines(stats) > t.height {
		model := newStatsModel()
		updated, _ := model.Update(tea.WindowSizeMsg{Width: t.width, Height: t.height})
		updated, _ = updated.Update(statsMsg{stats: stats})

		return t.runStat(updated)
	}

	t.printf("%s\n", headerStyle.Render(fmt.Sprintf("%-12s %8s %10s", "Kind", "Points", "Hits")))
	t.printf("%-12s %8d %10s\n", "statements", stats.Statements.Points, countStyle.Render(fmt.Sprintf("%d", stats.Statements.Hits)))
	t.printf("%-12s %8d %10s\n", "functions", stats.Functions.Points, countStyle.Render(fmt.Sprintf("%d", stats.Functions.Hits)))
	t.printf("%-12s %8d %10s\n", "branches", stats.Branches.Points, countStyle.Render(fmt.Sprintf("%d", stats.Branches.Hits)))

	for _, section := range hotSpotSections(stats) {
		if len(section.spots) == 0 {
			continue
		}

		t.printf("\n%s\n", titleStyle.Render(section.title))

		for i, spot := range section.spots {
			location := fmt.Sprintf("%s:%d", spot.File, spot.Line)
			if label := hotSpotLabel(spot); label != "" {
				location += "  " + label
			}

			t.printf("%3d. %s  %s\n", i+1, countStyle.Render(fmt.Sprintf("%8d", spot.Hits)), pathStyle.Render(location))
		}
	}

	if len(stats.HotFiles) > 0 {
		t.printf("\n%s\n", titleStyle.Render("Hot Files"))

		for i, file := range stats.HotFiles {
			t.printf("%3d. %s  %s\n", i+1, countStyle.Render(fmt.Sprintf("%8d", file.Hits)), pathStyle.Render(string(file.File)))
		}
	}

	return nil
}

// DisplayRuns lists saved runs, oldest first.
func (t *TUI) DisplayRuns(runs []adapter.RunEntry) error {
	if len(runs) == 0 {
		t.printf("%s\n", mutedStyle.Render("📭 No saved runs"))
		return nil
	}

	t.printf("%s\n", headerStyle.Render(fmt.Sprintf("%-36s %-19s %-6s %7s %8s %8s %8s %8s",
		"Run", "Created", "Origin", "Modules", "% Stmts", "% Branch", "% Funcs", "% Lines")))

	for _, run := range runs {
		t.printf("%-36s %-19s %-6s %7d %s %s %s %s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Origin,
			run.Modules,
			pctStyle(run.Statements).Render(fmt.Sprintf("%8s", formatPct(run.Statements))),
			pctStyle(run.Branches).Render(fmt.Sprintf("%8s", formatPct(run.Branches))),
			pctStyle(run.Functions).Render(fmt.Sprintf("%8s", formatPct(run.Functions))),
			pctStyle(run.Lines).Render(fmt.Sprintf("%8s", formatPct(run.Lines))),
		)
	}

	return nil
}

// DisplayMessage prints one line.
func (t *TUI) DisplayMessage(format string, args ...any) {
	t.printf("%s\n", fmt.Sprintf(format, args...))
}

func (t *TUI) printDiagnostics(diagnostics []m.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}

	t.printf("\n")

	for _, d := range diagnostics {
		t.printf("%s %s: %s\n", warningStyle.Render("⚠ "+string(d.Kind)), d.Path, d.Message)
	}
}

// statsLines is the number of lines the static stats view needs.
func (t *TUI) statsLines(stats m.RuntimeStats) int {
	lines := 4

	for _, section := range hotSpotSections(stats) {
		if len(section.spots) > 0 {
			lines += len(section.spots) + 2
		}
	}

	if len(stats.HotFiles) > 0 {
		lines += len(stats.HotFiles) + 2
	}

	return lines
}

func (t *TUI) pathWidth(reserved int) int {
	width := t.width - reserved
	if width < pathMinWidth {
		return pathMinWidth
	}

	return width
}

func (t *TUI) runProgram(model tea.Model) error {
	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

func (t *TUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(t.output, format, args...)
}

func pctStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= goodCoverage:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case pct >= fairCoverage:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
}
