package controller

import (
	"fmt"
	"sort"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func formatPct(pct float64) string {
	return fmt.Sprintf("%.2f", pct)
}

// summaryPaths returns the module keys of a summary, sorted, without the total.
func summaryPaths(summary m.CoverageSummary) []string {
	paths := make([]string, 0, len(summary))
	for path := range summary {
		if path == m.SummaryTotalKey {
			continue
		}

		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}

func summaryRow(label string, s m.FileSummary) []string {
	return []string{
		label,
		formatPct(s.Statements.Pct),
		formatPct(s.Branches.Pct),
		formatPct(s.Functions.Pct),
		formatPct(s.Lines.Pct),
	}
}

func hotSpotLabel(h m.HotSpot) string {
	switch h.Kind {
	case m.ProbeFunction:
		return h.Name
	case m.ProbeBranch:
		return fmt.Sprintf("%s %v", h.Type, h.Paths)
	default:
		return ""
	}
}

type hotSpotSection struct {
	title string
	spots []m.HotSpot
}

func hotSpotSections(stats m.RuntimeStats) []hotSpotSection {
	return []hotSpotSection{
		{title: "Top Statements", spots: stats.TopStatements},
		{title: "Top Functions", spots: stats.TopFunctions},
		{title: "Top Branches", spots: stats.TopBranches},
	}
}
