package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// BuildReport joins boundary maps with counter values into Istanbul records.
// Every probe appears in the record, with zero when it was never hit. Counts
// that point past the probes of their module, and modules without a map, are
// dropped and reported as diagnostics.
func BuildReport(maps map[m.Path]*m.BoundaryMap, snap m.Snapshot) (m.Report, []m.Diagnostic, error) {
	report := make(m.Report, len(maps))

	var diags []m.Diagnostic

	for _, path := range sortedMapPaths(maps) {
		bm := maps[path]
		counts, ok := snap[path]

		record, stale, err := buildRecord(bm, counts, ok)
		if err != nil {
			return nil, nil, err
		}

		if stale > 0 {
			diags = append(diags, m.Diagnostic{
				Kind:    m.DiagnosticStaleProbe,
				Path:    path,
				Message: fmt.Sprintf("%d counts referenced unknown probes", stale),
			})
		}

		report[path] = record
	}

	for _, path := range sortedSnapshotPaths(snap) {
		if _, ok := maps[path]; !ok {
			diags = append(diags, m.Diagnostic{
				Kind:    m.DiagnosticStaleProbe,
				Path:    path,
				Message: "counts recorded for a module without a boundary map",
			})
		}
	}

	return report, diags, nil
}

func buildRecord(bm *m.BoundaryMap, counts m.ModuleCounts, haveCounts bool) (m.CoverageRecord, int, error) {
	record := m.CoverageRecord{
		Path:         bm.Path,
		StatementMap: make(m.IDMap[m.SourceLocation], len(bm.Statements)),
		FnMap:        make(m.IDMap[m.FnEntry], len(bm.Functions)),
		BranchMap:    make(m.IDMap[m.BranchEntry], len(bm.Branches)),
		S:            make(m.IDMap[uint64], len(bm.Statements)),
		F:            make(m.IDMap[uint64], len(bm.Functions)),
		B:            make(m.IDMap[[]uint64], len(bm.Branches)),
	}

	if haveCounts && counts.Base != bm.Base {
		return record, 0, errors.ReportBuildFailure(errors.Newf("%s: counters use base %d, map uses %d", bm.Path, counts.Base, bm.Base))
	}

	stale := 0

	for i, s := range bm.Statements {
		record.StatementMap[s.ID] = s.Loc.Public()
		record.S[s.ID] = countAt(counts.S, i)
	}

	stale += extra(counts.S, len(bm.Statements))

	for i, f := range bm.Functions {
		record.FnMap[f.ID] = m.FnEntry{
			Name: f.Name,
			Decl: f.Decl.Public(),
			Loc:  f.Loc.Public(),
			Line: f.Line,
		}
		record.F[f.ID] = countAt(counts.F, i)
	}

	stale += extra(counts.F, len(bm.Functions))

	for i, b := range bm.Branches {
		locations := make([]m.SourceLocation, len(b.Paths))
		for k, p := range b.Paths {
			locations[k] = p.Loc.Public()
		}

		record.BranchMap[b.ID] = m.BranchEntry{
			Type:      b.Type,
			Line:      b.Line,
			Loc:       b.Loc.Public(),
			Locations: locations,
		}

		hits := make([]uint64, len(b.Paths))

		if i < len(counts.B) {
			if len(counts.B[i]) != len(b.Paths) {
				return record, 0, errors.ReportBuildFailure(errors.Newf(
					"%s: branch %d has %d paths but %d counters", bm.Path, b.ID, len(b.Paths), len(counts.B[i])))
			}

			copy(hits, counts.B[i])
		}

		record.B[b.ID] = hits
	}

	if len(counts.B) > len(bm.Branches) {
		stale += len(counts.B) - len(bm.Branches)
	}

	return record, stale, nil
}

func countAt(counts []uint64, i int) uint64 {
	if i < len(counts) {
		return counts[i]
	}

	return 0
}

func extra(counts []uint64, n int) int {
	if len(counts) > n {
		return len(counts) - n
	}

	return 0
}

// Summarize folds statement counts onto source lines. A line's count is the
// highest count of the statements starting on it.
func Summarize(report m.Report) map[m.Path]m.Summary {
	out := make(map[m.Path]m.Summary, len(report))

	for path, record := range report {
		lines := make(m.IDMap[uint64])

		for id, loc := range record.StatementMap {
			line := loc.Start.Line

			count := record.S[id]
			if prev, ok := lines[line]; !ok || prev < count {
				lines[line] = count
			}
		}

		executed := 0

		for _, count := range lines {
			if count > 0 {
				executed++
			}
		}

		out[path] = m.Summary{Executed: executed, Total: len(lines), Lines: lines}
	}

	return out
}

// CoverageSummary computes Istanbul json-summary metrics per module and in total.
func CoverageSummary(report m.Report) m.CoverageSummary {
	out := make(m.CoverageSummary, len(report)+1)
	summaries := Summarize(report)

	var total m.FileSummary

	for path, record := range report {
		fs := m.FileSummary{
			Lines:      metric(summaries[path].Total, summaries[path].Executed),
			Statements: countMetric(record.S),
			Functions:  countMetric(record.F),
			Branches:   branchMetric(record.B),
		}

		out[string(path)] = fs

		total.Lines = addMetric(total.Lines, fs.Lines)
		total.Statements = addMetric(total.Statements, fs.Statements)
		total.Functions = addMetric(total.Functions, fs.Functions)
		total.Branches = addMetric(total.Branches, fs.Branches)
	}

	out[m.SummaryTotalKey] = total

	return out
}

func countMetric(counts m.IDMap[uint64]) m.Metric {
	covered := 0

	for _, c := range counts {
		if c > 0 {
			covered++
		}
	}

	return metric(len(counts), covered)
}

func branchMetric(counts m.IDMap[[]uint64]) m.Metric {
	total, covered := 0, 0

	for _, paths := range counts {
		for _, c := range paths {
			total++

			if c > 0 {
				covered++
			}
		}
	}

	return metric(total, covered)
}

func addMetric(a, b m.Metric) m.Metric {
	return metric(a.Total+b.Total, a.Covered+b.Covered)
}

// metric mirrors Istanbul's percentage: floored to three decimals, 100 when empty.
func metric(total, covered int) m.Metric {
	pct := 100.0
	if total > 0 {
		pct = math.Floor(1000*100*float64(covered)/float64(total)) / 1000
	}

	return m.Metric{Total: total, Covered: covered, Pct: pct}
}

func sortedMapPaths(maps map[m.Path]*m.BoundaryMap) []m.Path {
	paths := make([]m.Path, 0, len(maps))
	for path := range maps {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths
}

func sortedSnapshotPaths(snap m.Snapshot) []m.Path {
	paths := make([]m.Path, 0, len(snap))
	for path := range snap {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths
}
