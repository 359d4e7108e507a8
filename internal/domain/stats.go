package domain

import (
	"sort"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// RuntimeStats ranks probes by hit count. It reads the snapshot only, so two
// calls with the same input return the same result.
func RuntimeStats(maps map[m.Path]*m.BoundaryMap, snap m.Snapshot, opts m.StatsOptions) m.RuntimeStats {
	opts = opts.Normalize()

	var (
		result     m.RuntimeStats
		statements []m.HotSpot
		functions  []m.HotSpot
		branches   []m.HotSpot
	)

	for _, path := range sortedMapPaths(maps) {
		bm := maps[path]
		counts := snap[path]
		file := m.HotFile{File: path}

		if !opts.ExcludeStatements {
			for i, s := range bm.Statements {
				hits := countAt(counts.S, i)
				file.Statements += hits

				if hits < opts.MinHits {
					continue
				}

				result.Statements.Points++
				result.Statements.Hits += hits
				statements = append(statements, m.HotSpot{
					Kind: m.ProbeStatement,
					ID:   s.ID,
					File: path,
					Line: s.Loc.Start.Line,
					Hits: hits,
				})
			}
		}

		if !opts.ExcludeFunctions {
			for i, f := range bm.Functions {
				hits := countAt(counts.F, i)
				file.Functions += hits

				if hits < opts.MinHits {
					continue
				}

				result.Functions.Points++
				result.Functions.Hits += hits
				functions = append(functions, m.HotSpot{
					Kind: m.ProbeFunction,
					ID:   f.ID,
					File: path,
					Line: f.Line,
					Hits: hits,
					Name: f.Name,
				})
			}
		}

		if !opts.ExcludeBranches {
			for i, b := range bm.Branches {
				paths := make([]uint64, len(b.Paths))
				if i < len(counts.B) {
					copy(paths, counts.B[i])
				}

				var hits uint64
				for _, n := range paths {
					hits += n
				}

				file.Branches += hits

				if hits < opts.MinHits {
					continue
				}

				result.Branches.Points++
				result.Branches.Hits += hits
				branches = append(branches, m.HotSpot{
					Kind:  m.ProbeBranch,
					ID:    b.ID,
					File:  path,
					Line:  b.Line,
					Hits:  hits,
					Type:  b.Type,
					Paths: paths,
				})
			}
		}

		file.Hits = file.Statements + file.Functions + file.Branches
		if file.Hits > 0 && file.Hits >= opts.MinHits {
			result.HotFiles = append(result.HotFiles, file)
		}
	}

	result.TopStatements = topSpots(statements, opts.Limit)
	result.TopFunctions = topSpots(functions, opts.Limit)
	result.TopBranches = topSpots(branches, opts.Limit)

	sort.SliceStable(result.HotFiles, func(i, j int) bool {
		a, b := result.HotFiles[i], result.HotFiles[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}

		return a.File < b.File
	})

	if opts.Limit > 0 && len(result.HotFiles) > opts.Limit {
		result.HotFiles = result.HotFiles[:opts.Limit]
	}

	if result.HotFiles == nil {
		result.HotFiles = []m.HotFile{}
	}

	return result
}

// topSpots sorts by hits and keeps the first limit entries; a limit below one
// keeps all of them.
func topSpots(spots []m.HotSpot, limit int) []m.HotSpot {
	sort.SliceStable(spots, func(i, j int) bool {
		a, b := spots[i], spots[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}

		if a.ID != b.ID {
			return a.ID < b.ID
		}

		return a.File < b.File
	})

	if limit > 0 && len(spots) > limit {
		spots = spots[:limit]
	}

	if spots == nil {
		return []m.HotSpot{}
	}

	return spots
}
