package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// IDMap is an id-keyed JSON object serialized in ascending numeric key order.
type IDMap[T any] map[int]T

// MarshalJSON writes the keys as decimal strings in numeric order.
func (im IDMap[T]) MarshalJSON() ([]byte, error) {
	ids := make([]int, 0, len(im))
	for id := range im {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(id))
		buf.WriteString(`":`)

		value, err := json.Marshal(im[id])
		if err != nil {
			return nil, err
		}

		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object with decimal string keys.
func (im *IDMap[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]T
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(IDMap[T], len(raw))

	for key, value := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid probe id %q: %w", key, err)
		}

		out[id] = value
	}

	*im = out

	return nil
}

// FnEntry is an Istanbul fnMap entry.
type FnEntry struct {
	Name string         `json:"name"`
	Decl SourceLocation `json:"decl"`
	Loc  SourceLocation `json:"loc"`
	Line int            `json:"line"`
}

// BranchEntry is an Istanbul branchMap entry.
type BranchEntry struct {
	Type      BranchType       `json:"type"`
	Line      int              `json:"line"`
	Loc       SourceLocation   `json:"loc"`
	Locations []SourceLocation `json:"locations"`
}

// CoverageRecord is the Istanbul file coverage object of one module.
type CoverageRecord struct {
	Path         Path                  `json:"path"`
	StatementMap IDMap[SourceLocation] `json:"statementMap"`
	FnMap        IDMap[FnEntry]        `json:"fnMap"`
	BranchMap    IDMap[BranchEntry]    `json:"branchMap"`
	S            IDMap[uint64]         `json:"s"`
	F            IDMap[uint64]         `json:"f"`
	B            IDMap[[]uint64]       `json:"b"`
}

// Report maps module paths to their coverage records.
type Report map[Path]CoverageRecord

// Summary is the per-module line fold of statement counts.
type Summary struct {
	Executed int           `json:"executed"`
	Total    int           `json:"total"`
	Lines    IDMap[uint64] `json:"lines"`
}

// Metric is one Istanbul json-summary metric.
type Metric struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Skipped int     `json:"skipped"`
	Pct     float64 `json:"pct"`
}

// FileSummary is the Istanbul json-summary entry of one module.
type FileSummary struct {
	Lines      Metric `json:"lines"`
	Statements Metric `json:"statements"`
	Functions  Metric `json:"functions"`
	Branches   Metric `json:"branches"`
}

// CoverageSummary maps module paths, plus "total", to their json-summary entries.
type CoverageSummary map[string]FileSummary

// SummaryTotalKey is the aggregate entry of a CoverageSummary.
const SummaryTotalKey = "total"
