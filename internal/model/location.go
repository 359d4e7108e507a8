package model

// Position is a point in a source file. Line is 1-based and Column is 0-based.
// Offset is the byte offset into the original source and never leaves the process
// through the coverage JSON.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"-" msgpack:"offset"`
}

// SourceLocation is a half-open span between two positions.
type SourceLocation struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Public returns the location without byte offsets.
func (l SourceLocation) Public() SourceLocation {
	l.Start.Offset = 0
	l.End.Offset = 0

	return l
}

// Empty reports whether the location has zero width.
func (l SourceLocation) Empty() bool {
	return l.Start.Offset == l.End.Offset
}

// Point returns a zero-width location at pos.
func Point(pos Position) SourceLocation {
	return SourceLocation{Start: pos, End: pos}
}
