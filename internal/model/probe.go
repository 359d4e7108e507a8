// Package model defines the data structures for coverage instrumentation and reporting.
package model

// ProbeKind identifies the category of a probe.
type ProbeKind string

const (
	// ProbeStatement counts executions of a statement.
	ProbeStatement ProbeKind = "statement"
	// ProbeFunction counts entries into a function body.
	ProbeFunction ProbeKind = "function"
	// ProbeBranch counts the paths taken through a decision point.
	ProbeBranch ProbeKind = "branch"
)

// BranchType is the Istanbul branch kind.
type BranchType string

const (
	// BranchIf is an if/elseif/else chain. The final path is the else arm,
	// implicit when the source has none.
	BranchIf BranchType = "if"
	// BranchCondExpr is an if-then-else expression.
	BranchCondExpr BranchType = "cond-expr"
	// BranchBinaryExpr is a chain of and/or operands.
	BranchBinaryExpr BranchType = "binary-expr"
	// BranchLoop has two paths: body entered and loop exited.
	BranchLoop BranchType = "loop"
)

// PathAction describes how a branch path is counted at runtime.
type PathAction string

const (
	// ActionEnter counts at the start of a block.
	ActionEnter PathAction = "enter"
	// ActionElse counts in a synthesized else arm.
	ActionElse PathAction = "else"
	// ActionExit counts right after a loop terminates.
	ActionExit PathAction = "exit"
	// ActionWrap counts when a wrapped expression is evaluated.
	ActionWrap PathAction = "wrap"
)

// StatementProbe marks one executable statement.
type StatementProbe struct {
	ID  int
	Loc SourceLocation
}

// FunctionProbe marks one function body.
type FunctionProbe struct {
	ID   int
	Name string
	Line int
	Decl SourceLocation
	Loc  SourceLocation
	// Body spans the function body. Its start is where the entry counter goes.
	Body SourceLocation
}

// BranchPath is one alternative of a branch probe.
type BranchPath struct {
	// Loc is the span reported in the coverage JSON.
	Loc SourceLocation
	// Anchor is where the counter is inserted; a span for wraps, a point otherwise.
	Anchor SourceLocation
	Action PathAction
}

// BranchProbe marks one decision point with its ordered paths.
type BranchProbe struct {
	ID    int
	Type  BranchType
	Line  int
	Loc   SourceLocation
	Paths []BranchPath
}

// BoundaryMap holds every probe of a single module. Ids of each kind are dense
// and start at Base.
type BoundaryMap struct {
	Path       Path
	Hash       string
	Base       int
	Statements []StatementProbe
	Functions  []FunctionProbe
	Branches   []BranchProbe
}

// ProbeCounts summarizes how many probes a boundary map holds.
type ProbeCounts struct {
	Statements  int
	Functions   int
	Branches    int
	BranchPaths int
}

// Counts returns the number of probes per kind.
func (bm *BoundaryMap) Counts() ProbeCounts {
	counts := ProbeCounts{
		Statements: len(bm.Statements),
		Functions:  len(bm.Functions),
		Branches:   len(bm.Branches),
	}
	for _, branch := range bm.Branches {
		counts.BranchPaths += len(branch.Paths)
	}

	return counts
}

// Total returns the number of statement, function and branch probes.
func (c ProbeCounts) Total() int {
	return c.Statements + c.Functions + c.Branches
}

// Empty reports whether the map holds no probes at all.
func (bm *BoundaryMap) Empty() bool {
	return bm.Counts().Total() == 0
}
