// Package domain contains the coverage pipeline: analysis, instrumentation,
// counting, reporting and the engine that ties them to a host.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/luau"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// ErrModuleIgnored is returned for modules that opt out with a file directive.
var ErrModuleIgnored = errors.New("module ignored by directive")

// Analyzer computes the probe boundaries of a Luau module.
type Analyzer interface {
	Analyze(path m.Path, src []byte) (*m.BoundaryMap, error)
}

type analyzer struct {
	luauAdapter adapter.LuauFileAdapter
	baseID      int
}

// NewAnalyzer creates an Analyzer whose probe ids start at baseID.
func NewAnalyzer(luauAdapter adapter.LuauFileAdapter, baseID int) Analyzer {
	return &analyzer{luauAdapter: luauAdapter, baseID: baseID}
}

func (a *analyzer) Analyze(path m.Path, src []byte) (*m.BoundaryMap, error) {
	chunk, err := a.luauAdapter.Parse(string(path), src)
	if err != nil {
		return nil, errors.AnalysisFailure(errors.Wrap(err, "analyze"))
	}

	ignore := buildIgnoreIndex(chunk, src)
	if ignore.skipsModule() {
		return nil, ErrModuleIgnored
	}

	w := &probeWalker{
		bm: &m.BoundaryMap{
			Path: path,
			Hash: hashContent(src),
			Base: a.baseID,
		},
		ignore: ignore,
	}
	w.block(chunk.Body)

	return w.bm, nil
}

func hashContent(src []byte) string {
	sum := sha256.Sum256(src)

	return hex.EncodeToString(sum[:])
}

// probeWalker assigns ids in source order: a node's probes come before the
// probes of its children.
type probeWalker struct {
	bm     *m.BoundaryMap
	ignore ignoreIndex
}

func (w *probeWalker) block(b *luau.Block) {
	for _, s := range b.Stmts {
		w.stmt(s)
	}
}

func (w *probeWalker) stmt(s luau.Stmt) {
	r := s.Bounds()
	if w.ignore.skipsSubtree(r.Start.Line) {
		return
	}

	if _, ok := s.(*luau.TypeAliasStmt); ok {
		return
	}

	w.addStatement(r)

	switch n := s.(type) {
	case *luau.LocalStmt:
		for i, v := range n.Values {
			name := ""
			if i < len(n.Names) {
				name = n.Names[i].Name
			}

			w.expr(v, name)
		}
	case *luau.AssignStmt:
		for _, t := range n.Targets {
			w.expr(t, "")
		}

		for i, v := range n.Values {
			name := ""
			if i < len(n.Targets) {
				name = exprName(n.Targets[i])
			}

			w.expr(v, name)
		}
	case *luau.CompoundAssignStmt:
		w.expr(n.Target, "")
		w.expr(n.Value, "")
	case *luau.CallStmt:
		w.expr(n.Call, "")
	case *luau.DoStmt:
		w.block(n.Body)
	case *luau.WhileStmt:
		w.loop(r, n.Body)
		w.expr(n.Cond, "")
		w.block(n.Body)
	case *luau.RepeatStmt:
		w.loop(r, n.Body)
		w.block(n.Body)
		w.expr(n.Cond, "")
	case *luau.NumericForStmt:
		w.loop(r, n.Body)
		w.expr(n.From, "")
		w.expr(n.To, "")

		if n.Step != nil {
			w.expr(n.Step, "")
		}

		w.block(n.Body)
	case *luau.GenericForStmt:
		w.loop(r, n.Body)

		for _, e := range n.Exprs {
			w.expr(e, "")
		}

		w.block(n.Body)
	case *luau.IfStmt:
		w.ifBranch(n)

		for _, c := range n.Clauses {
			w.expr(c.Cond, "")
			w.block(c.Body)
		}

		if n.Else != nil {
			w.block(n.Else)
		}
	case *luau.FunctionStmt:
		w.function(n.Name.String(), luau.Range{Start: n.Start, End: n.Name.End}, n.Func)
	case *luau.LocalFunctionStmt:
		w.function(n.Name.Name, luau.Range{Start: n.Func.Start, End: n.Name.End}, n.Func)
	case *luau.ReturnStmt:
		for _, e := range n.Values {
			w.expr(e, "")
		}
	}
}

// expr visits an expression. name is the binding the value is assigned to,
// used to name function expressions.
func (w *probeWalker) expr(e luau.Expr, name string) {
	switch n := e.(type) {
	case *luau.FunctionExpr:
		keyword := luau.Range{Start: n.Start, End: luau.Pos{
			Offset: n.Start.Offset + len("function"),
			Line:   n.Start.Line,
			Column: n.Start.Column + len("function"),
		}}
		w.function(name, keyword, n)
	case *luau.BinaryExpr:
		if isLogicalOp(n.Op) {
			w.logical(n)
			return
		}

		w.expr(n.Left, "")
		w.expr(n.Right, "")
	case *luau.ParenExpr:
		if isLogicalExpr(n.Inner) {
			w.logical(n)
			return
		}

		w.expr(n.Inner, name)
	case *luau.CastExpr:
		w.expr(n.Inner, name)
	case *luau.UnaryExpr:
		w.expr(n.Operand, "")
	case *luau.CallExpr:
		w.expr(n.Func, "")

		for _, arg := range n.Args {
			w.expr(arg, "")
		}
	case *luau.IndexExpr:
		w.expr(n.Object, "")
		w.expr(n.Key, "")
	case *luau.FieldExpr:
		w.expr(n.Object, "")
	case *luau.TableExpr:
		for _, f := range n.Fields {
			if f.Key != nil {
				w.expr(f.Key, "")
			}

			w.expr(f.Value, f.Name)
		}
	case *luau.IfExpr:
		w.condExpr(n)
	}
}

func (w *probeWalker) function(name string, decl luau.Range, fn *luau.FunctionExpr) {
	if !w.ignore.ignores(fn.Start.Line, m.ProbeFunction) {
		id := w.bm.Base + len(w.bm.Functions)
		if name == "" {
			name = fmt.Sprintf("(anonymous_%d)", id)
		}

		w.bm.Functions = append(w.bm.Functions, m.FunctionProbe{
			ID:   id,
			Name: name,
			Line: decl.Start.Line,
			Decl: toLoc(decl),
			Loc:  toLoc(luau.Range{Start: fn.Header.Start, End: fn.End}),
			Body: toLoc(fn.Body.Range),
		})
	}

	w.block(fn.Body)
}

func (w *probeWalker) loop(r luau.Range, body *luau.Block) {
	w.addBranch(m.BranchLoop, r, []m.BranchPath{
		enterPath(body),
		{Loc: toLoc(r), Anchor: m.Point(toPos(r.End)), Action: m.ActionExit},
	})
}

func (w *probeWalker) ifBranch(n *luau.IfStmt) {
	paths := make([]m.BranchPath, 0, len(n.Clauses)+1)
	for _, c := range n.Clauses {
		paths = append(paths, enterPath(c.Body))
	}

	if n.Else != nil {
		paths = append(paths, enterPath(n.Else))
	} else {
		paths = append(paths, m.BranchPath{
			Loc:    toLoc(n.Range),
			Anchor: m.Point(toPos(n.EndKw.Start)),
			Action: m.ActionElse,
		})
	}

	w.addBranch(m.BranchIf, n.Range, paths)
}

func (w *probeWalker) condExpr(n *luau.IfExpr) {
	paths := make([]m.BranchPath, 0, len(n.Values))
	for _, v := range n.Values {
		paths = append(paths, wrapPath(v))
	}

	w.addBranch(m.BranchCondExpr, n.Range, paths)

	for i, c := range n.Conds {
		w.expr(c, "")
		w.expr(n.Values[i], "")
	}

	w.expr(n.Values[len(n.Values)-1], "")
}

// logical records one binary-expr branch for a whole and/or chain, one path
// per operand leaf, flattening parentheses.
func (w *probeWalker) logical(root luau.Expr) {
	leaves := logicalLeaves(root, nil)

	paths := make([]m.BranchPath, 0, len(leaves))
	for _, leaf := range leaves {
		paths = append(paths, wrapPath(leaf))
	}

	w.addBranch(m.BranchBinaryExpr, root.Bounds(), paths)

	for _, leaf := range leaves {
		w.expr(leaf, "")
	}
}

func (w *probeWalker) addStatement(r luau.Range) {
	if w.ignore.ignores(r.Start.Line, m.ProbeStatement) {
		return
	}

	w.bm.Statements = append(w.bm.Statements, m.StatementProbe{
		ID:  w.bm.Base + len(w.bm.Statements),
		Loc: toLoc(r),
	})
}

func (w *probeWalker) addBranch(typ m.BranchType, r luau.Range, paths []m.BranchPath) {
	if w.ignore.ignores(r.Start.Line, m.ProbeBranch) {
		return
	}

	w.bm.Branches = append(w.bm.Branches, m.BranchProbe{
		ID:    w.bm.Base + len(w.bm.Branches),
		Type:  typ,
		Line:  r.Start.Line,
		Loc:   toLoc(r),
		Paths: paths,
	})
}

func logicalLeaves(e luau.Expr, out []luau.Expr) []luau.Expr {
	switch n := e.(type) {
	case *luau.BinaryExpr:
		if isLogicalOp(n.Op) {
			out = logicalLeaves(n.Left, out)
			return logicalLeaves(n.Right, out)
		}
	case *luau.ParenExpr:
		if isLogicalExpr(n.Inner) {
			return logicalLeaves(n.Inner, out)
		}
	}

	return append(out, e)
}

func isLogicalOp(op string) bool {
	return op == "and" || op == "or"
}

func isLogicalExpr(e luau.Expr) bool {
	switch n := e.(type) {
	case *luau.BinaryExpr:
		return isLogicalOp(n.Op)
	case *luau.ParenExpr:
		return isLogicalExpr(n.Inner)
	}

	return false
}

func exprName(e luau.Expr) string {
	switch n := e.(type) {
	case *luau.NameExpr:
		return n.Name
	case *luau.FieldExpr:
		if base := exprName(n.Object); base != "" {
			return base + "." + n.Field
		}

		return n.Field
	}

	return ""
}

func enterPath(b *luau.Block) m.BranchPath {
	return m.BranchPath{Loc: blockLoc(b), Anchor: m.Point(toPos(b.Start)), Action: m.ActionEnter}
}

func wrapPath(e luau.Expr) m.BranchPath {
	loc := toLoc(e.Bounds())

	return m.BranchPath{Loc: loc, Anchor: loc, Action: m.ActionWrap}
}

// blockLoc spans the statements of a block, or is empty at its start.
func blockLoc(b *luau.Block) m.SourceLocation {
	if len(b.Stmts) == 0 {
		return m.Point(toPos(b.Start))
	}

	return m.SourceLocation{
		Start: toPos(b.Stmts[0].Bounds().Start),
		End:   toPos(b.Stmts[len(b.Stmts)-1].Bounds().End),
	}
}

func toPos(p luau.Pos) m.Position {
	return m.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

func toLoc(r luau.Range) m.SourceLocation {
	return m.SourceLocation{Start: toPos(r.Start), End: toPos(r.End)}
}
