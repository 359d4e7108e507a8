package luau

import "strings"

// Range is the half-open source span of a node.
type Range struct {
	Start Pos
	End   Pos
}

// Bounds returns the span itself so Range satisfies Node when embedded.
func (r Range) Bounds() Range {
	return r
}

// Node is any syntax tree node.
type Node interface {
	Bounds() Range
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Chunk is a parsed source file.
type Chunk struct {
	Name     string
	Body     *Block
	Comments []Comment
}

// Block is a statement list. Its range runs from the end of the opening
// keyword to the start of the closing one.
type Block struct {
	Range
	Stmts []Stmt
}

// Binding is a declared name with its optional type annotation skipped.
type Binding struct {
	Range
	Name string
}

type (
	// LocalStmt is local a, b = x, y.
	LocalStmt struct {
		Range
		Names  []*Binding
		Values []Expr
	}

	// AssignStmt is a, b.c = x, y.
	AssignStmt struct {
		Range
		Targets []Expr
		Values  []Expr
	}

	// CompoundAssignStmt is a += x and its siblings.
	CompoundAssignStmt struct {
		Range
		Op     string
		Target Expr
		Value  Expr
	}

	// CallStmt is a function call used as a statement.
	CallStmt struct {
		Range
		Call *CallExpr
	}

	// DoStmt is do ... end.
	DoStmt struct {
		Range
		Body *Block
	}

	// WhileStmt is while cond do ... end.
	WhileStmt struct {
		Range
		Cond Expr
		Body *Block
	}

	// RepeatStmt is repeat ... until cond.
	RepeatStmt struct {
		Range
		Body *Block
		Cond Expr
	}

	// IfStmt is an if/elseif/else chain. EndKw spans the closing end keyword.
	IfStmt struct {
		Range
		Clauses []*IfClause
		Else    *Block
		EndKw   Range
	}

	// NumericForStmt is for i = a, b[, c] do ... end.
	NumericForStmt struct {
		Range
		Var  *Binding
		From Expr
		To   Expr
		Step Expr
		Body *Block
	}

	// GenericForStmt is for k, v in exprs do ... end.
	GenericForStmt struct {
		Range
		Vars  []*Binding
		Exprs []Expr
		Body  *Block
	}

	// FunctionStmt is function a.b:c() ... end.
	FunctionStmt struct {
		Range
		Name *FuncName
		Func *FunctionExpr
	}

	// LocalFunctionStmt is local function f() ... end.
	LocalFunctionStmt struct {
		Range
		Name *Binding
		Func *FunctionExpr
	}

	// ReturnStmt is return exprs.
	ReturnStmt struct {
		Range
		Values []Expr
	}

	// BreakStmt is break.
	BreakStmt struct {
		Range
	}

	// ContinueStmt is continue.
	ContinueStmt struct {
		Range
	}

	// TypeAliasStmt is [export] type Name<...> = T. It is not executable.
	TypeAliasStmt struct {
		Range
		Name     string
		Exported bool
	}
)

// IfClause is the if or an elseif arm of an IfStmt.
type IfClause struct {
	Range
	Cond Expr
	Body *Block
}

// FuncName is the dotted name of a function statement.
type FuncName struct {
	Range
	Parts  []string
	Method string
}

func (n *FuncName) String() string {
	name := strings.Join(n.Parts, ".")
	if n.Method != "" {
		name += ":" + n.Method
	}

	return name
}

type (
	// NilExpr is nil.
	NilExpr struct{ Range }
	// TrueExpr is true.
	TrueExpr struct{ Range }
	// FalseExpr is false.
	FalseExpr struct{ Range }
	// VarargExpr is ....
	VarargExpr struct{ Range }

	// NumberExpr is a numeric literal.
	NumberExpr struct {
		Range
		Raw string
	}

	// StringExpr is a quoted or long-bracket string literal.
	StringExpr struct {
		Range
		Raw string
	}

	// InterpStringExpr is a backtick string.
	InterpStringExpr struct {
		Range
		Raw string
	}

	// NameExpr is an identifier reference.
	NameExpr struct {
		Range
		Name string
	}

	// IndexExpr is obj[key].
	IndexExpr struct {
		Range
		Object Expr
		Key    Expr
	}

	// FieldExpr is obj.name.
	FieldExpr struct {
		Range
		Object Expr
		Field  string
	}

	// CallExpr is f(args), obj:m(args), f"str" or f{table}.
	CallExpr struct {
		Range
		Func   Expr
		Method string
		Args   []Expr
	}

	// FunctionExpr is function(params) ... end. Its range starts at the
	// function keyword; Header spans the parameter list and return type.
	FunctionExpr struct {
		Range
		Params []*Binding
		Vararg bool
		Header Range
		Body   *Block
		EndKw  Range
	}

	// TableExpr is a table constructor.
	TableExpr struct {
		Range
		Fields []*TableField
	}

	// BinaryExpr is left op right.
	BinaryExpr struct {
		Range
		Op    string
		Left  Expr
		Right Expr
	}

	// UnaryExpr is op operand.
	UnaryExpr struct {
		Range
		Op      string
		Operand Expr
	}

	// ParenExpr is (inner).
	ParenExpr struct {
		Range
		Inner Expr
	}

	// IfExpr is if c then a elseif d then b else e. Values has one more
	// element than Conds; the last is the else value.
	IfExpr struct {
		Range
		Conds  []Expr
		Values []Expr
	}

	// CastExpr is inner :: T.
	CastExpr struct {
		Range
		Inner Expr
	}
)

// TableField is one entry of a table constructor. Key is nil for positional
// entries; Name is set for name = value entries.
type TableField struct {
	Range
	Name  string
	Key   Expr
	Value Expr
}

func (*LocalStmt) stmtNode()          {}
func (*AssignStmt) stmtNode()         {}
func (*CompoundAssignStmt) stmtNode() {}
func (*CallStmt) stmtNode()           {}
func (*DoStmt) stmtNode()             {}
func (*WhileStmt) stmtNode()          {}
func (*RepeatStmt) stmtNode()         {}
func (*IfStmt) stmtNode()             {}
func (*NumericForStmt) stmtNode()     {}
func (*GenericForStmt) stmtNode()     {}
func (*FunctionStmt) stmtNode()       {}
func (*LocalFunctionStmt) stmtNode()  {}
func (*ReturnStmt) stmtNode()         {}
func (*BreakStmt) stmtNode()          {}
func (*ContinueStmt) stmtNode()       {}
func (*TypeAliasStmt) stmtNode()      {}

func (*NilExpr) exprNode()          {}
func (*TrueExpr) exprNode()         {}
func (*FalseExpr) exprNode()        {}
func (*VarargExpr) exprNode()       {}
func (*NumberExpr) exprNode()       {}
func (*StringExpr) exprNode()       {}
func (*InterpStringExpr) exprNode() {}
func (*NameExpr) exprNode()         {}
func (*IndexExpr) exprNode()        {}
func (*FieldExpr) exprNode()        {}
func (*CallExpr) exprNode()         {}
func (*FunctionExpr) exprNode()     {}
func (*TableExpr) exprNode()        {}
func (*BinaryExpr) exprNode()       {}
func (*UnaryExpr) exprNode()        {}
func (*ParenExpr) exprNode()        {}
func (*IfExpr) exprNode()           {}
func (*CastExpr) exprNode()         {}

// Unparen strips enclosing parentheses and casts.
func Unparen(e Expr) Expr {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.Inner
		case *CastExpr:
			e = x.Inner
		default:
			return e
		}
	}
}
