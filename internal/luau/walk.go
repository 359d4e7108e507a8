package luau

// Inspect traverses the tree rooted at node in source order. If f returns
// false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}

	for _, child := range children(node) {
		Inspect(child, f)
	}
}

func children(node Node) []Node {
	var out []Node

	add := func(nodes ...Node) {
		for _, n := range nodes {
			if n != nil && !isNilNode(n) {
				out = append(out, n)
			}
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			add(e)
		}
	}

	switch n := node.(type) {
	case *Block:
		for _, s := range n.Stmts {
			add(s)
		}
	case *LocalStmt:
		addExprs(n.Values)
	case *AssignStmt:
		addExprs(n.Targets)
		addExprs(n.Values)
	case *CompoundAssignStmt:
		add(n.Target, n.Value)
	case *CallStmt:
		add(n.Call)
	case *DoStmt:
		add(n.Body)
	case *WhileStmt:
		add(n.Cond, n.Body)
	case *RepeatStmt:
		add(n.Body, n.Cond)
	case *IfStmt:
		for _, c := range n.Clauses {
			add(c.Cond, c.Body)
		}
		if n.Else != nil {
			add(n.Else)
		}
	case *NumericForStmt:
		add(n.From, n.To)
		if n.Step != nil {
			add(n.Step)
		}
		add(n.Body)
	case *GenericForStmt:
		addExprs(n.Exprs)
		add(n.Body)
	case *FunctionStmt:
		add(n.Func)
	case *LocalFunctionStmt:
		add(n.Func)
	case *ReturnStmt:
		addExprs(n.Values)
	case *IndexExpr:
		add(n.Object, n.Key)
	case *FieldExpr:
		add(n.Object)
	case *CallExpr:
		add(n.Func)
		addExprs(n.Args)
	case *FunctionExpr:
		add(n.Body)
	case *TableExpr:
		for _, f := range n.Fields {
			if f.Key != nil {
				add(f.Key)
			}
			add(f.Value)
		}
	case *BinaryExpr:
		add(n.Left, n.Right)
	case *UnaryExpr:
		add(n.Operand)
	case *ParenExpr:
		add(n.Inner)
	case *IfExpr:
		for i, c := range n.Conds {
			add(c, n.Values[i])
		}
		add(n.Values[len(n.Values)-1])
	case *CastExpr:
		add(n.Inner)
	}

	return out
}

// isNilNode catches typed nil pointers stored in an interface.
func isNilNode(n Node) bool {
	switch x := n.(type) {
	case *Block:
		return x == nil
	case *CallExpr:
		return x == nil
	case *FunctionExpr:
		return x == nil
	}

	return false
}
