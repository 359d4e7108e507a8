package luau

import "fmt"

type parser struct {
	lx      *lexer
	tok     Token
	ahead   *Token
	prevEnd Pos
}

// Parse parses a Luau chunk. Errors are *SyntaxError values carrying the
// position of the offending token.
func Parse(name string, src []byte) (chunk *Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}

			se.File = name
			chunk, err = nil, se
		}
	}()

	p := &parser{lx: newLexer(src)}
	p.prevEnd = p.lx.pos()
	p.tok = p.lx.next()

	body := p.block()
	if p.tok.Kind != TokEOF {
		p.errorf("'<eof>' expected near %s", p.tok)
	}

	return &Chunk{Name: name, Body: body, Comments: p.lx.comments}, nil
}

func (p *parser) next() {
	p.prevEnd = p.tok.End

	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil

		return
	}

	p.tok = p.lx.next()
}

func (p *parser) peek() Token {
	if p.ahead == nil {
		t := p.lx.next()
		p.ahead = &t
	}

	return *p.ahead
}

func (p *parser) errorf(format string, args ...any) {
	panic(&SyntaxError{Line: p.tok.Start.Line, Column: p.tok.Start.Column, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) expect(text string) Token {
	if !p.tok.Is(text) {
		p.errorf("'%s' expected near %s", text, p.tok)
	}

	t := p.tok
	p.next()

	return t
}

// expectMatch consumes the closing token of a construct opened on line.
func (p *parser) expectMatch(closing, opening string, line int) Token {
	if p.tok.Is(closing) {
		t := p.tok
		p.next()

		return t
	}

	if line == p.tok.Start.Line {
		p.errorf("'%s' expected near %s", closing, p.tok)
	}

	p.errorf("'%s' expected (to close '%s' at line %d) near %s", closing, opening, line, p.tok)

	return Token{}
}

func (p *parser) expectName() Token {
	if p.tok.Kind != TokName {
		p.errorf("<name> expected near %s", p.tok)
	}

	t := p.tok
	p.next()

	return t
}

func (p *parser) blockFollow() bool {
	if p.tok.Kind == TokEOF {
		return true
	}

	return p.tok.Is("else") || p.tok.Is("elseif") || p.tok.Is("end") || p.tok.Is("until")
}

func (p *parser) block() *Block {
	b := &Block{}
	b.Start = p.prevEnd

	for !p.blockFollow() {
		if p.tok.Is(";") {
			p.next()
			continue
		}

		if p.tok.Is("return") {
			b.Stmts = append(b.Stmts, p.returnStmt())
			break
		}

		b.Stmts = append(b.Stmts, p.statement())
	}

	b.End = p.tok.Start

	return b
}

func (p *parser) statement() Stmt {
	p.skipAttributes()

	switch {
	case p.tok.Is("if"):
		return p.ifStmt()
	case p.tok.Is("while"):
		return p.whileStmt()
	case p.tok.Is("do"):
		start := p.tok.Start
		p.next()
		body := p.block()
		end := p.expectMatch("end", "do", start.Line)

		return &DoStmt{Range: Range{start, end.End}, Body: body}
	case p.tok.Is("for"):
		return p.forStmt()
	case p.tok.Is("repeat"):
		return p.repeatStmt()
	case p.tok.Is("function"):
		return p.functionStmt()
	case p.tok.Is("local"):
		return p.localStmt()
	case p.tok.Is("break"):
		t := p.tok
		p.next()

		return &BreakStmt{Range: Range{t.Start, t.End}}
	case p.tok.IsName("continue") && p.continueFollows():
		t := p.tok
		p.next()

		return &ContinueStmt{Range: Range{t.Start, t.End}}
	case p.tok.IsName("type") && p.typeAliasFollows():
		return p.typeAlias(p.tok.Start, false)
	case p.tok.IsName("export") && p.peek().IsName("type"):
		start := p.tok.Start
		p.next()

		return p.typeAlias(start, true)
	}

	return p.exprStmt()
}

// skipAttributes skips @native style function attributes.
func (p *parser) skipAttributes() {
	for p.tok.Is("@") {
		p.next()
		p.expectName()
	}
}

// continueFollows reports whether a continue name is the statement rather
// than the start of an expression.
func (p *parser) continueFollows() bool {
	next := p.peek()
	if next.Kind == TokString || next.Kind == TokInterpString {
		return false
	}

	switch {
	case next.Is("("), next.Is("."), next.Is("["), next.Is(":"), next.Is("="), next.Is(","), next.Is("{"):
		return false
	case isCompoundOp(next):
		return false
	}

	return true
}

func (p *parser) typeAliasFollows() bool {
	next := p.peek()

	return next.Kind == TokName || next.Is("function")
}

func (p *parser) typeAlias(start Pos, exported bool) Stmt {
	p.next()

	if p.tok.Is("function") {
		fnStart := p.tok.Start
		p.next()
		name := p.expectName()
		fn := p.funcBody(fnStart)

		return &TypeAliasStmt{Range: Range{start, fn.End}, Name: name.Text, Exported: exported}
	}

	name := p.expectName()
	if p.tok.Is("<") {
		p.skipBalanced("<", ">")
	}

	p.expect("=")
	p.skipType()

	return &TypeAliasStmt{Range: Range{start, p.prevEnd}, Name: name.Text, Exported: exported}
}

func (p *parser) ifStmt() Stmt {
	start := p.tok.Start
	s := &IfStmt{}

	for {
		kw := p.tok
		p.next()

		cond := p.expr()
		p.expect("then")
		body := p.block()

		s.Clauses = append(s.Clauses, &IfClause{Range: Range{kw.Start, body.End}, Cond: cond, Body: body})

		if !p.tok.Is("elseif") {
			break
		}
	}

	if p.tok.Is("else") {
		p.next()
		s.Else = p.block()
	}

	end := p.expectMatch("end", "if", start.Line)
	s.EndKw = Range{end.Start, end.End}
	s.Range = Range{start, end.End}

	return s
}

func (p *parser) whileStmt() Stmt {
	start := p.tok.Start
	p.next()

	cond := p.expr()
	p.expect("do")
	body := p.block()
	end := p.expectMatch("end", "while", start.Line)

	return &WhileStmt{Range: Range{start, end.End}, Cond: cond, Body: body}
}

func (p *parser) repeatStmt() Stmt {
	start := p.tok.Start
	p.next()

	body := p.block()
	p.expectMatch("until", "repeat", start.Line)
	cond := p.expr()

	return &RepeatStmt{Range: Range{start, p.prevEnd}, Body: body, Cond: cond}
}

func (p *parser) forStmt() Stmt {
	start := p.tok.Start
	p.next()

	first := p.binding()

	if p.tok.Is("=") {
		p.next()

		s := &NumericForStmt{Var: first}
		s.From = p.expr()
		p.expect(",")
		s.To = p.expr()

		if p.tok.Is(",") {
			p.next()
			s.Step = p.expr()
		}

		p.expect("do")
		s.Body = p.block()
		end := p.expectMatch("end", "for", start.Line)
		s.Range = Range{start, end.End}

		return s
	}

	s := &GenericForStmt{Vars: []*Binding{first}}
	for p.tok.Is(",") {
		p.next()
		s.Vars = append(s.Vars, p.binding())
	}

	p.expect("in")
	s.Exprs = p.exprList()
	p.expect("do")
	s.Body = p.block()
	end := p.expectMatch("end", "for", start.Line)
	s.Range = Range{start, end.End}

	return s
}

// binding parses a name with an optional type annotation.
func (p *parser) binding() *Binding {
	name := p.expectName()
	b := &Binding{Range: Range{name.Start, name.End}, Name: name.Text}

	if p.tok.Is(":") {
		p.next()
		p.skipType()
	}

	return b
}

func (p *parser) functionStmt() Stmt {
	start := p.tok.Start
	p.next()

	nameStart := p.tok.Start
	name := &FuncName{Parts: []string{p.expectName().Text}}

	for p.tok.Is(".") {
		p.next()
		name.Parts = append(name.Parts, p.expectName().Text)
	}

	if p.tok.Is(":") {
		p.next()
		name.Method = p.expectName().Text
	}

	name.Range = Range{nameStart, p.prevEnd}
	fn := p.funcBody(start)

	return &FunctionStmt{Range: Range{start, fn.End}, Name: name, Func: fn}
}

func (p *parser) localStmt() Stmt {
	start := p.tok.Start
	p.next()

	if p.tok.Is("function") {
		fnStart := p.tok.Start
		p.next()

		name := p.expectName()
		fn := p.funcBody(fnStart)

		return &LocalFunctionStmt{
			Range: Range{start, fn.End},
			Name:  &Binding{Range: Range{name.Start, name.End}, Name: name.Text},
			Func:  fn,
		}
	}

	s := &LocalStmt{Names: []*Binding{p.binding()}}
	for p.tok.Is(",") {
		p.next()
		s.Names = append(s.Names, p.binding())
	}

	if p.tok.Is("=") {
		p.next()
		s.Values = p.exprList()
	}

	s.Range = Range{start, p.prevEnd}

	return s
}

func (p *parser) returnStmt() Stmt {
	start := p.tok.Start
	p.next()

	s := &ReturnStmt{}
	if !p.blockFollow() && !p.tok.Is(";") {
		s.Values = p.exprList()
	}

	s.Range = Range{start, p.prevEnd}

	if p.tok.Is(";") {
		p.next()
	}

	return s
}

func (p *parser) exprStmt() Stmt {
	start := p.tok.Start
	first := p.suffixedExpr()

	if p.tok.Is("=") || p.tok.Is(",") {
		targets := []Expr{p.assignable(first)}
		for p.tok.Is(",") {
			p.next()
			targets = append(targets, p.assignable(p.suffixedExpr()))
		}

		p.expect("=")
		values := p.exprList()

		return &AssignStmt{Range: Range{start, p.prevEnd}, Targets: targets, Values: values}
	}

	if isCompoundOp(p.tok) {
		op := p.tok.Text
		target := p.assignable(first)
		p.next()
		value := p.expr()

		return &CompoundAssignStmt{Range: Range{start, p.prevEnd}, Op: op, Target: target, Value: value}
	}

	call, ok := first.(*CallExpr)
	if !ok {
		p.errorf("syntax error near %s", p.tok)
	}

	return &CallStmt{Range: Range{start, p.prevEnd}, Call: call}
}

func (p *parser) assignable(e Expr) Expr {
	switch e.(type) {
	case *NameExpr, *FieldExpr, *IndexExpr:
		return e
	}

	p.errorf("syntax error near %s", p.tok)

	return nil
}

func isCompoundOp(t Token) bool {
	switch {
	case t.Is("+="), t.Is("-="), t.Is("*="), t.Is("/="), t.Is("//="), t.Is("%="), t.Is("^="), t.Is("..="):
		return true
	}

	return false
}

// funcBody parses the parameter list, return type and body of a function
// whose function keyword started at start.
func (p *parser) funcBody(start Pos) *FunctionExpr {
	fn := &FunctionExpr{}
	headerStart := p.tok.Start

	if p.tok.Is("<") {
		p.skipBalanced("<", ">")
	}

	p.expect("(")

	if !p.tok.Is(")") {
		for {
			if p.tok.Is("...") {
				p.next()
				fn.Vararg = true

				if p.tok.Is(":") {
					p.next()
					p.skipType()
				}

				break
			}

			fn.Params = append(fn.Params, p.binding())

			if !p.tok.Is(",") {
				break
			}

			p.next()
		}
	}

	p.expect(")")

	if p.tok.Is(":") {
		p.next()
		p.skipType()
	}

	fn.Header = Range{headerStart, p.prevEnd}
	fn.Body = p.block()

	end := p.expectMatch("end", "function", start.Line)
	fn.EndKw = Range{end.Start, end.End}
	fn.Range = Range{start, end.End}

	return fn
}

func (p *parser) exprList() []Expr {
	list := []Expr{p.expr()}
	for p.tok.Is(",") {
		p.next()
		list = append(list, p.expr())
	}

	return list
}

func (p *parser) expr() Expr {
	return p.subExpr(0)
}

var binaryPriority = map[string][2]int{
	"or": {1, 1}, "and": {2, 2},
	"<": {3, 3}, ">": {3, 3}, "<=": {3, 3}, ">=": {3, 3}, "~=": {3, 3}, "==": {3, 3},
	"..": {9, 8},
	"+": {10, 10}, "-": {10, 10},
	"*": {11, 11}, "/": {11, 11}, "//": {11, 11}, "%": {11, 11},
	"^": {14, 13},
}

const unaryPriority = 12

// subExpr parses a chain of binary operators whose left priority exceeds limit.
func (p *parser) subExpr(limit int) Expr {
	var left Expr

	if p.tok.Is("not") || p.tok.Is("-") || p.tok.Is("#") {
		start := p.tok.Start
		op := p.tok.Text
		p.next()

		operand := p.subExpr(unaryPriority)
		left = &UnaryExpr{Range: Range{start, operand.Bounds().End}, Op: op, Operand: operand}
	} else {
		left = p.simpleExpr()
	}

	for {
		if p.tok.Kind != TokKeyword && p.tok.Kind != TokSymbol {
			break
		}

		prio, ok := binaryPriority[p.tok.Text]
		if !ok || prio[0] <= limit {
			break
		}

		op := p.tok.Text
		p.next()

		right := p.subExpr(prio[1])
		left = &BinaryExpr{Range: Range{left.Bounds().Start, right.Bounds().End}, Op: op, Left: left, Right: right}
	}

	return left
}

func (p *parser) simpleExpr() Expr {
	var e Expr

	start := p.tok.Start
	t := p.tok

	switch {
	case t.Kind == TokNumber:
		p.next()
		e = &NumberExpr{Range: Range{t.Start, t.End}, Raw: t.Text}
	case t.Kind == TokString:
		p.next()
		e = &StringExpr{Range: Range{t.Start, t.End}, Raw: t.Text}
	case t.Kind == TokInterpString:
		p.next()
		e = &InterpStringExpr{Range: Range{t.Start, t.End}, Raw: t.Text}
	case t.Is("nil"):
		p.next()
		e = &NilExpr{Range: Range{t.Start, t.End}}
	case t.Is("true"):
		p.next()
		e = &TrueExpr{Range: Range{t.Start, t.End}}
	case t.Is("false"):
		p.next()
		e = &FalseExpr{Range: Range{t.Start, t.End}}
	case t.Is("..."):
		p.next()
		e = &VarargExpr{Range: Range{t.Start, t.End}}
	case t.Is("{"):
		e = p.table()
	case t.Is("@"):
		p.skipAttributes()
		return p.simpleExpr()
	case t.Is("function"):
		p.next()
		e = p.funcBody(start)
	case t.Is("if"):
		e = p.ifExpr()
	default:
		e = p.suffixedExpr()
	}

	for p.tok.Is("::") {
		p.next()
		p.skipType()
		e = &CastExpr{Range: Range{start, p.prevEnd}, Inner: e}
	}

	return e
}

func (p *parser) primaryExpr() Expr {
	t := p.tok

	switch {
	case t.Kind == TokName:
		p.next()
		return &NameExpr{Range: Range{t.Start, t.End}, Name: t.Text}
	case t.Is("("):
		p.next()
		inner := p.expr()
		p.expectMatch(")", "(", t.Start.Line)

		return &ParenExpr{Range: Range{t.Start, p.prevEnd}, Inner: inner}
	}

	p.errorf("unexpected symbol near %s", t)

	return nil
}

func (p *parser) suffixedExpr() Expr {
	start := p.tok.Start
	e := p.primaryExpr()

	for {
		switch {
		case p.tok.Is("."):
			p.next()
			name := p.expectName()
			e = &FieldExpr{Range: Range{start, name.End}, Object: e, Field: name.Text}
		case p.tok.Is("["):
			p.next()
			key := p.expr()
			p.expect("]")
			e = &IndexExpr{Range: Range{start, p.prevEnd}, Object: e, Key: key}
		case p.tok.Is(":"):
			p.next()
			method := p.expectName()
			args := p.callArgs()
			e = &CallExpr{Range: Range{start, p.prevEnd}, Func: e, Method: method.Text, Args: args}
		case p.tok.Is("("), p.tok.Is("{"), p.tok.Kind == TokString:
			args := p.callArgs()
			e = &CallExpr{Range: Range{start, p.prevEnd}, Func: e, Args: args}
		default:
			return e
		}
	}
}

func (p *parser) callArgs() []Expr {
	t := p.tok

	switch {
	case t.Kind == TokString:
		p.next()
		return []Expr{&StringExpr{Range: Range{t.Start, t.End}, Raw: t.Text}}
	case t.Is("{"):
		return []Expr{p.table()}
	}

	p.expect("(")

	if p.tok.Is(")") {
		p.next()
		return nil
	}

	args := p.exprList()
	p.expectMatch(")", "(", t.Start.Line)

	return args
}

func (p *parser) table() Expr {
	start := p.tok.Start
	p.expect("{")

	t := &TableExpr{}

	for !p.tok.Is("}") {
		fieldStart := p.tok.Start
		f := &TableField{}

		switch {
		case p.tok.Is("["):
			p.next()
			f.Key = p.expr()
			p.expect("]")
			p.expect("=")
			f.Value = p.expr()
		case p.tok.Kind == TokName && p.peek().Is("="):
			f.Name = p.tok.Text
			p.next()
			p.next()
			f.Value = p.expr()
		default:
			f.Value = p.expr()
		}

		f.Range = Range{fieldStart, p.prevEnd}
		t.Fields = append(t.Fields, f)

		if !p.tok.Is(",") && !p.tok.Is(";") {
			break
		}

		p.next()
	}

	p.expectMatch("}", "{", start.Line)
	t.Range = Range{start, p.prevEnd}

	return t
}

func (p *parser) ifExpr() Expr {
	start := p.tok.Start
	p.next()

	e := &IfExpr{}
	e.Conds = append(e.Conds, p.expr())
	p.expect("then")
	e.Values = append(e.Values, p.expr())

	for p.tok.Is("elseif") {
		p.next()
		e.Conds = append(e.Conds, p.expr())
		p.expect("then")
		e.Values = append(e.Values, p.expr())
	}

	p.expect("else")
	e.Values = append(e.Values, p.expr())
	e.Range = Range{start, p.prevEnd}

	return e
}
