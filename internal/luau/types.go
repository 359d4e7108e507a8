package luau

// Type annotations carry no runtime behavior, so the parser skips them
// without building nodes.

func (p *parser) skipType() {
	if p.tok.Is("|") || p.tok.Is("&") {
		p.next()
	}

	p.skipSimpleType()

	for {
		switch {
		case p.tok.Is("?"):
			p.next()
		case p.tok.Is("|"), p.tok.Is("&"):
			p.next()
			p.skipSimpleType()
		default:
			return
		}
	}
}

func (p *parser) skipSimpleType() {
	t := p.tok

	switch {
	case t.IsName("typeof") && p.peek().Is("("):
		p.next()
		p.skipBalanced("(", ")")
	case t.Kind == TokName:
		p.next()

		for p.tok.Is(".") {
			p.next()
			p.expectName()
		}

		if p.tok.Is("<") {
			p.skipBalanced("<", ">")
		}

		if p.tok.Is("...") {
			p.next()
		}
	case t.Is("nil"), t.Is("true"), t.Is("false"), t.Kind == TokString:
		p.next()
	case t.Is("{"):
		p.skipBalanced("{", "}")
	case t.Is("("):
		p.skipBalanced("(", ")")
		p.skipFunctionTypeTail()
	case t.Is("<"):
		p.skipBalanced("<", ">")

		if p.tok.Is("(") {
			p.skipBalanced("(", ")")
		}

		p.skipFunctionTypeTail()
	case t.Is("..."):
		p.next()

		if p.typeStarts() {
			p.skipSimpleType()
		}
	default:
		p.errorf("type expected near %s", t)
	}
}

func (p *parser) skipFunctionTypeTail() {
	if p.tok.Is("->") {
		p.next()
		p.skipType()
	}
}

func (p *parser) typeStarts() bool {
	t := p.tok

	return t.Kind == TokName || t.Kind == TokString ||
		t.Is("nil") || t.Is("true") || t.Is("false") ||
		t.Is("{") || t.Is("(") || t.Is("<")
}

// skipBalanced consumes tokens from open up to its matching close.
func (p *parser) skipBalanced(open, close string) {
	line := p.tok.Start.Line
	p.expect(open)

	depth := 1
	for depth > 0 {
		switch {
		case p.tok.Kind == TokEOF:
			p.errorf("'%s' expected (to close '%s' at line %d) near %s", close, open, line, p.tok)
		case p.tok.Is(open):
			depth++
		case p.tok.Is(close):
			depth--
		}

		p.next()
	}
}
