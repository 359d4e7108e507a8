package luau

import (
	"bytes"
	"fmt"
	"strings"
)

type lexer struct {
	src       []byte
	off       int
	line      int
	lineStart int
	comments  []Comment
}

func newLexer(src []byte) *lexer {
	lx := &lexer{src: src, line: 1}
	if bytes.HasPrefix(src, []byte("#!")) {
		for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
			lx.off++
		}
	}

	return lx
}

// Tokenize splits src into tokens, the last one being TokEOF.
func Tokenize(src []byte) (tokens []Token, comments []Comment, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}

			err = se
		}
	}()

	lx := newLexer(src)

	for {
		tok := lx.next()

		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, lx.comments, nil
		}
	}
}

func (lx *lexer) pos() Pos {
	return Pos{Offset: lx.off, Line: lx.line, Column: lx.off - lx.lineStart}
}

func (lx *lexer) fail(pos Pos, format string, args ...any) {
	panic(&SyntaxError{Line: pos.Line, Column: pos.Column, Msg: fmt.Sprintf(format, args...)})
}

func (lx *lexer) eof() bool {
	return lx.off >= len(lx.src)
}

func (lx *lexer) cur() byte {
	if lx.off < len(lx.src) {
		return lx.src[lx.off]
	}

	return 0
}

func (lx *lexer) peekByte(n int) byte {
	if i := lx.off + n; i < len(lx.src) {
		return lx.src[i]
	}

	return 0
}

func (lx *lexer) advance() {
	if lx.src[lx.off] == '\n' {
		lx.line++
		lx.lineStart = lx.off + 1
	}
	lx.off++
}

func (lx *lexer) next() Token {
	lx.skipSpaceAndComments()

	start := lx.pos()
	if lx.eof() {
		return Token{Kind: TokEOF, Start: start, End: start}
	}

	var kind TokenKind

	c := lx.cur()

	switch {
	case isNameStart(c):
		for !lx.eof() && isNameChar(lx.cur()) {
			lx.advance()
		}

		kind = TokName
		if _, ok := keywords[string(lx.src[start.Offset:lx.off])]; ok {
			kind = TokKeyword
		}
	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		lx.scanNumber(start)
		kind = TokNumber
	case c == '"' || c == '\'':
		lx.scanQuoted(start, c)
		kind = TokString
	case c == '`':
		lx.scanInterp(start)
		kind = TokInterpString
	case c == '[' && lx.isLongBracket():
		lx.scanLongBracket(start, "string")
		kind = TokString
	default:
		lx.scanSymbol(start)
		kind = TokSymbol
	}

	return Token{Kind: kind, Text: string(lx.src[start.Offset:lx.off]), Start: start, End: lx.pos()}
}

func (lx *lexer) skipSpaceAndComments() {
	for !lx.eof() {
		switch c := lx.cur(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			lx.advance()
		case c == '-' && lx.peekByte(1) == '-':
			lx.scanComment()
		default:
			return
		}
	}
}

func (lx *lexer) scanComment() {
	start := lx.pos()
	lx.advance()
	lx.advance()

	if lx.cur() == '[' && lx.isLongBracket() {
		lx.scanLongBracket(start, "comment")
		lx.comments = append(lx.comments, Comment{
			Text:  string(lx.src[start.Offset+2 : lx.off]),
			Start: start,
			End:   lx.pos(),
			Long:  true,
		})

		return
	}

	for !lx.eof() && lx.cur() != '\n' {
		lx.advance()
	}

	lx.comments = append(lx.comments, Comment{
		Text:  strings.TrimRight(string(lx.src[start.Offset+2:lx.off]), "\r"),
		Start: start,
		End:   lx.pos(),
	})
}

// isLongBracket reports whether the cursor sits on [[ or [=*[.
func (lx *lexer) isLongBracket() bool {
	i := 1
	for lx.peekByte(i) == '=' {
		i++
	}

	return lx.peekByte(i) == '['
}

func (lx *lexer) scanLongBracket(start Pos, what string) {
	lx.advance()

	level := 0
	for lx.cur() == '=' {
		level++
		lx.advance()
	}

	lx.advance()

	closing := "]" + strings.Repeat("=", level) + "]"
	for {
		if lx.eof() {
			lx.fail(start, "unfinished long %s", what)
		}

		if bytes.HasPrefix(lx.src[lx.off:], []byte(closing)) {
			for range closing {
				lx.advance()
			}

			return
		}

		lx.advance()
	}
}

func (lx *lexer) scanQuoted(start Pos, quote byte) {
	lx.advance()

	for {
		if lx.eof() || lx.cur() == '\n' {
			lx.fail(start, "unfinished string")
		}

		switch lx.cur() {
		case quote:
			lx.advance()
			return
		case '\\':
			lx.advance()
			if lx.eof() {
				lx.fail(start, "unfinished string")
			}

			if lx.cur() == 'z' {
				lx.advance()
				for !lx.eof() && isSpace(lx.cur()) {
					lx.advance()
				}

				continue
			}

			lx.advance()
		default:
			lx.advance()
		}
	}
}

func (lx *lexer) scanInterp(start Pos) {
	lx.advance()

	for {
		if lx.eof() || lx.cur() == '\n' {
			lx.fail(start, "unfinished interpolated string")
		}

		switch lx.cur() {
		case '`':
			lx.advance()
			return
		case '\\':
			lx.advance()
			if !lx.eof() {
				lx.advance()
			}
		case '{':
			lx.advance()
			lx.scanInterpExpr(start)
		default:
			lx.advance()
		}
	}
}

// scanInterpExpr skips the expression inside {} of an interpolated string.
func (lx *lexer) scanInterpExpr(start Pos) {
	depth := 0

	for {
		if lx.eof() {
			lx.fail(start, "unfinished interpolated string")
		}

		switch c := lx.cur(); {
		case c == '{':
			depth++
			lx.advance()
		case c == '}':
			lx.advance()
			if depth == 0 {
				return
			}
			depth--
		case c == '"' || c == '\'':
			lx.scanQuoted(lx.pos(), c)
		case c == '`':
			lx.scanInterp(lx.pos())
		case c == '[' && lx.isLongBracket():
			lx.scanLongBracket(lx.pos(), "string")
		default:
			lx.advance()
		}
	}
}

func (lx *lexer) scanNumber(start Pos) {
	if lx.cur() == '0' && strings.IndexByte("xXbB", lx.peekByte(1)) >= 0 {
		lx.advance()
		lx.advance()

		for !lx.eof() && (isHexDigit(lx.cur()) || lx.cur() == '_') {
			lx.advance()
		}
	} else {
		for !lx.eof() && (isDigit(lx.cur()) || lx.cur() == '_' || lx.cur() == '.') {
			if lx.cur() == '.' && lx.peekByte(1) == '.' {
				break
			}
			lx.advance()
		}

		if lx.cur() == 'e' || lx.cur() == 'E' {
			lx.advance()
			if lx.cur() == '+' || lx.cur() == '-' {
				lx.advance()
			}

			for !lx.eof() && (isDigit(lx.cur()) || lx.cur() == '_') {
				lx.advance()
			}
		}
	}

	if !lx.eof() && isNameChar(lx.cur()) {
		lx.fail(start, "malformed number near '%s'", lx.src[start.Offset:lx.off+1])
	}
}

func (lx *lexer) scanSymbol(start Pos) {
	rest := lx.src[lx.off:]
	for _, sym := range symbols {
		if bytes.HasPrefix(rest, []byte(sym)) {
			for range sym {
				lx.advance()
			}

			return
		}
	}

	lx.fail(start, "unexpected character '%c'", lx.cur())
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
}
