// Package luau implements a lexer and parser for Luau, the Lua dialect used by
// Roblox. The parser keeps byte offsets, lines and columns for every node so
// that callers can edit the original text without reformatting it.
package luau

import "fmt"

// Pos is a point in the source. Line is 1-based, Column is a 0-based byte column.
type Pos struct {
	Offset int
	Line   int
	Column int
}

// TokenKind classifies a token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokName
	TokNumber
	TokString
	TokInterpString
	TokKeyword
	TokSymbol
)

// Token is one lexical unit. Text is the raw source text.
type Token struct {
	Kind  TokenKind
	Text  string
	Start Pos
	End   Pos
}

// Is reports whether the token is the keyword or symbol text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokKeyword || t.Kind == TokSymbol) && t.Text == text
}

// IsName reports whether the token is the identifier text. Contextual keywords
// such as continue, type and export are lexed as names.
func (t Token) IsName(text string) bool {
	return t.Kind == TokName && t.Text == text
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return "<eof>"
	}

	return fmt.Sprintf("'%s'", t.Text)
}

// Comment is a line or long comment, text included without the leading dashes.
type Comment struct {
	Text  string
	Start Pos
	End   Pos
	// Long is set for --[[ ]] comments.
	Long bool
}

var keywords = map[string]struct{}{
	"and": {}, "break": {}, "do": {}, "else": {}, "elseif": {}, "end": {},
	"false": {}, "for": {}, "function": {}, "if": {}, "in": {}, "local": {},
	"nil": {}, "not": {}, "or": {}, "repeat": {}, "return": {}, "then": {},
	"true": {}, "until": {}, "while": {},
}

// symbols are ordered longest first so the lexer can match greedily.
var symbols = []string{
	"...", "..=", "//=",
	"..", "//", "==", "~=", "<=", ">=", "::", "->",
	"+=", "-=", "*=", "/=", "%=", "^=",
	"+", "-", "*", "/", "%", "^", "#", "<", ">", "=",
	"(", ")", "{", "}", "[", "]", ";", ":", ",", ".", "?", "|", "&", "@",
}

// SyntaxError describes a lexing or parsing failure.
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}

	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}
