package luau

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Chunk {
	t.Helper()

	chunk, err := Parse("test.luau", []byte(src))
	require.NoError(t, err)

	return chunk
}

func TestParse_StatementKinds(t *testing.T) {
	src := `local a, b: number = 1, 2
a = 3
a += 1
print(a)
do end
while a < 10 do a = a + 1 end
repeat a -= 1 until a == 0
if a then elseif b then else end
for i = 1, 10, 2 do end
for k, v in pairs({}) do continue end
function M.x:y() end
local function f() return end
type Foo = { x: number }
export type Bar<T> = Foo | nil
`
	chunk := parse(t, src)

	var kinds []string
	for _, s := range chunk.Body.Stmts {
		switch s.(type) {
		case *LocalStmt:
			kinds = append(kinds, "local")
		case *AssignStmt:
			kinds = append(kinds, "assign")
		case *CompoundAssignStmt:
			kinds = append(kinds, "compound")
		case *CallStmt:
			kinds = append(kinds, "call")
		case *DoStmt:
			kinds = append(kinds, "do")
		case *WhileStmt:
			kinds = append(kinds, "while")
		case *RepeatStmt:
			kinds = append(kinds, "repeat")
		case *IfStmt:
			kinds = append(kinds, "if")
		case *NumericForStmt:
			kinds = append(kinds, "fornum")
		case *GenericForStmt:
			kinds = append(kinds, "forin")
		case *FunctionStmt:
			kinds = append(kinds, "function")
		case *LocalFunctionStmt:
			kinds = append(kinds, "localfunction")
		case *TypeAliasStmt:
			kinds = append(kinds, "type")
		}
	}

	assert.Equal(t, []string{
		"local", "assign", "compound", "call", "do", "while", "repeat", "if",
		"fornum", "forin", "function", "localfunction", "type", "type",
	}, kinds)

	forin := chunk.Body.Stmts[9].(*GenericForStmt)
	require.Len(t, forin.Body.Stmts, 1)
	assert.IsType(t, &ContinueStmt{}, forin.Body.Stmts[0])

	fn := chunk.Body.Stmts[10].(*FunctionStmt)
	assert.Equal(t, "M.x:y", fn.Name.String())
	assert.True(t, chunk.Body.Stmts[13].(*TypeAliasStmt).Exported)
}

func TestParse_Ranges(t *testing.T) {
	src := "if x then\n  y()\nelse\n  z()\nend\nreturn 1"
	chunk := parse(t, src)
	require.Len(t, chunk.Body.Stmts, 2)

	ifs := chunk.Body.Stmts[0].(*IfStmt)
	assert.Equal(t, Pos{Offset: 0, Line: 1, Column: 0}, ifs.Start)
	assert.Equal(t, Pos{Offset: 30, Line: 5, Column: 3}, ifs.End)
	assert.Equal(t, Pos{Offset: 27, Line: 5, Column: 0}, ifs.EndKw.Start)

	then := ifs.Clauses[0].Body
	assert.Equal(t, 9, then.Start.Offset)
	assert.Equal(t, 16, then.End.Offset)

	call := then.Stmts[0].(*CallStmt)
	assert.Equal(t, Pos{Offset: 12, Line: 2, Column: 2}, call.Start)
	assert.Equal(t, Pos{Offset: 15, Line: 2, Column: 5}, call.End)

	ret := chunk.Body.Stmts[1].(*ReturnStmt)
	assert.Equal(t, 6, ret.Start.Line)
	assert.Equal(t, len(src), ret.End.Offset)
}

func TestParse_OperatorPrecedence(t *testing.T) {
	chunk := parse(t, "return a or b and c == d .. e .. f + g * -h ^ i")
	ret := chunk.Body.Stmts[0].(*ReturnStmt)

	or := ret.Values[0].(*BinaryExpr)
	assert.Equal(t, "or", or.Op)

	and := or.Right.(*BinaryExpr)
	assert.Equal(t, "and", and.Op)

	eq := and.Right.(*BinaryExpr)
	assert.Equal(t, "==", eq.Op)

	concat := eq.Right.(*BinaryExpr)
	assert.Equal(t, "..", concat.Op)
	assert.Equal(t, "..", concat.Right.(*BinaryExpr).Op, "concat is right associative")

	plus := concat.Right.(*BinaryExpr).Right.(*BinaryExpr)
	assert.Equal(t, "+", plus.Op)

	mul := plus.Right.(*BinaryExpr)
	assert.Equal(t, "*", mul.Op)

	neg := mul.Right.(*UnaryExpr)
	assert.Equal(t, "-", neg.Op)
	assert.Equal(t, "^", neg.Operand.(*BinaryExpr).Op, "power binds tighter than unary minus")
}

func TestParse_LuauExpressions(t *testing.T) {
	src := "local v = if a then 1 elseif b then 2 else 3\n" +
		"local w = (x :: any).field\n" +
		"local s = `hello {name}`\n" +
		"local q = a // b\n" +
		"local f = function<T>(x: T, ...: number): (T, number) return x, 1 end\n"
	chunk := parse(t, src)
	require.Len(t, chunk.Body.Stmts, 5)

	ifx := chunk.Body.Stmts[0].(*LocalStmt).Values[0].(*IfExpr)
	assert.Len(t, ifx.Conds, 2)
	assert.Len(t, ifx.Values, 3)

	field := chunk.Body.Stmts[1].(*LocalStmt).Values[0].(*FieldExpr)
	paren := field.Object.(*ParenExpr)
	assert.IsType(t, &CastExpr{}, paren.Inner)

	assert.IsType(t, &InterpStringExpr{}, chunk.Body.Stmts[2].(*LocalStmt).Values[0])
	assert.Equal(t, "//", chunk.Body.Stmts[3].(*LocalStmt).Values[0].(*BinaryExpr).Op)

	fn := chunk.Body.Stmts[4].(*LocalStmt).Values[0].(*FunctionExpr)
	assert.Len(t, fn.Params, 1)
	assert.True(t, fn.Vararg)
	assert.Equal(t, 5, fn.Body.Start.Line)
	assert.Equal(t, "(T, number)", src[fn.Header.End.Offset-11:fn.Header.End.Offset])
}

func TestParse_TypeAnnotations(t *testing.T) {
	src := `
type Callback = (number, string?) -> ()
type Map<K, V> = { [K]: V }
type Union = "a" | "b" | typeof(x)
local t: { Callback } = {}
local g: <T>(T) -> T = nil
function M.new(self: M, opts: Options?): M
	return setmetatable({}, M) :: M
end
for i: number = 1, 2 do end
`
	chunk := parse(t, src)
	assert.Len(t, chunk.Body.Stmts, 7)
}

func TestParse_ContinueAsIdentifier(t *testing.T) {
	chunk := parse(t, "local continue = 1\ncontinue = 2\ncontinue()\n")
	require.Len(t, chunk.Body.Stmts, 3)
	assert.IsType(t, &AssignStmt{}, chunk.Body.Stmts[1])
	assert.IsType(t, &CallStmt{}, chunk.Body.Stmts[2])
}

func TestParse_TypeAsIdentifier(t *testing.T) {
	chunk := parse(t, "print(type(x))\nlocal type = 1\ntype = 2\n")
	require.Len(t, chunk.Body.Stmts, 3)
	assert.IsType(t, &AssignStmt{}, chunk.Body.Stmts[2])
}

func TestParse_TableConstructor(t *testing.T) {
	chunk := parse(t, "local t = { 1, x = 2, [3] = 4; f = function() end, }")
	table := chunk.Body.Stmts[0].(*LocalStmt).Values[0].(*TableExpr)
	require.Len(t, table.Fields, 4)

	assert.Nil(t, table.Fields[0].Key)
	assert.Equal(t, "x", table.Fields[1].Name)
	assert.NotNil(t, table.Fields[2].Key)
	assert.IsType(t, &FunctionExpr{}, table.Fields[3].Value)
}

func TestParse_CallForms(t *testing.T) {
	chunk := parse(t, `require "x"
f { 1 }
obj:method(1)
a.b[c](d)
`)
	require.Len(t, chunk.Body.Stmts, 4)

	method := chunk.Body.Stmts[2].(*CallStmt).Call
	assert.Equal(t, "method", method.Method)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		line   int
		column int
		msg    string
	}{
		{"missing end", "if x then\n  y()\n", 3, 0, "'end' expected (to close 'if' at line 1)"},
		{"unexpected symbol", "local = 1", 1, 6, "<name> expected"},
		{"not a statement", "x\n", 2, 0, "syntax error"},
		{"bad assignment target", "f() = 1", 1, 4, "syntax error"},
		{"stray end", "end", 1, 0, "'<eof>' expected"},
		{"missing then", "if x y() end", 1, 5, "'then' expected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.lua", []byte(tt.src))
			require.Error(t, err)

			se, ok := err.(*SyntaxError)
			require.True(t, ok)
			assert.Equal(t, "bad.lua", se.File)
			assert.Equal(t, tt.line, se.Line)
			assert.Equal(t, tt.column, se.Column)
			assert.Contains(t, se.Msg, tt.msg)
		})
	}
}

func TestInspect_VisitsNestedFunctions(t *testing.T) {
	chunk := parse(t, `
local function outer()
	local inner = function() return function() end end
	return { cb = function() end }
end
`)

	count := 0
	Inspect(chunk.Body, func(n Node) bool {
		if _, ok := n.(*FunctionExpr); ok {
			count++
		}

		return true
	})

	assert.Equal(t, 4, count)
}
