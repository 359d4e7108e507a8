package domain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const testHeader = `local __cov_s, __cov_f, __cov_b, __cov_bx = _G.__covpatch("A.lua"); `

func instrument(t *testing.T, src string) string {
	t.Helper()

	luauAdapter := adapter.NewLocalLuauFileAdapter()

	bm, err := NewAnalyzer(luauAdapter, 0).Analyze("A.lua", []byte(src))
	require.NoError(t, err)

	out, err := NewInstrumenter(luauAdapter).Instrument([]byte(src), bm)
	require.NoError(t, err)

	return string(out)
}

func TestInstrumenter_IfElse(t *testing.T) {
	got := instrument(t, "if x then y() else z() end; return 1")

	want := testHeader +
		"__cov_s(0); if x then __cov_b(0, 0);  __cov_s(1); y() else __cov_b(0, 1);  __cov_s(2); z() end; __cov_s(3); return 1"

	assert.Equal(t, want, got)
}

func TestInstrumenter_ImplicitElse(t *testing.T) {
	got := instrument(t, "if x then y() end")

	assert.Contains(t, got, "y() else __cov_b(0, 1) end")
}

func TestInstrumenter_WrapsLogicalOperands(t *testing.T) {
	got := instrument(t, "local v = a or b")

	assert.Equal(t, testHeader+"__cov_s(0); local v = __cov_bx(0, 0, a) or __cov_bx(0, 1, b)", got)
}

func TestInstrumenter_NestedWrappers(t *testing.T) {
	got := instrument(t, "local v = f(a and b) or c")

	assert.Equal(t,
		testHeader+"__cov_s(0); local v = __cov_bx(0, 0, f(__cov_bx(1, 0, a) and __cov_bx(1, 1, b))) or __cov_bx(0, 1, c)",
		got)
}

func TestInstrumenter_FunctionAndLoopExit(t *testing.T) {
	got := instrument(t, "local function f() while c do end; end")

	assert.Contains(t, got, "local function f()__cov_f(0);  __cov_s(1); while c do __cov_b(0, 0);  end")
	assert.Contains(t, got, "end; __cov_b(0, 1) ; end")
}

func TestInstrumenter_HeaderAfterDirectives(t *testing.T) {
	got := instrument(t, "--!strict\n--!native\nreturn 1\n")

	assert.Equal(t, "--!strict\n--!native\n"+testHeader+"__cov_s(0); return 1\n", got)
}

func TestInstrumenter_HeaderWhenDirectiveEndsFile(t *testing.T) {
	got := instrument(t, "--!strict")

	assert.Equal(t, "--!strict\n"+testHeader, got)
}

func TestInstrumenter_PreservesLineNumbers(t *testing.T) {
	src := "local M = {}\n\n" +
		"function M.pick(x)\n" +
		"  if x > 0 then\n" +
		"    return x and 1 or 2\n" +
		"  elseif x < 0 then\n" +
		"    return -1\n" +
		"  end\n" +
		"  for i = 1, 3 do\n" +
		"    x = x + i\n" +
		"  end\n" +
		"  return x\n" +
		"end\n\n" +
		"return M\n"

	got := instrument(t, src)

	assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"))

	srcLines := strings.Split(src, "\n")
	gotLines := strings.Split(got, "\n")

	for i, line := range srcLines {
		for _, field := range strings.Fields(line) {
			assert.Contains(t, gotLines[i], field, "line %d", i+1)
		}
	}
}

func TestInstrumenter_Idempotent(t *testing.T) {
	src := "local t = {}\nfor k, v in pairs(t) do\n  print(k, v)\nend\nreturn t\n"

	assert.Equal(t, instrument(t, src), instrument(t, src))
}

func TestInstrumenter_QuotesPath(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\n"`, luaQuote("a\"b\\c\n"))
	assert.Equal(t, `"tab\009x"`, luaQuote("tab\tx"))
}

func TestInstrumenter_RejectsInvalidOutput(t *testing.T) {
	src := []byte("local a = 1")
	bm := &m.BoundaryMap{
		Path:       "A.lua",
		Statements: []m.StatementProbe{{ID: 0, Loc: m.Point(m.Position{Line: 1, Column: 8, Offset: 8})}},
	}

	_, err := NewInstrumenter(adapter.NewLocalLuauFileAdapter()).Instrument(src, bm)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInstrumentationFailure))
}

func TestInstrumenter_RejectsOutOfRangeOffsets(t *testing.T) {
	bm := &m.BoundaryMap{
		Path:       "A.lua",
		Statements: []m.StatementProbe{{ID: 0, Loc: m.Point(m.Position{Line: 1, Offset: 100})}},
	}

	_, err := NewInstrumenter(adapter.NewLocalLuauFileAdapter()).Instrument([]byte("return 1"), bm)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInstrumentationFailure))
}

func TestInstrumenter_MissingMap(t *testing.T) {
	_, err := NewInstrumenter(adapter.NewLocalLuauFileAdapter()).Instrument([]byte("return 1"), nil)

	require.Error(t, err)
}

func TestApplyInsertions_SeparatesIdentifiers(t *testing.T) {
	out, err := applyInsertions([]byte("then"), []insertion{{offset: 4, text: "x"}})

	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("then x"), out))
}
