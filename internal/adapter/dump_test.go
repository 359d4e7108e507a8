package adapter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func TestParseDump(t *testing.T) {
	t.Run("extracts payload between markers", func(t *testing.T) {
		log := "booting place\n" +
			`__COVPATCH__{"src/A.lua":{"s":{"0":2},"f":{},"b":{"1":{"0":1,"1":0}}}}__COVPATCH__` +
			"\nshutting down\n"

		dump, err := ParseDump([]byte(log))
		require.NoError(t, err)

		expected := m.Dump{
			"src/A.lua": {
				S: map[string]uint64{"0": 2},
				F: map[string]uint64{},
				B: map[string]map[string]uint64{"1": {"0": 1, "1": 0}},
			},
		}
		assert.Equal(t, expected, dump)
	})

	t.Run("closing marker is optional", func(t *testing.T) {
		dump, err := ParseDump([]byte(`__COVPATCH__ {"A.lua":{"s":{"3":1}}}` + "\n"))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), dump["A.lua"].S["3"])
	})

	t.Run("only the first dump is read", func(t *testing.T) {
		log := `__COVPATCH__{"A.lua":{"s":{"0":1}}}__COVPATCH__` + "\n" +
			`__COVPATCH__{"B.lua":{"s":{"0":1}}}__COVPATCH__`

		dump, err := ParseDump([]byte(log))
		require.NoError(t, err)
		assert.Len(t, dump, 1)
		assert.Contains(t, dump, m.Path("A.lua"))
	})

	t.Run("missing marker", func(t *testing.T) {
		_, err := ParseDump([]byte("no coverage here"))
		assert.True(t, errors.Is(err, ErrNoDump))
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := ParseDump([]byte("__COVPATCH__  __COVPATCH__"))
		assert.True(t, errors.Is(err, ErrNoDump))
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := ParseDump([]byte("__COVPATCH__{not json__COVPATCH__"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed coverage dump")
	})

	t.Run("reader", func(t *testing.T) {
		dump, err := ReadDump(strings.NewReader(`__COVPATCH__{}__COVPATCH__`))
		require.NoError(t, err)
		assert.Empty(t, dump)
	})
}

func TestRuntimePrelude_DumpRoundTrip(t *testing.T) {
	host, out := newTestHost(t, map[string]string{
		PreludeModule: string(RuntimePrelude),
		"Calc.lua":    "return { double = function(n) return n * 2 end }\n",
		"main.lua": "local runtime = require('CovpatchRuntime')\n" +
			"assert(require('CovpatchRuntime') == runtime)\n" +
			"local Calc = require('Calc')\n" +
			"Calc.double(2)\n" +
			"Calc.double(3)\n" +
			"__covpatch_dump()\n" +
			"runtime.reset()\n" +
			"runtime.dump()\n",
	})

	instrumented := `local __cov_s, __cov_f, __cov_b, __cov_bx = _G.__covpatch("Calc.lua"); ` +
		`__cov_s(0); return { double = function(n)__cov_f(0);  __cov_s(1); return __cov_bx(0, 1, n * 2) end }` + "\n"
	require.NoError(t, host.Override("Calc.lua", []byte(instrumented)))

	_, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	dump, err := ParseDump([]byte(lines[0]))
	require.NoError(t, err)

	expected := m.Dump{
		"Calc.lua": {
			S: map[string]uint64{"0": 1, "1": 2},
			F: map[string]uint64{"0": 2},
			B: map[string]map[string]uint64{"0": {"1": 2}},
		},
	}
	assert.Equal(t, expected, dump)

	dump, err = ReadDump(bytes.NewReader([]byte(lines[1])))
	require.NoError(t, err)
	assert.Empty(t, dump["Calc.lua"].S, "reset clears the counts")
}
