package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

type recordingSink struct {
	mu   sync.Mutex
	hits []string
}

func (s *recordingSink) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits = append(s.hits, fmt.Sprintf(format, args...))
}

func (s *recordingSink) HitStatement(path m.Path, id int) { s.record("s %s %d", path, id) }
func (s *recordingSink) HitFunction(path m.Path, id int)  { s.record("f %s %d", path, id) }
func (s *recordingSink) HitBranch(path m.Path, id, k int) { s.record("b %s %d %d", path, id, k) }

func newTestHost(t *testing.T, files map[string]string) (*LuaHost, *bytes.Buffer) {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		writeTestFileMkdir(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}

	var out bytes.Buffer

	return NewLuaHost(root, WithStdout(&out)), &out
}

func TestLuaHost_RunsExampleProject(t *testing.T) {
	var out bytes.Buffer

	host := NewLuaHost(examplePath(t, "basic"), WithStdout(&out))

	values, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)

	require.Len(t, values, 1)
	assert.Equal(t, lua.LNumber(1), values[0])
	assert.Equal(t, "Sum of 3 and 5 is 8\n", out.String())
}

func TestLuaHost_Modules(t *testing.T) {
	host := NewLuaHost(examplePath(t, "scopes"))

	modules, err := host.Modules()
	require.NoError(t, err)
	assert.Equal(t, []m.Path{"Packages/Vendor.lua", "main.lua", "src/App.lua", "src/sub/Child.lua"}, modules)

	src, err := host.Resolve("src/sub/Child.lua")
	require.NoError(t, err)
	assert.Contains(t, string(src), "Child")
}

func TestLuaHost_RequireResolution(t *testing.T) {
	host, out := newTestHost(t, map[string]string{
		"main.lua":           "local a = require('lib.A')\nlocal b = require('pkg')\nlocal c = require('lib/A.lua')\nprint(a.name, b.name, a == c)\nreturn a.loads\n",
		"lib/A.lua":          "_G.loads = (_G.loads or 0) + 1\nreturn { name = 'A', loads = _G.loads }\n",
		"pkg/init.luau":      "return { name = 'pkg' }\n",
		"lib/A.spec.lua":     "error('spec files are not loaded')\n",
		"unused/Nothing.lua": "return nil\n",
	})

	values, err := host.Run(context.Background(), "./main.lua")
	require.NoError(t, err)

	require.Len(t, values, 1)
	assert.Equal(t, lua.LNumber(1), values[0], "a module is loaded once per run")
	assert.Equal(t, "A\tpkg\ttrue\n", out.String())
}

// hidingFS reports the listed files as missing and records every lookup.
type hidingFS struct {
	*LocalSourceFSAdapter

	hidden map[string]bool
	mu     sync.Mutex
	looked []string
}

func (f *hidingFS) FileInfo(path m.Path) (os.FileInfo, error) {
	f.mu.Lock()
	f.looked = append(f.looked, filepath.Base(string(path)))
	f.mu.Unlock()

	if f.hidden[filepath.Base(string(path))] {
		return nil, os.ErrNotExist
	}

	return f.LocalSourceFSAdapter.FileInfo(path)
}

func TestLuaHost_RequireResolvesThroughSourceFS(t *testing.T) {
	root := t.TempDir()
	writeTestFileMkdir(t, filepath.Join(root, "main.lua"), "local ok = pcall(require, 'Hidden')\nreturn require('Shown').name, ok\n")
	writeTestFileMkdir(t, filepath.Join(root, "Shown.lua"), "return { name = 'shown' }\n")
	writeTestFileMkdir(t, filepath.Join(root, "Hidden.lua"), "return { name = 'hidden' }\n")

	fs := &hidingFS{LocalSourceFSAdapter: NewLocalSourceFSAdapter(), hidden: map[string]bool{"Hidden.lua": true}}
	host := NewLuaHost(root, WithSourceFS(fs), WithStdout(&bytes.Buffer{}))

	values, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)

	require.Len(t, values, 2)
	assert.Equal(t, lua.LString("shown"), values[0])
	assert.Equal(t, lua.LFalse, values[1], "a file the adapter hides cannot be required")
	assert.Contains(t, fs.looked, "Shown.lua")
	assert.Contains(t, fs.looked, "Hidden.lua")
}

func TestLuaHost_RequireErrors(t *testing.T) {
	t.Run("missing module", func(t *testing.T) {
		host, _ := newTestHost(t, map[string]string{
			"main.lua": "return require('Missing')\n",
		})

		_, err := host.Run(context.Background(), "main.lua")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "module 'Missing' not found")
	})

	t.Run("require loop", func(t *testing.T) {
		host, _ := newTestHost(t, map[string]string{
			"main.lua": "return require('A')\n",
			"A.lua":    "return require('B')\n",
			"B.lua":    "return require('A')\n",
		})

		_, err := host.Run(context.Background(), "main.lua")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loop or previous error")
	})

	t.Run("syntax error in entry", func(t *testing.T) {
		host, _ := newTestHost(t, map[string]string{
			"main.lua": "return (\n",
		})

		_, err := host.Run(context.Background(), "main.lua")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compile main.lua")
	})

	t.Run("missing entry", func(t *testing.T) {
		host, _ := newTestHost(t, nil)

		_, err := host.Run(context.Background(), "main.lua")
		require.Error(t, err)
	})
}

func TestLuaHost_OverrideAndHook(t *testing.T) {
	host, _ := newTestHost(t, map[string]string{
		"main.lua": "return require('Calc').double(2)\n",
		"Calc.lua": "return { double = function(n) return n * 2 end }\n",
	})

	sink := &recordingSink{}
	require.NoError(t, host.Hook(sink))

	instrumented := `local __cov_s, __cov_f, __cov_b, __cov_bx = _G.__covpatch("Calc.lua"); ` +
		`__cov_s(0); return { double = function(n)__cov_f(0);  __cov_s(1); return __cov_bx(0, 1, n * 2) end }` + "\n"
	require.NoError(t, host.Override("Calc.lua", []byte(instrumented)))

	values, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)

	require.Len(t, values, 1)
	assert.Equal(t, lua.LNumber(4), values[0], "branch wrapper returns its operand")
	assert.Equal(t, []string{"s Calc.lua 0", "f Calc.lua 0", "s Calc.lua 1", "b Calc.lua 0 1"}, sink.hits)

	require.NoError(t, host.Unhook())

	values, err = host.Run(context.Background(), "main.lua")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(4), values[0])
	assert.Len(t, sink.hits, 4, "unhooked host loads the original source")
}

func TestLuaHost_Restore(t *testing.T) {
	host, _ := newTestHost(t, map[string]string{
		"main.lua": "return 1\n",
	})

	require.NoError(t, host.Override("main.lua", []byte("return 2\n")))

	values, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), values[0])

	require.NoError(t, host.Restore("main.lua"))

	values, err = host.Run(context.Background(), "main.lua")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), values[0])
}

func TestLuaHost_CountersNeverRaise(t *testing.T) {
	host, _ := newTestHost(t, map[string]string{
		"main.lua": "return 1\n",
	})

	sink := &recordingSink{}
	require.NoError(t, host.Hook(sink))

	src := `local s, f, b, bx = _G.__covpatch("main.lua"); ` +
		`s("x"); f(); b(1); b(nil, 2); return bx("a", "b", "kept"), bx(0, 0)` + "\n"
	require.NoError(t, host.Override("main.lua", []byte(src)))

	values, err := host.Run(context.Background(), "main.lua")
	require.NoError(t, err)

	require.Len(t, values, 2)
	assert.Equal(t, lua.LString("kept"), values[0])
	assert.Equal(t, lua.LNil, values[1])
	assert.Equal(t, []string{"b main.lua 0 0"}, sink.hits)
}

func TestLuaHost_HookErrors(t *testing.T) {
	host, _ := newTestHost(t, map[string]string{
		"main.lua": "return 1\n",
	})

	assert.Error(t, host.Hook(nil))
	assert.Error(t, host.Override("Missing.lua", []byte("return 1")))
}

func TestLuaHost_ContextCancellation(t *testing.T) {
	host, _ := newTestHost(t, map[string]string{
		"main.lua": "while true do end\n",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := host.Run(ctx, "main.lua")
	assert.Error(t, err)
}
