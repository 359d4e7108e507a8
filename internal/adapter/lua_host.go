package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// RuntimeHookGlobal is the global the instrumented module header calls to get
// its counting functions.
const RuntimeHookGlobal = "__covpatch"

var moduleCandidates = []string{"%s.lua", "%s.luau", "%s/init.lua", "%s/init.luau"}

// LuaHost runs Lua modules of a project directory in an embedded interpreter.
// Modules load through a require that resolves dotted or slashed names
// against the root and prefers overridden sources.
type LuaHost struct {
	root   string
	fs     SourceFSAdapter
	stdout io.Writer
	log    *zap.SugaredLogger

	mu        sync.Mutex
	overrides map[m.Path][]byte
	sink      ProbeSink
}

// LuaHostOption configures a LuaHost.
type LuaHostOption func(*LuaHost)

// WithStdout redirects the Lua print function.
func WithStdout(w io.Writer) LuaHostOption {
	return func(h *LuaHost) {
		if w != nil {
			h.stdout = w
		}
	}
}

// WithHostLogger replaces the host logger.
func WithHostLogger(log *zap.SugaredLogger) LuaHostOption {
	return func(h *LuaHost) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSourceFS replaces the filesystem adapter used to list and read modules.
func WithSourceFS(fs SourceFSAdapter) LuaHostOption {
	return func(h *LuaHost) {
		if fs != nil {
			h.fs = fs
		}
	}
}

// NewLuaHost creates a host over the project at root.
func NewLuaHost(root string, opts ...LuaHostOption) *LuaHost {
	h := &LuaHost{
		root:      root,
		fs:        NewLocalSourceFSAdapter(),
		stdout:    os.Stdout,
		log:       logger.Named("luahost"),
		overrides: make(map[m.Path][]byte),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Root returns the project directory.
func (h *LuaHost) Root() string {
	return h.root
}

// Modules lists every non-test module under the root.
func (h *LuaHost) Modules() ([]m.Path, error) {
	return h.fs.ListModules(m.Path(h.root))
}

// Resolve reads the original source of a module.
func (h *LuaHost) Resolve(path m.Path) ([]byte, error) {
	return h.fs.ReadFile(m.Path(filepath.Join(h.root, filepath.FromSlash(string(path)))))
}

// Override makes later runs load instrumented instead of the file on disk.
func (h *LuaHost) Override(path m.Path, instrumented []byte) error {
	if _, err := h.fs.FileInfo(m.Path(filepath.Join(h.root, filepath.FromSlash(string(path))))); err != nil {
		return errors.Wrapf(err, "unknown module %s", path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.overrides[path] = append([]byte(nil), instrumented...)

	return nil
}

// Restore drops the override of path.
func (h *LuaHost) Restore(path m.Path) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.overrides, path)

	return nil
}

// Hook routes every later probe hit to sink.
func (h *LuaHost) Hook(sink ProbeSink) error {
	if sink == nil {
		return errors.New("nil probe sink")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.sink = sink

	return nil
}

// Unhook removes the sink and every override.
func (h *LuaHost) Unhook() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sink = nil
	h.overrides = make(map[m.Path][]byte)

	return nil
}

// Run executes entry, a module path relative to the root, in a fresh
// interpreter and returns the values the chunk returned. Every module is loaded
// at most once per run.
func (h *LuaHost) Run(ctx context.Context, entry m.Path) ([]lua.LValue, error) {
	h.mu.Lock()
	sink := h.sink
	overrides := make(map[m.Path][]byte, len(h.overrides))
	for path, src := range h.overrides {
		overrides[path] = src
	}
	h.mu.Unlock()

	L := lua.NewState()
	defer L.Close()

	if ctx != nil {
		L.SetContext(ctx)
	}

	r := &luaRun{host: h, overrides: overrides, loaded: make(map[m.Path]lua.LValue)}

	L.SetGlobal("require", L.NewFunction(r.require))
	L.SetGlobal("print", L.NewFunction(r.print))

	if sink != nil {
		L.SetGlobal(RuntimeHookGlobal, L.NewFunction(hookFunction(sink)))
	}

	path := m.NormalizePath(entry)

	fn, err := r.load(L, path)
	if err != nil {
		return nil, err
	}

	h.log.Debugw("running entry", logger.FieldPath, path, "instrumented", overrides[path] != nil)

	L.Push(fn)

	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, errors.Wrapf(err, "run %s", path)
	}

	top := L.GetTop()
	values := make([]lua.LValue, 0, top)

	for i := 1; i <= top; i++ {
		values = append(values, L.Get(i))
	}

	L.Pop(top)

	return values, nil
}

type luaRun struct {
	host      *LuaHost
	overrides map[m.Path][]byte
	loaded    map[m.Path]lua.LValue
	loading   map[m.Path]bool
}

func (r *luaRun) source(path m.Path) ([]byte, error) {
	if src, ok := r.overrides[path]; ok {
		return src, nil
	}

	return r.host.Resolve(path)
}

func (r *luaRun) load(L *lua.LState, path m.Path) (*lua.LFunction, error) {
	src, err := r.source(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	fn, err := L.Load(bytes.NewReader(src), string(path))
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", path)
	}

	return fn, nil
}

// resolve maps a require argument to a module path under the root.
func (r *luaRun) resolve(name string) (m.Path, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")

	if IsLuauFile(name) {
		if r.exists(name) {
			return m.Path(name), true
		}
	}

	base := name
	if !strings.Contains(name, "/") {
		base = strings.ReplaceAll(name, ".", "/")
	}

	for _, pattern := range moduleCandidates {
		candidate := fmt.Sprintf(pattern, base)
		if r.exists(candidate) {
			return m.Path(candidate), true
		}
	}

	return "", false
}

func (r *luaRun) exists(rel string) bool {
	info, err := r.host.fs.FileInfo(m.Path(filepath.Join(r.host.root, filepath.FromSlash(rel))))

	return err == nil && !info.IsDir()
}

func (r *luaRun) require(L *lua.LState) int {
	name := L.CheckString(1)

	path, ok := r.resolve(name)
	if !ok {
		L.RaiseError("module '%s' not found under %s", name, r.host.root)
		return 0
	}

	if value, ok := r.loaded[path]; ok {
		L.Push(value)
		return 1
	}

	if r.loading == nil {
		r.loading = make(map[m.Path]bool)
	}

	if r.loading[path] {
		L.RaiseError("loop or previous error loading module '%s'", name)
		return 0
	}

	r.loading[path] = true
	defer delete(r.loading, path)

	fn, err := r.load(L, path)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	L.Push(fn)
	L.Call(0, 1)

	value := L.Get(-1)
	L.Pop(1)

	if value == lua.LNil {
		value = lua.LTrue
	}

	r.loaded[path] = value
	L.Push(value)

	return 1
}

func (r *luaRun) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)

	for i := 1; i <= top; i++ {
		parts = append(parts, lua.LVAsString(L.ToStringMeta(L.Get(i))))
	}

	_, _ = fmt.Fprintln(r.host.stdout, strings.Join(parts, "\t"))

	return 0
}

// hookFunction builds the runtime hook. Given a module path it returns the
// statement, function, branch and branch-wrapper counters bound to that path.
// The counters never raise.
func hookFunction(sink ProbeSink) lua.LGFunction {
	return func(L *lua.LState) int {
		path := m.Path(lua.LVAsString(L.Get(1)))

		L.Push(L.NewFunction(func(L *lua.LState) int {
			if id, ok := intArg(L, 1); ok {
				sink.HitStatement(path, id)
			}

			return 0
		}))
		L.Push(L.NewFunction(func(L *lua.LState) int {
			if id, ok := intArg(L, 1); ok {
				sink.HitFunction(path, id)
			}

			return 0
		}))
		L.Push(L.NewFunction(func(L *lua.LState) int {
			id, ok := intArg(L, 1)
			k, okK := intArg(L, 2)

			if ok && okK {
				sink.HitBranch(path, id, k)
			}

			return 0
		}))
		L.Push(L.NewFunction(func(L *lua.LState) int {
			id, ok := intArg(L, 1)
			k, okK := intArg(L, 2)

			if ok && okK {
				sink.HitBranch(path, id, k)
			}

			L.Push(L.Get(3))

			return 1
		}))

		return 4
	}
}

func intArg(L *lua.LState, n int) (int, bool) {
	num, ok := L.Get(n).(lua.LNumber)
	if !ok {
		return 0, false
	}

	return int(num), true
}
