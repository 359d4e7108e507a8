package domain

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const defaultWorkers = 4

// Engine instruments the modules of a host, owns their counters and builds
// reports from them.
type Engine interface {
	// Instrument analyses every module in scope, hooks the host and swaps in the
	// instrumented sources. Calling it again while instrumented does nothing.
	Instrument(include, exclude []m.Scope) error
	// Cleanup removes the hook and every override and discards the counters.
	// Calling it when not instrumented does nothing.
	Cleanup() error
	Report() (m.Report, error)
	Summary() (map[m.Path]m.Summary, error)
	CoverageSummary() (m.CoverageSummary, error)
	RuntimeStats(opts m.StatsOptions) m.RuntimeStats
	// Refresh re-instruments one module after its source changed. Its counters restart.
	Refresh(path m.Path) error
	// Adopt takes boundary maps produced by an earlier pass, so that counts
	// from an external runtime can be reported without hooking a host.
	Adopt(maps []*m.BoundaryMap)
	// LoadDump merges counts produced by an external runtime.
	LoadDump(dump m.Dump) error
	Maps() map[m.Path]*m.BoundaryMap
	Diagnostics() []m.Diagnostic
	Instrumented() bool
}

// EngineOption configures an Engine.
type EngineOption func(*engine)

// WithBaseID sets the first probe id of every kind.
func WithBaseID(base int) EngineOption {
	return func(e *engine) {
		e.baseID = base
	}
}

// WithConcurrency selects the counter store regime.
func WithConcurrency(mode ConcurrencyMode) EngineOption {
	return func(e *engine) {
		e.mode = mode
	}
}

// WithWorkers bounds the number of modules analysed at once.
func WithWorkers(n int) EngineOption {
	return func(e *engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger replaces the engine logger.
func WithLogger(log *zap.SugaredLogger) EngineOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCache reuses analysis results across passes.
func WithCache(cache adapter.AnalysisCache) EngineOption {
	return func(e *engine) {
		e.cache = cache
	}
}

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(a Analyzer) EngineOption {
	return func(e *engine) {
		e.analyzer = a
	}
}

// WithInstrumenter replaces the default instrumenter.
func WithInstrumenter(in Instrumenter) EngineOption {
	return func(e *engine) {
		e.instrumenter = in
	}
}

type engine struct {
	loader       adapter.HostLoader
	analyzer     Analyzer
	instrumenter Instrumenter
	cache        adapter.AnalysisCache
	log          *zap.SugaredLogger
	baseID       int
	mode         ConcurrencyMode
	workers      int

	mu          sync.Mutex
	hooked      bool
	include     []m.Scope
	exclude     []m.Scope
	store       Store
	maps        map[m.Path]*m.BoundaryMap
	overridden  map[m.Path]bool
	diagnostics []m.Diagnostic
}

// NewEngine creates an Engine over a host loader. The loader may be nil for
// engines that only report adopted maps.
func NewEngine(loader adapter.HostLoader, opts ...EngineOption) Engine {
	e := &engine{
		loader:  loader,
		log:     logger.Named("engine"),
		mode:    Cooperative,
		workers: defaultWorkers,
		maps:    make(map[m.Path]*m.BoundaryMap),
	}

	for _, opt := range opts {
		opt(e)
	}

	luauAdapter := adapter.NewLocalLuauFileAdapter()

	if e.analyzer == nil {
		e.analyzer = NewAnalyzer(luauAdapter, e.baseID)
	}

	if e.instrumenter == nil {
		e.instrumenter = NewInstrumenter(luauAdapter)
	}

	return e
}

type moduleResult struct {
	path         m.Path
	bm           *m.BoundaryMap
	instrumented []byte
	diag         *m.Diagnostic
}

func (e *engine) Instrument(include, exclude []m.Scope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hooked {
		e.log.Debug("already instrumented")
		return nil
	}

	if e.loader == nil {
		return errors.HookFailure(errors.New("no host loader"))
	}

	started := time.Now()

	if len(include) == 0 {
		include = []m.Scope{"."}
	}

	modules, err := e.loader.Modules()
	if err != nil {
		return errors.HookFailure(errors.Wrap(err, "failed to list modules"))
	}

	var selected []m.Path

	for _, path := range modules {
		if m.InScope(path, include, exclude) {
			selected = append(selected, path)
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i] < selected[j] })

	results := make([]moduleResult, len(selected))

	var g errgroup.Group

	g.SetLimit(e.workers)

	for i, path := range selected {
		g.Go(func() error {
			results[i] = e.prepare(path)
			return nil
		})
	}

	_ = g.Wait()

	store := NewStore(e.mode, e.log.Named("store"))
	maps := make(map[m.Path]*m.BoundaryMap, len(results))

	var diags []m.Diagnostic

	for _, res := range results {
		if res.diag != nil {
			diags = append(diags, *res.diag)
			continue
		}

		if res.bm == nil {
			continue
		}

		maps[res.path] = res.bm
		store.Register(res.bm)
	}

	if err := e.loader.Hook(store); err != nil {
		return errors.WithHint(errors.HookFailure(errors.Wrap(err, "failed to install runtime hook")),
			"no module was instrumented")
	}

	overridden := make(map[m.Path]bool, len(maps))

	for _, res := range results {
		if res.bm == nil {
			continue
		}

		if err := e.loader.Override(res.path, res.instrumented); err != nil {
			e.rollback(overridden)

			return errors.WithHintf(errors.HookFailure(errors.Wrapf(err, "failed to override %s", res.path)),
				"instrumentation was rolled back; %d modules had been overridden", len(overridden))
		}

		overridden[res.path] = true
	}

	e.hooked = true
	e.include = include
	e.exclude = exclude
	e.store = store
	e.maps = maps
	e.overridden = overridden
	e.diagnostics = diags

	e.log.Infow("instrumented",
		logger.FieldModules, len(maps),
		logger.FieldCount, len(diags),
		logger.FieldDurationMS, time.Since(started).Milliseconds(),
	)

	return nil
}

// prepare analyses and instruments one module. Per-module failures become diagnostics.
func (e *engine) prepare(path m.Path) moduleResult {
	src, err := e.loader.Resolve(path)
	if err != nil {
		return e.failed(path, m.DiagnosticAnalysis, errors.AnalysisFailure(errors.Wrap(err, "resolve")))
	}

	var key string

	if e.cache != nil {
		key = adapter.CacheKey(path, src, e.baseID)
		if entry, ok := e.cache.Get(key); ok {
			e.log.Debugw("analysis cache hit", logger.FieldPath, path)
			return moduleResult{path: path, bm: entry.Map, instrumented: entry.Instrumented}
		}
	}

	bm, err := e.analyzer.Analyze(path, src)
	if errors.Is(err, ErrModuleIgnored) {
		e.log.Debugw("module ignored", logger.FieldPath, path)
		return moduleResult{path: path}
	}

	if err != nil {
		return e.failed(path, m.DiagnosticAnalysis, err)
	}

	out, err := e.instrumenter.Instrument(src, bm)
	if err != nil {
		return e.failed(path, m.DiagnosticInstrumentation, err)
	}

	if e.cache != nil {
		if err := e.cache.Put(key, &adapter.CacheEntry{Map: bm, Instrumented: out}); err != nil {
			e.log.Warnw("analysis cache write failed", logger.FieldPath, path, logger.FieldError, err)
		}
	}

	return moduleResult{path: path, bm: bm, instrumented: out}
}

func (e *engine) failed(path m.Path, kind m.DiagnosticKind, err error) moduleResult {
	e.log.Warnw("module skipped", logger.FieldPath, path, logger.FieldKind, kind, logger.FieldError, err)

	return moduleResult{path: path, diag: &m.Diagnostic{Kind: kind, Path: path, Message: err.Error()}}
}

func (e *engine) rollback(overridden map[m.Path]bool) {
	for path := range overridden {
		if err := e.loader.Restore(path); err != nil {
			e.log.Warnw("restore failed", logger.FieldPath, path, logger.FieldError, err)
		}
	}

	if err := e.loader.Unhook(); err != nil {
		e.log.Warnw("unhook failed", logger.FieldError, err)
	}
}

func (e *engine) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error

	if e.hooked {
		if unhookErr := e.loader.Unhook(); unhookErr != nil {
			err = errors.HookFailure(errors.Wrap(unhookErr, "failed to remove runtime hook"))
		}
	}

	e.hooked = false
	e.include = nil
	e.exclude = nil
	e.store = nil
	e.maps = make(map[m.Path]*m.BoundaryMap)
	e.overridden = nil
	e.diagnostics = nil

	return err
}

func (e *engine) Report() (m.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.report()
}

func (e *engine) report() (m.Report, error) {
	if e.store == nil {
		return m.Report{}, nil
	}

	report, diags, err := BuildReport(e.maps, e.store.Snapshot())
	if err != nil {
		return nil, err
	}

	for _, d := range diags {
		e.log.Warnw("stale counts dropped from report", logger.FieldPath, d.Path, logger.FieldMessage, d.Message)
	}

	return report, nil
}

func (e *engine) Summary() (map[m.Path]m.Summary, error) {
	report, err := e.Report()
	if err != nil {
		return nil, err
	}

	return Summarize(report), nil
}

func (e *engine) CoverageSummary() (m.CoverageSummary, error) {
	report, err := e.Report()
	if err != nil {
		return nil, err
	}

	return CoverageSummary(report), nil
}

func (e *engine) RuntimeStats(opts m.StatsOptions) m.RuntimeStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap m.Snapshot
	if e.store != nil {
		snap = e.store.Snapshot()
	}

	return RuntimeStats(e.maps, snap, opts)
}

func (e *engine) Refresh(path m.Path) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hooked {
		return errors.Wrap(errors.ErrNotInstrumented, "refresh")
	}

	if !m.InScope(path, e.include, e.exclude) {
		return nil
	}

	res := e.prepare(path)

	if res.bm == nil {
		e.store.Unregister(path)
		delete(e.maps, path)

		if e.overridden[path] {
			delete(e.overridden, path)

			if err := e.loader.Restore(path); err != nil {
				return errors.Wrapf(err, "failed to restore %s", path)
			}
		}

		if res.diag != nil {
			e.diagnostics = append(e.diagnostics, *res.diag)
			return errors.Newf("%s: %s", path, res.diag.Message)
		}

		return nil
	}

	if err := e.loader.Override(path, res.instrumented); err != nil {
		return errors.HookFailure(errors.Wrapf(err, "failed to override %s", path))
	}

	e.store.Register(res.bm)
	e.maps[path] = res.bm
	e.overridden[path] = true

	e.log.Infow("module refreshed", logger.FieldPath, path, logger.FieldCount, res.bm.Counts().Total())

	return nil
}

func (e *engine) Adopt(maps []*m.BoundaryMap) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		e.store = NewStore(e.mode, e.log.Named("store"))
	}

	for _, bm := range maps {
		e.maps[bm.Path] = bm
		e.store.Register(bm)
	}
}

func (e *engine) LoadDump(dump m.Dump) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store == nil {
		return errors.Wrap(errors.ErrNotInstrumented, "load dump")
	}

	diags := e.store.Merge(dump)
	for _, d := range diags {
		e.log.Warnw("dump referenced unknown probes", logger.FieldPath, d.Path, logger.FieldMessage, d.Message)
	}

	e.diagnostics = append(e.diagnostics, diags...)

	return nil
}

func (e *engine) Maps() map[m.Path]*m.BoundaryMap {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[m.Path]*m.BoundaryMap, len(e.maps))
	for path, bm := range e.maps {
		out[path] = bm
	}

	return out
}

func (e *engine) Diagnostics() []m.Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]m.Diagnostic(nil), e.diagnostics...)
}

func (e *engine) Instrumented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.hooked
}
