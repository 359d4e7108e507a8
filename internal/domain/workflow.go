package domain

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/controller"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// Run origins recorded in the report index.
const (
	OriginRun  = "run"
	OriginDump = "dump"
)

// ScopeArgs selects the modules of a project.
type ScopeArgs struct {
	// Root is the project directory. Empty means the nearest directory with a
	// project file, or the working directory.
	Root    m.Path
	Include []m.Scope
	Exclude []m.Scope
}

// ListArgs contains the arguments for listing modules.
type ListArgs struct {
	ScopeArgs
}

// InstrumentArgs contains the arguments for instrumenting a workspace.
type InstrumentArgs struct {
	ScopeArgs
	Out      m.Path
	Watch    bool
	Debounce time.Duration
}

// RunArgs contains the arguments for a coverage run in the embedded host.
type RunArgs struct {
	ScopeArgs
	Entry        m.Path
	Reports      m.Path
	Stats        bool
	StatsOptions m.StatsOptions
}

// ReportArgs contains the arguments for reporting a runtime dump.
type ReportArgs struct {
	Workspace m.Path
	Dump      m.Path
	Reports   m.Path
}

// StatsArgs contains the arguments for the hot-spot view of a runtime dump.
type StatsArgs struct {
	Workspace    m.Path
	Dump         m.Path
	StatsOptions m.StatsOptions
}

// ViewArgs contains the arguments for viewing saved reports.
type ViewArgs struct {
	Reports m.Path
}

// CleanArgs contains the arguments for removing generated files.
type CleanArgs struct {
	Root  m.Path
	Out   m.Path
	Cache m.Path
}

// Workflow defines the covpatch use cases.
type Workflow interface {
	List(args ListArgs) error
	Instrument(ctx context.Context, args InstrumentArgs) error
	Run(ctx context.Context, args RunArgs) error
	Report(args ReportArgs) error
	Stats(args StatsArgs) error
	View(args ViewArgs) error
	Clean(args CleanArgs) error
}

// Settings carries the engine options shared by every use case.
type Settings struct {
	BaseID      int
	Concurrency ConcurrencyMode
	Workers     int
	Cache       adapter.AnalysisCache
	// Stdout receives what Lua scripts print during a run.
	Stdout io.Writer
}

type workflow struct {
	fs        adapter.SourceFSAdapter
	reports   adapter.ReportStore
	manifests adapter.ManifestStore
	ui        controller.UI
	settings  Settings
	log       *zap.SugaredLogger
}

// NewWorkflow creates a new Workflow instance with the provided adapters.
func NewWorkflow(
	fs adapter.SourceFSAdapter,
	reports adapter.ReportStore,
	manifests adapter.ManifestStore,
	ui controller.UI,
	settings Settings,
) Workflow {
	if settings.Stdout == nil {
		settings.Stdout = os.Stdout
	}

	if settings.Workers <= 0 {
		settings.Workers = defaultWorkers
	}

	return &workflow{
		fs:        fs,
		reports:   reports,
		manifests: manifests,
		ui:        ui,
		settings:  settings,
		log:       logger.Named("workflow"),
	}
}

func (w *workflow) newEngine(loader adapter.HostLoader, baseID int) Engine {
	opts := []EngineOption{
		WithBaseID(baseID),
		WithConcurrency(w.settings.Concurrency),
		WithWorkers(w.settings.Workers),
	}

	if w.settings.Cache != nil {
		opts = append(opts, WithCache(w.settings.Cache))
	}

	return NewEngine(loader, opts...)
}

// List analyses every module in scope without instrumenting anything.
func (w *workflow) List(args ListArgs) error {
	if err := w.ui.Start(controller.WithListMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	root, err := w.resolveRoot(args.Root)
	if err != nil {
		return err
	}

	modules, err := w.fs.ListModules(root)
	if err != nil {
		return errors.Wrap(err, "failed to list modules")
	}

	include := defaultInclude(args.Include)

	var selected []m.Path

	for _, path := range modules {
		if m.InScope(path, include, args.Exclude) {
			selected = append(selected, path)
		}
	}

	analyzer := NewAnalyzer(adapter.NewLocalLuauFileAdapter(), w.settings.BaseID)
	rows := make([]controller.ModuleRow, len(selected))
	failures := make([]*m.Diagnostic, len(selected))

	var g errgroup.Group

	g.SetLimit(w.settings.Workers)

	for i, path := range selected {
		g.Go(func() error {
			rows[i] = controller.ModuleRow{Path: path}
			full := w.fs.JoinPath(string(root), filepath.FromSlash(string(path)))

			if test, err := w.fs.DetectTestFile(full); err == nil && test != "" {
				if rel, err := w.fs.RelPath(root, test); err == nil {
					rows[i].Test = m.Path(filepath.ToSlash(string(rel)))
				}
			}

			src, err := w.fs.ReadFile(full)
			if err != nil {
				failures[i] = &m.Diagnostic{Kind: m.DiagnosticAnalysis, Path: path, Message: err.Error()}
				return nil
			}

			bm, err := analyzer.Analyze(path, src)

			switch {
			case errors.Is(err, ErrModuleIgnored):
				rows[i].Ignored = true
			case err != nil:
				failures[i] = &m.Diagnostic{Kind: m.DiagnosticAnalysis, Path: path, Message: err.Error()}
			default:
				rows[i].Counts = bm.Counts()
			}

			return nil
		})
	}

	_ = g.Wait()

	var diags []m.Diagnostic

	listed := make([]controller.ModuleRow, 0, len(rows))

	for i, row := range rows {
		if failures[i] != nil {
			diags = append(diags, *failures[i])
			continue
		}

		listed = append(listed, row)
	}

	w.log.Debugw("modules listed", logger.FieldModules, len(listed), logger.FieldCount, len(diags))

	return w.ui.DisplayModules(listed, diags)
}

// Instrument writes an instrumented copy of the project and its manifest. In
// watch mode it keeps the copy current until ctx is cancelled.
func (w *workflow) Instrument(ctx context.Context, args InstrumentArgs) error {
	if err := w.ui.Start(controller.WithInstrumentMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	root, err := w.resolveRoot(args.Root)
	if err != nil {
		return err
	}

	out := args.Out
	if out == "" {
		return errors.New("no output directory given")
	}

	loader := adapter.NewWorkspaceLoader(string(root), string(out), w.fs)
	engine := w.newEngine(loader, w.settings.BaseID)

	if err := engine.Instrument(defaultInclude(args.Include), args.Exclude); err != nil {
		return err
	}

	runID := uuid.NewString()
	if err := w.saveManifest(runID, root, out, engine); err != nil {
		return err
	}

	if err := w.ui.DisplayModules(moduleRows(engine.Maps()), engine.Diagnostics()); err != nil {
		return err
	}

	w.ui.DisplayMessage("instrumented %d modules into %s", len(engine.Maps()), out)

	if !args.Watch {
		return nil
	}

	return w.watch(ctx, root, out, runID, engine, args.Debounce)
}

func (w *workflow) watch(ctx context.Context, root, out m.Path, runID string, engine Engine, debounce time.Duration) error {
	watcher, err := adapter.NewModuleWatcher(string(root), debounce)
	if err != nil {
		return err
	}

	outPrefix := ""
	if rel, err := w.fs.RelPath(root, out); err == nil && !strings.HasPrefix(string(rel), "..") {
		outPrefix = filepath.ToSlash(string(rel)) + "/"
	}

	w.ui.DisplayMessage("watching %s for changes", root)

	return watcher.Run(ctx, func(path m.Path) {
		if outPrefix != "" && strings.HasPrefix(string(path), outPrefix) {
			return
		}

		if err := engine.Refresh(path); err != nil {
			w.log.Warnw("refresh failed", logger.FieldPath, path, logger.FieldError, err)
			w.ui.DisplayMessage("%s: %v", path, err)

			return
		}

		if err := w.saveManifest(runID, root, out, engine); err != nil {
			w.log.Warnw("manifest update failed", logger.FieldError, err)
			return
		}

		w.ui.DisplayMessage("re-instrumented %s", path)
	})
}

func (w *workflow) saveManifest(runID string, root, out m.Path, engine Engine) error {
	maps := engine.Maps()

	manifest := &adapter.Manifest{
		RunID:       runID,
		Root:        string(root),
		CreatedAt:   time.Now().UTC(),
		BaseID:      w.settings.BaseID,
		Maps:        make([]*m.BoundaryMap, 0, len(maps)),
		Diagnostics: engine.Diagnostics(),
		Hashes:      make(map[m.Path]string, len(maps)),
	}

	for _, bm := range maps {
		manifest.Maps = append(manifest.Maps, bm)
		manifest.Hashes[bm.Path] = bm.Hash
	}

	if err := w.manifests.Save(out, manifest); err != nil {
		return errors.Wrap(err, "failed to save manifest")
	}

	return nil
}

// Run executes an entry script with coverage in the embedded host and saves
// the reports. They are saved even when the script fails.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	if err := w.ui.Start(controller.WithRunMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	root, err := w.resolveRoot(args.Root)
	if err != nil {
		return err
	}

	host := adapter.NewLuaHost(string(root),
		adapter.WithStdout(w.settings.Stdout),
		adapter.WithSourceFS(w.fs),
	)
	engine := w.newEngine(host, w.settings.BaseID)

	if err := engine.Instrument(defaultInclude(args.Include), args.Exclude); err != nil {
		return err
	}

	defer func() {
		if err := engine.Cleanup(); err != nil {
			w.log.Warnw("cleanup failed", logger.FieldError, err)
		}
	}()

	started := time.Now()
	_, runErr := host.Run(ctx, args.Entry)

	w.log.Infow("entry finished",
		logger.FieldPath, args.Entry,
		logger.FieldDurationMS, time.Since(started).Milliseconds(),
		logger.FieldError, runErr,
	)

	var stats *m.RuntimeStats

	if args.Stats {
		s := engine.RuntimeStats(args.StatsOptions)
		stats = &s
	}

	if err := w.saveAndDisplay(args.Reports, OriginRun, engine, engine.Diagnostics(), stats); err != nil {
		return err
	}

	if runErr != nil {
		return errors.Wrapf(runErr, "entry %s failed", args.Entry)
	}

	return nil
}

// Report merges a runtime dump with the manifest of an instrumented workspace
// and saves the reports.
func (w *workflow) Report(args ReportArgs) error {
	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	engine, diags, err := w.dumpEngine(args.Workspace, args.Dump)
	if err != nil {
		return err
	}

	return w.saveAndDisplay(args.Reports, OriginDump, engine, diags, nil)
}

// Stats shows the hot spots of a runtime dump.
func (w *workflow) Stats(args StatsArgs) error {
	if err := w.ui.Start(controller.WithReportMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	engine, _, err := w.dumpEngine(args.Workspace, args.Dump)
	if err != nil {
		return err
	}

	return w.ui.DisplayStats(engine.RuntimeStats(args.StatsOptions))
}

// dumpEngine builds a host-less engine from a manifest and loads a dump into it.
func (w *workflow) dumpEngine(workspace, dumpPath m.Path) (Engine, []m.Diagnostic, error) {
	manifest, err := w.manifests.Load(workspace)
	if err != nil {
		return nil, nil, err
	}

	data, err := w.fs.ReadFile(dumpPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read dump %s", dumpPath)
	}

	dump, err := adapter.ParseDump(data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s", dumpPath)
	}

	engine := w.newEngine(nil, manifest.BaseID)
	engine.Adopt(manifest.Maps)

	if err := engine.LoadDump(dump); err != nil {
		return nil, nil, err
	}

	diags := append(append([]m.Diagnostic(nil), manifest.Diagnostics...), w.changedSources(manifest)...)
	diags = append(diags, engine.Diagnostics()...)

	w.log.Infow("dump loaded",
		logger.FieldRunID, manifest.RunID,
		logger.FieldModules, len(dump),
		logger.FieldCount, len(diags),
	)

	return engine, diags, nil
}

// changedSources reports modules whose source differs from the instrumented one.
func (w *workflow) changedSources(manifest *adapter.Manifest) []m.Diagnostic {
	var diags []m.Diagnostic

	paths := make([]m.Path, 0, len(manifest.Hashes))
	for path := range manifest.Hashes {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	for _, path := range paths {
		hash, err := w.fs.HashFile(w.fs.JoinPath(manifest.Root, filepath.FromSlash(string(path))))
		if err != nil || hash == manifest.Hashes[path] {
			continue
		}

		diags = append(diags, m.Diagnostic{
			Kind:    m.DiagnosticStaleProbe,
			Path:    path,
			Message: "source changed since instrumentation; locations may be off",
		})
	}

	return diags
}

func (w *workflow) saveAndDisplay(reports m.Path, origin string, engine Engine, diags []m.Diagnostic, stats *m.RuntimeStats) error {
	report, err := engine.Report()
	if err != nil {
		return err
	}

	summary := CoverageSummary(report)

	entry, err := w.reports.SaveRun(reports, adapter.ReportRun{
		Origin:      origin,
		Report:      report,
		Summary:     summary,
		Stats:       stats,
		Diagnostics: diags,
	})
	if err != nil {
		return errors.Wrap(err, "failed to save reports")
	}

	if err := w.ui.DisplayCoverage(summary, diags); err != nil {
		return err
	}

	if stats != nil {
		if err := w.ui.DisplayStats(*stats); err != nil {
			return err
		}
	}

	w.ui.DisplayMessage("saved run %s to %s", entry.ID, reports)

	return nil
}

// View shows the saved runs and the latest coverage summary.
func (w *workflow) View(args ViewArgs) error {
	if err := w.ui.Start(controller.WithViewMode()); err != nil {
		return errors.Wrap(err, "failed to start UI")
	}
	defer w.ui.Close()

	index, err := w.reports.LoadIndex(args.Reports)
	if errors.Is(err, adapter.ErrNoReports) {
		return w.ui.DisplayRuns(nil)
	}

	if err != nil {
		return err
	}

	if err := w.ui.DisplayRuns(index.Runs); err != nil {
		return err
	}

	latest, ok := index.Latest()
	if !ok {
		return nil
	}

	summary, err := w.reports.LoadSummary(args.Reports)
	if err != nil {
		return err
	}

	_, diags, stats, err := w.reports.LoadRun(args.Reports, latest.ID)
	if err != nil {
		return err
	}

	if err := w.ui.DisplayCoverage(summary, diags); err != nil {
		return err
	}

	if stats != nil {
		return w.ui.DisplayStats(*stats)
	}

	return nil
}

// Clean removes the instrumented workspace and the analysis cache.
func (w *workflow) Clean(args CleanArgs) error {
	root, err := w.resolveRoot(args.Root)
	if err != nil {
		return err
	}

	if args.Out != "" {
		if err := adapter.NewWorkspaceLoader(string(root), string(args.Out), w.fs).Unhook(); err != nil {
			return err
		}

		w.ui.DisplayMessage("removed %s", args.Out)
	}

	if args.Cache != "" {
		if err := w.fs.RemoveAll(args.Cache); err != nil {
			return errors.Wrapf(err, "failed to remove %s", args.Cache)
		}

		w.ui.DisplayMessage("removed %s", args.Cache)
	}

	return nil
}

func (w *workflow) resolveRoot(root m.Path) (m.Path, error) {
	if root == "" {
		found, err := w.fs.FindProjectRoot(".")
		if err != nil {
			return ".", nil //nolint:nilerr // no project file: the working directory is the root
		}

		return found, nil
	}

	info, err := w.fs.FileInfo(root)
	if err != nil {
		return "", errors.Wrapf(err, "root path error")
	}

	if !info.IsDir() {
		return "", errors.Newf("root %s is not a directory", root)
	}

	return root, nil
}

func defaultInclude(include []m.Scope) []m.Scope {
	if len(include) == 0 {
		return []m.Scope{"."}
	}

	return include
}

func moduleRows(maps map[m.Path]*m.BoundaryMap) []controller.ModuleRow {
	rows := make([]controller.ModuleRow, 0, len(maps))
	for path, bm := range maps {
		rows = append(rows, controller.ModuleRow{Path: path, Counts: bm.Counts()})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })

	return rows
}
