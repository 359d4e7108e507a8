package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// WorkspaceLoader is the host loader for runtimes outside this process, such
// as a Roblox place built from the project. Hook copies the project into the
// output directory and adds the runtime prelude; overrides rewrite modules in
// that copy. Counts come back as a dump printed by the prelude, so the sink
// passed to Hook is not called.
type WorkspaceLoader struct {
	root string
	out  string
	fs   SourceFSAdapter
	log  *zap.SugaredLogger

	mu     sync.Mutex
	hooked bool
}

// NewWorkspaceLoader creates a loader copying root into out.
func NewWorkspaceLoader(root, out string, fs SourceFSAdapter) *WorkspaceLoader {
	if fs == nil {
		fs = NewLocalSourceFSAdapter()
	}

	return &WorkspaceLoader{
		root: root,
		out:  out,
		fs:   fs,
		log:  logger.Named("workspace"),
	}
}

// Out returns the workspace directory.
func (w *WorkspaceLoader) Out() string {
	return w.out
}

// outRel is the workspace path relative to the project root, or "" when the
// workspace lies outside it.
func (w *WorkspaceLoader) outRel() string {
	rootAbs, err := filepath.Abs(w.root)
	if err != nil {
		return ""
	}

	outAbs, err := filepath.Abs(w.out)
	if err != nil {
		return ""
	}

	rel, err := filepath.Rel(rootAbs, outAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}

	return rel
}

// Modules lists the project modules, leaving out the workspace itself.
func (w *WorkspaceLoader) Modules() ([]m.Path, error) {
	modules, err := w.fs.ListModules(m.Path(w.root))
	if err != nil {
		return nil, err
	}

	rel := filepath.ToSlash(w.outRel())
	if rel == "" {
		return modules, nil
	}

	kept := modules[:0]

	for _, path := range modules {
		if m.Scope(rel).Contains(path) {
			continue
		}

		kept = append(kept, path)
	}

	return kept, nil
}

// Resolve reads the original source of a module from the project.
func (w *WorkspaceLoader) Resolve(path m.Path) ([]byte, error) {
	return w.fs.ReadFile(w.source(path))
}

func (w *WorkspaceLoader) source(path m.Path) m.Path {
	return m.Path(filepath.Join(w.root, filepath.FromSlash(string(path))))
}

func (w *WorkspaceLoader) target(path m.Path) m.Path {
	return m.Path(filepath.Join(w.out, filepath.FromSlash(string(path))))
}

// Hook creates a fresh workspace holding a copy of the project and the prelude.
func (w *WorkspaceLoader) Hook(_ ProbeSink) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.RemoveAll(m.Path(w.out)); err != nil {
		return errors.Wrapf(err, "failed to clear workspace %s", w.out)
	}

	var skip []m.Path
	if rel := w.outRel(); rel != "" {
		skip = append(skip, m.Path(rel))
	}

	if err := w.fs.CopyDir(m.Path(w.root), m.Path(w.out), skip...); err != nil {
		return errors.Wrapf(err, "failed to copy %s into workspace", w.root)
	}

	if err := w.fs.WriteFile(m.Path(filepath.Join(w.out, PreludeModule)), RuntimePrelude, 0o644); err != nil {
		return errors.Wrap(err, "failed to write runtime prelude")
	}

	w.hooked = true
	w.log.Debugw("workspace created", logger.FieldPath, w.out)

	return nil
}

// Override writes the instrumented source of path into the workspace.
func (w *WorkspaceLoader) Override(path m.Path, instrumented []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hooked {
		return errors.Newf("override %s: workspace not created", path)
	}

	return w.fs.WriteFile(w.target(path), instrumented, 0o644)
}

// Restore puts the original source of path back into the workspace.
func (w *WorkspaceLoader) Restore(path m.Path) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hooked {
		return nil
	}

	src, err := w.fs.ReadFile(w.source(path))
	if os.IsNotExist(err) {
		return w.fs.RemoveAll(w.target(path))
	}

	if err != nil {
		return err
	}

	return w.fs.WriteFile(w.target(path), src, 0o644)
}

// Unhook removes the workspace.
func (w *WorkspaceLoader) Unhook() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.hooked = false

	return w.fs.RemoveAll(m.Path(w.out))
}
