package adapter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const defaultDebounce = 200 * time.Millisecond

// ModuleWatcher reports Luau modules under a root whose source changed.
// Rapid saves of one file are folded into a single change.
type ModuleWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.SugaredLogger

	mu      sync.Mutex
	pending map[m.Path]time.Time
}

// NewModuleWatcher watches every directory under root. A debounce of zero
// uses the default.
func NewModuleWatcher(root string, debounce time.Duration) (*ModuleWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	mw := &ModuleWatcher{
		root:     root,
		watcher:  watcher,
		debounce: debounce,
		log:      logger.Named("watcher"),
		pending:  make(map[m.Path]time.Time),
	}

	if err := mw.addTree(root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return mw, nil
}

func (mw *ModuleWatcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if path != dir && skippedDirs[info.Name()] {
			return filepath.SkipDir
		}

		if err := mw.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}

		return nil
	})
}

// Run delivers changed module paths, relative to the root, to handle until ctx
// is done. handle runs on the watcher goroutine, one change at a time.
func (mw *ModuleWatcher) Run(ctx context.Context, handle func(path m.Path)) error {
	defer func() { _ = mw.watcher.Close() }()

	ticker := time.NewTicker(mw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-mw.watcher.Events:
			if !ok {
				return nil
			}

			mw.handleEvent(event)

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return nil
			}

			mw.log.Warnw("watch error", logger.FieldError, err)

		case now := <-ticker.C:
			for _, path := range mw.due(now) {
				handle(path)
			}
		}
	}
}

func (mw *ModuleWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := mw.addTree(event.Name); err != nil {
				mw.log.Warnw("failed to watch new directory", logger.FieldPath, event.Name, logger.FieldError, err)
			}

			return
		}
	}

	if !IsLuauFile(event.Name) || IsTestFile(event.Name) {
		return
	}

	rel, err := filepath.Rel(mw.root, event.Name)
	if err != nil {
		return
	}

	path := m.Path(filepath.ToSlash(rel))

	mw.mu.Lock()
	mw.pending[path] = time.Now()
	mw.mu.Unlock()

	mw.log.Debugw("module changed", logger.FieldPath, path, logger.FieldKind, event.Op.String())
}

// due removes and returns, sorted, the pending paths quiet for a full debounce.
func (mw *ModuleWatcher) due(now time.Time) []m.Path {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var ready []m.Path

	for path, seen := range mw.pending {
		if now.Sub(seen) >= mw.debounce {
			ready = append(ready, path)
			delete(mw.pending, path)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	return ready
}
