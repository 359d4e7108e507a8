package adapter

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func TestModuleWatcher_FoldsEvents(t *testing.T) {
	root := t.TempDir()

	mw, err := NewModuleWatcher(root, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mw.watcher.Close() })

	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "src", "A.lua"), Op: fsnotify.Write})
	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "src", "A.lua"), Op: fsnotify.Write})
	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "B.luau"), Op: fsnotify.Create})
	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "A.spec.lua"), Op: fsnotify.Write})
	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})
	mw.handleEvent(fsnotify.Event{Name: filepath.Join(root, "C.lua"), Op: fsnotify.Chmod})

	assert.Empty(t, mw.due(time.Now()), "changes wait for the debounce")

	ready := mw.due(time.Now().Add(2 * time.Second))
	assert.Equal(t, []m.Path{"B.luau", "src/A.lua"}, ready)
	assert.Empty(t, mw.due(time.Now().Add(2*time.Second)))
}

func TestModuleWatcher_Run(t *testing.T) {
	root := t.TempDir()
	writeTestFileMkdir(t, filepath.Join(root, "src", "A.lua"), "return 1\n")

	mw, err := NewModuleWatcher(root, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu      sync.Mutex
		changed []m.Path
		done    = make(chan error, 1)
	)

	go func() {
		done <- mw.Run(ctx, func(path m.Path) {
			mu.Lock()
			defer mu.Unlock()

			changed = append(changed, path)
		})
	}()

	writeTestFile(t, filepath.Join(root, "src", "A.lua"), "return 2\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(changed) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, m.Path("src/A.lua"), changed[0])
}

func TestModuleWatcher_MissingRoot(t *testing.T) {
	_, err := NewModuleWatcher(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}
