// Package adapter contains UI and infrastructure adapters for the covpatch CLI.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var (
	luauExtensions = []string{".luau", ".lua"}
	testSuffixes   = []string{".spec", ".test"}
	projectMarkers = []string{"default.project.json", "wally.toml", ".covpatch.yaml"}
	skippedDirs    = map[string]bool{".git": true, "node_modules": true, ".covpatch": true}
)

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning user projects. It intentionally hides direct `os`
// access so the workflow logic can be tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk traverses the provided root path. When recursive is false the
	// implementation should limit itself to the root directory (no sub-dirs).
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// HashFile returns a stable fingerprint (e.g. SHA-256) for the file at path.
	HashFile(path m.Path) (string, error)

	// DetectTestFile returns the .spec or .test companion of a module, or an
	// empty path when it has none.
	DetectTestFile(sourcePath m.Path) (m.Path, error)

	// FileInfo returns metadata for a path so the domain can check existence or
	// distinguish between files and directories when necessary.
	FileInfo(path m.Path) (os.FileInfo, error)

	// FindProjectRoot searches for a Rojo, Wally or covpatch project file
	// walking up the directory tree.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// ListModules returns the slash separated paths, relative to root, of
	// every Luau module under root. Test companions are not modules.
	ListModules(root m.Path) ([]m.Path, error)

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// CopyDir recursively copies a directory tree. Directories whose path
	// relative to src is listed in skip are left out.
	CopyDir(src, dst m.Path, skip ...m.Path) error

	// WriteFile writes content to a file with the given permissions, creating
	// parent directories.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type directly into the
// domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter is the os backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// IsLuauFile reports whether path has a Luau source extension.
func IsLuauFile(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range luauExtensions {
		if ext == e {
			return true
		}
	}

	return false
}

// IsTestFile reports whether path is a .spec or .test companion.
func IsTestFile(path string) bool {
	if !IsLuauFile(path) {
		return false
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, suffix := range testSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}

	return false
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// DetectTestFile finds the companion Foo.spec.lua (or .test) of Foo.lua.
func (a *LocalSourceFSAdapter) DetectTestFile(sourcePath m.Path) (m.Path, error) {
	source := string(sourcePath)
	if !IsLuauFile(source) || IsTestFile(source) {
		return "", nil
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	for _, suffix := range testSuffixes {
		for _, ext := range luauExtensions {
			candidate := filepath.Join(filepath.Dir(source), stem+suffix+ext)

			if _, err := os.Stat(candidate); err != nil {
				if os.IsNotExist(err) {
					continue
				}

				return "", err
			}

			return m.Path(candidate), nil
		}
	}

	return "", nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// FindProjectRoot searches for a project marker walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir := string(startPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return m.Path(dir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project file (%s) found in any parent directory of %s",
				strings.Join(projectMarkers, ", "), startPath)
		}

		dir = parent
	}
}

// ListModules returns every non-test Luau module under root, sorted.
func (a *LocalSourceFSAdapter) ListModules(root m.Path) ([]m.Path, error) {
	rootStr := string(root)

	var modules []m.Path

	err := a.Walk(root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != rootStr && skippedDirs[info.Name()] {
				return filepath.SkipDir
			}

			return nil
		}

		if !IsLuauFile(path) || IsTestFile(path) {
			return nil
		}

		rel, err := filepath.Rel(rootStr, path)
		if err != nil {
			return err
		}

		modules = append(modules, m.Path(filepath.ToSlash(rel)))

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })

	return modules, nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSourceFSAdapter) RemoveAll(path m.Path) error {
	return os.RemoveAll(string(path))
}

// CopyDir recursively copies a directory tree.
func (a *LocalSourceFSAdapter) CopyDir(src, dst m.Path, skip ...m.Path) error {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[filepath.Clean(string(s))] = true
	}

	return filepath.Walk(string(src), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(string(src), path)
		if err != nil {
			return err
		}

		if info.IsDir() && relPath != "." {
			if skippedDirs[info.Name()] || skipped[relPath] {
				return filepath.SkipDir
			}
		}

		targetPath := filepath.Join(string(dst), relPath)

		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode()|0o700)
		}

		return a.copyFile(path, targetPath, info.Mode())
	})
}

// copyFile copies a single file.
func (a *LocalSourceFSAdapter) copyFile(src, dst string, mode os.FileMode) error {
	// #nosec G304 - src is internal project file path, not user input
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	// #nosec G304 - dst is internal destination path, not user input
	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return os.Chmod(dst, mode)
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
