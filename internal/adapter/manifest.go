package adapter

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// ManifestFile is the name of the manifest inside an instrumented workspace.
const ManifestFile = "covpatch-manifest.msgpack"

// ErrNoManifest is returned when a workspace has no manifest.
var ErrNoManifest = errors.New("no instrumentation manifest")

// Manifest records what an instrumentation pass produced, so that a dump from
// the runtime can be reported by a later process.
type Manifest struct {
	RunID       string            `msgpack:"run_id"`
	Root        string            `msgpack:"root"`
	CreatedAt   time.Time         `msgpack:"created_at"`
	BaseID      int               `msgpack:"base_id"`
	Maps        []*m.BoundaryMap  `msgpack:"maps"`
	Diagnostics []m.Diagnostic    `msgpack:"diagnostics"`
	Hashes      map[m.Path]string `msgpack:"hashes"`
}

// ManifestStore persists manifests.
type ManifestStore interface {
	Save(dir m.Path, manifest *Manifest) error
	Load(dir m.Path) (*Manifest, error)
}

// LocalManifestStore keeps the manifest as a msgpack file in a directory.
type LocalManifestStore struct{}

// NewManifestStore creates a LocalManifestStore.
func NewManifestStore() *LocalManifestStore {
	return &LocalManifestStore{}
}

// Save writes the manifest. Maps are stored sorted by path.
func (s *LocalManifestStore) Save(dir m.Path, manifest *Manifest) error {
	if manifest == nil {
		return errors.New("nil manifest")
	}

	sort.Slice(manifest.Maps, func(i, j int) bool { return manifest.Maps[i].Path < manifest.Maps[j].Path })

	if manifest.Hashes == nil {
		manifest.Hashes = make(map[m.Path]string, len(manifest.Maps))
		for _, bm := range manifest.Maps {
			manifest.Hashes[bm.Path] = bm.Hash
		}
	}

	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(manifest); err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	path := filepath.Join(string(dir), ManifestFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	return nil
}

// Load reads the manifest of dir.
func (s *LocalManifestStore) Load(dir m.Path) (*Manifest, error) {
	path := filepath.Join(string(dir), ManifestFile)

	// #nosec G304 - path is the manifest inside the configured workspace
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.WithHint(errors.Wrapf(ErrNoManifest, "%s", dir), "run covpatch instrument first")
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var manifest Manifest
	if err := msgpack.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	return &manifest, nil
}
