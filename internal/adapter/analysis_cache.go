package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const cacheFileExt = ".msgpack"

// CacheEntry is the result of analysing and instrumenting one module.
type CacheEntry struct {
	Map          *m.BoundaryMap `msgpack:"map"`
	Instrumented []byte         `msgpack:"instrumented"`
}

// AnalysisCache remembers analysis results keyed by CacheKey.
type AnalysisCache interface {
	Get(key string) (*CacheEntry, bool)
	Put(key string, entry *CacheEntry) error
}

// CacheKey identifies a module version: its path, its content and the first probe id.
func CacheKey(path m.Path, src []byte, baseID int) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(src)
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(baseID)))

	return hex.EncodeToString(h.Sum(nil))
}

// MemoryAnalysisCache keeps entries in process memory.
type MemoryAnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewMemoryAnalysisCache creates an empty in-memory cache.
func NewMemoryAnalysisCache() *MemoryAnalysisCache {
	return &MemoryAnalysisCache{entries: make(map[string]*CacheEntry)}
}

// Get returns the entry stored under key.
func (c *MemoryAnalysisCache) Get(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return entry, ok
}

// Put stores entry under key.
func (c *MemoryAnalysisCache) Put(key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry

	return nil
}

// Len returns the number of cached entries.
func (c *MemoryAnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// DiskAnalysisCache persists entries as msgpack files in a directory, with an
// in-memory layer in front.
type DiskAnalysisCache struct {
	dir    string
	memory *MemoryAnalysisCache
}

// NewDiskAnalysisCache creates a cache rooted at dir. The directory is created on first Put.
func NewDiskAnalysisCache(dir string) *DiskAnalysisCache {
	return &DiskAnalysisCache{dir: dir, memory: NewMemoryAnalysisCache()}
}

// Get looks in memory first and then on disk. Unreadable files are treated as misses.
func (c *DiskAnalysisCache) Get(key string) (*CacheEntry, bool) {
	if entry, ok := c.memory.Get(key); ok {
		return entry, true
	}

	f, err := os.Open(c.file(key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var entry CacheEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil || entry.Map == nil {
		return nil, false
	}

	_ = c.memory.Put(key, &entry)

	return &entry, true
}

// Put stores entry in memory and writes it to disk.
func (c *DiskAnalysisCache) Put(key string, entry *CacheEntry) error {
	_ = c.memory.Put(key, entry)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create cache dir")
	}

	data, err := msgpack.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*")
	if err != nil {
		return errors.Wrap(err, "failed to create cache file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrap(err, "failed to write cache file")
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "failed to close cache file")
	}

	if err := os.Rename(tmp.Name(), c.file(key)); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(err, "failed to store cache entry")
	}

	return nil
}

func (c *DiskAnalysisCache) file(key string) string {
	return filepath.Join(c.dir, key+cacheFileExt)
}
