package domain

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/adapter"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/errors"
	"github.com/Unreal-Works/roblox-coverage-patch/internal/logger"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// ConcurrencyMode selects how counter slots are updated.
type ConcurrencyMode string

const (
	// Cooperative uses plain slots. Correct only when probes never run in parallel.
	Cooperative ConcurrencyMode = "cooperative"
	// Parallel uses atomic slots.
	Parallel ConcurrencyMode = "parallel"
)

// Store holds the live counters of every registered module.
type Store interface {
	adapter.ProbeSink
	// Register sizes the counters of a module, replacing any previous ones.
	Register(bm *m.BoundaryMap)
	// Unregister forgets a module.
	Unregister(path m.Path)
	Increment(path m.Path, kind m.ProbeKind, id int) error
	IncrementBranch(path m.Path, id, pathIndex int) error
	// Snapshot copies every counter.
	Snapshot() m.Snapshot
	// Merge adds counts reported by an external runtime.
	Merge(dump m.Dump) []m.Diagnostic
	// Reset zeroes every counter and keeps the registrations.
	Reset()
	// Clear forgets every module.
	Clear()
	// Dropped is the number of hits that referenced unknown probes.
	Dropped() uint64
}

type counterSlots interface {
	add(i int, n uint64)
	load(i int) uint64
	size() int
	reset()
}

type plainSlots []uint64

func (s plainSlots) add(i int, n uint64) { s[i] += n }
func (s plainSlots) load(i int) uint64   { return s[i] }
func (s plainSlots) size() int           { return len(s) }
func (s plainSlots) reset()              { clear(s) }

type atomicSlots []atomic.Uint64

func (s atomicSlots) add(i int, n uint64) { s[i].Add(n) }
func (s atomicSlots) load(i int) uint64   { return s[i].Load() }
func (s atomicSlots) size() int           { return len(s) }

func (s atomicSlots) reset() {
	for i := range s {
		s[i].Store(0)
	}
}

type moduleCounters struct {
	base int
	s    counterSlots
	f    counterSlots
	b    []counterSlots
}

type store struct {
	mode    ConcurrencyMode
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	modules map[m.Path]*moduleCounters
	dropped atomic.Uint64
}

// NewStore creates an empty Store. A nil log uses the global logger.
func NewStore(mode ConcurrencyMode, log *zap.SugaredLogger) Store {
	if log == nil {
		log = logger.Named("store")
	}

	if mode != Parallel {
		mode = Cooperative
	}

	return &store{mode: mode, log: log, modules: make(map[m.Path]*moduleCounters)}
}

func (st *store) newSlots(n int) counterSlots {
	if st.mode == Parallel {
		return make(atomicSlots, n)
	}

	return make(plainSlots, n)
}

func (st *store) Register(bm *m.BoundaryMap) {
	mc := &moduleCounters{
		base: bm.Base,
		s:    st.newSlots(len(bm.Statements)),
		f:    st.newSlots(len(bm.Functions)),
		b:    make([]counterSlots, len(bm.Branches)),
	}

	for i, branch := range bm.Branches {
		mc.b[i] = st.newSlots(len(branch.Paths))
	}

	st.mu.Lock()
	st.modules[bm.Path] = mc
	st.mu.Unlock()
}

func (st *store) Unregister(path m.Path) {
	st.mu.Lock()
	delete(st.modules, path)
	st.mu.Unlock()
}

func (st *store) module(path m.Path) *moduleCounters {
	st.mu.RLock()
	mc := st.modules[path]
	st.mu.RUnlock()

	return mc
}

func (st *store) Increment(path m.Path, kind m.ProbeKind, id int) error {
	mc := st.module(path)
	if mc == nil {
		return st.drop(path, kind, id, 1)
	}

	var slots counterSlots

	switch kind {
	case m.ProbeStatement:
		slots = mc.s
	case m.ProbeFunction:
		slots = mc.f
	default:
		return st.drop(path, kind, id, 1)
	}

	i := id - mc.base
	if i < 0 || i >= slots.size() {
		return st.drop(path, kind, id, 1)
	}

	slots.add(i, 1)

	return nil
}

func (st *store) IncrementBranch(path m.Path, id, pathIndex int) error {
	mc := st.module(path)
	if mc == nil {
		return st.drop(path, m.ProbeBranch, id, 1)
	}

	i := id - mc.base
	if i < 0 || i >= len(mc.b) || pathIndex < 0 || pathIndex >= mc.b[i].size() {
		return st.drop(path, m.ProbeBranch, id, 1)
	}

	mc.b[i].add(pathIndex, 1)

	return nil
}

func (st *store) HitStatement(path m.Path, id int) {
	_ = st.Increment(path, m.ProbeStatement, id)
}

func (st *store) HitFunction(path m.Path, id int) {
	_ = st.Increment(path, m.ProbeFunction, id)
}

func (st *store) HitBranch(path m.Path, id, pathIndex int) {
	_ = st.IncrementBranch(path, id, pathIndex)
}

func (st *store) drop(path m.Path, kind m.ProbeKind, id int, n uint64) error {
	st.dropped.Add(n)
	st.log.Debugw("dropped probe hit",
		logger.FieldPath, path,
		logger.FieldKind, kind,
		logger.FieldProbe, id,
	)

	return errors.StaleProbeReference(errors.Newf("%s probe %d of %s", kind, id, path))
}

func (st *store) Snapshot() m.Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	snap := make(m.Snapshot, len(st.modules))

	for path, mc := range st.modules {
		counts := m.ModuleCounts{
			Base: mc.base,
			S:    copySlots(mc.s),
			F:    copySlots(mc.f),
			B:    make([][]uint64, len(mc.b)),
		}

		for i, slots := range mc.b {
			counts.B[i] = copySlots(slots)
		}

		snap[path] = counts
	}

	return snap
}

func copySlots(slots counterSlots) []uint64 {
	out := make([]uint64, slots.size())
	for i := range out {
		out[i] = slots.load(i)
	}

	return out
}

func (st *store) Merge(dump m.Dump) []m.Diagnostic {
	paths := make([]m.Path, 0, len(dump))
	for path := range dump {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	var diags []m.Diagnostic

	for _, path := range paths {
		entry := dump[path]

		mc := st.module(path)
		if mc == nil {
			st.dropped.Add(uint64(len(entry.S) + len(entry.F) + len(entry.B)))
			diags = append(diags, m.Diagnostic{
				Kind:    m.DiagnosticStaleProbe,
				Path:    path,
				Message: "counts reported for a module that is not instrumented",
			})

			continue
		}

		stale := st.mergeSlots(mc.s, mc.base, entry.S) +
			st.mergeSlots(mc.f, mc.base, entry.F) +
			st.mergeBranches(mc, entry.B)

		if stale > 0 {
			st.dropped.Add(uint64(stale))
			diags = append(diags, m.Diagnostic{
				Kind:    m.DiagnosticStaleProbe,
				Path:    path,
				Message: strconv.Itoa(stale) + " counts referenced unknown probes",
			})
		}
	}

	return diags
}

func (st *store) mergeSlots(slots counterSlots, base int, counts map[string]uint64) int {
	stale := 0

	for key, n := range counts {
		id, err := strconv.Atoi(key)
		if err != nil || id-base < 0 || id-base >= slots.size() {
			stale++
			continue
		}

		slots.add(id-base, n)
	}

	return stale
}

func (st *store) mergeBranches(mc *moduleCounters, counts map[string]map[string]uint64) int {
	stale := 0

	for key, paths := range counts {
		id, err := strconv.Atoi(key)
		if err != nil || id-mc.base < 0 || id-mc.base >= len(mc.b) {
			stale++
			continue
		}

		slots := mc.b[id-mc.base]
		for pathKey, n := range paths {
			k, err := strconv.Atoi(pathKey)
			if err != nil || k < 0 || k >= slots.size() {
				stale++
				continue
			}

			slots.add(k, n)
		}
	}

	return stale
}

func (st *store) Reset() {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, mc := range st.modules {
		mc.s.reset()
		mc.f.reset()

		for _, slots := range mc.b {
			slots.reset()
		}
	}
}

func (st *store) Clear() {
	st.mu.Lock()
	st.modules = make(map[m.Path]*moduleCounters)
	st.mu.Unlock()
}

func (st *store) Dropped() uint64 {
	return st.dropped.Load()
}
