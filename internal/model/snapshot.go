package model

// ModuleCounts holds the counter values of one module. Index i of each slice
// is the probe with id Base+i.
type ModuleCounts struct {
	Base int
	S    []uint64
	F    []uint64
	B    [][]uint64
}

// Snapshot is a point-in-time copy of every registered module's counters.
type Snapshot map[Path]ModuleCounts

// DumpModule is the sparse counter dump an external runtime emits for one module.
// Keys are decimal probe ids; branch path keys are 0-based path indices.
type DumpModule struct {
	S map[string]uint64            `json:"s"`
	F map[string]uint64            `json:"f"`
	B map[string]map[string]uint64 `json:"b"`
}

// Dump maps module paths to their sparse counter dumps.
type Dump map[Path]DumpModule
