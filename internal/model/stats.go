package model

// Stats defaults applied to unset options.
const (
	DefaultStatsLimit   = 10
	DefaultStatsMinHits = 1
	// NoLimit keeps every ranked entry.
	NoLimit = -1
)

// StatsOptions selects what RuntimeStats ranks. The zero value ranks every
// kind with the default limit and a one-hit threshold.
type StatsOptions struct {
	// Limit caps each list; 0 means DefaultStatsLimit and a negative value
	// keeps everything.
	Limit int
	// MinHits hides entries hit fewer times; 0 means DefaultStatsMinHits.
	MinHits           uint64
	ExcludeStatements bool
	ExcludeFunctions  bool
	ExcludeBranches   bool
}

// DefaultStatsOptions returns the zero value with its defaults spelled out.
func DefaultStatsOptions() StatsOptions {
	return StatsOptions{
		Limit:   DefaultStatsLimit,
		MinHits: DefaultStatsMinHits,
	}
}

// Normalize fills in the defaults of unset fields.
func (o StatsOptions) Normalize() StatsOptions {
	if o.Limit == 0 {
		o.Limit = DefaultStatsLimit
	}

	if o.MinHits == 0 {
		o.MinHits = DefaultStatsMinHits
	}

	return o
}

// Totals counts probes at or above the hit threshold and their summed hits.
type Totals struct {
	Points int    `json:"points" yaml:"points"`
	Hits   uint64 `json:"hits" yaml:"hits"`
}

// HotSpot is one ranked probe.
type HotSpot struct {
	Kind  ProbeKind  `json:"kind" yaml:"kind"`
	ID    int        `json:"id" yaml:"id"`
	File  Path       `json:"file" yaml:"file"`
	Line  int        `json:"line" yaml:"line"`
	Hits  uint64     `json:"hits" yaml:"hits"`
	Name  string     `json:"name,omitempty" yaml:"name,omitempty"`
	Type  BranchType `json:"type,omitempty" yaml:"type,omitempty"`
	Paths []uint64   `json:"paths,omitempty" yaml:"paths,omitempty"`
}

// HotFile is the per-module hit aggregate.
type HotFile struct {
	File       Path   `json:"file" yaml:"file"`
	Hits       uint64 `json:"hits" yaml:"hits"`
	Statements uint64 `json:"statements" yaml:"statements"`
	Functions  uint64 `json:"functions" yaml:"functions"`
	Branches   uint64 `json:"branches" yaml:"branches"`
}

// RuntimeStats is the hot-spot view of a coverage snapshot.
type RuntimeStats struct {
	Statements    Totals    `json:"statements" yaml:"statements"`
	Functions     Totals    `json:"functions" yaml:"functions"`
	Branches      Totals    `json:"branches" yaml:"branches"`
	TopStatements []HotSpot `json:"topStatements" yaml:"topStatements"`
	TopFunctions  []HotSpot `json:"topFunctions" yaml:"topFunctions"`
	TopBranches   []HotSpot `json:"topBranches" yaml:"topBranches"`
	HotFiles      []HotFile `json:"hotFiles" yaml:"hotFiles"`
}
