package adapter

import (
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// ProbeSink receives probe hits from a running host. Implementations never
// fail; unknown probes are dropped.
type ProbeSink interface {
	HitStatement(path m.Path, id int)
	HitFunction(path m.Path, id int)
	HitBranch(path m.Path, id, pathIndex int)
}

// HostLoader is the capability a runtime host gives the engine: enumerate its
// modules, read their source, swap in instrumented source, and expose the
// counting functions under the global runtime hook.
type HostLoader interface {
	// Modules lists every loadable module path.
	Modules() ([]m.Path, error)
	// Resolve returns the original source of a module.
	Resolve(path m.Path) ([]byte, error)
	// Override makes later loads of path use the instrumented source.
	Override(path m.Path, instrumented []byte) error
	// Restore undoes Override for path.
	Restore(path m.Path) error
	// Hook installs the runtime hook, forwarding hits to sink.
	Hook(sink ProbeSink) error
	// Unhook removes the runtime hook and every override.
	Unhook() error
}
