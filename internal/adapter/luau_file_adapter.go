package adapter

import (
	"github.com/Unreal-Works/roblox-coverage-patch/internal/luau"
)

// LuauFileAdapter encapsulates Luau parsing so the domain layer can focus on
// probe placement while delegating syntax details to an infrastructure component.
type LuauFileAdapter interface {
	// Parse builds a syntax tree for the provided filename/source pair.
	Parse(filename string, src []byte) (*luau.Chunk, error)
}

// LocalLuauFileAdapter provides a concrete LuauFileAdapter backed by the luau package.
type LocalLuauFileAdapter struct{}

// NewLocalLuauFileAdapter constructs a LocalLuauFileAdapter.
func NewLocalLuauFileAdapter() *LocalLuauFileAdapter {
	return &LocalLuauFileAdapter{}
}

// Parse builds a syntax tree with comments and positions.
func (a *LocalLuauFileAdapter) Parse(filename string, src []byte) (*luau.Chunk, error) {
	return luau.Parse(filename, src)
}
