package model

import (
	"path"
	"strings"
)

// Path represents a file system path or a module path relative to a source root.
type Path string

// Scope selects modules by path-segment prefix. "." and "" select everything.
type Scope string

// Normalize returns the scope with slashes unified and redundant separators removed.
func (s Scope) Normalize() Scope {
	raw := strings.ReplaceAll(string(s), "\\", "/")
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "." || raw == "./" {
		return "."
	}

	cleaned := path.Clean(raw)
	cleaned = strings.TrimPrefix(cleaned, "./")

	return Scope(cleaned)
}

// Contains reports whether the module path lies within the scope.
func (s Scope) Contains(p Path) bool {
	scope := string(s.Normalize())
	if scope == "." {
		return true
	}

	target := string(NormalizePath(p))
	if target == scope {
		return true
	}

	return strings.HasPrefix(target, scope+"/")
}

// NormalizePath unifies separators and strips a leading "./".
func NormalizePath(p Path) Path {
	raw := strings.ReplaceAll(string(p), "\\", "/")
	if raw == "" {
		return ""
	}

	cleaned := path.Clean(raw)

	return Path(strings.TrimPrefix(cleaned, "./"))
}

// InScope reports whether p is selected by include and not selected by exclude.
// Exclusion wins over inclusion.
func InScope(p Path, include, exclude []Scope) bool {
	for _, scope := range exclude {
		if scope.Contains(p) {
			return false
		}
	}

	for _, scope := range include {
		if scope.Contains(p) {
			return true
		}
	}

	return false
}
