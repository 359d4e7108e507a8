package domain

import (
	"strings"
	"unicode"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/luau"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

const ignoreDirective = "covpatch:ignore"

type ignoreRule struct {
	all   bool
	kinds map[m.ProbeKind]struct{}
}

func (r ignoreRule) ignores(kind m.ProbeKind) bool {
	if r.all {
		return true
	}

	_, ok := r.kinds[kind]

	return ok
}

func mergeIgnoreRule(dst *ignoreRule, src ignoreRule) {
	if src.all {
		dst.all = true
		dst.kinds = nil

		return
	}

	if dst.all || len(src.kinds) == 0 {
		return
	}

	if dst.kinds == nil {
		dst.kinds = make(map[m.ProbeKind]struct{}, len(src.kinds))
	}

	for kind := range src.kinds {
		dst.kinds[kind] = struct{}{}
	}
}

// parseIgnoreDirective parses "covpatch:ignore [file] [kind, ...]" from the
// text of a comment, dashes already stripped.
func parseIgnoreDirective(commentText string) (rule ignoreRule, fileScope bool, ok bool) {
	s := strings.TrimSpace(commentText)
	if strings.HasPrefix(s, "[") {
		s = strings.TrimLeft(s, "[=")
		s = strings.TrimRight(strings.TrimSpace(s), "]=")
		s = strings.TrimSpace(s)
	}

	if !strings.HasPrefix(s, ignoreDirective) {
		return ignoreRule{}, false, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(s, ignoreDirective))
	if rest == "file" || strings.HasPrefix(rest, "file ") {
		fileScope = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "file"))
	}

	if rest == "" {
		return ignoreRule{all: true}, fileScope, true
	}

	parts := strings.Split(rest, ",")
	rule = ignoreRule{kinds: make(map[m.ProbeKind]struct{}, len(parts))}

	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		switch m.ProbeKind(name) {
		case m.ProbeStatement, m.ProbeFunction, m.ProbeBranch:
			rule.kinds[m.ProbeKind(name)] = struct{}{}
		}
	}

	if len(rule.kinds) == 0 {
		return ignoreRule{all: true}, fileScope, true
	}

	return rule, fileScope, true
}

type ignoreIndex struct {
	file ignoreRule
	line map[int]ignoreRule
}

// buildIgnoreIndex collects directives. A directive alone on its line applies
// to the next line, a trailing one to its own line, and "file" to the module.
func buildIgnoreIndex(chunk *luau.Chunk, content []byte) ignoreIndex {
	idx := ignoreIndex{line: make(map[int]ignoreRule)}
	lineStarts := computeLineStarts(content)

	for _, c := range chunk.Comments {
		r, fileScope, ok := parseIgnoreDirective(c.Text)
		if !ok {
			continue
		}

		if fileScope {
			mergeIgnoreRule(&idx.file, r)
			continue
		}

		targetLine := c.Start.Line
		if isLeadingComment(c.Start.Line, c.Start.Offset, lineStarts, content) {
			targetLine = c.End.Line + 1
		}

		current := idx.line[targetLine]
		mergeIgnoreRule(&current, r)
		idx.line[targetLine] = current
	}

	return idx
}

// skipsModule reports whether the whole module is excluded.
func (idx ignoreIndex) skipsModule() bool {
	return idx.file.all
}

// ignores reports whether a probe of kind whose construct starts on line is skipped.
func (idx ignoreIndex) ignores(line int, kind m.ProbeKind) bool {
	if idx.file.ignores(kind) {
		return true
	}

	rule, ok := idx.line[line]

	return ok && rule.ignores(kind)
}

// skipsSubtree reports whether a statement starting on line is skipped with
// everything nested in it.
func (idx ignoreIndex) skipsSubtree(line int) bool {
	rule, ok := idx.line[line]

	return ok && rule.all
}

func computeLineStarts(content []byte) []int {
	starts := []int{0}

	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

func isLeadingComment(line int, offset int, lineStarts []int, content []byte) bool {
	if line <= 0 || line > len(lineStarts) {
		return false
	}

	start := lineStarts[line-1]
	if offset < start || offset > len(content) {
		return false
	}

	for _, b := range content[start:offset] {
		if !unicode.IsSpace(rune(b)) {
			return false
		}
	}

	return true
}
