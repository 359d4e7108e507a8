package domain

import (
	"testing"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/luau"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func TestParseIgnoreDirective_All(t *testing.T) {
	r, fileScope, ok := parseIgnoreDirective("covpatch:ignore")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if fileScope {
		t.Fatalf("did not expect file scope")
	}
	if !r.all || r.kinds != nil {
		t.Fatalf("expected all=true and kinds=nil")
	}
}

func TestParseIgnoreDirective_Kinds(t *testing.T) {
	r, _, ok := parseIgnoreDirective(" covpatch:ignore Branch, statement ")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if r.all {
		t.Fatalf("expected all=false")
	}
	if len(r.kinds) != 2 {
		t.Fatalf("expected 2 kinds, got %d", len(r.kinds))
	}
	if !r.ignores(m.ProbeBranch) || !r.ignores(m.ProbeStatement) {
		t.Fatalf("expected branch and statement to be ignored")
	}
	if r.ignores(m.ProbeFunction) {
		t.Fatalf("did not expect function to be ignored")
	}
}

func TestParseIgnoreDirective_FileScope(t *testing.T) {
	r, fileScope, ok := parseIgnoreDirective("covpatch:ignore file function")
	if !ok || !fileScope {
		t.Fatalf("expected a file scoped directive")
	}
	if r.all || !r.ignores(m.ProbeFunction) {
		t.Fatalf("expected only functions to be ignored")
	}
}

func TestParseIgnoreDirective_LongComment(t *testing.T) {
	r, _, ok := parseIgnoreDirective("[[ covpatch:ignore ]]")
	if !ok {
		t.Fatalf("expected directive to be parsed")
	}
	if !r.all {
		t.Fatalf("expected all=true")
	}
}

func TestParseIgnoreDirective_UnknownKindsMeanAll(t *testing.T) {
	r, _, ok := parseIgnoreDirective("covpatch:ignore everything")
	if !ok || !r.all {
		t.Fatalf("expected unknown kinds to ignore everything")
	}
}

func TestParseIgnoreDirective_NotADirective(t *testing.T) {
	if _, _, ok := parseIgnoreDirective(" regular comment"); ok {
		t.Fatalf("did not expect a directive")
	}
}

func TestBuildIgnoreIndex_Scopes(t *testing.T) {
	const src = "--covpatch:ignore file branch\n" +
		"local a = 1\n" +
		"--covpatch:ignore\n" +
		"local function skipped()\n" +
		"\treturn 1\n" +
		"end\n" +
		"local b = 2 --covpatch:ignore statement\n"

	content := []byte(src)

	chunk, err := luau.Parse("test.lua", content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	idx := buildIgnoreIndex(chunk, content)

	if !idx.file.ignores(m.ProbeBranch) {
		t.Fatalf("expected file-level ignore for branches")
	}
	if idx.skipsModule() {
		t.Fatalf("did not expect the module to be skipped")
	}
	if !idx.ignores(2, m.ProbeBranch) {
		t.Fatalf("expected branches ignored on every line")
	}
	if idx.ignores(2, m.ProbeStatement) {
		t.Fatalf("did not expect statement ignore on line 2")
	}
	if !idx.skipsSubtree(4) {
		t.Fatalf("expected the leading directive to skip line 4")
	}
	if idx.skipsSubtree(3) {
		t.Fatalf("did not expect the directive line itself to be skipped")
	}
	if !idx.ignores(7, m.ProbeStatement) || idx.skipsSubtree(7) {
		t.Fatalf("expected trailing directive to ignore statements on line 7 only")
	}
}

func TestBuildIgnoreIndex_FileAll(t *testing.T) {
	content := []byte("--!strict\n--covpatch:ignore file\nreturn 1\n")

	chunk, err := luau.Parse("test.lua", content)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !buildIgnoreIndex(chunk, content).skipsModule() {
		t.Fatalf("expected module to be skipped")
	}
}
