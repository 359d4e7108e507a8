package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Contains(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		path  Path
		want  bool
	}{
		{name: "dot selects everything", scope: ".", path: "src/Util.luau", want: true},
		{name: "empty selects everything", scope: "", path: "a.lua", want: true},
		{name: "exact file", scope: "src/Util.luau", path: "src/Util.luau", want: true},
		{name: "directory prefix", scope: "src", path: "src/shared/Util.luau", want: true},
		{name: "trailing slash", scope: "src/", path: "src/Util.luau", want: true},
		{name: "segment boundary", scope: "src", path: "srcgen/Util.luau", want: false},
		{name: "leading dot slash", scope: "./Packages", path: "Packages/Roact/init.lua", want: true},
		{name: "backslashes", scope: "src\\shared", path: "src/shared/A.lua", want: true},
		{name: "unrelated", scope: "Packages", path: "src/A.lua", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Contains(tt.path))
		})
	}
}

func TestInScope_ExcludeWins(t *testing.T) {
	include := []Scope{"src"}
	exclude := []Scope{"src/vendor"}

	assert.True(t, InScope("src/A.lua", include, exclude))
	assert.False(t, InScope("src/vendor/B.lua", include, exclude))
	assert.False(t, InScope("other/C.lua", include, exclude))
	assert.False(t, InScope("src/A.lua", []Scope{"."}, []Scope{"."}))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, Path("src/A.lua"), NormalizePath("./src//A.lua"))
	assert.Equal(t, Path("src/A.lua"), NormalizePath("src\\A.lua"))
	assert.Equal(t, Path(""), NormalizePath(""))
}
