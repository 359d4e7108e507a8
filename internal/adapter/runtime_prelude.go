package adapter

import (
	_ "embed"
)

// PreludeModule is the file name the runtime prelude is written under in an
// instrumented workspace.
const PreludeModule = "CovpatchRuntime.lua"

// RuntimePrelude is the Lua implementation of the runtime hook for hosts that
// run outside this process. It installs _G.__covpatch and _G.__covpatch_dump.
//
//go:embed covpatch_runtime.lua
var RuntimePrelude []byte
