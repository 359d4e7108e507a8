package controller

import (
	"testing"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func TestListItems_FilterValue(t *testing.T) {
	spot := hotSpotItem{spot: m.HotSpot{Kind: m.ProbeFunction, File: "src/A.lua", Line: 3, Name: "Calc.sum"}}
	if got := spot.FilterValue(); got != "src/A.lua:3 Calc.sum" {
		t.Fatalf("FilterValue() = %q", got)
	}

	file := hotFileItem{file: m.HotFile{File: "src/B.lua"}}
	if got := file.FilterValue(); got != "src/B.lua" {
		t.Fatalf("FilterValue() = %q", got)
	}
}
