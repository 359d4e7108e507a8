package controller

import (
	"fmt"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// statsMsg loads a stats snapshot into the hot-spot browser.
type statsMsg struct {
	stats m.RuntimeStats
}

// List item types.
type hotSpotItem struct {
	spot m.HotSpot
}

func (h hotSpotItem) FilterValue() string {
	return fmt.Sprintf("%s:%d %s", h.spot.File, h.spot.Line, hotSpotLabel(h.spot))
}

type hotFileItem struct {
	file m.HotFile
}

func (h hotFileItem) FilterValue() string {
	return string(h.file.File)
}
