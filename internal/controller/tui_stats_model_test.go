package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

func sampleStatsModelStats() m.RuntimeStats {
	return m.RuntimeStats{
		Statements: m.Totals{Points: 4, Hits: 130},
		Functions:  m.Totals{Points: 2, Hits: 12},
		Branches:   m.Totals{Points: 1, Hits: 10},
		TopStatements: []m.HotSpot{
			{Kind: m.ProbeStatement, ID: 2, File: "src/Loop.lua", Line: 3, Hits: 100},
			{Kind: m.ProbeStatement, ID: 0, File: "src/Loop.lua", Line: 1, Hits: 30},
		},
		TopFunctions: []m.HotSpot{
			{Kind: m.ProbeFunction, ID: 0, File: "src/Calc.lua", Line: 1, Hits: 12, Name: "add"},
		},
		TopBranches: []m.HotSpot{
			{Kind: m.ProbeBranch, ID: 0, File: "src/Calc.lua", Line: 2, Hits: 10, Type: m.BranchIf, Paths: []uint64{7, 3}},
		},
		HotFiles: []m.HotFile{
			{File: "src/Loop.lua", Hits: 130, Statements: 130},
			{File: "src/Calc.lua", Hits: 22, Functions: 12, Branches: 10},
		},
	}
}

func TestAnimateScroll_Edges(t *testing.T) {
	if got := animateScroll("hello", 0, 0); got != "" {
		t.Fatalf("animateScroll width 0 = %q, want empty", got)
	}

	if got := animateScroll("hi", 5, 0); got != "hi" {
		t.Fatalf("animateScroll short text = %q, want hi", got)
	}

	if got := animateScroll("abcdef", 3, 0); got != "ab…" {
		t.Fatalf("animateScroll pause = %q, want ab…", got)
	}

	got := animateScroll("abcdef", 3, 10)
	if got == "ab…" || len([]rune(got)) != 3 {
		t.Fatalf("animateScroll scrolled = %q, want len 3 and not truncated", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	if got := truncateToWidth("hello", 0); got != "" {
		t.Fatalf("truncateToWidth width 0 = %q, want empty", got)
	}

	if got := truncateToWidth("hello", 10); got != "hello" {
		t.Fatalf("truncateToWidth no truncation = %q", got)
	}

	if got := truncateToWidth("hello", 1); got != "…" {
		t.Fatalf("truncateToWidth width 1 = %q, want ellipsis", got)
	}

	if got := truncateToWidth("hello", 2); got != "h…" {
		t.Fatalf("truncateToWidth width 2 = %q, want h…", got)
	}
}

func TestStatsModel_LoadAndView(t *testing.T) {
	sm := newStatsModel()
	if got := sm.View(); got != "Loading runtime stats…\n" {
		t.Fatalf("View() before render = %q", got)
	}

	if cmd := sm.Init(); cmd == nil {
		t.Fatalf("Init() returned nil cmd")
	}

	model, _ := sm.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	model, _ = model.Update(statsMsg{stats: sampleStatsModelStats()})
	sm = model.(statsModel)

	require.True(t, sm.rendered)
	assert.Equal(t, 0, sm.section)
	assert.Len(t, sm.spots.Items(), 2)
	assert.Equal(t, 0, sm.lastSelected)

	view := sm.View()
	assert.Contains(t, view, "covpatch Hot Spots")
	assert.Contains(t, view, "Statements")
	assert.Contains(t, view, "src/Loop.lua:3")
	assert.Contains(t, view, "130")

	table := sm.renderTable()
	if !strings.Contains(table, "Hits") || !strings.Contains(table, "Location") {
		t.Fatalf("renderTable missing headers\n%s", table)
	}

	// small terminals fall back to minimum list dimensions
	sm.height = 0
	sm.width = 10
	_ = sm.renderTable()
}

func TestStatsModel_SectionSwitching(t *testing.T) {
	model, _ := newStatsModel().Update(statsMsg{stats: sampleStatsModelStats()})

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	sm := model.(statsModel)
	assert.Equal(t, 1, sm.section)
	require.Len(t, sm.spots.Items(), 1)
	assert.Equal(t, "add", sm.spots.Items()[0].(hotSpotItem).spot.Name)

	model, _ = sm.Update(tea.KeyMsg{Type: tea.KeyTab})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	sm = model.(statsModel)
	assert.Equal(t, 3, sm.section)
	require.Len(t, sm.spots.Items(), 2)
	assert.Equal(t, m.Path("src/Loop.lua"), sm.spots.Items()[0].(hotFileItem).file.File)

	model, _ = sm.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, model.(statsModel).section, "tab wraps to the first section")

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 3, model.(statsModel).section, "shift+tab wraps to the last section")
}

func TestStatsModel_UpdateBranches(t *testing.T) {
	model, _ := newStatsModel().Update(statsMsg{stats: sampleStatsModelStats()})
	sm := model.(statsModel)

	model, cmd := sm.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("expected tick cmd")
	}

	if got := model.(statsModel).animOffset; got != 1 {
		t.Fatalf("animOffset = %d, want 1", got)
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	sm = model.(statsModel)
	assert.Equal(t, 1, sm.lastSelected)
	assert.Equal(t, 0, sm.animOffset, "moving the selection restarts the scroll")

	_, cmd = sm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit cmd")
	}

	unrendered := newStatsModel()
	if _, cmd := unrendered.Update(tickMsg(time.Now())); cmd != nil {
		t.Fatalf("tick before render should stop animating")
	}
}

func TestHotSpotDelegate_Render(t *testing.T) {
	delegate := hotSpotDelegate{}
	items := []list.Item{
		hotSpotItem{spot: m.HotSpot{Kind: m.ProbeFunction, File: "src/Calc.lua", Line: 4, Hits: 12, Name: "add"}},
		hotFileItem{file: m.HotFile{File: "src/Loop.lua", Hits: 130, Statements: 130}},
	}
	l := list.New(items, delegate, 60, 5)

	var buf bytes.Buffer

	delegate.Render(&buf, l, 0, items[0])
	assert.Contains(t, buf.String(), "src/Calc.lua:4")
	assert.Contains(t, buf.String(), "add")

	buf.Reset()
	delegate.Render(&buf, l, 1, items[1])
	assert.Contains(t, buf.String(), "src/Loop.lua")
	assert.Contains(t, buf.String(), "s 130")

	buf.Reset()
	delegate.Render(&buf, l, 0, struct{ list.Item }{})
	assert.Empty(t, buf.String())

	assert.Equal(t, 1, delegate.Height())
	assert.Equal(t, 0, delegate.Spacing())
	assert.Nil(t, delegate.Update(nil, &l))
}
