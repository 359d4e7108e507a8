package controller

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

type tickMsg time.Time

var statsSections = []string{"Statements", "Functions", "Branches", "Files"}

// hotSpotDelegate renders one hit-count row of the hot-spot browser.
type hotSpotDelegate struct {
	offset int
}

func (d hotSpotDelegate) Height() int  { return 1 }
func (d hotSpotDelegate) Spacing() int { return 0 }
func (d hotSpotDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d hotSpotDelegate) Render(w io.Writer, l list.Model, index int, item list.Item) {
	var hits uint64

	var text string

	switch it := item.(type) {
	case hotSpotItem:
		hits = it.spot.Hits
		text = fmt.Sprintf("%s:%d", it.spot.File, it.spot.Line)

		if label := hotSpotLabel(it.spot); label != "" {
			text += "  " + label
		}
	case hotFileItem:
		hits = it.file.Hits
		text = fmt.Sprintf("%s  (s %d, f %d, b %d)", it.file.File, it.file.Statements, it.file.Functions, it.file.Branches)
	default:
		return
	}

	isSelected := index == l.Index()
	width := l.Width() - 10 // hits column (8) + spacing (2)

	var textStyle, hitsStyle lipgloss.Style

	var display string

	if isSelected {
		textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Bold(true)
		hitsStyle = textStyle.Width(8).Align(lipgloss.Right)
		display = animateScroll(text, width, d.offset)
	} else {
		textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
		hitsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			Width(8).
			Align(lipgloss.Right)
		display = truncateToWidth(text, width)
	}

	_, _ = fmt.Fprintf(w, "%s  %s", hitsStyle.Render(fmt.Sprintf("%d", hits)), textStyle.Render(display))
}

func animateScroll(text string, width int, offset int) string {
	if width <= 0 {
		return ""
	}

	textWidth := lipgloss.Width(text)
	if textWidth <= width {
		return text
	}

	gap := "   "

	// ticks before scrolling starts
	pause := 5

	if offset < pause {
		return truncateToWidth(text, width)
	}

	effectiveStep := offset - pause

	runes := []rune(text + gap)
	n := len(runes)

	start := effectiveStep % n

	res := make([]rune, 0, width)
	for i := range width {
		res = append(res, runes[(start+i)%n])
	}

	return string(res)
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	const ellipsis = "…"

	maxWidth := width - lipgloss.Width(ellipsis)
	if maxWidth <= 0 {
		return ellipsis
	}

	currentWidth := 0

	result := make([]rune, 0, len(text))
	for _, r := range text {
		rWidth := lipgloss.Width(string(r))
		if currentWidth+rWidth > maxWidth {
			break
		}

		result = append(result, r)
		currentWidth += rWidth
	}

	return string(result) + ellipsis
}

// statsModel is the interactive hot-spot browser.
type statsModel struct {
	width        int
	height       int
	spots        list.Model
	delegate     hotSpotDelegate
	stats        m.RuntimeStats
	section      int
	rendered     bool
	animOffset   int
	lastSelected int
}

func newStatsModel() statsModel {
	delegate := hotSpotDelegate{}
	spots := list.New([]list.Item{}, delegate, 80, 20)
	spots.SetShowPagination(false)
	spots.SetShowFilter(true)
	spots.SetShowHelp(false)
	spots.SetShowTitle(false)
	spots.SetShowStatusBar(false)
	spots.FilterInput.Placeholder = "Filter by path…"

	return statsModel{
		spots:        spots,
		delegate:     delegate,
		lastSelected: -1,
	}
}

func (sm statsModel) Init() tea.Cmd {
	return tea.Tick(time.Second/2, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (sm statsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		sm.width = msg.Width
		sm.height = msg.Height
		sm.spots.SetWidth(sm.width)

	case tickMsg:
		if sm.spots.FilterState() != list.Filtering && sm.rendered {
			sm.animOffset++
			sm.delegate.offset = sm.animOffset
			sm.spots.SetDelegate(sm.delegate)

			return sm, tea.Tick(time.Millisecond*150, func(t time.Time) tea.Msg {
				return tickMsg(t)
			})
		}

		return sm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return sm, tea.Quit
		case "tab":
			if sm.spots.FilterState() != list.Filtering {
				return sm.selectSection((sm.section + 1) % len(statsSections)), nil
			}
		case "shift+tab":
			if sm.spots.FilterState() != list.Filtering {
				return sm.selectSection((sm.section + len(statsSections) - 1) % len(statsSections)), nil
			}
		}

		sm.spots, cmd = sm.spots.Update(msg)

		if sm.spots.Index() != sm.lastSelected {
			sm.lastSelected = sm.spots.Index()
			sm = sm.resetAnimation()
		}

		return sm, cmd

	case statsMsg:
		sm.stats = msg.stats
		sm.rendered = true
		sm = sm.selectSection(sm.section)
	}

	return sm, cmd
}

func (sm statsModel) resetAnimation() statsModel {
	sm.animOffset = 0
	sm.delegate.offset = 0
	sm.spots.SetDelegate(sm.delegate)

	return sm
}

func (sm statsModel) selectSection(section int) statsModel {
	sm.section = section
	sm.spots.ResetFilter()
	sm.spots.SetItems(sm.sectionItems(section))
	sm.spots.Select(0)
	sm.lastSelected = 0

	return sm.resetAnimation()
}

func (sm statsModel) sectionItems(section int) []list.Item {
	var spots []m.HotSpot

	switch section {
	case 0:
		spots = sm.stats.TopStatements
	case 1:
		spots = sm.stats.TopFunctions
	case 2:
		spots = sm.stats.TopBranches
	default:
		items := make([]list.Item, 0, len(sm.stats.HotFiles))
		for _, file := range sm.stats.HotFiles {
			items = append(items, hotFileItem{file: file})
		}

		return items
	}

	items := make([]list.Item, 0, len(spots))
	for _, spot := range spots {
		items = append(items, hotSpotItem{spot: spot})
	}

	return items
}

func (sm statsModel) View() string {
	if !sm.rendered {
		return "Loading runtime stats…\n"
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true).
		Padding(1, 0, 0, 2)

	summaryStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Padding(0, 0, 1, 2)

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	title := titleStyle.Render("🔥 covpatch Hot Spots")

	summary := summaryStyle.Render(fmt.Sprintf(
		"Statement hits: %s   Function hits: %s   Branch hits: %s",
		accentStyle.Render(fmt.Sprintf("%d", sm.stats.Statements.Hits)),
		accentStyle.Render(fmt.Sprintf("%d", sm.stats.Functions.Hits)),
		accentStyle.Render(fmt.Sprintf("%d", sm.stats.Branches.Hits)),
	))

	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Align(lipgloss.Center).
		Width(sm.width)

	footer := footerStyle.Render("tab next section • ↑/k up • ↓/j down • / filter • q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		summary,
		sm.renderTabs(),
		sm.renderTable(),
		footer,
	)
}

func (sm statsModel) renderTabs() string {
	active := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("6")).
		Bold(true).
		Padding(0, 1)
	inactive := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Padding(0, 1)

	tabs := make([]string, 0, len(statsSections))

	for i, name := range statsSections {
		if i == sm.section {
			tabs = append(tabs, active.Render(name))
			continue
		}

		tabs = append(tabs, inactive.Render(name))
	}

	return lipgloss.NewStyle().Margin(0, 1).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (sm statsModel) renderTable() string {
	// title, summary, tabs, footer, border and headers
	listHeight := sm.height - 10
	if listHeight < 5 {
		listHeight = 5
	}

	// margin, border and padding
	listWidth := sm.width - 6
	if listWidth < 20 {
		listWidth = 20
	}

	sm.spots.SetHeight(listHeight)
	sm.spots.SetWidth(listWidth)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Bold(true).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("8")).
		Width(listWidth)

	headers := headerStyle.Render(fmt.Sprintf("%8s  %s", "Hits", "Location"))

	tableContainer := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("6")).
		Margin(0, 1).
		Padding(0, 1)

	return tableContainer.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			headers,
			sm.spots.View(),
		),
	)
}
