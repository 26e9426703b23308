package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/lumen/pkg/render"
)

// Tab selects one view of the inspected template
type Tab int

const (
	TabAST Tab = iota
	TabPlan
	TabGo
	TabHTML
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabAST:
		return "AST"
	case TabPlan:
		return "Plan"
	case TabGo:
		return "Go"
	case TabHTML:
		return "HTML"
	}
	return fmt.Sprintf("Tab(%d)", int(t))
}

// Inspection holds the views of one compiled template
type Inspection struct {
	Path  string
	Stats render.Stats
	AST   string
	Plan  string
	Go    string
	HTML  string
}

func (ins Inspection) view(t Tab) string {
	var s string
	switch t {
	case TabAST:
		s = ins.AST
	case TabPlan:
		s = ins.Plan
	case TabGo:
		s = ins.Go
	case TabHTML:
		s = ins.HTML
		if s == "" {
			return mutedStyle.Render("no data context; pass --data to render")
		}
	}
	return strings.TrimRight(s, "\n")
}

// KeyMap defines the inspector's keyboard shortcuts
type KeyMap struct {
	Next key.Binding
	Prev key.Binding
	Quit key.Binding
	Help key.Binding
}

var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
		key.WithHelp("tab/→", "next view"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
		key.WithHelp("shift+tab/←", "previous view"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q", "esc"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

const (
	headerHeight = 3
	footerHeight = 1
)

// Model is the inspector TUI state
type Model struct {
	width  int
	height int

	ins      Inspection
	tab      Tab
	viewport viewport.Model
	ready    bool

	showHelp bool
	quitting bool
}

// NewModel returns an inspector showing ins
func NewModel(ins Inspection) Model {
	return Model{ins: ins}
}

// Tab returns the selected view
func (m Model) Tab() Tab {
	return m.tab
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - headerHeight - footerHeight
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.viewport.SetContent(m.ins.view(m.tab))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, DefaultKeyMap.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Next):
			m.selectTab((m.tab + 1) % tabCount)
			return m, nil
		case key.Matches(msg, DefaultKeyMap.Prev):
			m.selectTab((m.tab + tabCount - 1) % tabCount)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) selectTab(t Tab) {
	m.tab = t
	if m.ready {
		m.viewport.SetContent(m.ins.view(t))
		m.viewport.GotoTop()
	}
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("lumen inspect") + " " + subtitleStyle.Render(m.ins.Path) +
		"  " + mutedStyle.Render(m.ins.Stats.String())

	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		if t == m.tab {
			tabs = append(tabs, activeTabStyle.Render(t.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(t.String()))
		}
	}
	return title + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func (m Model) renderFooter() string {
	keys := []string{"tab/←/→: Switch view", "↑/↓: Scroll", "?: Help", "q: Quit"}
	return footerStyle.Render(strings.Join(keys, " • "))
}

func (m Model) renderHelp() string {
	shortcuts := [][]string{
		{"Tab, →, l", "Next view"},
		{"Shift+Tab, ←, h", "Previous view"},
		{"↑/↓, j/k", "Scroll"},
		{"PgUp/PgDn", "Scroll a page"},
		{"?", "Toggle this help"},
		{"q, Esc", "Quit"},
	}

	var lines []string
	for _, s := range shortcuts {
		lines = append(lines, fmt.Sprintf("%s  %s", activeTabStyle.Render(fmt.Sprintf("%-16s", s[0])), s[1]))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Keyboard Shortcuts"),
		"",
		boxStyle.Render(strings.Join(lines, "\n")),
		mutedStyle.Render("Press ? to close help"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// Run starts the inspector on the terminal
func Run(ins Inspection) error {
	if !isatty() {
		return fmt.Errorf("not running in a terminal, use --plain")
	}
	p := tea.NewProgram(NewModel(ins), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isatty() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Plain renders every view one after the other, for non-interactive output
func (ins Inspection) Plain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(ins.Path), mutedStyle.Render(ins.Stats.String()))
	for t := Tab(0); t < tabCount; t++ {
		fmt.Fprintf(&b, "\n%s\n%s\n", activeTabStyle.Render("── "+t.String()+" ──"), ins.view(t))
	}
	return b.String()
}
