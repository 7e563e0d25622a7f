// Package browse is a terminal UI for stored explanation runs: a filterable
// list of runs with a per-run attribution view.
package browse

import (
	"bytes"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/robottwo/lucid/internal/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	savedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type state int

const (
	stateList state = iota
	stateDetail
)

// runItem adapts a store entry to the bubbles list item interface.
type runItem struct {
	entry store.RunEntry
}

func (i runItem) Title() string {
	return fmt.Sprintf("%s · %s", i.entry.RunID, i.entry.Method)
}

func (i runItem) Description() string {
	return fmt.Sprintf("%d instance(s) · %s · %s",
		i.entry.InstanceCount, i.entry.ModelName, humanize.Time(i.entry.CreatedAt))
}

func (i runItem) FilterValue() string {
	return i.entry.RunID + " " + i.entry.Method
}

// Model is the bubbletea model for the browser.
type Model struct {
	list      list.Model
	state     state
	active    *store.RunEntry
	detail    string
	statusMsg string
	errorMsg  string
	width     int
	height    int
	quitting  bool
}

// New builds the browser over the given runs, newest first.
func New(entries []store.RunEntry) Model {
	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		items[i] = runItem{entry: entry}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "lucid runs"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateList:
			return m.updateList(msg)
		case stateDetail:
			return m.updateDetail(msg)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list handle keys while its filter input is active
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		item, ok := m.list.SelectedItem().(runItem)
		if !ok {
			return m, nil
		}
		return m.openDetail(item.entry), nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace":
		m.state = stateList
		m.active = nil
		m.statusMsg = ""
		m.errorMsg = ""
		return m, nil

	case "y":
		if m.active != nil {
			if err := clipboard.WriteAll(m.active.Payload); err != nil {
				m.errorMsg = fmt.Sprintf("copy failed: %v", err)
			} else {
				m.statusMsg = "explanation JSON copied"
			}
		}
		return m, nil
	}
	return m, nil
}

// openDetail renders the selected entry's explanation into the detail pane.
func (m Model) openDetail(entry store.RunEntry) Model {
	explanation, err := entry.Explanation()
	if err != nil {
		m.errorMsg = err.Error()
		return m
	}

	var buf bytes.Buffer
	if err := explanation.Plot(&buf); err != nil {
		m.errorMsg = err.Error()
		return m
	}

	m.state = stateDetail
	m.active = &entry
	m.detail = buf.String()
	m.statusMsg = ""
	m.errorMsg = ""
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case stateDetail:
		header := headerStyle.Render(fmt.Sprintf("%s · %s · %dms",
			m.active.RunID, m.active.Method, m.active.DurationMs))
		view := header + "\n\n" + m.detail + "\n"
		if m.errorMsg != "" {
			view += errorStyle.Render(m.errorMsg) + "\n"
		}
		if m.statusMsg != "" {
			view += savedStyle.Render(m.statusMsg) + "\n"
		}
		view += helpStyle.Render("esc back · y copy json · q quit")
		return view

	default:
		return m.list.View() + "\n" + helpStyle.Render("enter view · / filter · q quit")
	}
}

// Run loads recent runs from the store and starts the browser.
func Run(runStore *store.RunStore) error {
	entries, err := runStore.RecentRuns(200)
	if err != nil {
		return fmt.Errorf("browse: loading runs: %w", err)
	}

	program := tea.NewProgram(New(entries), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
