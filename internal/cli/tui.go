package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/vizframe/pkg/view"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// FrameListModel - Interactive reference frame selection
// =============================================================================

// FrameListModel is the bubbletea model for picking a reference frame.
type FrameListModel struct {
	Frames   []string
	Current  string
	Edges    map[string]int // frame -> number of edges touching it
	Cursor   int
	Offset   int
	Height   int
	Selected string
}

// NewFrameListModel creates a picker over the frames of snap with the cursor
// on the current reference frame.
func NewFrameListModel(snap *view.Snapshot) FrameListModel {
	m := FrameListModel{
		Frames:  snap.Frames,
		Current: snap.Reference,
		Edges:   make(map[string]int),
		Height:  15,
	}
	for _, e := range snap.Edges {
		m.Edges[e.Source]++
		m.Edges[e.Target]++
	}
	for i, f := range m.Frames {
		if f == m.Current {
			m.Cursor = i
		}
	}
	m.scroll()
	return m
}

func (m FrameListModel) Init() tea.Cmd {
	return nil
}

func (m FrameListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Frames)-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(len(m.Frames)-1, 0)
		case "enter":
			if len(m.Frames) > 0 {
				m.Selected = m.Frames[m.Cursor]
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	m.scroll()
	return m, nil
}

// scroll keeps the cursor inside the visible window.
func (m *FrameListModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m FrameListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Reference Frame"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	if len(m.Frames) == 0 {
		b.WriteString(StyleWarning.Render("no frames known yet"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Frames))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		f := m.Frames[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		current := ""
		if f == m.Current {
			current = "current"
		}
		rows = append(rows, []string{cursor, f, fmt.Sprintf("%d", m.Edges[f]), current})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Frame", "Edges", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case col == 3:
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Frames))))

	return b.String()
}
