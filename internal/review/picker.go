package review

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// previewWidth bounds the first-line preview shown under each document.
const previewWidth = 60

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerRowStyle = lipgloss.NewStyle().Padding(0, 0, 0, 4)

	pickerCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerPreviewStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 0, 0, 6)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// Document is one reviewable text offered by the picker.
type Document struct {
	Label string
	Text  string
}

func (d Document) words() int {
	return len(strings.Fields(d.Text))
}

func (d Document) preview() string {
	line := strings.Join(strings.Fields(d.Text), " ")
	if r := []rune(line); len(r) > previewWidth {
		line = string(r[:previewWidth-1]) + "…"
	}
	return line
}

type pickerModel struct {
	docs   []Document
	cursor int
	chosen int // -1 until a document is chosen or the picker is quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch s := key.String(); s {
	case "q", "esc", "ctrl+c":
		m.chosen = -1
		return m, tea.Quit
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, max(len(m.docs)-1, 0))
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, max(len(m.docs)-1, 0))
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.docs)-1, 0)
	case "enter":
		if len(m.docs) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	default:
		// 1-9 jump straight to a document.
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if idx := int(s[0] - '1'); idx < len(m.docs) {
				m.chosen = idx
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render(fmt.Sprintf("Review keywords: %d documents", len(m.docs))))
	b.WriteString("\n")

	for i, d := range m.docs {
		row := fmt.Sprintf("%d. %s (%d words)", i+1, d.Label, d.words())
		if i == m.cursor {
			b.WriteString(pickerCursorStyle.Render("> " + row))
		} else {
			b.WriteString(pickerRowStyle.Render(row))
		}
		b.WriteString("\n")
		if p := d.preview(); p != "" {
			b.WriteString(pickerPreviewStyle.Render(p))
			b.WriteString("\n")
		}
	}

	b.WriteString(pickerHintStyle.Render("↑/↓ move  1-9 pick  enter select  q quit"))
	return b.String()
}

// RunDocumentPicker lets the user choose one of docs. It returns the chosen
// index, or -1 when the user quit.
func RunDocumentPicker(docs []Document) (int, error) {
	p := tea.NewProgram(pickerModel{docs: docs, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	return result.(pickerModel).chosen, nil
}
