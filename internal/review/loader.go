package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/keymatch/internal/model"
)

// extractTimeout bounds one extraction started from the loader.
const extractTimeout = time.Minute

var errLoaderCancelled = errors.New("extraction cancelled")

// ExtractFunc produces the ranked keywords shown in the review.
type ExtractFunc func(ctx context.Context) ([]model.RankedKeyword, error)

type extractedMsg struct {
	keywords []model.RankedKeyword
	err      error
}

type loaderModel struct {
	label   string
	extract ExtractFunc
	spinner spinner.Model
	started time.Time

	keywords []model.RankedKeyword
	err      error
	finished bool
}

func newLoaderModel(label string, fn ExtractFunc) loaderModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
	)
	return loaderModel{label: label, extract: fn, spinner: s, started: time.Now()}
}

func (m loaderModel) Init() tea.Cmd {
	fn := m.extract
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
		defer cancel()
		keywords, err := fn(ctx)
		return extractedMsg{keywords: keywords, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case extractedMsg:
		m.keywords, m.err = msg.keywords, msg.err
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.err = errLoaderCancelled
			m.finished = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.finished {
		return ""
	}
	elapsed := time.Since(m.started).Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%s Extracting keywords from %s (%s)\n", m.spinner.View(), m.label, elapsed)
}

// RunLoader renders an inline spinner while fn runs and returns its result.
func RunLoader(label string, fn ExtractFunc) ([]model.RankedKeyword, error) {
	result, err := tea.NewProgram(newLoaderModel(label, fn)).Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.keywords, final.err
}
