// Package review implements the interactive terminal flow for confirming or
// rejecting extracted keywords. Verdicts become feedback records that feed
// relationship mining.
package review

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/amishk599/keymatch/internal/model"
)

// Lines per keyword item in the list view (title + subtitle + blank separator).
const keywordItemHeight = 3

// Characters of document text shown on each side of a match in the detail view.
const contextRadius = 80

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	keywordTitleStyle = lipgloss.NewStyle().
				Bold(true)

	keywordSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	confirmedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	rejectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	contextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewItem struct {
	keyword model.RankedKeyword
	verdict model.Verdict // empty while pending
}

type reviewModel struct {
	label    string
	document string
	items    []reviewItem
	reviewed []int // indexes into items, in decision order

	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=extracted, 1=reviewed
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detailIndex    int
	detailViewport viewport.Model

	save bool
}

func newReviewModel(label, document string, keywords []model.RankedKeyword) reviewModel {
	items := make([]reviewItem, len(keywords))
	for i, k := range keywords {
		items[i] = reviewItem{keyword: k}
	}
	return reviewModel{label: label, document: document, items: items}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.save = false
		return m, tea.Quit
	case "s":
		m.save = true
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "c", "y":
		m.setVerdict(model.VerdictConfirmed)
		return m, nil
	case "x", "n":
		m.setVerdict(model.VerdictRejected)
		return m, nil
	case "u":
		m.setVerdict("")
		return m, nil
	case "A":
		for i := range m.items {
			if m.items[i].verdict == "" {
				m.items[i].verdict = model.VerdictConfirmed
				m.reviewed = append(m.reviewed, i)
			}
		}
		m.recalcContent()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.save = false
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "c", "y":
		m.applyVerdict(m.detailIndex, model.VerdictConfirmed)
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	case "x", "n":
		m.applyVerdict(m.detailIndex, model.VerdictRejected)
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// selected returns the items index under the active cursor, or -1.
func (m reviewModel) selected() int {
	if m.activePane == 0 {
		if len(m.items) == 0 {
			return -1
		}
		return m.leftCursor
	}
	if len(m.reviewed) == 0 {
		return -1
	}
	return m.reviewed[m.rightCursor]
}

func (m *reviewModel) setVerdict(v model.Verdict) {
	idx := m.selected()
	if idx < 0 {
		return
	}
	m.applyVerdict(idx, v)
}

func (m *reviewModel) applyVerdict(idx int, v model.Verdict) {
	prev := m.items[idx].verdict
	m.items[idx].verdict = v
	switch {
	case prev == "" && v != "":
		m.reviewed = append(m.reviewed, idx)
	case prev != "" && v == "":
		for i, r := range m.reviewed {
			if r == idx {
				m.reviewed = append(m.reviewed[:i], m.reviewed[i+1:]...)
				break
			}
		}
		m.rightCursor = clamp(m.rightCursor, 0, max(len(m.reviewed)-1, 0))
	}
	m.recalcContent()
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.items)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.reviewed)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	var vp *viewport.Model
	var cursor int
	if m.activePane == 0 {
		vp = &m.leftViewport
		cursor = m.leftCursor
	} else {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * keywordItemHeight
	cursorBottom := cursorTop + keywordItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	idx := m.selected()
	if idx < 0 {
		return m, nil
	}
	m.view = viewDetail
	m.detailIndex = idx
	m.detailViewport = viewport.New(max(m.width-4, 20), max(m.height-4, 5))
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1).
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	if !m.ready {
		return
	}
	all := make([]int, len(m.items))
	for i := range all {
		all[i] = i
	}
	m.leftViewport.SetContent(m.renderItems(all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(m.renderItems(m.reviewed, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) renderItems(indexes []int, cursor int, active bool) string {
	if len(indexes) == 0 {
		return keywordSubtitleStyle.Render("  (none)")
	}

	var b strings.Builder
	for pos, idx := range indexes {
		it := m.items[idx]
		title := fmt.Sprintf("%s %s", verdictMark(it.verdict), it.keyword.Keyword.Text)
		sub := fmt.Sprintf("    %s · %s · score %.3f", it.keyword.Keyword.Category, it.keyword.Method, it.keyword.Score)

		if pos == cursor && active {
			b.WriteString(selectedTitleStyle.Render(title))
			b.WriteString("\n")
			b.WriteString(selectedSubtitleStyle.Render(sub))
		} else {
			b.WriteString(keywordTitleStyle.Render(title))
			b.WriteString("\n")
			b.WriteString(keywordSubtitleStyle.Render(sub))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func verdictMark(v model.Verdict) string {
	switch v {
	case model.VerdictConfirmed:
		return confirmedStyle.Render("[✓]")
	case model.VerdictRejected:
		return rejectedStyle.Render("[✗]")
	}
	return "[ ]"
}

func (m reviewModel) renderDetail() string {
	it := m.items[m.detailIndex]
	k := it.keyword

	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(k.Keyword.Text))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Category", k.Keyword.Category)
	row("Priority", string(k.Keyword.Priority))
	row("Difficulty", string(k.Keyword.Difficulty))
	row("Synonyms", strings.Join(k.Keyword.Synonyms, ", "))
	row("Matched text", k.MatchedText)
	row("Method", string(k.Method))
	row("Confidence", fmt.Sprintf("%.2f", k.Confidence))
	row("Score", fmt.Sprintf("%.3f", k.Score))
	verdict := "pending"
	if it.verdict != "" {
		verdict = verdictMark(it.verdict) + " " + string(it.verdict)
	}
	row("Verdict", verdict)

	if snippet := contextSnippet(m.document, k.MatchedText, contextRadius); snippet != "" {
		width := max(m.width-8, 40)
		b.WriteString("\n")
		b.WriteString(dividerStyle.Render(strings.Repeat("─", width)))
		b.WriteString("\n")
		b.WriteString(contextStyle.Render(wordWrap(snippet, width)))
		b.WriteString("\n")
	}
	return b.String()
}

// contextSnippet returns about radius runes of text on each side of the
// first case-insensitive occurrence of needle in doc. The window widens to
// whole words at its edges, by at most radius more runes.
func contextSnippet(doc, needle string, radius int) string {
	if doc == "" || needle == "" {
		return ""
	}
	// Offsets come from doc itself; case mapping can change byte lengths.
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(needle)).FindStringIndex(doc)
	if loc == nil {
		return ""
	}

	start := loc[0]
	for n := 0; n < radius && start > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(doc[:start])
		start -= size
	}
	for n := 0; n < radius && start > 0; n++ {
		r, size := utf8.DecodeLastRuneInString(doc[:start])
		if unicode.IsSpace(r) {
			break
		}
		start -= size
	}

	end := loc[1]
	for n := 0; n < radius && end < len(doc); n++ {
		_, size := utf8.DecodeRuneInString(doc[end:])
		end += size
	}
	for n := 0; n < radius && end < len(doc); n++ {
		r, size := utf8.DecodeRuneInString(doc[end:])
		if unicode.IsSpace(r) {
			break
		}
		end += size
	}

	snippet := strings.Join(strings.Fields(doc[start:end]), " ")
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(doc) {
		snippet += "…"
	}
	return snippet
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.view == viewDetail {
		return m.detailViewport.View() + "\n" +
			statusBarStyle.Width(m.width).Render("c confirm  x reject  ↑/↓ scroll  esc back  q quit")
	}

	leftHeader := inactiveHeaderStyle.Render(fmt.Sprintf("Extracted (%d)", len(m.items)))
	rightHeader := inactiveHeaderStyle.Render(fmt.Sprintf("Reviewed (%d)", len(m.reviewed)))
	leftBorder := inactiveBorderStyle
	rightBorder := inactiveBorderStyle
	if m.activePane == 0 {
		leftHeader = activeHeaderStyle.Render(fmt.Sprintf("Extracted (%d)", len(m.items)))
		leftBorder = activeBorderStyle
	} else {
		rightHeader = activeHeaderStyle.Render(fmt.Sprintf("Reviewed (%d)", len(m.reviewed)))
		rightBorder = activeBorderStyle
	}

	left := lipgloss.JoinVertical(lipgloss.Left, leftHeader, leftBorder.Render(m.leftViewport.View()))
	right := lipgloss.JoinVertical(lipgloss.Left, rightHeader, rightBorder.Render(m.rightViewport.View()))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)

	confirmed, rejected := m.counts()
	status := statusBarStyle.Width(m.width).Render(fmt.Sprintf(
		"%s  ✓ %d  ✗ %d  pending %d  │  c confirm  x reject  u undo  A confirm rest  enter detail  s save  q discard",
		m.label, confirmed, rejected, len(m.items)-confirmed-rejected))

	return panes + "\n" + status
}

func (m reviewModel) counts() (confirmed, rejected int) {
	for _, it := range m.items {
		switch it.verdict {
		case model.VerdictConfirmed:
			confirmed++
		case model.VerdictRejected:
			rejected++
		}
	}
	return confirmed, rejected
}

// records converts every decided item into a feedback record for analysisID.
func (m reviewModel) records(analysisID string, now time.Time) []model.FeedbackRecord {
	out := make([]model.FeedbackRecord, 0, len(m.reviewed))
	for _, idx := range m.reviewed {
		it := m.items[idx]
		out = append(out, model.FeedbackRecord{
			ID:          uuid.New(),
			AnalysisID:  analysisID,
			KeywordID:   it.keyword.Keyword.ID,
			MatchedText: it.keyword.MatchedText,
			Method:      it.keyword.Method,
			Verdict:     it.verdict,
			CreatedAt:   now,
		})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wl := len([]rune(word))
		if i > 0 {
			if lineLen+1+wl > width {
				b.WriteString("\n")
				lineLen = 0
			} else {
				b.WriteString(" ")
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += wl
	}
	return b.String()
}

// RunReviewTUI launches the full-screen review of keywords extracted from
// document. It returns the feedback records for every decided keyword and
// whether the user chose to save them.
func RunReviewTUI(label, document, analysisID string, keywords []model.RankedKeyword) ([]model.FeedbackRecord, bool, error) {
	m := newReviewModel(label, document, keywords)
	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return nil, false, err
	}
	final := result.(reviewModel)
	if !final.save {
		return nil, false, nil
	}
	return final.records(analysisID, time.Now().UTC()), true, nil
}
