// Package tui is a terminal front end for a single lesson, built on bubbletea.
package tui

import (
	"fmt"
	"math/rand/v2"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/p-n-ai/pai-ionian/internal/lesson"
	"github.com/p-n-ai/pai-ionian/internal/progress"
)

const progressBarWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("27")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
	stepTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))
	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true)
	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("244")).
			Padding(0, 1)
	activeTileStyle = tileStyle.
			BorderForeground(lipgloss.Color("226")).
			Foreground(lipgloss.Color("226"))
	correctStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
	wrongStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	hintStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(lipgloss.Color("244")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model for one lesson run.
type Model struct {
	reference lesson.Reference
	sess      *progress.Session
	frame     progress.Frame
	rng       *rand.Rand

	cursor    int
	pool      *progress.WordPool
	poolOrder []string
	verdict   *progress.Verdict
	showHint  bool
	width     int
}

// New starts lessonIndex from catalog. A nil rng shuffles with the global source.
func New(catalog *lesson.Catalog, lessonIndex int, rng *rand.Rand) (Model, error) {
	sess, err := progress.NewSession(catalog, lessonIndex)
	if err != nil {
		return Model{}, err
	}
	m := Model{reference: catalog.Reference(), sess: sess, rng: rng}
	m.show(sess.Frame())
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

// show makes f the current frame and clears per-step state.
func (m *Model) show(f progress.Frame) {
	m.frame = f
	m.cursor = 0
	m.verdict = nil
	m.showHint = false
	m.pool = nil
	m.poolOrder = nil
	if sb, ok := f.Step.(lesson.SentenceBuilder); ok {
		m.pool = progress.NewWordPool(sb.Options)
		m.reshuffle()
	}
}

func (m *Model) reshuffle() {
	m.poolOrder = m.pool.Shuffled(m.rng)
	if m.cursor >= len(m.poolOrder) {
		m.cursor = max(0, len(m.poolOrder)-1)
	}
}

func (m Model) awaitingAnswer() bool {
	return m.verdict == nil && !m.frame.Complete && lesson.Evaluable(m.frame.Step)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k", "left":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "right":
		if m.cursor < m.cursorLimit()-1 {
			m.cursor++
		}
	case "h":
		if m.awaitingAnswer() {
			m.showHint = !m.showHint
		}
	case "r":
		m.sess.Reset()
		m.show(m.sess.Frame())
	case "u", "backspace":
		if m.pool != nil && m.awaitingAnswer() {
			m.pool.Undo()
			m.reshuffle()
		}
	case "x":
		if m.pool != nil && m.awaitingAnswer() {
			m.pool.Clear()
			m.reshuffle()
		}
	case "c":
		if m.pool != nil && m.awaitingAnswer() && !m.pool.Empty() {
			m.answer(m.pool.Submission())
		}
	case "enter", " ":
		m.activate()
	}
	return m, nil
}

func (m Model) cursorLimit() int {
	if c, ok := m.frame.Step.(lesson.ChoiceStep); ok {
		return len(c.ChoiceQuestion().Options)
	}
	return len(m.poolOrder)
}

// activate is the primary action: answer, place a word or move on.
func (m *Model) activate() {
	switch {
	case m.frame.Complete:
		m.sess.Reset()
		m.show(m.sess.Frame())
	case m.verdict != nil && m.verdict.Exhausted:
		// The next render cycle resets the lesson and shows the notice.
		m.show(m.sess.Frame())
	case !m.awaitingAnswer():
		m.show(m.sess.Next())
	default:
		switch s := m.frame.Step.(type) {
		case lesson.ChoiceStep:
			m.answer(progress.Choice(s.ChoiceQuestion().Options[m.cursor]))
		case lesson.SentenceBuilder:
			if len(m.poolOrder) > 0 {
				m.pool.Place(m.poolOrder[m.cursor])
				m.reshuffle()
			}
		}
	}
}

func (m *Model) answer(sub progress.Submission) {
	v, err := m.sess.Answer(sub)
	if err != nil {
		return
	}
	m.verdict = &v
	m.showHint = false
	m.frame.Score = v.Score
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.sess.Lesson().Name))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(m.header()))
	b.WriteString("\n\n")

	if m.frame.Complete {
		b.WriteString(stepTitleStyle.Render("Module Review Complete!"))
		b.WriteString("\n\n")
		b.WriteString(bodyStyle.Render(fmt.Sprintf("You have successfully mastered %s. Your final accuracy score was %d/%d.",
			m.sess.Lesson().Name, m.frame.Score, progress.MaxAccuracy)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter: review again · q: quit"))
		return b.String()
	}

	switch s := m.frame.Step.(type) {
	case lesson.Info:
		m.viewInfo(&b, s)
	case lesson.Match:
		m.viewInfo(&b, s.Placeholder())
	case lesson.ChoiceStep:
		m.viewChoice(&b, s.ChoiceQuestion())
	case lesson.SentenceBuilder:
		m.viewSentence(&b, s)
	}

	if m.showHint {
		if hint, ok := lesson.Hint(m.frame.Step, m.reference); ok {
			b.WriteString("\n\n")
			b.WriteString(hintStyle.Render(hint))
		}
	}
	if m.verdict != nil {
		b.WriteString("\n\n")
		b.WriteString(verdictLine(*m.verdict))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) header() string {
	filled := int(m.frame.Progress * progressBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	score := strings.Repeat("●", m.frame.Score) + strings.Repeat("○", progress.MaxAccuracy-m.frame.Score)
	return fmt.Sprintf("Step %d/%d  %s  Score %s", m.frame.Index+1, m.frame.Total, bar, score)
}

func (m Model) viewInfo(b *strings.Builder, info lesson.Info) {
	b.WriteString(stepTitleStyle.Render(info.Title))
	if info.Content != "" {
		b.WriteString("\n\n")
		style := bodyStyle
		if m.width > 0 {
			style = style.Width(m.width)
		}
		b.WriteString(style.Render(info.Content))
	}
}

func (m Model) viewChoice(b *strings.Builder, c lesson.Choice) {
	b.WriteString(bodyStyle.Render(c.Prompt))
	b.WriteString("\n")
	for i, opt := range c.Options {
		line := fmt.Sprintf("  %d) %s", i+1, opt)
		if i == m.cursor && m.verdict == nil {
			line = cursorStyle.Render(fmt.Sprintf("> %d) %s", i+1, opt))
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
}

func (m Model) viewSentence(b *strings.Builder, s lesson.SentenceBuilder) {
	b.WriteString(bodyStyle.Render(s.Prompt))
	b.WriteString("\n\n")

	assembled := "…"
	if words := m.pool.Assembled(); len(words) > 0 {
		assembled = strings.Join(words, " ")
	}
	b.WriteString(cursorStyle.Render(" " + assembled + " "))
	b.WriteString("\n\n")

	if m.verdict != nil {
		return
	}
	tiles := make([]string, 0, len(m.poolOrder))
	for i, w := range m.poolOrder {
		style := tileStyle
		if i == m.cursor {
			style = activeTileStyle
		}
		tiles = append(tiles, style.Render(w))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
}

func (m Model) help() string {
	switch {
	case m.verdict != nil && m.verdict.Exhausted:
		return "enter: restart the module · q: quit"
	case !m.awaitingAnswer():
		return "enter: next · r: restart · q: quit"
	case m.pool != nil:
		return "←/→: move · enter: place word · u: undo · x: clear · c: check · h: hint · q: quit"
	default:
		return "↑/↓: move · enter: answer · h: hint · r: restart · q: quit"
	}
}

func verdictLine(v progress.Verdict) string {
	switch {
	case v.Correct:
		return correctStyle.Render("Correct. Proceed to the next step.")
	case v.Exhausted:
		return wrongStyle.Render(fmt.Sprintf("Module Failed. The correct answer was %q. Please restart the lesson.", v.Expected))
	default:
		return wrongStyle.Render(fmt.Sprintf("Error. The correct answer was %q. Score remaining: %d/%d.", v.Expected, v.Score, progress.MaxAccuracy))
	}
}
