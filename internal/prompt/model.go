package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/styles"
)

// model is the bubbletea form for one question.
type model struct {
	q        *question.Question
	input    textinput.Model
	width    int
	answer   string
	canceled bool
	errMsg   string
}

func newModel(q *question.Question) model {
	ti := textinput.New()
	ti.Placeholder = "Type an answer"
	if len(q.Options) > 0 {
		ti.Placeholder = fmt.Sprintf("Type an answer or 1-%d", len(q.Options))
	}
	ti.CharLimit = 4000
	ti.Width = 60
	ti.Focus()
	return model{q: q, input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > 10 {
			m.input.Width = msg.Width - 10
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				m.errMsg = "An answer is required"
				return m, nil
			}
			m.answer = resolveChoice(value, m.q.Options)
			return m, tea.Quit
		}
	}

	m.errMsg = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.answer != "" || m.canceled {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("Question %s from %s", m.q.ID, m.q.FromAgent)))
	b.WriteString("\n")

	var body strings.Builder
	if m.q.Context != "" {
		body.WriteString(styles.Muted.Render(m.q.Context))
		body.WriteString("\n\n")
	}
	body.WriteString(styles.Label.Render(m.q.Question))
	for i, opt := range m.q.Options {
		fmt.Fprintf(&body, "\n  %s %s", styles.HelpKey.Render(fmt.Sprintf("%d.", i+1)), opt)
	}
	box := styles.Box
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	b.WriteString(box.Render(body.String()))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render(m.errMsg))
	}
	b.WriteString(styles.HelpBar.Render(
		styles.HelpKey.Render("enter") + " submit  " + styles.HelpKey.Render("esc") + " cancel",
	))
	b.WriteString("\n")
	return b.String()
}
