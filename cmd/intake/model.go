package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"intake-backend/internal/models"
	"intake-backend/internal/quiz"
	"intake-backend/internal/services"
)

const (
	rejectedTitle  = "Unfortunately, we are unable to prescribe this medication for you."
	rejectedDetail = "This is because finasteride can alter the PSA levels, which may be used to monitor for cancer. " +
		"You should discuss this further with your GP or specialist if you would still like this medication."
	acceptedTitle  = "Great news!"
	acceptedDetail = "We have the perfect treatment for your hair loss. Proceed to www.manual.co, and prepare to say hello to your new hair!"
)

var imgAlt = regexp.MustCompile(`alt="([^"]*)"`)

// model is the Bubble Tea view over a quiz session.
type model struct {
	session *services.QuizSession
	state   models.QuizState
	cursor  int
	styles  styles
}

type styles struct {
	title    lipgloss.Style
	selected lipgloss.Style
	answered lipgloss.Style
	muted    lipgloss.Style
	rejected lipgloss.Style
	accepted lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{title: plain.Bold(true), selected: plain.Bold(true), answered: plain, muted: plain, rejected: plain.Bold(true), accepted: plain.Bold(true)}
	}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		answered: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		rejected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		accepted: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	}
}

func newModel(session *services.QuizSession, noColor bool) model {
	m := model{session: session, state: session.State(), styles: newStyles(noColor)}
	m.cursor = m.answeredOption()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	ctx := context.Background()
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.session.CloseQuiz(ctx)
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if question, ok := quiz.CurrentQuestion(m.state); ok && m.cursor < len(question.Options)-1 {
			m.cursor++
		}
		return m, nil
	case "enter", " ":
		if m.state.IsCompleted {
			return m, nil
		}
		question, ok := quiz.CurrentQuestion(m.state)
		if !ok || m.cursor >= len(question.Options) {
			return m, nil
		}
		m.state = m.session.AnswerQuestion(ctx, m.state.CurrentQuestionIndex, question.Options[m.cursor])
	case "b", "left":
		m.state = m.session.PreviousQuestion(ctx)
	case "n", "right":
		m.state = m.session.NextQuestion(ctx)
	case "r":
		m.state = m.session.ResetQuiz(ctx)
		m.state = m.session.OpenQuiz(ctx)
	default:
		return m, nil
	}

	m.cursor = m.answeredOption()
	return m, nil
}

// answeredOption returns the option index previously chosen for the current
// question, or 0.
func (m model) answeredOption() int {
	question, ok := quiz.CurrentQuestion(m.state)
	if !ok {
		return 0
	}
	answer, ok := quiz.FindAnswer(m.state, m.state.CurrentQuestionIndex)
	if !ok {
		return 0
	}
	for i, opt := range question.Options {
		if opt.Value.Equal(answer.SelectedValue) {
			return i
		}
	}
	return 0
}

func (m model) View() string {
	if m.state.IsCompleted {
		return m.resultsView()
	}

	question, ok := quiz.CurrentQuestion(m.state)
	if !ok {
		return m.styles.muted.Render("No questions available.") + "\n" + m.help()
	}

	progress := quiz.Progress(m.state)
	var b strings.Builder
	b.WriteString(m.styles.muted.Render(fmt.Sprintf("Question %d of %d  (%d answered)", m.state.CurrentQuestionIndex+1, progress.Total, progress.Answered)))
	b.WriteString("\n\n")
	b.WriteString(m.styles.title.Render(question.Text))
	b.WriteString("\n\n")

	answer, answered := quiz.FindAnswer(m.state, m.state.CurrentQuestionIndex)
	for i, opt := range question.Options {
		prefix := "  "
		line := displayLabel(opt)
		if answered && opt.Value.Equal(answer.SelectedValue) {
			line = m.styles.answered.Render(line + " ✓")
		}
		if i == m.cursor {
			prefix = "> "
			line = m.styles.selected.Render(line)
		}
		b.WriteString(prefix + line + "\n")
	}

	b.WriteString("\n" + m.help())
	return b.String()
}

func (m model) resultsView() string {
	var b strings.Builder
	if m.state.IsRejected {
		b.WriteString(m.styles.rejected.Render(rejectedTitle))
		b.WriteString("\n\n" + rejectedDetail + "\n")
	} else {
		b.WriteString(m.styles.accepted.Render(acceptedTitle))
		b.WriteString("\n\n" + acceptedDetail + "\n\n")
		b.WriteString(m.styles.title.Render("Your Answers:") + "\n")
		for _, answer := range m.state.Answers {
			label := "-"
			if answer.SelectedOption != nil {
				label = displayLabel(*answer.SelectedOption)
			}
			b.WriteString(fmt.Sprintf("  Question %d: %s\n", answer.QuestionIndex+1, label))
		}
	}
	b.WriteString("\n" + m.styles.muted.Render("r restart • q quit"))
	return b.String()
}

func (m model) help() string {
	return m.styles.muted.Render("↑/↓ choose • enter answer • b back • n next • r reset • q quit")
}

// displayLabel renders an option for the terminal. Image options show their
// alt text.
func displayLabel(opt models.Option) string {
	if strings.Contains(opt.Display, "<img") {
		if match := imgAlt.FindStringSubmatch(opt.Display); match != nil {
			return match[1]
		}
		return "Image selected"
	}
	return opt.Display
}
