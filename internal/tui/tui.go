// Package tui renders the funnel as a full-screen terminal program.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sats-terminal/internal/deeplink"
	"sats-terminal/internal/funnel"
	"sats-terminal/internal/progression"
	"sats-terminal/internal/state"
)

const (
	frameInterval = 30 * time.Millisecond
	flashDuration = 4 * time.Second
	cursor        = "▌"
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model around a funnel. All funnel calls happen
// inside Update.
type Model struct {
	funnel *funnel.Funnel
	now    func() time.Time

	viewport viewport.Model
	input    textinput.Model
	bar      progress.Model

	width  int
	height int

	flash      string
	flashUntil time.Time
}

func New(f *funnel.Funnel, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	ti := textinput.New()
	ti.Placeholder = "Ask me anything..."
	ti.CharLimit = 200
	ti.Width = 40

	return &Model{
		funnel:   f,
		now:      now,
		viewport: viewport.New(80, 20),
		input:    ti,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		width:    80,
		height:   30,
	}
}

// Flash shows a short status line, e.g. after a clipboard fallback.
func (m *Model) Flash(text string) {
	m.flash = text
	m.flashUntil = m.now().Add(flashDuration)
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), textinput.Blink)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	now := m.now()

	switch msg := msg.(type) {
	case tickMsg:
		m.funnel.Tick(now)
		m.sync(now)
		return m, tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.sync(now)
		return m, nil

	case tea.FocusMsg:
		m.funnel.Foreground(deeplink.Focus, now)
		return m, nil

	case tea.BlurMsg:
		m.funnel.Foreground(deeplink.Blur, now)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.enter(now)
			m.sync(now)
			return m, nil
		}
		if i, ok := digit(msg); ok && m.choose(i, now) {
			m.sync(now)
			return m, nil
		}
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// digit maps keys 1..9 to a zero-based index.
func digit(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '1'), true
}

func (m *Model) choose(i int, now time.Time) bool {
	switch m.funnel.Phase() {
	case funnel.PhaseQuiz:
		return m.funnel.Answer(i, now)
	case funnel.PhaseTerminal:
		e := m.funnel.Engine()
		if len(e.Choices()) > 0 {
			return m.funnel.SelectOption(i, now)
		}
		if len(e.Buttons()) > 0 {
			return m.funnel.SelectWalletButton(i, now)
		}
	}
	return false
}

func (m *Model) enter(now time.Time) {
	switch m.funnel.Phase() {
	case funnel.PhaseClaim:
		m.funnel.BackToTerminal()
	case funnel.PhaseTerminal:
		if m.funnel.SubmitText(m.input.Value(), now) {
			m.input.Reset()
		}
	}
}

// sync lays out the components and refreshes the transcript.
func (m *Model) sync(now time.Time) {
	if !now.Before(m.flashUntil) {
		m.flash = ""
	}
	e := m.funnel.Engine()
	v := e.State()

	if v.FlowCompleted && m.funnel.Phase() == funnel.PhaseTerminal {
		if !m.input.Focused() {
			m.input.Focus()
		}
	} else if m.input.Focused() {
		m.input.Blur()
	}

	logWidth := max(m.width-4, 20)
	m.viewport.Width = logWidth
	m.viewport.Height = max(m.height-len(e.Choices())-len(e.Buttons())-9, 5)
	m.input.Width = max(logWidth-4, 10)
	m.bar.Width = min(max(m.width/3, 10), 40)

	m.viewport.SetContent(m.transcript(v.Messages, now, logWidth))
	m.viewport.GotoBottom()
}

func (m *Model) transcript(msgs []state.Message, now time.Time, width int) string {
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	if text, sender, ok := m.funnel.Engine().Typing(now); ok {
		b.WriteString(renderMessage(state.Message{Text: text + cursor, Sender: sender}, width))
	}
	return b.String()
}

func renderMessage(msg state.Message, width int) string {
	switch msg.Sender {
	case state.SenderUser:
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, userStyle.Render(msg.Text))
	case state.SenderSystem:
		return systemStyle.Width(width).Render(msg.Text)
	default:
		return voiceStyle.Width(width).Render("> " + msg.Text)
	}
}

func (m *Model) View() string {
	now := m.now()
	var body string
	switch m.funnel.Phase() {
	case funnel.PhaseQuiz:
		body = m.quizView(now)
	case funnel.PhaseClaim:
		body = m.claimView()
	default:
		body = m.terminalView()
	}

	parts := []string{m.header(now), body}
	if m.flash != "" {
		parts = append(parts, systemStyle.Render(m.flash))
	}
	parts = append(parts, helpStyle.Render("1-9 choose · enter send · esc quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) header(now time.Time) string {
	v := m.funnel.Engine().State()
	line := fmt.Sprintf("%s  %d sats  %s %d%%",
		titleStyle.Render("SATS TERMINAL"),
		v.RewardTotal,
		m.bar.ViewAs(float64(v.Progress)/float64(state.MaxProgress)),
		v.Progress,
	)
	if n, ok := m.funnel.Engine().Notice(now); ok {
		line += "  " + noticeStyle.Render(fmt.Sprintf("+%d sats", n.Amount))
	}
	return line + "\n"
}

func (m *Model) quizView(now time.Time) string {
	q, ok := m.funnel.Quiz(now)
	if !ok {
		return ""
	}
	pad := max(3+q.Shake, 0)
	indent := lipgloss.NewStyle().PaddingLeft(pad)

	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d\n\n", q.Index+1, q.Total)
	b.WriteString(titleStyle.Render(q.Question.Prompt))
	b.WriteString("\n\n")
	for i, a := range q.Question.Answers {
		b.WriteString(choiceStyle.Render(fmt.Sprintf("[%d] %s", i+1, a)))
		b.WriteString("\n")
	}
	if q.Error {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Not quite. Try again."))
	}
	return indent.Render(b.String())
}

func (m *Model) terminalView() string {
	e := m.funnel.Engine()
	v := e.State()

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	for i, o := range e.Choices() {
		b.WriteString(choiceStyle.Render(fmt.Sprintf("[%d] %s", i+1, o.Label())))
		b.WriteString("\n")
	}
	for i, btn := range e.Buttons() {
		b.WriteString(choiceStyle.Render(fmt.Sprintf("[%d] %s", i+1, btn.Label())))
		b.WriteString("\n")
	}
	switch {
	case v.Phase == progression.PhaseAwaitingReturn:
		b.WriteString(systemStyle.Render("Waiting for you to come back from your wallet..."))
		b.WriteString("\n")
	case v.Phase == progression.PhaseExited:
		b.WriteString(systemStyle.Render("See you soon."))
		b.WriteString("\n")
	case v.FlowCompleted && !e.Locked():
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) claimView() string {
	v := m.funnel.Engine().State()
	skills := ""
	if keys := m.funnel.ClaimSkills(); len(keys) > 0 {
		skills = "\n" + systemStyle.Render("Skills: "+strings.Join(keys, ", "))
	}
	content := fmt.Sprintf("%s\n\nYou earned %d sats and reached %d%% independence.\nYour wallet is yours now.\n%s\n%s",
		titleStyle.Render("SATS CLAIMED"),
		v.RewardTotal,
		v.Progress,
		skills,
		helpStyle.Render("enter: back to the terminal"),
	)
	return claimStyle.Render(content)
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
