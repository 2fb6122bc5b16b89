// Package tui is the terminal front end: one dialogue session rendered as a
// chat, with the recommendation streamed in place.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/search-helper/pkg/chat"
	"github.com/mikeboe/search-helper/pkg/dialogue"
	"github.com/mikeboe/search-helper/pkg/research"
)

// updateMsg carries one relay update of run gen.
type updateMsg struct {
	gen    int
	update research.Update
}

// doneMsg carries the final text of run gen.
type doneMsg struct {
	gen  int
	text string
}

// Model is the bubbletea model of the chat.
type Model struct {
	session *dialogue.Session
	relay   chat.Relay
	ctx     context.Context
	logger  *slog.Logger

	input  textinput.Model
	styles Styles
	width  int

	streaming string
	warning   string
	notice    string

	gen     int
	cancel  context.CancelFunc
	updates chan tea.Msg
}

// NewModel creates a chat for variant v.
func NewModel(ctx context.Context, v *dialogue.Variant, relay chat.Relay) *Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.CharLimit = 500
	ti.Focus()

	return &Model{
		session: dialogue.NewSession(v),
		relay:   relay,
		ctx:     ctx,
		logger:  slog.Default(),
		input:   ti,
		styles:  DefaultStyles(),
		width:   80,
	}
}

// Session exposes the dialogue state.
func (m *Model) Session() *dialogue.Session { return m.session }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.stop()
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.reset()
			return m, nil
		case tea.KeyEnter:
			return m, m.submit()
		}

	case updateMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.update.Warning != "" {
			m.warning = msg.update.Warning
		} else if !msg.update.Done {
			m.streaming = msg.update.Display()
		}
		return m, m.waitForUpdate()

	case doneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.streaming = ""
		m.cancel = nil
		if err := m.session.Finish(msg.text); err != nil {
			m.logger.Error("Failed to finish session", "error", err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	q, ok := m.session.CurrentQuestion()
	if !ok {
		return nil
	}

	value := m.input.Value()
	answer := dialogue.TextAnswer(value)
	if q.Kind == dialogue.KindList {
		answer = dialogue.ListAnswer(dialogue.SplitList(value)...)
	}

	completed, err := m.session.Advance(answer)
	if err != nil {
		if errors.Is(err, dialogue.ErrEmptyAnswer) {
			m.notice = "Please enter an answer."
		} else {
			m.notice = err.Error()
		}
		return nil
	}
	m.notice = ""
	m.input.Reset()

	if !completed {
		return nil
	}
	return m.startRelay()
}

func (m *Model) startRelay() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.warning = ""
	m.streaming = research.Cursor

	gen := m.gen
	ch := make(chan tea.Msg, 64)
	m.updates = ch

	v := m.session.Variant()
	rec := m.session.Record()
	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)
		text := m.relay.Run(ctx, v, rec, func(u research.Update) {
			send(updateMsg{gen: gen, update: u})
		})
		send(doneMsg{gen: gen, text: text})
	}()

	return m.waitForUpdate()
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) reset() {
	m.stop()
	m.gen++
	m.updates = nil
	m.session.Reset()
	m.streaming = ""
	m.warning = ""
	m.notice = ""
	m.input.Reset()
}

func (m *Model) View() string {
	v := m.session.Variant()
	wrap := lipgloss.NewStyle().Width(m.width)

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(v.Title))
	b.WriteString("\n")
	if v.Description != "" {
		b.WriteString(m.styles.Description.Render(wrap.Render(v.Description)))
		b.WriteString("\n")
	}

	for i, turn := range m.session.Log() {
		if turn.Role == llms.ChatMessageTypeHuman {
			b.WriteString(m.styles.Question.Render(v.Questions[i].Prompt))
			b.WriteString("\n")
			b.WriteString(m.styles.User.Render("› " + turn.Content))
		} else {
			b.WriteString(m.styles.Assistant.Render(wrap.Render(turn.Content)))
		}
		b.WriteString("\n\n")
	}

	if m.warning != "" {
		b.WriteString(m.styles.Warning.Render("⚠ " + m.warning))
		b.WriteString("\n")
	}

	switch m.session.Phase() {
	case dialogue.PhaseCollecting:
		q, _ := m.session.CurrentQuestion()
		b.WriteString(m.styles.Question.Render(wrap.Render(q.Prompt)))
		b.WriteString("\n")
		if q.Kind == dialogue.KindList && len(q.Options) > 0 {
			b.WriteString(m.styles.Options.Render(strings.Join(q.Options, ", ")))
			b.WriteString("\n")
		}
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.notice != "" {
			b.WriteString(m.styles.Error.Render(m.notice))
			b.WriteString("\n")
		}
		b.WriteString(m.styles.Help.Render("enter: send • ctrl+r: " + v.ResetLabel + " • esc: quit"))
	case dialogue.PhaseGenerating:
		b.WriteString(m.styles.Assistant.Render(wrap.Render(m.streaming)))
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("ctrl+r: " + v.ResetLabel + " • esc: quit"))
	case dialogue.PhaseDone:
		b.WriteString(m.styles.Help.Render("ctrl+r: " + v.ResetLabel + " • esc: quit"))
	}
	b.WriteString("\n")
	return b.String()
}
