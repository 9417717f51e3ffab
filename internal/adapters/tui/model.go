// Package tui is a terminal chat client over the conversation service. It
// renders the live view of the active thread and reports every edit of the
// input line as a draft, so passive personalities can interrupt.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/fairy-agent/internal/app/conversation"
	"github.com/PabloGalante/fairy-agent/internal/app/live"
	"github.com/PabloGalante/fairy-agent/internal/domain"
)

type eventMsg struct {
	sub   *live.Subscription
	event live.Event
}

type streamClosedMsg struct {
	sub *live.Subscription
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx   context.Context
	svc   *conversation.Service
	theme theme

	thread *domain.Thread
	view   live.View
	sub    *live.Subscription
	// rewriteFrame is the partially retyped user message while a rewrite
	// animation plays.
	rewriteFrame *string

	input  textinput.Model
	width  int
	height int
	err    error
}

// NewModel opens the chat on thread id.
func NewModel(ctx context.Context, svc *conversation.Service, id domain.ThreadID) Model {
	in := textinput.New()
	in.Placeholder = "Message Fairy..."
	in.Prompt = "› "
	in.CharLimit = 2000
	in.Focus()

	m := Model{
		ctx:    ctx,
		svc:    svc,
		theme:  defaultTheme(),
		input:  in,
		width:  80,
		height: 24,
	}
	m.attach(id)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.sub))
}

func waitForEvent(sub *live.Subscription) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub.Events()
		if !ok {
			return streamClosedMsg{sub: sub}
		}
		return eventMsg{sub: sub, event: e}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case eventMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		m.apply(msg.event)
		return m, waitForEvent(m.sub)

	case streamClosedMsg:
		if msg.sub != m.sub || m.thread == nil {
			return m, nil
		}
		// fell behind or the thread went away; start over from a snapshot
		if _, err := m.svc.GetThread(m.ctx, m.thread.ID); err != nil {
			return m, nil
		}
		m.attach(m.thread.ID)
		return m, waitForEvent(m.sub)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "ctrl+c", "esc":
		m.sub.Close()
		return m, tea.Quit

	case "enter":
		return m.send()

	case "ctrl+n":
		out, err := m.svc.CreateThread(m.ctx, conversation.CreateThreadInput{})
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.switchTo(out.Thread.ID)

	case "tab":
		return m.switchTo(m.nextThread())

	case "ctrl+w":
		return m.deleteThread()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	if m.input.Value() != before {
		m.checkDraft()
	}
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.svc.Pending(m.thread.ID) {
		return m, nil
	}

	err := m.svc.SendMessageAsync(m.ctx, conversation.SendMessageInput{ThreadID: m.thread.ID, Text: text})
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.input.Reset()
	return m, nil
}

// checkDraft lets the personality look at the unsent input. The input stays
// editable whether or not it interrupts.
func (m *Model) checkDraft() {
	if _, err := m.svc.Draft(m.ctx, conversation.DraftInput{ThreadID: m.thread.ID, Text: m.input.Value()}); err != nil {
		m.err = err
	}
}

func (m Model) switchTo(id domain.ThreadID) (tea.Model, tea.Cmd) {
	if id == "" || id == m.thread.ID {
		return m, nil
	}
	if err := m.svc.Activate(m.ctx, id); err != nil {
		m.err = err
		return m, nil
	}
	m.sub.Close()
	m.attach(id)
	m.input.Reset()
	return m, waitForEvent(m.sub)
}

func (m Model) deleteThread() (tea.Model, tea.Cmd) {
	threads, _ := m.svc.ListThreads(m.ctx)
	if len(threads) <= 1 {
		return m, nil
	}
	if err := m.svc.DeleteThread(m.ctx, m.thread.ID); err != nil {
		m.err = err
		return m, nil
	}
	_, active := m.svc.ListThreads(m.ctx)
	m.attach(active)
	return m, waitForEvent(m.sub)
}

func (m Model) nextThread() domain.ThreadID {
	threads, _ := m.svc.ListThreads(m.ctx)
	for i, t := range threads {
		if t.ID == m.thread.ID {
			return threads[(i+1)%len(threads)].ID
		}
	}
	return ""
}

// attach subscribes to id and loads its current state.
func (m *Model) attach(id domain.ThreadID) {
	view, sub := m.svc.Hub().Subscribe(id)
	m.sub = sub
	m.view = view
	m.rewriteFrame = nil
	m.refresh(id)
}

func (m *Model) refresh(id domain.ThreadID) {
	t, err := m.svc.GetThread(m.ctx, id)
	if err != nil {
		m.err = err
		return
	}
	m.thread = t
}

func (m *Model) apply(e live.Event) {
	switch e.Type {
	case live.EventUserRewriteFrame:
		text := e.Text
		m.rewriteFrame = &text
	case live.EventUserRewrite, live.EventTurnEnd:
		m.rewriteFrame = nil
	}
	m.view = m.svc.Hub().View(m.thread.ID)
	m.refresh(m.thread.ID)
}

func (m Model) View() string {
	if m.thread == nil {
		return m.theme.Danger.Render(fmt.Sprint(m.err))
	}
	width := max(m.width-2, 20)

	var lines []string
	lastUser, lastAssistant := -1, -1
	for i, msg := range m.thread.Messages {
		if msg.Role == domain.RoleUser {
			lastUser = i
		} else {
			lastAssistant = i
		}
	}

	for i, msg := range m.thread.Messages {
		content := msg.Content
		var label string
		if msg.Role == domain.RoleUser {
			label = m.theme.User.Render("you")
			if i == lastUser && m.rewriteFrame != nil {
				content = *m.rewriteFrame
			}
		} else {
			label = m.theme.Assistant.Render("fairy")
			if i == lastAssistant && m.view.Cursor {
				content += m.theme.Cursor.Render("▌")
			}
		}
		body := lipgloss.NewStyle().Width(width).Render(label + "  " + content)
		lines = append(lines, strings.Split(body, "\n")...)
		lines = append(lines, "")
	}

	for _, step := range m.view.Thinking {
		lines = append(lines, m.theme.Thinking.Width(width).Render("∴ "+step))
	}
	if m.view.Typing {
		lines = append(lines, m.theme.Typing.Render("fairy is typing..."))
	}

	header := m.theme.Header.Render(fmt.Sprintf("%s · %s", m.thread.Title, m.personalityName()))
	footer := m.theme.Muted.Render("enter send · ctrl+n new · tab next · ctrl+w delete · esc quit")
	if m.err != nil {
		footer = m.theme.Danger.Render(m.err.Error())
	}
	input := m.theme.Input.Width(width).Render(m.input.View())

	// keep the newest lines that fit between header and input
	room := m.height - lipgloss.Height(header) - lipgloss.Height(input) - lipgloss.Height(footer)
	if room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		strings.Join(lines, "\n"),
		input,
		footer,
	)
}

func (m Model) personalityName() string {
	for _, l := range m.svc.Personalities() {
		if l.ID() == m.thread.PersonalityID {
			return l.Name()
		}
	}
	return m.thread.PersonalityID
}

// Run starts the chat on the active thread, creating one if needed, and
// blocks until the user quits or ctx ends.
func Run(ctx context.Context, svc *conversation.Service) error {
	first, err := svc.Bootstrap(ctx)
	if err != nil {
		return err
	}
	id := first.ID
	if _, active := svc.ListThreads(ctx); active != "" {
		id = active
	}

	p := tea.NewProgram(NewModel(ctx, svc, id), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
