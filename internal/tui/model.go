// Package tui is the interactive terminal host for a chat session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/chat-go/internal/app"
	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/internal/session"
	"github.com/comigor/chat-go/internal/turn"
)

const (
	sidebarWidth    = 34
	minSidebarWidth = 100
	uploadCommand   = "/upload"
)

type model struct {
	ctx     context.Context
	app     *app.App
	changes <-chan struct{}

	state     session.State
	overview  *app.Overview
	status    string
	statusErr bool

	width  int
	height int
	ready  bool

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	theme    uiTheme
}

// stateChangedMsg is delivered after the store changed; the model re-reads the snapshot.
type stateChangedMsg struct{}

type turnDoneMsg struct {
	result turn.Result
}

type overviewMsg app.Overview

type uploadDoneMsg struct {
	status string
	err    error
}

func newModel(ctx context.Context, a *app.App, changes <-chan struct{}) model {
	in := textinput.New()
	in.Placeholder = "Type your message..."
	in.Prompt = "> "
	in.CharLimit = 0
	in.Width = 60
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	st := a.Snapshot()
	m := model{
		ctx:      ctx,
		app:      a,
		changes:  changes,
		state:    st,
		input:    in,
		timeline: viewport.New(0, 0),
		spinner:  sp,
		theme:    newTheme(st.Theme),
	}
	m.spinner.Style = m.theme.assistant
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForChange(m.changes), m.overviewCmd())
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m model) overviewCmd() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return overviewMsg(a.Overview(ctx))
	}
}

func (m model) sendCmd(text string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return turnDoneMsg{result: a.Send(ctx, text)}
	}
}

func (m model) uploadCmd(path string) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		res, err := a.Upload(ctx, path)
		return uploadDoneMsg{status: app.UploadStatus(res, err), err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case stateChangedMsg:
		m.applyState(m.app.Snapshot())
		return m, waitForChange(m.changes)

	case turnDoneMsg:
		m.applyState(m.app.Snapshot())
		switch msg.result.Status {
		case turn.StatusFailed:
			m.setStatus(fmt.Sprintf("Message failed: %v", msg.result.Err), true)
		case turn.StatusBusy:
			m.setStatus("Still waiting for the previous reply.", true)
		case turn.StatusReplied:
			m.setStatus("", false)
		}
		return m, m.overviewCmd()

	case overviewMsg:
		ov := app.Overview(msg)
		m.overview = &ov
		m.applyState(m.app.Snapshot())
		return m, nil

	case uploadDoneMsg:
		m.setStatus(msg.status, msg.err != nil)
		return m, m.overviewCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Typing {
			m.refreshTimeline()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.timeline, cmd = m.timeline.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := m.app.Store

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "ctrl+t":
		store.ToggleTheme()
	case "ctrl+r":
		store.SetUseRAG(!m.state.UseRAG)
		m.setStatus("RAG "+onOff(!m.state.UseRAG), false)
	case "ctrl+e":
		store.SetUseMemory(!m.state.UseMemory)
		m.setStatus("Memory "+onOff(!m.state.UseMemory), false)
	case "tab":
		next := store.Catalog().Next(m.state.SelectedModel)
		store.SetSelectedModel(next)
		m.setStatus("Model: "+m.modelName(next), false)
	case "ctrl+l":
		if err := m.app.ClearTranscript(); err != nil {
			m.setStatus("Cannot clear: "+err.Error()+".", true)
		} else {
			m.setStatus("Transcript cleared.", false)
		}
	case "ctrl+n":
		if err := m.app.NewSession(); err != nil {
			m.setStatus("Cannot start a new session: "+err.Error()+".", true)
		} else {
			m.setStatus("Started a new session.", false)
		}

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	m.applyState(m.app.Snapshot())
	return m, nil
}

// submit sends the input line. While a reply is pending the input is locked.
func (m model) submit() (tea.Model, tea.Cmd) {
	if m.state.Typing || m.app.Turns.Busy() {
		return m, nil
	}
	text := m.input.Value()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return m, nil
	}
	m.input.Reset()

	if trimmed == uploadCommand || strings.HasPrefix(trimmed, uploadCommand+" ") {
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, uploadCommand))
		if path == "" {
			m.setStatus("Usage: /upload <path>", true)
			return m, nil
		}
		m.setStatus("Uploading "+path+"...", false)
		return m, m.uploadCmd(path)
	}

	m.setStatus("", false)
	return m, m.sendCmd(text)
}

func (m *model) applyState(st session.State) {
	themeChanged := st.Theme != m.theme.name
	m.state = st
	if themeChanged {
		m.theme = newTheme(st.Theme)
		m.spinner.Style = m.theme.assistant
		m.renderer = newRenderer(m.theme, m.timeline.Width-2)
	}
	if st.Typing {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
	m.refreshTimeline()
}

func (m *model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true

	side := 0
	if width >= minSidebarWidth {
		side = sidebarWidth
	}
	// header (3) + input (3) + status (1) + help (1) + timeline border (2)
	m.timeline.Width = max(width-side-2, 10)
	m.timeline.Height = max(height-10, 3)
	m.input.Width = max(width-6, 10)
	m.renderer = newRenderer(m.theme, m.timeline.Width-2)
	m.refreshTimeline()
}

func (m *model) refreshTimeline() {
	if !m.ready {
		return
	}
	m.timeline.SetContent(m.renderTranscript())
	m.timeline.GotoBottom()
}

func (m model) modelName(id string) string {
	if mdl, ok := m.app.Store.Catalog().Lookup(id); ok {
		return mdl.Name
	}
	return id
}

func newRenderer(t uiTheme, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(t.glamourStyle()),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		logger.L.Warn("markdown renderer unavailable", "error", err)
		return nil
	}
	return r
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.theme.panel.Render(m.timeline.View())
	if m.width >= minSidebarWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.sidebarView())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.theme.inputPanel.Width(max(m.width-4, 10)).Render(m.input.View()),
		m.statusView(),
		m.theme.helpText.Render("enter send • tab model • ctrl+r rag • ctrl+e memory • ctrl+t theme • ctrl+l clear • ctrl+n new • /upload <path> • ctrl+c quit"),
	)
}
