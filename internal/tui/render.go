package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/chat-go/internal/session"
)

const welcome = "Start a conversation. Replies can cite uploaded documents when RAG is on."

func (m model) renderTranscript() string {
	if len(m.state.Transcript) == 0 && !m.state.Typing {
		return m.theme.helpText.Render(welcome)
	}

	blocks := make([]string, 0, len(m.state.Transcript)+1)
	for _, msg := range m.state.Transcript {
		blocks = append(blocks, m.renderMessage(msg))
	}
	if m.state.Typing {
		blocks = append(blocks, m.spinner.View()+" "+m.theme.assistant.Render("Assistant is typing..."))
	}
	return strings.Join(blocks, "\n\n")
}

func (m model) renderMessage(msg session.Message) string {
	label := m.theme.user.Render("You")
	if msg.Sender == session.SenderAssistant {
		label = m.theme.assistant.Render("Assistant")
	}
	header := label + " " + m.theme.timestamp.Render(msg.Timestamp.Local().Format(time.Kitchen))

	var body string
	if msg.Sender == session.SenderAssistant {
		body = m.renderMarkdown(msg.Content)
	} else {
		body = lipgloss.NewStyle().Width(max(m.timeline.Width-2, 10)).Render(msg.Content)
	}

	out := header + "\n" + body
	if len(msg.Sources) > 0 {
		out += "\n" + m.theme.sources.Render("Sources: "+strings.Join(msg.Sources, ", "))
	}
	return out
}

func (m model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (m model) headerView() string {
	conn := m.theme.offline.Render("○ Disconnected")
	if m.state.Connected {
		conn = m.theme.online.Render("● Connected")
	}
	line := fmt.Sprintf("%s  %s  %s  %s %s",
		m.theme.title.Render("Chat"),
		conn,
		m.modelName(m.state.SelectedModel),
		m.flag("RAG", m.state.UseRAG),
		m.flag("Memory", m.state.UseMemory),
	)
	return m.theme.header.Width(max(m.width-2, 10)).Render(line)
}

func (m model) flag(name string, on bool) string {
	if on {
		return m.theme.flagOn.Render(name)
	}
	return m.theme.flagOff.Render(name)
}

func (m model) statusView() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return m.theme.errorStatus.Render(m.status)
	}
	return m.theme.status.Render(m.status)
}

func (m model) sidebarView() string {
	var sb strings.Builder
	sb.WriteString(m.theme.panelTitle.Render("Session") + "\n")
	fmt.Fprintf(&sb, "id: %s\n", shortID(m.state.SessionID))
	fmt.Fprintf(&sb, "messages: %d\n", len(m.state.Transcript))
	fmt.Fprintf(&sb, "theme: %s\n", m.state.Theme)

	sb.WriteString("\n" + m.theme.panelTitle.Render("Service") + "\n")
	switch {
	case m.overview == nil:
		sb.WriteString("checking...\n")
	case m.overview.HealthErr != nil || m.overview.Health == nil:
		sb.WriteString(m.theme.offline.Render("unreachable") + "\n")
	default:
		h := m.overview.Health
		fmt.Fprintf(&sb, "status: %s\n", h.Status)
		for _, k := range slices.Sorted(maps.Keys(h.Subsystems)) {
			fmt.Fprintf(&sb, "%s: %s\n", k, h.Subsystems[k])
		}
	}
	if m.overview != nil && m.overview.StatsErr == nil && m.overview.Stats != nil {
		fmt.Fprintf(&sb, "stored: %d\n", m.overview.Stats.MessageCount)
		fmt.Fprintf(&sb, "documents: %d\n", m.overview.Stats.IndexedDocuments)
	}

	if src := lastSources(m.state.Transcript); len(src) > 0 {
		sb.WriteString("\n" + m.theme.panelTitle.Render("Sources") + "\n")
		for _, s := range src {
			sb.WriteString("• " + s + "\n")
		}
	}

	return m.theme.sidebar.
		Width(sidebarWidth - 2).
		Height(m.timeline.Height).
		Render(strings.TrimRight(sb.String(), "\n"))
}

// lastSources returns the sources of the most recent assistant message that cited any.
func lastSources(msgs []session.Message) []string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == session.SenderAssistant && len(msgs[i].Sources) > 0 {
			return msgs[i].Sources
		}
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
