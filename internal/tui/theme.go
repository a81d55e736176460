package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/chat-go/internal/session"
)

type uiTheme struct {
	name        session.Theme
	header      lipgloss.Style
	title       lipgloss.Style
	panel       lipgloss.Style
	sidebar     lipgloss.Style
	panelTitle  lipgloss.Style
	user        lipgloss.Style
	assistant   lipgloss.Style
	timestamp   lipgloss.Style
	sources     lipgloss.Style
	online      lipgloss.Style
	offline     lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	inputPanel  lipgloss.Style
	helpText    lipgloss.Style
	flagOn      lipgloss.Style
	flagOff     lipgloss.Style
}

type palette struct {
	accent, user, assistant, text, muted, border, good, bad lipgloss.Color
}

var (
	darkPalette = palette{
		accent:    lipgloss.Color("#7aa2f7"),
		user:      lipgloss.Color("#9ece6a"),
		assistant: lipgloss.Color("#bb9af7"),
		text:      lipgloss.Color("#c0caf5"),
		muted:     lipgloss.Color("#565f89"),
		border:    lipgloss.Color("#3b4261"),
		good:      lipgloss.Color("#73daca"),
		bad:       lipgloss.Color("#f7768e"),
	}
	lightPalette = palette{
		accent:    lipgloss.Color("#2e7de9"),
		user:      lipgloss.Color("#387068"),
		assistant: lipgloss.Color("#7847bd"),
		text:      lipgloss.Color("#3760bf"),
		muted:     lipgloss.Color("#848cb5"),
		border:    lipgloss.Color("#a8aecb"),
		good:      lipgloss.Color("#118c74"),
		bad:       lipgloss.Color("#c64343"),
	}
)

func newTheme(t session.Theme) uiTheme {
	p := darkPalette
	if t == session.ThemeLight {
		p = lightPalette
	} else {
		t = session.ThemeDark
	}

	return uiTheme{
		name: t,
		header: lipgloss.NewStyle().
			Foreground(p.text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		title: lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.border),
		sidebar: lipgloss.NewStyle().
			Foreground(p.text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
		panelTitle:  lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		user:        lipgloss.NewStyle().Foreground(p.user).Bold(true),
		assistant:   lipgloss.NewStyle().Foreground(p.assistant).Bold(true),
		timestamp:   lipgloss.NewStyle().Foreground(p.muted),
		sources:     lipgloss.NewStyle().Foreground(p.muted).Italic(true),
		online:      lipgloss.NewStyle().Foreground(p.good).Bold(true),
		offline:     lipgloss.NewStyle().Foreground(p.bad).Bold(true),
		status:      lipgloss.NewStyle().Foreground(p.accent),
		errorStatus: lipgloss.NewStyle().Foreground(p.bad).Bold(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		helpText: lipgloss.NewStyle().Foreground(p.muted),
		flagOn:   lipgloss.NewStyle().Foreground(p.good),
		flagOff:  lipgloss.NewStyle().Foreground(p.muted).Strikethrough(true),
	}
}

// glamourStyle names the markdown style matching the theme.
func (t uiTheme) glamourStyle() string {
	if t.name == session.ThemeLight {
		return "light"
	}
	return "dark"
}
