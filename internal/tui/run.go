package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/comigor/chat-go/internal/app"
	"github.com/comigor/chat-go/internal/session"
)

// Run shows the chat UI for a until the user quits. The connectivity monitor runs for as
// long as the UI does.
func Run(ctx context.Context, a *app.App) error {
	changes := make(chan struct{}, 1)
	unsubscribe := a.Store.Subscribe(func(session.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	a.Monitor.Start(ctx)
	defer a.Monitor.Stop()

	p := tea.NewProgram(newModel(ctx, a, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
