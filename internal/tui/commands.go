package tui

import (
	"streampulse/internal/infrastructure/signal"

	tea "github.com/charmbracelet/bubbletea"
)

// waitForFeed blocks until the next feed frame or the connection ends
func waitForFeed(msgs <-chan signal.FeedMessage, errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg, ok := <-msgs:
			if !ok {
				select {
				case err := <-errs:
					return feedClosedMsg{err: err}
				default:
					return feedClosedMsg{}
				}
			}
			return feedMsg{msg: msg}
		case err := <-errs:
			return feedClosedMsg{err: err}
		}
	}
}

func control(c Controller, method, path, done string) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{
			message: done,
			err:     c.Control(method, path),
		}
	}
}
