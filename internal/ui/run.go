package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run boots the TUI program and blocks until it exits.
func Run(ctx context.Context, ctrl Controller, seed, version string) error {
	m := initialModel(ctx, ctrl, seed, version)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
