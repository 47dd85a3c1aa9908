// Package tui implements the interactive quadrant board.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// RunBoard shows the board until the user quits or ctx is cancelled.
// The store must already be loaded; changes it reports are redrawn live.
func RunBoard(ctx context.Context, opts Options) error {
	m := newBoardModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(m.out), tea.WithAltScreen())
	opts.Store.OnChange(func() { p.Send(changedMsg{}) })
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
