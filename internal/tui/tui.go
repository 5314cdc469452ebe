package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive app and blocks until the user quits or opts.Context is cancelled.
func Run(opts Options) error {
	applyColorProfilePreference()
	applyGlyphPreference()
	m := newAppModel(opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
