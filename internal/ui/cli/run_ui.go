package cli

import (
	"diagrammer/internal/core/view"

	tea "github.com/charmbracelet/bubbletea"
)

// Program is the interactive module explorer.
type Program struct {
	ctrl *view.Controller
	p    *tea.Program
}

func NewProgram(ctrl *view.Controller, analyze AnalyzeFunc) *Program {
	m := initialModel(ctrl, analyze)
	return &Program{
		ctrl: ctrl,
		p:    tea.NewProgram(m, tea.WithAltScreen()),
	}
}

// Refresh pushes the controller's current state into the UI. It is meant for
// goroutines outside the UI loop, such as the result watcher.
func (p *Program) Refresh(err error) {
	p.p.Send(snapshot(p.ctrl, err))
}

func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

func (p *Program) Quit() {
	p.p.Quit()
}
