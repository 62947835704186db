package cli

import (
	"context"
	"strings"

	"diagrammer/internal/core/view"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if m.editingURL {
		return handleURLKeys(msg, m)
	}
	if m.moduleList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.moduleList, cmd = m.moduleList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
		m.refreshPane()
		return m, nil
	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.refreshPane()
		return m, nil
	case "u":
		if m.analyze == nil {
			return m, nil
		}
		m.editingURL = true
		return m, m.urlInput.Focus()
	case "a":
		m.moduleList.Select(0)
		return m, selectModuleCmd(m.ctrl, "")
	case "enter":
		selected, ok := m.moduleList.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		return m, selectModuleCmd(m.ctrl, selected.value)
	case "pgdown", "pgup", "ctrl+d", "ctrl+u":
		var cmd tea.Cmd
		m.pane, cmd = m.pane.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.moduleList, cmd = m.moduleList.Update(msg)
	return m, cmd
}

func handleURLKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editingURL = false
		m.urlInput.Blur()
		return m, nil
	case "enter":
		url := strings.TrimSpace(m.urlInput.Value())
		m.editingURL = false
		m.urlInput.Blur()
		if url == "" {
			m.errText = emptyURLMessage
			return m, nil
		}
		m.loading = true
		m.errText = ""
		return m, analyzeCmd(m.ctrl, m.analyze, url)
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func selectModuleCmd(ctrl *view.Controller, name string) tea.Cmd {
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		err := ctrl.OnModuleSelected(context.Background(), name)
		return snapshot(ctrl, err)
	}
}

func analyzeCmd(ctrl *view.Controller, analyze AnalyzeFunc, url string) tea.Cmd {
	return func() tea.Msg {
		err := analyze(context.Background(), url)
		if ctrl == nil {
			return frameMsg{err: err}
		}
		return snapshot(ctrl, err)
	}
}
