package cli

import (
	"context"
	"fmt"
	"time"

	domainerrors "diagrammer/internal/core/errors"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/core/view"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true).
			Underline(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(0, 1)
)

const emptyURLMessage = "Please enter a GitHub URL."

// AnalyzeFunc fetches an analysis for a repository URL and hands it to the
// view controller.
type AnalyzeFunc func(ctx context.Context, repoURL string) error

type item struct {
	title, desc, value string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type tab int

const (
	tabSummary tab = iota
	tabC4
	tabDependencies
	tabRoutes
	tabDB
	tabRaw
	tabCount
)

var tabNames = [tabCount]string{"Summary", "C4 Modules", "Dependencies", "Routes", "Database", "Raw JSON"}

type model struct {
	ctrl    *view.Controller
	analyze AnalyzeFunc

	moduleList list.Model
	urlInput   textinput.Model
	editingURL bool
	pane       viewport.Model
	tab        tab

	frame      ports.Frame
	options    []view.Option
	loading    bool
	errText    string
	lastUpdate time.Time
}

// frameMsg carries the controller state after a selection or a new analysis.
type frameMsg struct {
	frame   ports.Frame
	options []view.Option
	err     error
}

func snapshot(ctrl *view.Controller, err error) frameMsg {
	return frameMsg{frame: ctrl.Current(), options: ctrl.Options(), err: err}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		listWidth := width / 3
		m.moduleList.SetSize(listWidth, height)
		m.pane.Width = width - listWidth - 4
		m.pane.Height = height - 2
		m.urlInput.Width = width - 8
		m.refreshPane()
		return m, nil
	case frameMsg:
		m.loading = false
		m.errText = ""
		if msg.err != nil {
			m.errText = domainerrors.UserMessage(msg.err)
		}
		if msg.frame.Result != nil {
			if msg.frame.Result != m.frame.Result {
				m.tab = tabSummary
			}
			m.frame = msg.frame
			m.lastUpdate = time.Now()
		}
		if msg.options != nil && !sameOptions(m.options, msg.options) {
			m.options = msg.options
			m.moduleList.SetItems(optionItems(msg.options))
			m.moduleList.Select(0)
		}
		m.refreshPane()
		return m, nil
	}

	var cmd tea.Cmd
	if m.editingURL {
		m.urlInput, cmd = m.urlInput.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func (m *model) refreshPane() {
	m.pane.SetContent(paneContent(m.frame, m.tab))
	m.pane.GotoTop()
}

func (m model) View() string {
	header := titleStyle("Repo Diagrammer") + "\n" + renderStatus(m)
	if m.errText != "" {
		header += "\n" + errorStyle.Render(m.errText)
	}

	var top string
	if m.editingURL {
		top = "\n" + m.urlInput.View() + "\n"
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.moduleList.View(),
		lipgloss.JoinVertical(lipgloss.Left, renderTabs(m.tab), paneStyle.Render(m.pane.View())),
	)
	return docStyle.Render(header + "\n" + renderHelp(m) + "\n" + top + "\n" + body)
}

func optionItems(options []view.Option) []list.Item {
	items := make([]list.Item, 0, len(options))
	for _, opt := range options {
		desc := "module"
		if opt.Value == "" {
			desc = "whole repository"
		}
		items = append(items, item{title: opt.Label, desc: desc, value: opt.Value})
	}
	return items
}

func sameOptions(a, b []view.Option) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func initialModel(ctrl *view.Controller, analyze AnalyzeFunc) model {
	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Zoom"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)

	input := textinput.New()
	input.Placeholder = "https://github.com/owner/repo"
	input.Prompt = "Repository URL: "
	input.CharLimit = 512

	m := model{
		ctrl:       ctrl,
		analyze:    analyze,
		moduleList: moduleList,
		urlInput:   input,
		pane:       viewport.New(80, 20),
		tab:        tabSummary,
	}
	if ctrl != nil {
		msg := snapshot(ctrl, nil)
		m.frame = msg.frame
		m.options = msg.options
		m.moduleList.SetItems(optionItems(msg.options))
		if msg.frame.Result != nil {
			m.lastUpdate = time.Now()
		}
	}
	m.refreshPane()
	return m
}

func (m model) selectionLabel() string {
	if m.frame.Selection == "" {
		return view.AllModulesLabel
	}
	return fmt.Sprintf("module %s", m.frame.Selection)
}
