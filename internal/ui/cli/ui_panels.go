package cli

import (
	"fmt"
	"strings"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/ui/report"
)

func renderHelp(m model) string {
	keys := "Keys: enter zoom | a all modules | / filter | tab/shift+tab view | pgup/pgdn scroll | u analyze url | q quit"
	if m.editingURL {
		keys = "Keys: enter analyze | esc cancel"
	}
	return statusStyle.Render(keys)
}

func renderStatus(m model) string {
	if m.loading {
		return statusStyle.Render("Analyzing repository...")
	}
	if m.frame.Result == nil {
		return statusStyle.Render("No analysis loaded.")
	}
	r := m.frame.Result
	return statusStyle.Render(fmt.Sprintf("%s @ %s | %s | %d modules | %d files | updated %s",
		r.Repo.Name, shortSHA(r.Repo.SHA), m.selectionLabel(), r.ModuleCount(), r.FileCount(),
		m.lastUpdate.Format("15:04:05")))
}

func renderTabs(active tab) string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == active {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return strings.Join(parts, "  ")
}

func paneContent(f ports.Frame, t tab) string {
	if f.Result == nil {
		return "Press u to analyze a repository."
	}
	switch t {
	case tabSummary:
		return report.BuildSummary(f.Result).Markdown()
	case tabC4:
		return f.Diagrams.C4.String()
	case tabDependencies:
		return f.Diagrams.Dependencies.String()
	case tabRoutes:
		return f.Diagrams.Routes.String()
	case tabDB:
		return f.Diagrams.DB.String()
	case tabRaw:
		raw, err := f.Result.Encode()
		if err != nil {
			return "Raw view unavailable: " + err.Error()
		}
		return string(raw)
	}
	return ""
}

func shortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}
