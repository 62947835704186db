package report

import (
	"fmt"

	"diagrammer/internal/core/config"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
)

// diagramFiles maps each diagram to its file name, in display order.
var diagramFiles = []struct {
	name string
	file string
	pick func(model.Diagrams) model.DiagramText
}{
	{config.DiagramC4, "c4.mmd", func(d model.Diagrams) model.DiagramText { return d.C4 }},
	{config.DiagramDependencies, "dependencies.mmd", func(d model.Diagrams) model.DiagramText { return d.Dependencies }},
	{config.DiagramRoutes, "routes.mmd", func(d model.Diagrams) model.DiagramText { return d.Routes }},
	{config.DiagramDB, "db.mmd", func(d model.Diagrams) model.DiagramText { return d.DB }},
}

// Section returns the named diagram of f, or the summary markdown.
func Section(f ports.Frame, name string) (string, error) {
	if name == config.DiagramSummary {
		return BuildSummary(f.Result).Markdown(), nil
	}
	for _, d := range diagramFiles {
		if d.name == name {
			return d.pick(f.Diagrams).String(), nil
		}
	}
	return "", fmt.Errorf("unknown diagram %q", name)
}

// MermaidBlock fences text as a mermaid code block.
func MermaidBlock(text string) string {
	return "```mermaid\n" + text + "\n```"
}
