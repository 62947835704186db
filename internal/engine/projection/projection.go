// Package projection derives module-scoped diagrams from a whole-repository
// analysis without going back to the backend.
//
// Dependency and route scoping are substring filters over the diagram lines,
// not graph queries. A module name that happens to appear inside an unrelated
// path matches as well; callers rely on this exact behaviour, so it must not
// be tightened here.
package projection

import (
	"fmt"
	"strings"

	"diagrammer/internal/engine/model"
)

const (
	indent = "    "

	componentHeader = "graph TD"

	emptyComponents   = indent + "Empty[No files in module]"
	emptyDependencies = indent + "Empty[No dependencies in module]"
	emptyRoutes       = indent + "NoRoutes[No routes for module]"
)

// Components builds a two-level graph: one node for the module and one child
// per member file.
func Components(files []string, module string) model.DiagramText {
	rootID := model.SanitizeID(module)
	if rootID == "" {
		rootID = "root"
	}
	label := module
	if label == "" {
		label = model.RootModule
	}

	body := make([]string, 0, len(files)+1)
	body = append(body, fmt.Sprintf("%s%s[%s]", indent, rootID, label))
	for _, file := range files {
		fileID := rootID + "_" + model.SanitizeID(file)
		body = append(body, fmt.Sprintf("%s%s --> %s[%s]", indent, rootID, fileID, file))
	}
	if len(files) == 0 {
		body = append(body, emptyComponents)
	}
	return model.Join(componentHeader, body)
}

// Dependencies keeps the dependency edges touching module. For the root
// module only edges without any path separator survive.
func Dependencies(full model.DiagramText, module string) model.DiagramText {
	header, lines := full.Split()

	prefix := module + "/"
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if module == model.RootModule {
			if !strings.Contains(line, "/") {
				kept = append(kept, line)
			}
			continue
		}
		if strings.Contains(line, prefix) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, emptyDependencies)
	}
	return model.Join(header, kept)
}

// Routes keeps route lines mentioning module anywhere.
func Routes(full model.DiagramText, module string) model.DiagramText {
	header, lines := full.Split()

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(line, module) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, emptyRoutes)
	}
	return model.Join(header, kept)
}

// Database is never scoped; schema diagrams cannot be attributed to a module.
func Database(full model.DiagramText) model.DiagramText {
	return full
}

// Project computes all four scoped diagrams for module. An empty module
// selects the whole repository and returns the diagrams unchanged.
func Project(result *model.AnalysisResult, module string) model.Diagrams {
	if result == nil {
		return model.Diagrams{}
	}
	if module == "" {
		return result.Diagrams
	}
	return model.Diagrams{
		C4:           Components(model.FilesOf(result.Modules, module), module),
		Dependencies: Dependencies(result.Diagrams.Dependencies, module),
		Routes:       Routes(result.Diagrams.Routes, module),
		DB:           Database(result.Diagrams.DB),
	}
}
