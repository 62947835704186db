package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"diagrammer/internal/core/config"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/shared/util"
)

// MarkdownRenderer refreshes marked blocks in existing markdown files.
type MarkdownRenderer struct {
	Root       string
	Injections []config.MarkdownInjection
}

func NewMarkdownRenderer(root string, injections []config.MarkdownInjection) *MarkdownRenderer {
	return &MarkdownRenderer{Root: root, Injections: injections}
}

func (r *MarkdownRenderer) Render(_ context.Context, f ports.Frame) error {
	for _, inj := range r.Injections {
		body, err := Section(f, inj.Diagram)
		if err != nil {
			return err
		}
		if inj.Diagram != config.DiagramSummary {
			body = MermaidBlock(body)
		}
		path := config.ResolveRelative(r.Root, inj.File)
		if err := InjectDiagram(path, inj.Marker, body); err != nil {
			return err
		}
	}
	return nil
}

func InjectDiagram(filePath, marker, diagram string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}

	next, err := ReplaceBetweenMarkers(string(content), marker, diagram)
	if err != nil {
		return err
	}
	if next == string(content) {
		return nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat markdown file %q: %w", filePath, err)
	}
	return util.WriteFileAtomic(filePath, []byte(next), info.Mode().Perm())
}

func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start := fmt.Sprintf("<!-- diagrammer:%s:start -->", marker)
	end := fmt.Sprintf("<!-- diagrammer:%s:end -->", marker)

	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", marker)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", marker)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	clean := strings.TrimRight(replacement, "\r\n")
	if newline == "\r\n" {
		clean = strings.ReplaceAll(clean, "\n", "\r\n")
	}

	return prefix + newline + clean + newline + suffix, nil
}
