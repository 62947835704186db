package model

import "strings"

// DiagramText is a line-oriented Mermaid graph source. The first line is the
// orientation header; every following line is a node or an edge.
type DiagramText string

// Split separates the header from the body lines. Empty text yields an empty
// header and no body.
func (d DiagramText) Split() (string, []string) {
	lines := strings.Split(string(d), "\n")
	return lines[0], lines[1:]
}

// Join rebuilds a diagram from a header and its body lines.
func Join(header string, body []string) DiagramText {
	lines := make([]string, 0, len(body)+1)
	lines = append(lines, header)
	lines = append(lines, body...)
	return DiagramText(strings.Join(lines, "\n"))
}

// Lines returns the body line count, header excluded.
func (d DiagramText) Lines() int {
	_, body := d.Split()
	return len(body)
}

func (d DiagramText) String() string {
	return string(d)
}

var idReplacer = strings.NewReplacer("/", "_", ".", "_")

// SanitizeID maps a path-like label onto a Mermaid-safe identifier by
// replacing path separators and dots.
func SanitizeID(label string) string {
	return idReplacer.Replace(label)
}
