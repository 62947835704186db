package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/shared/util"
)

type htmlDiagram struct {
	Name string
	Text string
}

type htmlPage struct {
	Title     string
	Selection string
	Summary   Summary
	Diagrams  []htmlDiagram
	Raw       string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<script type="module">
  import mermaid from 'https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs';
  mermaid.initialize({ startOnLoad: true, securityLevel: 'strict' });
</script>
<style>
  * { box-sizing: border-box; }
  body { font-family: 'Segoe UI', system-ui, sans-serif; margin: 0; background: #f6f7fb; color: #1d2433; }
  header { padding: 14px 24px; background: #16213e; color: #e8eefc; }
  header h1 { margin: 0; font-size: 1.2rem; }
  header p { margin: 4px 0 0; font-size: 0.85rem; color: #a9c4f5; }
  main { padding: 16px 24px; }
  section { background: #fff; border: 1px solid #dde3f0; border-radius: 6px; margin-bottom: 16px; padding: 12px 16px; }
  h2 { font-size: 1rem; margin: 0 0 8px; }
  pre.raw { max-height: 480px; overflow: auto; font-size: 0.75rem; background: #f0f2f8; padding: 8px; }
</style>
</head>
<body>
<header>
  <h1>{{.Summary.Repo}}</h1>
  <p>Branch {{.Summary.Branch}} &middot; SHA {{.Summary.SHA}} &middot; {{if .Selection}}Module {{.Selection}}{{else}}All modules{{end}}</p>
</header>
<main>
<section id="summary">
  <p>Languages: {{.Summary.Languages}}</p>
  <h2>Explain Like I'm New</h2>
  <ul>{{range .Summary.HighLevel}}<li>{{.}}</li>{{end}}</ul>
  <h2>Focus Modules</h2>
  <ul>{{range .Summary.Focus}}<li>{{.}}</li>{{end}}</ul>
  <p><strong>Limits:</strong> {{.Summary.Limits}}</p>
  {{if .Summary.Notices}}<h2>Notices</h2><ul>{{range .Summary.Notices}}<li>{{.}}</li>{{end}}</ul>{{end}}
</section>
{{range .Diagrams}}<section id="{{.Name}}">
  <h2>{{.Name}}</h2>
  <pre class="mermaid">{{.Text}}</pre>
</section>
{{end}}<section id="raw">
  <h2>Raw JSON</h2>
  <pre class="raw">{{.Raw}}</pre>
</section>
</main>
</body>
</html>
`))

// HTMLRenderer writes a self-contained page showing the summary, the four
// diagrams of the frame and the raw analysis.
type HTMLRenderer struct {
	Path string
}

func NewHTMLRenderer(path string) *HTMLRenderer {
	return &HTMLRenderer{Path: path}
}

func (r *HTMLRenderer) Render(_ context.Context, f ports.Frame) error {
	page, err := RenderHTML(f)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(r.Path, page, 0o644)
}

// RenderHTML builds the page for f.
func RenderHTML(f ports.Frame) ([]byte, error) {
	data := htmlPage{
		Selection: f.Selection,
		Summary:   BuildSummary(f.Result),
		Diagrams:  make([]htmlDiagram, 0, len(diagramFiles)),
	}
	data.Title = "Repo Diagrammer"
	if data.Summary.Repo != "" {
		data.Title = data.Summary.Repo + " diagrams"
	}
	for _, d := range diagramFiles {
		data.Diagrams = append(data.Diagrams, htmlDiagram{Name: d.name, Text: d.pick(f.Diagrams).String()})
	}
	if f.Result != nil {
		raw, err := f.Result.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode raw analysis: %w", err)
		}
		data.Raw = string(raw)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html page: %w", err)
	}
	return buf.Bytes(), nil
}
