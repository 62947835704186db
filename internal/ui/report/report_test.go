package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diagrammer/internal/core/config"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
)

func sampleFrame(selection string) ports.Frame {
	result := &model.AnalysisResult{
		Repo: model.RepoMeta{
			Name:          "octo/demo",
			DefaultBranch: "main",
			SHA:           "abc123",
			Languages:     map[string]float64{"python": 75.5, "go": 24.5},
		},
		Summaries: model.Summaries{
			HighLevel: []string{"A web service.", "Uses <sqlite>."},
			FocusModules: []model.FocusModule{
				{Module: "api", Why: "degree centrality 0.50", Notes: "HTTP handlers"},
				{Module: "db", Why: "central"},
			},
		},
		Limits: model.Limits{FileCountScanned: 12, MaxNodes: 40},
		Diagrams: model.Diagrams{
			C4:           "graph TD\n    api[api]",
			Dependencies: "graph LR\n    api/x.py --> db/m.py",
			Routes:       "graph TD\n    NoRoutes[No routes detected]",
			DB:           "erDiagram",
		},
		Modules: map[string][]string{"api": {"api/x.py"}},
	}
	return ports.Frame{Selection: selection, Diagrams: result.Diagrams, Result: result}
}

func TestBuildSummary(t *testing.T) {
	s := BuildSummary(sampleFrame("").Result)

	if s.Languages != "go: 24.5%, python: 75.5%" {
		t.Fatalf("unexpected languages line %q", s.Languages)
	}
	if s.Focus[0] != "api (degree centrality 0.50) - HTTP handlers" {
		t.Fatalf("unexpected focus line %q", s.Focus[0])
	}
	if s.Focus[1] != "db (central)" {
		t.Fatalf("expected missing notes to be dropped, got %q", s.Focus[1])
	}
	if s.Limits != "Files scanned 12, nodes capped at 40" {
		t.Fatalf("unexpected limits line %q", s.Limits)
	}

	md := s.Markdown()
	for _, want := range []string{"## octo/demo", "### Explain Like I'm New", "- A web service.", "### Focus Modules", "**Limits:**"} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Notices") {
		t.Fatal("did not expect a notices section")
	}
}

func TestBuildSummary_NilAndNotices(t *testing.T) {
	if got := BuildSummary(nil); got.Repo != "" || got.Focus != nil {
		t.Fatalf("expected zero summary, got %+v", got)
	}

	r := sampleFrame("").Result
	r.Notices = []string{"Summaries generated without an LLM."}
	r.Limits.FilesSampledForLLM = 5
	s := BuildSummary(r)
	if !strings.Contains(s.Limits, "5 files sampled") {
		t.Fatalf("expected sampled count in limits, got %q", s.Limits)
	}
	if !strings.Contains(s.Markdown(), "### Notices") {
		t.Fatal("expected notices section")
	}
}

func TestSection(t *testing.T) {
	f := sampleFrame("api")
	got, err := Section(f, config.DiagramDependencies)
	if err != nil {
		t.Fatal(err)
	}
	if got != "graph LR\n    api/x.py --> db/m.py" {
		t.Fatalf("unexpected section %q", got)
	}
	if _, err := Section(f, "sequence"); err == nil {
		t.Fatal("expected error for unknown diagram")
	}
	summary, err := Section(f, config.DiagramSummary)
	if err != nil || !strings.Contains(summary, "octo/demo") {
		t.Fatalf("unexpected summary section %q (%v)", summary, err)
	}
}

func TestFileRenderer(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRenderer(dir)

	if err := r.Render(context.Background(), sampleFrame("")); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"c4.mmd", "dependencies.mmd", "routes.mmd", "db.mmd"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	if err := r.Render(context.Background(), sampleFrame("web/src")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(r.DirFor("web/src"), "c4.mmd"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "graph TD\n    api[api]\n" {
		t.Fatalf("unexpected c4 file %q", data)
	}
	if got := filepath.Base(r.DirFor("web/src")); !strings.HasPrefix(got, "web_src-") {
		t.Fatalf("expected sanitized module prefix, got %q", got)
	}
	if got := r.DirFor("."); filepath.Dir(got) != filepath.Join(dir, "modules") || !strings.HasPrefix(filepath.Base(got), "_-") {
		t.Fatalf("unexpected dir for root module %q", got)
	}
}

func TestFileRenderer_DistinctDirsForCollidingIDs(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRenderer(dir)

	names := []string{"api/v1", "api_v1", "api.v1"}
	seen := make(map[string]string)
	for _, name := range names {
		got := r.DirFor(name)
		if prev, ok := seen[got]; ok {
			t.Fatalf("%q and %q share directory %q", prev, name, got)
		}
		seen[got] = name
		if got != r.DirFor(name) {
			t.Fatalf("directory for %q is not stable", name)
		}
	}

	for _, name := range names {
		frame := sampleFrame(name)
		frame.Diagrams.DB = model.DiagramText("erDiagram\n    %% " + name)
		if err := r.Render(context.Background(), frame); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(r.DirFor(name), "db.mmd"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), name) {
			t.Fatalf("db.mmd for %q was overwritten: %q", name, data)
		}
	}
}

func TestHTMLRenderer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "index.html")
	if err := NewHTMLRenderer(path).Render(context.Background(), sampleFrame("api")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	page := string(data)

	for _, want := range []string{
		"<title>octo/demo diagrams</title>",
		"Module api",
		`<pre class="mermaid">graph LR`,
		"api/x.py --&gt; db/m.py",
		"Uses &lt;sqlite&gt;.",
		`&#34;sha&#34;: &#34;abc123&#34;`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("html page missing %q", want)
		}
	}
}

func TestReplaceBetweenMarkers(t *testing.T) {
	content := strings.Join([]string{
		"# Docs",
		"<!-- diagrammer:arch:start -->",
		"old",
		"<!-- diagrammer:arch:end -->",
	}, "\n")
	got, err := ReplaceBetweenMarkers(content, "arch", "new-line")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<!-- diagrammer:arch:start -->\nnew-line\n<!-- diagrammer:arch:end -->") {
		t.Fatalf("unexpected marker replacement result: %s", got)
	}
	if strings.Contains(got, "old") {
		t.Fatal("expected old block content to be replaced")
	}
}

func TestReplaceBetweenMarkers_Errors(t *testing.T) {
	cases := map[string]string{
		"missing":   "no markers here",
		"reversed":  "<!-- diagrammer:arch:end -->\n<!-- diagrammer:arch:start -->",
		"duplicate": "<!-- diagrammer:arch:start -->\n<!-- diagrammer:arch:start -->\n<!-- diagrammer:arch:end -->",
	}
	for name, content := range cases {
		if _, err := ReplaceBetweenMarkers(content, "arch", "x"); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := ReplaceBetweenMarkers("", " ", "x"); err == nil {
		t.Fatal("expected error for empty marker")
	}
}

func TestReplaceBetweenMarkers_CRLF(t *testing.T) {
	content := "<!-- diagrammer:m:start -->\r\nold\r\n<!-- diagrammer:m:end -->\r\n"
	got, err := ReplaceBetweenMarkers(content, "m", "a\nb")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<!-- diagrammer:m:start -->\r\na\r\nb\r\n<!-- diagrammer:m:end -->\r\n" {
		t.Fatalf("unexpected crlf result %q", got)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	root := t.TempDir()
	readme := filepath.Join(root, "README.md")
	initial := "# Demo\n<!-- diagrammer:deps:start -->\n<!-- diagrammer:deps:end -->\n<!-- diagrammer:about:start -->\n<!-- diagrammer:about:end -->\n"
	if err := os.WriteFile(readme, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewMarkdownRenderer(root, []config.MarkdownInjection{
		{File: "README.md", Marker: "deps", Diagram: config.DiagramDependencies},
		{File: "README.md", Marker: "about", Diagram: config.DiagramSummary},
	})
	if err := r.Render(context.Background(), sampleFrame("api")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(readme)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "<!-- diagrammer:deps:start -->\n```mermaid\ngraph LR\n    api/x.py --> db/m.py\n```\n<!-- diagrammer:deps:end -->") {
		t.Fatalf("dependencies block not injected:\n%s", got)
	}
	if !strings.Contains(got, "### Focus Modules") {
		t.Fatalf("summary block not injected:\n%s", got)
	}
}

func TestMarkdownRenderer_MissingFile(t *testing.T) {
	r := NewMarkdownRenderer(t.TempDir(), []config.MarkdownInjection{
		{File: "MISSING.md", Marker: "deps", Diagram: config.DiagramC4},
	})
	if err := r.Render(context.Background(), sampleFrame("")); err == nil {
		t.Fatal("expected error for missing markdown file")
	}
}

func TestMulti_RunsAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	count := ports.RendererFunc(func(context.Context, ports.Frame) error {
		calls++
		return nil
	})
	fail := ports.RendererFunc(func(context.Context, ports.Frame) error { return boom })

	m := Multi{{Name: "fail", Renderer: fail}, {Name: "count", Renderer: count}}
	err := m.Render(context.Background(), sampleFrame(""))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected renderer name in error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected later renderer to still run, got %d calls", calls)
	}

	if err := (Multi{{Name: "count", Renderer: count}}).Render(context.Background(), sampleFrame("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
