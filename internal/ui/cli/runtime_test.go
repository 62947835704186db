package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	coreapp "diagrammer/internal/core/app"
	"diagrammer/internal/core/config"
	"diagrammer/internal/ui/report"
	analysis "diagrammer/internal/engine/model"
)

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name string
		opts cliOptions
		want string
	}{
		{name: "no source", opts: cliOptions{}, want: "is required"},
		{name: "two sources", opts: cliOptions{url: "https://github.com/a/b", file: "r.json"}, want: "cannot be combined"},
		{name: "empty url", opts: cliOptions{urlSet: true, url: "   "}, want: "Please enter a GitHub URL."},
		{name: "watch needs file", opts: cliOptions{sha: "abc", watch: true}, want: "--watch requires --file"},
		{name: "history exclusive", opts: cliOptions{history: true, ui: true}, want: "--history cannot be combined"},
		{name: "too many args", opts: cliOptions{args: []string{"a", "b"}}, want: "at most one"},
		{name: "url twice", opts: cliOptions{urlSet: true, url: "x", args: []string{"y"}}, want: "both as --url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := validateOptions(&opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateOptions_PositionalURL(t *testing.T) {
	opts := cliOptions{args: []string{" https://github.com/octo/demo "}}
	if err := validateOptions(&opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.url != "https://github.com/octo/demo" {
		t.Fatalf("expected trimmed positional url, got %q", opts.url)
	}
}

func TestValidateOptions_UIAlone(t *testing.T) {
	opts := cliOptions{ui: true}
	if err := validateOptions(&opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseOptions_DetectsExplicitURL(t *testing.T) {
	opts, err := parseOptions([]string{"--url", "", "--module", "api"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.urlSet {
		t.Fatal("expected url flag to be marked as set")
	}
	if opts.module != "api" || opts.configPath != defaultConfigPath {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestLoadConfig_FallsBackToDefaults(t *testing.T) {
	cfg, path, err := loadConfig(defaultConfigPath, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no config path, got %q", path)
	}
	if cfg.Backend.URL != config.DefaultBackendURL {
		t.Fatalf("expected default backend, got %q", cfg.Backend.URL)
	}
}

func TestLoadConfig_DiscoversDataConfig(t *testing.T) {
	cwd := t.TempDir()
	path := filepath.Join(cwd, "data", "config", config.DefaultFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[backend]\nurl = \"http://backend.internal:8000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := loadConfig(defaultConfigPath, cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != filepath.Clean(path) {
		t.Fatalf("expected %q, got %q", path, used)
	}
	if cfg.Backend.URL != "http://backend.internal:8000" {
		t.Fatalf("unexpected backend url %q", cfg.Backend.URL)
	}
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"), t.TempDir()); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestResolveLogPath_UsesXDGStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)
	if got := resolveLogPath(); got != filepath.Join(dir, "diagrammer", "diagrammer.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}

func sampleResult() *analysis.AnalysisResult {
	return &analysis.AnalysisResult{
		Repo: analysis.RepoMeta{Name: "octo/demo", DefaultBranch: "main", SHA: "abc123"},
		Summaries: analysis.Summaries{
			HighLevel:    []string{"A small demo."},
			FocusModules: []analysis.FocusModule{{Module: "api", Why: "entry point"}},
		},
		Limits: analysis.Limits{FileCountScanned: 3, MaxNodes: 200},
		Diagrams: analysis.Diagrams{
			C4:           "graph TD\n    api[api]",
			Dependencies: "graph LR\n    api/x.py --> db/models.py",
			Routes:       "graph TD\n    GET_users[GET /users] --> api/x.py",
			DB:           "erDiagram\n    USER ||--o{ ORDER : places",
		},
		Modules: map[string][]string{"api": {"api/x.py"}, "db": {"db/models.py"}},
	}
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/analyze":
			_ = json.NewEncoder(w).Encode(sampleResult())
		case "/api/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Cache miss"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRuntimeApp(t *testing.T, backendURL string) *coreapp.App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.ProjectRoot = dir
	cfg.Backend.URL = backendURL
	paths, err := config.ResolvePaths(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	a, err := coreapp.New(context.Background(), cfg, paths, coreapp.Dependencies{})
	if err != nil {
		t.Fatalf("app init failed: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPresent_PrintsSummaryAndScopedDir(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)
	opts := cliOptions{url: "https://github.com/octo/demo", module: "api", summary: true}

	if err := loadSource(context.Background(), a, opts); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	var out bytes.Buffer
	if code := present(context.Background(), &out, a, opts); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	text := out.String()
	if !strings.Contains(text, "## octo/demo") {
		t.Errorf("expected summary heading, got %q", text)
	}
	if !strings.Contains(text, "api (entry point)") {
		t.Errorf("expected focus line, got %q", text)
	}
	apiDir := report.NewFileRenderer(a.Paths.DiagramsDir).DirFor("api")
	if !strings.Contains(text, apiDir) {
		t.Errorf("expected scoped output dir, got %q", text)
	}
	if _, err := os.Stat(filepath.Join(apiDir, "c4.mmd")); err != nil {
		t.Errorf("expected scoped diagram file: %v", err)
	}
}

func TestPresent_ExportAll(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)
	opts := cliOptions{url: "https://github.com/octo/demo", exportAll: true}

	if err := loadSource(context.Background(), a, opts); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	var out bytes.Buffer
	if code := present(context.Background(), &out, a, opts); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "Exported 3 diagram sets") {
		t.Fatalf("unexpected output %q", out.String())
	}
	for _, module := range []string{"api", "db"} {
		dir := report.NewFileRenderer(a.Paths.DiagramsDir).DirFor(module)
		if _, err := os.Stat(filepath.Join(dir, "dependencies.mmd")); err != nil {
			t.Errorf("missing export for %s: %v", module, err)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)

	var out bytes.Buffer
	if code := printHistory(&out, a, 10); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "No cached analyses.") {
		t.Fatalf("unexpected empty history output %q", out.String())
	}

	if err := a.Analyze(context.Background(), "https://github.com/octo/demo"); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	out.Reset()
	if code := printHistory(&out, a, 10); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "abc123") || !strings.Contains(out.String(), "octo/demo") {
		t.Fatalf("unexpected history output %q", out.String())
	}
}

func TestLoadSource_CacheMiss(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)
	err := loadSource(context.Background(), a, cliOptions{sha: "deadbeef"})
	if err == nil {
		t.Fatal("expected cache miss")
	}
	if !strings.Contains(err.Error(), "Cache miss") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRun_VersionAndBadFlags(t *testing.T) {
	if code := Run([]string{"--version"}); code != 0 {
		t.Fatalf("expected 0 for --version, got %d", code)
	}
	if code := Run([]string{"--no-such-flag"}); code != 2 {
		t.Fatalf("expected 2 for unknown flag, got %d", code)
	}
	if code := Run([]string{}); code != 2 {
		t.Fatalf("expected 2 without a mode, got %d", code)
	}
}

func TestReselectAfterReload(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)
	path := filepath.Join(t.TempDir(), "result.json")
	data, err := json.Marshal(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var got []error
	onReload := reselectAfterReload(context.Background(), a, "api", func(err error) { got = append(got, err) })

	// A reload lands on all modules; the callback restores the module.
	if err := a.LoadFile(context.Background(), path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	onReload(nil)
	if sel := a.Controller.Selection(); sel != "api" {
		t.Fatalf("expected selection api after reload, got %q", sel)
	}
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("expected one nil notification, got %v", got)
	}

	loadErr := errors.New("bad file")
	onReload(loadErr)
	if len(got) != 2 || got[1] != loadErr {
		t.Fatalf("expected reload error to be forwarded, got %v", got)
	}
}

func TestReselectAfterReload_NoModule(t *testing.T) {
	a := newRuntimeApp(t, newBackend(t).URL)
	called := false
	reselectAfterReload(context.Background(), a, "", func(err error) {
		called = true
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
	})(nil)
	if !called {
		t.Fatal("expected next to run")
	}
}
