package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[backend]
url = "https://diagrams.example.com/"
timeout = "90s"
rate_limit = 0.5
burst = 1

[cache]
enabled = false
path = "cache/results.db"

[output]
diagrams_dir = "out/diagrams"
html = "out/index.html"

[[output.update_markdown]]
file = "README.md"
marker = "deps"
diagram = "dependencies"

[watch]
debounce = "1s"
patterns = ["result*.json"]

[modules]
exclude = ["tests/**", "vendor"]

[projection]
memo_size = 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "https://diagrams.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.RateLimit != 0.5 || cfg.Backend.Burst != 1 {
		t.Errorf("unexpected limiter settings: %v/%d", cfg.Backend.RateLimit, cfg.Backend.Burst)
	}
	if cfg.Cache.IsEnabled() {
		t.Error("expected cache to be disabled")
	}
	if cfg.Output.DiagramsDir != "out/diagrams" {
		t.Errorf("unexpected diagrams dir %q", cfg.Output.DiagramsDir)
	}
	if len(cfg.Output.UpdateMarkdown) != 1 || cfg.Output.UpdateMarkdown[0].Diagram != "dependencies" {
		t.Errorf("unexpected markdown injections: %+v", cfg.Output.UpdateMarkdown)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Modules.Exclude) != 2 {
		t.Errorf("expected 2 exclude patterns, got %v", cfg.Modules.Exclude)
	}
	if cfg.Projection.MemoSize != 8 {
		t.Errorf("expected memo size 8, got %d", cfg.Projection.MemoSize)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("expected default backend url, got %q", cfg.Backend.URL)
	}
	if !cfg.Cache.IsEnabled() {
		t.Error("expected cache enabled by default")
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("expected default debounce 300ms, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.Patterns) != 1 || cfg.Watch.Patterns[0] != "*.json" {
		t.Errorf("unexpected default watch patterns: %v", cfg.Watch.Patterns)
	}
	if cfg.Observability.ServiceName != "diagrammer" {
		t.Errorf("unexpected service name %q", cfg.Observability.ServiceName)
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "version = ")); err == nil {
		t.Error("expected error for malformed toml")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "UnsupportedVersion",
			content: "version = 3",
			want:    "unsupported config version",
		},
		{
			name:    "BadScheme",
			content: "[backend]\nurl = \"ftp://example.com\"",
			want:    "http or https",
		},
		{
			name:    "UnknownDiagram",
			content: "[[output.update_markdown]]\nfile = \"README.md\"\nmarker = \"x\"\ndiagram = \"sequence\"",
			want:    "diagram must be one of",
		},
		{
			name:    "DuplicateInjection",
			content: "[[output.update_markdown]]\nfile = \"README.md\"\nmarker = \"x\"\ndiagram = \"c4\"\n[[output.update_markdown]]\nfile = \"README.md\"\nmarker = \"x\"\ndiagram = \"db\"",
			want:    "duplicate markdown injection",
		},
		{
			name:    "BadExcludeGlob",
			content: "[modules]\nexclude = [\"[unclosed\"]",
			want:    "modules.exclude[0]",
		},
		{
			name:    "TracingWithoutEndpoint",
			content: "[observability]\nenabled = true\nenable_tracing = true",
			want:    "otlp_endpoint is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DIAGRAMMER_BACKEND_URL", "http://10.0.0.5:9000")
	t.Setenv("DIAGRAMMER_CACHE_ENABLED", "false")
	t.Setenv("DIAGRAMMER_WATCH_DEBOUNCE", "2s")
	t.Setenv("DIAGRAMMER_BACKEND_BURST", "not-a-number")

	cfg, err := Load(writeConfig(t, "[backend]\nburst = 4"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://10.0.0.5:9000" {
		t.Errorf("expected env url override, got %q", cfg.Backend.URL)
	}
	if cfg.Cache.IsEnabled() {
		t.Error("expected env to disable cache")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected 2s debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Backend.Burst != 4 {
		t.Errorf("expected invalid env value to be ignored, got burst %d", cfg.Backend.Burst)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("DIAGRAMMER_TEST_ONLY_VALUE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DIAGRAMMER_TEST_ONLY_VALUE", "")
	os.Unsetenv("DIAGRAMMER_TEST_ONLY_VALUE")

	LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath)

	if got := os.Getenv("DIAGRAMMER_TEST_ONLY_VALUE"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}
