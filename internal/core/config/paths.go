package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	CacheDB     string
	DiagramsDir string
	HTMLPath    string
	OpenAPISpec string
}

func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := strings.TrimSpace(cfg.Paths.ProjectRoot)
	if projectRoot != "" {
		projectRoot = ResolveRelative(cwd, projectRoot)
	} else {
		projectRoot = DetectProjectRoot(cwd)
	}

	stateDir := ResolveRelative(projectRoot, cfg.Paths.StateDir)

	resolved := ResolvedPaths{
		ProjectRoot: filepath.Clean(projectRoot),
		StateDir:    stateDir,
		CacheDB:     ResolveRelative(stateDir, cfg.Cache.Path),
		DiagramsDir: ResolveRelative(projectRoot, cfg.Output.DiagramsDir),
	}
	if html := strings.TrimSpace(cfg.Output.HTML); html != "" {
		resolved.HTMLPath = ResolveRelative(projectRoot, html)
	}
	if spec := cfg.Backend.OpenAPISpec; spec != "" {
		if isHTTPSource(spec) {
			resolved.OpenAPISpec = spec
		} else {
			resolved.OpenAPISpec = ResolveRelative(projectRoot, spec)
		}
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from start looking for a config file or a VCS
// marker, falling back to start itself.
func DetectProjectRoot(start string) string {
	markers := []string{
		DefaultFileName,
		"data/config/" + DefaultFileName,
		".git",
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return filepath.Clean(start)
	}
	root := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		root = filepath.Dir(abs)
	}

	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
				return filepath.Clean(root)
			}
		}
		parent := filepath.Dir(root)
		if parent == root {
			break
		}
		root = parent
	}
	return filepath.Clean(abs)
}

func isHTTPSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
