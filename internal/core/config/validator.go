package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateBackend(cfg *Config) error {
	raw := strings.TrimSpace(cfg.Backend.URL)
	if raw == "" {
		return fmt.Errorf("backend.url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend.url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.url %q has no host", raw)
	}
	if cfg.Backend.Burst < 1 {
		return fmt.Errorf("backend.burst must be >= 1, got %d", cfg.Backend.Burst)
	}
	return nil
}

func validateCache(cfg *Config) error {
	if !cfg.Cache.IsEnabled() {
		return nil
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		return fmt.Errorf("cache.path must not be empty")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.DiagramsDir) == "" {
		return fmt.Errorf("output.diagrams_dir must not be empty")
	}

	seen := make(map[string]bool, len(cfg.Output.UpdateMarkdown))
	for i, injection := range cfg.Output.UpdateMarkdown {
		ref := fmt.Sprintf("output.update_markdown[%d]", i)
		file := strings.TrimSpace(injection.File)
		if file == "" {
			return fmt.Errorf("%s.file must not be empty", ref)
		}
		marker := strings.TrimSpace(injection.Marker)
		if marker == "" {
			return fmt.Errorf("%s.marker must not be empty", ref)
		}
		diagram := strings.ToLower(strings.TrimSpace(injection.Diagram))
		switch diagram {
		case DiagramC4, DiagramDependencies, DiagramRoutes, DiagramDB, DiagramSummary:
		default:
			return fmt.Errorf("%s.diagram must be one of: c4, dependencies, routes, db, summary", ref)
		}
		key := file + "|" + marker
		if seen[key] {
			return fmt.Errorf("duplicate markdown injection target: file=%q marker=%q", file, marker)
		}
		seen[key] = true
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for i, pattern := range cfg.Watch.Patterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.patterns[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateModules(cfg *Config) error {
	for i, pattern := range cfg.Modules.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("modules.exclude[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("modules.exclude[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if !obs.Enabled {
		return nil
	}
	if obs.Port <= 0 || obs.Port > 65535 {
		return fmt.Errorf("observability.port must be in 1..65535, got %d", obs.Port)
	}
	if obs.EnableTracing && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when enable_tracing=true")
	}
	return nil
}

// Validate returns every configuration problem found, in section order.
func Validate(cfg *Config) []error {
	var errs []error

	checks := []func(*Config) error{
		validateVersion,
		validateBackend,
		validateCache,
		validateOutput,
		validateWatch,
		validateModules,
		validateObservability,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
