package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultBackendURL = "http://127.0.0.1:8000"
	DefaultFileName   = "diagrammer.toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalizeBackend(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}

	if strings.TrimSpace(cfg.Backend.URL) == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	if cfg.Backend.Timeout <= 0 {
		// Analyses clone and parse the whole repository server-side.
		cfg.Backend.Timeout = 5 * time.Minute
	}
	if cfg.Backend.RateLimit <= 0 {
		cfg.Backend.RateLimit = 1
	}
	if cfg.Backend.Burst <= 0 {
		cfg.Backend.Burst = 2
	}
	if cfg.Backend.MaxResponseBytes <= 0 {
		cfg.Backend.MaxResponseBytes = 32 << 20
	}

	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "analyses.db"
	}
	if cfg.Cache.BusyTimeout <= 0 {
		cfg.Cache.BusyTimeout = 5 * time.Second
	}
	if cfg.Cache.Recent <= 0 {
		cfg.Cache.Recent = 20
	}

	if strings.TrimSpace(cfg.Output.DiagramsDir) == "" {
		cfg.Output.DiagramsDir = "docs/diagrams"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"*.json"}
	}

	if cfg.Projection.MemoSize <= 0 {
		cfg.Projection.MemoSize = 64
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "diagrammer"
	}
}

func normalizeBackend(cfg *Config) {
	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	cfg.Backend.OpenAPISpec = strings.TrimSpace(cfg.Backend.OpenAPISpec)
}
