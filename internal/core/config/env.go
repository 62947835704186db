package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads KEY=VALUE pairs from .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("failed to load env file", "path", path, "error", err)
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DIAGRAMMER_[SECTION]_[KEY] (e.g., DIAGRAMMER_BACKEND_URL).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "DIAGRAMMER_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "DIAGRAMMER_PATHS_STATE_DIR")

	// Backend
	setEnvString(&cfg.Backend.URL, "DIAGRAMMER_BACKEND_URL")
	setEnvDuration(&cfg.Backend.Timeout, "DIAGRAMMER_BACKEND_TIMEOUT")
	setEnvFloat64(&cfg.Backend.RateLimit, "DIAGRAMMER_BACKEND_RATE_LIMIT")
	setEnvInt(&cfg.Backend.Burst, "DIAGRAMMER_BACKEND_BURST")
	setEnvString(&cfg.Backend.OpenAPISpec, "DIAGRAMMER_BACKEND_OPENAPI_SPEC")

	// Cache
	setEnvBoolPtr(&cfg.Cache.Enabled, "DIAGRAMMER_CACHE_ENABLED")
	setEnvString(&cfg.Cache.Path, "DIAGRAMMER_CACHE_PATH")
	setEnvDuration(&cfg.Cache.BusyTimeout, "DIAGRAMMER_CACHE_BUSY_TIMEOUT")

	// Output
	setEnvString(&cfg.Output.DiagramsDir, "DIAGRAMMER_OUTPUT_DIAGRAMS_DIR")
	setEnvString(&cfg.Output.HTML, "DIAGRAMMER_OUTPUT_HTML")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DIAGRAMMER_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "DIAGRAMMER_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "DIAGRAMMER_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DIAGRAMMER_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "DIAGRAMMER_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "DIAGRAMMER_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
