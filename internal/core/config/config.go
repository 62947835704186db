package config

import "time"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Backend       Backend       `toml:"backend"`
	Cache         Cache         `toml:"cache"`
	Output        Output        `toml:"output"`
	Watch         Watch         `toml:"watch"`
	Modules       Modules       `toml:"modules"`
	Projection    Projection    `toml:"projection"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

type Backend struct {
	URL              string        `toml:"url"`
	Timeout          time.Duration `toml:"timeout"`
	RateLimit        float64       `toml:"rate_limit"` // requests per second
	Burst            int           `toml:"burst"`
	MaxResponseBytes int64         `toml:"max_response_bytes"`
	OpenAPISpec      string        `toml:"openapi_spec"` // optional override of the embedded contract
}

type Cache struct {
	Enabled     *bool         `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	Recent      int           `toml:"recent"`
}

type Output struct {
	DiagramsDir    string              `toml:"diagrams_dir"`
	HTML           string              `toml:"html"`
	UpdateMarkdown []MarkdownInjection `toml:"update_markdown"`
}

// MarkdownInjection replaces the block between
// <!-- diagrammer:<marker>:start --> and <!-- diagrammer:<marker>:end -->
// with one of the rendered diagrams.
type MarkdownInjection struct {
	File    string `toml:"file"`
	Marker  string `toml:"marker"`
	Diagram string `toml:"diagram"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Patterns []string      `toml:"patterns"`
}

type Modules struct {
	Exclude []string `toml:"exclude"` // glob patterns hidden from the selector
}

type Projection struct {
	MemoSize int `toml:"memo_size"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	ServiceName   string `toml:"service_name"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

func (c Cache) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// Diagram names accepted by output.update_markdown.
const (
	DiagramC4           = "c4"
	DiagramDependencies = "dependencies"
	DiagramRoutes       = "routes"
	DiagramDB           = "db"
	DiagramSummary      = "summary"
)

// DefaultConfig returns a fully defaulted configuration without reading a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
