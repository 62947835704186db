package ports

import (
	"context"
	"time"

	"diagrammer/internal/engine/model"
)

// Frame is everything a renderer needs to draw one selection.
type Frame struct {
	// Selection is "" for the whole repository, otherwise a module name.
	Selection string
	Diagrams  model.Diagrams
	Result    *model.AnalysisResult
}

// Scoped reports whether the frame shows a single module.
func (f Frame) Scoped() bool {
	return f.Selection != ""
}

// Renderer draws the four diagrams of a frame. Implementations must not
// retain or mutate f.Result.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, f Frame) error

func (fn RendererFunc) Render(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// AnalysisSource produces analysis results from the backend.
type AnalysisSource interface {
	Analyze(ctx context.Context, repoURL string) (*model.AnalysisResult, []byte, error)
	Cached(ctx context.Context, sha string) (*model.AnalysisResult, []byte, error)
	Health(ctx context.Context) error
}

// CachedAnalysis describes one locally cached result without its payload.
type CachedAnalysis struct {
	SHA         string
	RepoName    string
	RepoURL     string
	SessionID   string
	FetchedAt   time.Time
	ModuleCount int
	FileCount   int
}

// ResultCache persists analysis results keyed by commit SHA.
type ResultCache interface {
	Put(repoURL string, result *model.AnalysisResult, raw []byte) error
	Get(sha string) (*model.AnalysisResult, error)
	Recent(limit int) ([]CachedAnalysis, error)
}
