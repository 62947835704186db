// Package app wires the analysis source, the local cache, the view controller
// and the renderers into one service used by the CLI and the TUI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"diagrammer/internal/core/config"
	domainerrors "diagrammer/internal/core/errors"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/core/view"
	"diagrammer/internal/core/watcher"
	"diagrammer/internal/data/client"
	"diagrammer/internal/data/contract"
	"diagrammer/internal/data/history"
	"diagrammer/internal/engine/model"
	"diagrammer/internal/shared/observability"
	"diagrammer/internal/ui/report"
)

// Sources recorded in the analyses_loaded metric.
const (
	SourceBackend      = "backend"
	SourceBackendCache = "backend_cache"
	SourceLocalCache   = "local_cache"
	SourceFile         = "file"
)

type App struct {
	Config     *config.Config
	Paths      config.ResolvedPaths
	Controller *view.Controller

	source    ports.AnalysisSource
	cache     ports.ResultCache
	store     *history.Store
	validator *contract.Validator
	renderers report.Multi

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
}

// Dependencies overrides the collaborators New would otherwise build from
// config. Nil fields are built.
type Dependencies struct {
	Source    ports.AnalysisSource
	Cache     ports.ResultCache
	Renderers report.Multi
}

func New(ctx context.Context, cfg *config.Config, paths config.ResolvedPaths, deps Dependencies) (*App, error) {
	validator, err := contract.NewAnalysisValidator(ctx, paths.OpenAPISpec)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "load response contract")
	}

	a := &App{
		Config:    cfg,
		Paths:     paths,
		validator: validator,
		source:    deps.Source,
		cache:     deps.Cache,
		renderers: deps.Renderers,
	}

	if a.source == nil {
		c, err := client.New(client.Options{
			BaseURL:          cfg.Backend.URL,
			Timeout:          cfg.Backend.Timeout,
			RateLimit:        cfg.Backend.RateLimit,
			Burst:            cfg.Backend.Burst,
			MaxResponseBytes: cfg.Backend.MaxResponseBytes,
			Validator:        validator,
		})
		if err != nil {
			return nil, err
		}
		a.source = c
	}

	if a.cache == nil && cfg.Cache.IsEnabled() {
		store, err := history.Open(paths.CacheDB, cfg.Cache.BusyTimeout)
		if err != nil {
			if !history.IsCorruptError(err) {
				return nil, err
			}
			// A damaged cache only costs refetches.
			slog.Warn("local cache unusable, continuing without it", "path", paths.CacheDB, "error", err)
		} else {
			a.store = store
			a.cache = history.NewAdapter(store)
		}
	}

	if a.renderers == nil {
		a.renderers = DefaultRenderers(cfg, paths)
	}

	ctrl, err := view.New(a.renderers, view.Config{
		MemoSize: cfg.Projection.MemoSize,
		Exclude:  cfg.Modules.Exclude,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Controller = ctrl
	return a, nil
}

// DefaultRenderers builds the output renderers enabled in cfg.
func DefaultRenderers(cfg *config.Config, paths config.ResolvedPaths) report.Multi {
	renderers := report.Multi{
		{Name: "files", Renderer: report.NewFileRenderer(paths.DiagramsDir)},
	}
	if paths.HTMLPath != "" {
		renderers = append(renderers, report.Named{Name: "html", Renderer: report.NewHTMLRenderer(paths.HTMLPath)})
	}
	if len(cfg.Output.UpdateMarkdown) > 0 {
		renderers = append(renderers, report.Named{
			Name:     "markdown",
			Renderer: report.NewMarkdownRenderer(paths.ProjectRoot, cfg.Output.UpdateMarkdown),
		})
	}
	return renderers
}

// Analyze fetches a fresh analysis for repoURL and shows it. A failed fetch
// leaves the current view untouched.
func (a *App) Analyze(ctx context.Context, repoURL string) error {
	result, raw, err := a.source.Analyze(ctx, repoURL)
	if err != nil {
		return err
	}
	a.remember(repoURL, result, raw)
	return a.show(ctx, SourceBackend, result)
}

// LoadSHA shows the analysis for sha, preferring the local cache over the
// backend cache.
func (a *App) LoadSHA(ctx context.Context, sha string) error {
	if a.cache != nil {
		result, err := a.cache.Get(sha)
		if err == nil {
			return a.show(ctx, SourceLocalCache, result)
		}
		if !domainerrors.IsCode(err, domainerrors.CodeNotFound) {
			slog.Warn("local cache lookup failed", "sha", sha, "error", err)
		}
	}

	result, raw, err := a.source.Cached(ctx, sha)
	if err != nil {
		return err
	}
	a.remember("", result, raw)
	return a.show(ctx, SourceBackendCache, result)
}

// LoadFile shows an analysis stored as JSON on disk.
func (a *App) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeNotFound, "read analysis file"),
			domainerrors.CtxPath, path,
		)
	}
	if err := a.validator.Validate(data); err != nil {
		observability.ContractViolationsTotal.Inc()
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "analysis file is malformed"),
			domainerrors.CtxPath, path,
		)
	}
	result, err := model.Decode(data)
	if err != nil {
		return domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "analysis file is malformed"),
			domainerrors.CtxPath, path,
		)
	}
	return a.show(ctx, SourceFile, result)
}

// Select zooms the view to module; "" shows the whole repository.
func (a *App) Select(ctx context.Context, module string) error {
	if a.Controller.Result() == nil {
		return domainerrors.New(domainerrors.CodeValidationError, "no analysis loaded")
	}
	return a.Controller.OnModuleSelected(ctx, module)
}

// History lists locally cached analyses, newest first.
func (a *App) History(limit int) ([]ports.CachedAnalysis, error) {
	if a.cache == nil {
		return nil, domainerrors.New(domainerrors.CodeUnavailable, "local cache is disabled")
	}
	return a.cache.Recent(limit)
}

func (a *App) show(ctx context.Context, source string, result *model.AnalysisResult) error {
	observability.AnalysesLoadedTotal.WithLabelValues(source).Inc()
	slog.Info("showing analysis", "source", source, "repo", result.Repo.Name, "sha", result.Repo.SHA, "modules", result.ModuleCount())
	for _, notice := range result.Notices {
		slog.Info("backend notice", "notice", notice)
	}
	return a.Controller.OnAnalysisReceived(ctx, result)
}

func (a *App) remember(repoURL string, result *model.AnalysisResult, raw []byte) {
	if a.cache == nil || result.Repo.SHA == "" {
		return
	}
	if err := a.cache.Put(repoURL, result, raw); err != nil {
		slog.Warn("failed to cache analysis", "sha", result.Repo.SHA, "error", err)
	}
}

func (a *App) Close() error {
	a.watchMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.watchMu.Unlock()

	var firstErr error
	if w != nil {
		if err := w.Close(); err != nil {
			firstErr = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close cache: %w", err)
		}
	}
	return firstErr
}
