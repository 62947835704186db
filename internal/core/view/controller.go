// Package view owns the module selection state and turns selection events
// into rendered frames.
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
	"diagrammer/internal/engine/projection"
	"diagrammer/internal/shared/observability"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AllModulesLabel is the selector entry that shows the whole repository.
const AllModulesLabel = "All modules"

// Option is one selector entry. Value "" means all modules.
type Option struct {
	Label string
	Value string
}

type Config struct {
	// MemoSize bounds the per-analysis cache of scoped diagrams. Zero disables it.
	MemoSize int
	// Exclude hides matching module names from Options. Selection is unaffected.
	Exclude []string
}

// Controller holds the current analysis and selection. All methods are safe
// for concurrent use; when events race, the last one wins.
type Controller struct {
	renderer ports.Renderer

	mu        sync.Mutex
	result    *model.AnalysisResult
	selection string
	options   []Option
	current   model.Diagrams
	seq       uint64
	memo      *lru.Cache[string, model.Diagrams]
	exclude   []glob.Glob

	renderMu sync.Mutex
}

func New(renderer ports.Renderer, cfg Config) (*Controller, error) {
	c := &Controller{renderer: renderer}

	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile module exclude %q: %w", pattern, err)
		}
		c.exclude = append(c.exclude, g)
	}

	if cfg.MemoSize > 0 {
		memo, err := lru.New[string, model.Diagrams](cfg.MemoSize)
		if err != nil {
			return nil, fmt.Errorf("create projection memo: %w", err)
		}
		c.memo = memo
	}
	return c, nil
}

// OnAnalysisReceived replaces the analysis, resets the selection to all
// modules and renders the unscoped diagrams.
func (c *Controller) OnAnalysisReceived(ctx context.Context, result *model.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("analysis result must not be nil")
	}

	c.mu.Lock()
	c.result = result
	c.selection = ""
	c.options = c.buildOptions(result)
	if c.memo != nil {
		c.memo.Purge()
	}
	c.mu.Unlock()

	slog.Debug("analysis received", "repo", result.Repo.Name, "sha", result.Repo.SHA, "modules", result.ModuleCount())
	return c.OnModuleSelected(ctx, "")
}

// OnModuleSelected scopes the four diagrams to name, or restores the
// received diagrams for "". Events before the first analysis are ignored.
func (c *Controller) OnModuleSelected(ctx context.Context, name string) error {
	ctx, span := observability.Tracer.Start(ctx, "view.OnModuleSelected",
		trace.WithAttributes(attribute.String("module", name)))
	defer span.End()

	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return nil
	}
	c.selection = name
	c.current = c.scopedLocked(name)
	c.seq++
	seq := c.seq
	frame := ports.Frame{Selection: name, Diagrams: c.current, Result: c.result}
	c.mu.Unlock()

	observability.SelectionChangesTotal.Inc()
	return c.render(ctx, seq, frame)
}

func (c *Controller) render(ctx context.Context, seq uint64, frame ports.Frame) error {
	if c.renderer == nil {
		return nil
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	stale := seq != c.seq
	c.mu.Unlock()
	if stale {
		return nil
	}
	return c.renderer.Render(ctx, frame)
}

// Scoped projects the diagrams for name without touching the selection.
func (c *Controller) Scoped(name string) model.Diagrams {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.Diagrams{}
	}
	return c.scopedLocked(name)
}

func (c *Controller) scopedLocked(name string) model.Diagrams {
	if name == "" {
		return c.result.Diagrams
	}
	if c.memo != nil {
		if d, ok := c.memo.Get(name); ok {
			observability.ProjectionMemoHitsTotal.Inc()
			return d
		}
	}

	start := time.Now()
	d := projection.Project(c.result, name)
	observability.ProjectionDuration.Observe(time.Since(start).Seconds())

	if c.memo != nil {
		c.memo.Add(name, d)
	}
	return d
}

func (c *Controller) buildOptions(result *model.AnalysisResult) []Option {
	names := model.ListModules(result.Modules)
	options := make([]Option, 0, len(names)+1)
	options = append(options, Option{Label: AllModulesLabel, Value: ""})
	for _, name := range names {
		if c.excluded(name) {
			continue
		}
		options = append(options, Option{Label: name, Value: name})
	}
	return options
}

func (c *Controller) excluded(name string) bool {
	for _, g := range c.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (c *Controller) Selection() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Options returns a copy of the selector entries, "All modules" first.
func (c *Controller) Options() []Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Current returns the frame for the active selection. Result is nil before
// the first analysis.
func (c *Controller) Current() ports.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.Frame{Selection: c.selection, Diagrams: c.current, Result: c.result}
}

func (c *Controller) Result() *model.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}
