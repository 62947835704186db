package app

import (
	"context"
	"log/slog"

	domainerrors "diagrammer/internal/core/errors"
	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
)

// ExportAll renders the whole-repository frame and one scoped frame per
// selectable module, without changing the current selection. It returns the
// number of frames rendered.
func (a *App) ExportAll(ctx context.Context) (int, error) {
	result := a.Controller.Result()
	if result == nil {
		return 0, domainerrors.New(domainerrors.CodeValidationError, "no analysis loaded")
	}

	frames := 0
	if err := a.renderers.Render(ctx, ports.Frame{Diagrams: result.Diagrams, Result: result}); err != nil {
		return frames, err
	}
	frames++

	for _, opt := range a.Controller.Options() {
		if opt.Value == "" {
			continue
		}
		frame := ports.Frame{Selection: opt.Value, Diagrams: a.Controller.Scoped(opt.Value), Result: result}
		if err := a.renderers.Render(ctx, frame); err != nil {
			return frames, domainerrors.AddContext(err, "module", opt.Value)
		}
		frames++
	}
	slog.Info("exported diagrams", "frames", frames, "modules", len(model.ListModules(result.Modules)))
	return frames, nil
}
