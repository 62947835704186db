package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/shared/observability"
)

// Named tags a renderer for metrics and error messages.
type Named struct {
	Name     string
	Renderer ports.Renderer
}

// Multi fans a frame out to several renderers. Every renderer runs even when
// an earlier one fails; the failures are joined.
type Multi []Named

func (m Multi) Render(ctx context.Context, f ports.Frame) error {
	ctx, span := observability.Tracer.Start(ctx, "report.Render")
	defer span.End()

	var errs []error
	for _, n := range m {
		if err := n.Renderer.Render(ctx, f); err != nil {
			observability.RenderErrorsTotal.WithLabelValues(n.Name).Inc()
			slog.Warn("renderer failed", "renderer", n.Name, "module", f.Selection, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
