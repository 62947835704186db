package app

import (
	"context"
	"fmt"
	"time"

	"diagrammer/internal/shared/observability"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.app.source.Health(ctx); err != nil {
		status.Status = "degraded"
		status.Components["backend"] = err.Error()
	} else {
		status.Components["backend"] = "ok"
	}

	switch {
	case s.app.store != nil:
		if n, err := s.app.store.Count(); err != nil {
			status.Status = "degraded"
			status.Components["cache"] = err.Error()
		} else {
			status.Components["cache"] = fmt.Sprintf("ok (%d analyses)", n)
		}
	case s.app.cache != nil:
		status.Components["cache"] = "ok"
	case s.app.Config.Cache.IsEnabled():
		status.Status = "degraded"
		status.Components["cache"] = "missing but enabled in config"
	default:
		status.Components["cache"] = "disabled"
	}

	if result := s.app.Controller.Result(); result != nil {
		status.Components["view"] = fmt.Sprintf("ok (%s @ %s, selection %q)", result.Repo.Name, result.Repo.SHA, s.app.Controller.Selection())
	} else {
		status.Components["view"] = "idle"
	}
	return status
}
