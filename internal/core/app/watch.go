package app

import (
	"context"
	"log/slog"
	"os"

	"diagrammer/internal/core/watcher"
)

// StartWatcher reloads the analysis whenever a watched result file changes.
// onReload runs after every reload attempt, with its error.
func (a *App) StartWatcher(ctx context.Context, targets []string, onReload func(error)) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Watch.Patterns,
		func(paths []string) {
			latest := newestPath(paths)
			err := a.LoadFile(ctx, latest)
			if err != nil {
				slog.Warn("reload failed", "path", latest, "error", err)
			} else {
				slog.Info("analysis reloaded", "path", latest)
			}
			if onReload != nil {
				onReload(err)
			}
		},
	)
	if err != nil {
		return err
	}
	if err := w.Watch(targets); err != nil {
		_ = w.Close()
		return err
	}

	a.watchMu.Lock()
	prev := a.activeWatcher
	a.activeWatcher = w
	a.watchMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// newestPath picks the most recently modified file of a batch; the others
// are superseded by it.
func newestPath(paths []string) string {
	latest := paths[len(paths)-1]
	var latestMod int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod >= latestMod {
			latest, latestMod = path, mod
		}
	}
	return latest
}
