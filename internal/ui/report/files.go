package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path/filepath"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
	"diagrammer/internal/shared/util"
)

// FileRenderer writes one .mmd file per diagram. Whole-repository frames go
// to Dir, scoped frames to Dir/modules/<module id>-<name hash>.
type FileRenderer struct {
	Dir string
}

func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{Dir: dir}
}

func (r *FileRenderer) Render(_ context.Context, f ports.Frame) error {
	dir := r.DirFor(f.Selection)
	for _, d := range diagramFiles {
		path := filepath.Join(dir, d.file)
		if err := util.WriteFileAtomic(path, []byte(d.pick(f.Diagrams).String()+"\n"), 0o644); err != nil {
			return err
		}
	}
	slog.Debug("diagram files written", "dir", dir, "module", f.Selection)
	return nil
}

// DirFor returns the directory a selection is written to.
func (r *FileRenderer) DirFor(selection string) string {
	if selection == "" {
		return r.Dir
	}
	id := model.SanitizeID(selection)
	if id == "" {
		id = "root"
	}
	// Sanitizing folds "api/v1", "api.v1" and "api_v1" together; the hash
	// of the raw name keeps their directories apart.
	sum := sha256.Sum256([]byte(selection))
	return filepath.Join(r.Dir, "modules", id+"-"+hex.EncodeToString(sum[:4]))
}
