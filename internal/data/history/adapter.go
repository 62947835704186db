package history

import (
	"time"

	"diagrammer/internal/core/ports"
	"diagrammer/internal/engine/model"
	"diagrammer/internal/shared/observability"

	"github.com/google/uuid"
)

// Adapter bridges Store to the core ResultCache port.
type Adapter struct {
	store *Store
	now   func() time.Time
}

func NewAdapter(store *Store) *Adapter {
	a := &Adapter{store: store, now: time.Now}
	a.refreshGauge()
	return a
}

// Put caches raw under the result's commit SHA. When raw is empty the result
// is re-encoded.
func (a *Adapter) Put(repoURL string, result *model.AnalysisResult, raw []byte) error {
	if len(raw) == 0 {
		encoded, err := result.Encode()
		if err != nil {
			return err
		}
		raw = encoded
	}

	err := a.store.Save(Record{
		SHA:         result.Repo.SHA,
		RepoName:    result.Repo.Name,
		RepoURL:     repoURL,
		SessionID:   uuid.NewString(),
		FetchedAt:   a.now().UTC(),
		ModuleCount: result.ModuleCount(),
		FileCount:   result.FileCount(),
		Payload:     raw,
	})
	if err != nil {
		return err
	}
	a.refreshGauge()
	return nil
}

func (a *Adapter) Get(sha string) (*model.AnalysisResult, error) {
	rec, err := a.store.Load(sha)
	if err != nil {
		return nil, err
	}
	return model.Decode(rec.Payload)
}

func (a *Adapter) Recent(limit int) ([]ports.CachedAnalysis, error) {
	records, err := a.store.Recent(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ports.CachedAnalysis, 0, len(records))
	for _, rec := range records {
		out = append(out, ports.CachedAnalysis{
			SHA:         rec.SHA,
			RepoName:    rec.RepoName,
			RepoURL:     rec.RepoURL,
			SessionID:   rec.SessionID,
			FetchedAt:   rec.FetchedAt,
			ModuleCount: rec.ModuleCount,
			FileCount:   rec.FileCount,
		})
	}
	return out, nil
}

func (a *Adapter) refreshGauge() {
	if n, err := a.store.Count(); err == nil {
		observability.CacheEntries.Set(float64(n))
	}
}

var _ ports.ResultCache = (*Adapter)(nil)
