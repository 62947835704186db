package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RootModule names the repository root in the module listing.
const RootModule = "."

// AnalysisResult is one complete analysis payload as returned by the backend.
// It is treated as immutable once decoded.
type AnalysisResult struct {
	Repo      RepoMeta            `json:"repo"`
	Summaries Summaries           `json:"summaries"`
	Limits    Limits              `json:"limits"`
	Diagrams  Diagrams            `json:"diagrams"`
	Modules   map[string][]string `json:"modules,omitempty"`
	Notices   []string            `json:"notices,omitempty"`
}

type RepoMeta struct {
	Name          string             `json:"name"`
	DefaultBranch string             `json:"default_branch"`
	SHA           string             `json:"sha"`
	Languages     map[string]float64 `json:"languages,omitempty"`
}

type Summaries struct {
	HighLevel    []string      `json:"high_level,omitempty"`
	FocusModules []FocusModule `json:"focus_modules,omitempty"`
}

type FocusModule struct {
	Module string `json:"module"`
	Why    string `json:"why"`
	Notes  string `json:"notes"`
}

// Limits is informational; nothing client-side enforces it.
type Limits struct {
	FileCountScanned   int `json:"file_count_scanned"`
	FilesSampledForLLM int `json:"files_sampled_for_llm,omitempty"`
	MaxNodes           int `json:"max_nodes"`
}

// Diagrams holds the four diagram sources of an analysis.
type Diagrams struct {
	C4           DiagramText `json:"c4_modules_mermaid"`
	Dependencies DiagramText `json:"dependencies_mermaid"`
	Routes       DiagramText `json:"routes_mermaid"`
	DB           DiagramText `json:"db_mermaid"`
}

// Decode parses a backend payload. A missing modules mapping decodes to an
// empty map.
func Decode(data []byte) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	if result.Modules == nil {
		result.Modules = map[string][]string{}
	}
	if result.Repo.Languages == nil {
		result.Repo.Languages = map[string]float64{}
	}
	return &result, nil
}

// Encode renders the result as indented JSON for the raw view and the cache.
func (r *AnalysisResult) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// LanguageSummary formats languages as "lang: pct%" pairs sorted by name.
func (r RepoMeta) LanguageSummary() string {
	names := make([]string, 0, len(r.Languages))
	for name := range r.Languages {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		pct := strconv.FormatFloat(r.Languages[name], 'f', -1, 64)
		parts = append(parts, fmt.Sprintf("%s: %s%%", name, pct))
	}
	return strings.Join(parts, ", ")
}

// IsRoot reports whether name denotes the repository root.
func IsRoot(name string) bool {
	return name == "" || name == RootModule
}
