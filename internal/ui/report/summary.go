package report

import (
	"fmt"
	"strings"

	"diagrammer/internal/engine/model"
)

// Summary is the human-readable digest of an analysis shown next to the
// diagrams.
type Summary struct {
	Repo      string
	Branch    string
	SHA       string
	Languages string
	HighLevel []string
	Focus     []string
	Limits    string
	Notices   []string
}

func BuildSummary(r *model.AnalysisResult) Summary {
	if r == nil {
		return Summary{}
	}

	focus := make([]string, 0, len(r.Summaries.FocusModules))
	for _, fm := range r.Summaries.FocusModules {
		focus = append(focus, FocusLine(fm))
	}

	return Summary{
		Repo:      r.Repo.Name,
		Branch:    r.Repo.DefaultBranch,
		SHA:       r.Repo.SHA,
		Languages: r.Repo.LanguageSummary(),
		HighLevel: append([]string(nil), r.Summaries.HighLevel...),
		Focus:     focus,
		Limits:    LimitsLine(r.Limits),
		Notices:   append([]string(nil), r.Notices...),
	}
}

// FocusLine renders "module (why) - notes", dropping the parts that are empty.
func FocusLine(fm model.FocusModule) string {
	line := fm.Module
	if why := strings.TrimSpace(fm.Why); why != "" {
		line += " (" + why + ")"
	}
	if notes := strings.TrimSpace(fm.Notes); notes != "" {
		line += " - " + notes
	}
	return line
}

func LimitsLine(l model.Limits) string {
	line := fmt.Sprintf("Files scanned %d, nodes capped at %d", l.FileCountScanned, l.MaxNodes)
	if l.FilesSampledForLLM > 0 {
		line += fmt.Sprintf(", %d files sampled for summaries", l.FilesSampledForLLM)
	}
	return line
}

// Markdown renders the summary as a markdown fragment.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("## " + nonEmpty(s.Repo, "unknown repository") + "\n\n")
	b.WriteString("- Default branch: " + s.Branch + "\n")
	b.WriteString("- SHA: " + s.SHA + "\n")
	b.WriteString("- Languages: " + s.Languages + "\n\n")

	b.WriteString("### Explain Like I'm New\n\n")
	writeList(&b, s.HighLevel)

	b.WriteString("### Focus Modules\n\n")
	writeList(&b, s.Focus)

	b.WriteString("**Limits:** " + s.Limits + "\n")

	if len(s.Notices) > 0 {
		b.WriteString("\n### Notices\n\n")
		writeList(&b, s.Notices)
	}
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("_None._\n\n")
		return
	}
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
