package model

import "sort"

// ListModules returns the selectable module names: every key except the root,
// sorted ascending.
func ListModules(modules map[string][]string) []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		if IsRoot(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilesOf returns a copy of the file list stored for name. Unknown modules
// yield an empty slice.
func FilesOf(modules map[string][]string, name string) []string {
	files, ok := modules[name]
	if !ok {
		return []string{}
	}
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// ModuleCount counts selectable modules.
func (r *AnalysisResult) ModuleCount() int {
	return len(ListModules(r.Modules))
}

// FileCount counts files across every module, root included.
func (r *AnalysisResult) FileCount() int {
	total := 0
	for _, files := range r.Modules {
		total += len(files)
	}
	return total
}
