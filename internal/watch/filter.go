// Package watch turns filesystem notifications into debounced rebuilds.
package watch

import (
	"path/filepath"
	"slices"
	"strings"
)

// Filter decides which changed paths can affect the generated site.
type Filter struct {
	VaultRoot string
	ThemesDir string
	// ToolDir holds the build tool's own entry files, ToolFiles their base
	// names. Changes there are always relevant.
	ToolDir   string
	ToolFiles []string
}

// Relevant reports whether a change to path should trigger a rebuild.
func (f Filter) Relevant(path string) bool {
	path = filepath.Clean(path)

	if f.ToolDir != "" && filepath.Dir(path) == filepath.Clean(f.ToolDir) &&
		slices.Contains(f.ToolFiles, filepath.Base(path)) {
		return true
	}

	switch filepath.Ext(path) {
	case ".md":
		rel, ok := within(f.VaultRoot, path)
		return ok && !hidden(rel)
	case ".css":
		rel, ok := within(f.ThemesDir, path)
		return ok && !hidden(rel)
	}
	return false
}

// within returns path relative to root when path lies strictly below it.
func within(root, path string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// hidden reports whether any segment of rel starts with a dot.
func hidden(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
