package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// ThemeExt is the extension of theme stylesheets.
const ThemeExt = ".css"

// Themes locates theme stylesheets in a directory.
type Themes struct {
	Dir     string
	Default string
}

// List returns the names of all themes in the directory, sorted. A missing
// directory yields an empty list.
func (t Themes) List() ([]string, error) {
	entries, err := os.ReadDir(t.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("site: list themes: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ThemeExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ThemeExt))
	}
	sort.Strings(names)
	return names, nil
}

// Has reports whether the named theme exists.
func (t Themes) Has(name string) bool {
	info, err := os.Stat(t.path(name))
	return err == nil && !info.IsDir()
}

// Resolve returns the stylesheet path for name, falling back to the default
// theme. It returns the theme actually used.
func (t Themes) Resolve(name string) (string, string, error) {
	if name != "" && t.Has(name) {
		return t.path(name), name, nil
	}
	if t.Default != "" && t.Has(t.Default) {
		return t.path(t.Default), t.Default, nil
	}
	return "", "", fmt.Errorf("%w: %q (default %q missing in %s)", apperr.ErrThemeNotFound, name, t.Default, t.Dir)
}

func (t Themes) path(name string) string {
	return filepath.Join(t.Dir, name+ThemeExt)
}
