// Package site turns vault documents into a static website: it classifies
// pages, synthesizes navigation and writes the output tree.
package site

import (
	"path"
	"sort"
	"strings"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/slug"
)

// Document is a vault document after rendering, before classification.
type Document struct {
	Source *models.SourceDocument
	Title  string // declared title, empty when none
	Body   []byte
}

// ClassifyOptions configures page classification.
type ClassifyOptions struct {
	HiddenPrefix    string
	ExcludeDir      string
	PreserveUnicode bool
}

// Classification is the page set of one build pass.
type Classification struct {
	Pages []*models.Page
	// Home is the root index page, nil when the vault has none.
	Home *models.Page
	// Shadowed holds earlier root-index candidates replaced by Home.
	Shadowed []*models.Page
	// Degenerate holds pages whose slug normalized to the empty string.
	Degenerate []*models.Page
}

// Classify assigns slugs, groups, layouts and index flags. Documents are
// processed in order of their vault-relative path, so every "last one wins"
// rule is deterministic.
func Classify(vaultName string, docs []Document, opts ClassifyOptions) Classification {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Source.Rel < sorted[j].Source.Rel
	})

	var c Classification
	for _, doc := range sorted {
		src := doc.Source
		if excluded(src.Group, opts.ExcludeDir) {
			continue
		}

		page := &models.Page{
			Title:  doc.Title,
			Source: src,
			Body:   doc.Body,
			Hidden: opts.HiddenPrefix != "" && strings.HasPrefix(src.Stem, opts.HiddenPrefix),
		}
		if page.Title == "" {
			page.Title = src.Stem
		}

		if strings.EqualFold(src.Stem, vaultName) {
			page.IsHome = true
			page.IsGroupIndex = true
			page.Group = models.RootGroup
			page.Layout = models.LayoutRoot
			if c.Home != nil {
				c.Shadowed = append(c.Shadowed, c.Home)
				c.Pages = removePage(c.Pages, c.Home)
			}
			c.Home = page
			c.Pages = append(c.Pages, page)
			continue
		}

		page.Slug = slug.Normalize(src.Stem, opts.PreserveUnicode)
		page.Group = src.Group
		page.Layout = models.LayoutNested
		page.IsGroupIndex = src.Group != models.RootGroup && strings.EqualFold(src.Stem, path.Base(src.Group))
		if page.Slug == "" {
			c.Degenerate = append(c.Degenerate, page)
			continue
		}
		c.Pages = append(c.Pages, page)
	}
	return c
}

// excluded reports whether any segment of group equals dir.
func excluded(group, dir string) bool {
	if dir == "" || group == models.RootGroup {
		return false
	}
	for _, seg := range strings.Split(group, "/") {
		if seg == dir {
			return true
		}
	}
	return false
}

func removePage(pages []*models.Page, target *models.Page) []*models.Page {
	out := pages[:0]
	for _, p := range pages {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}
