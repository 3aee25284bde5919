// Package models defines the domain types shared by the build pipeline.
package models

import "time"

// RootGroup is the group of documents that live directly in the vault root.
const RootGroup = "."

// SourceDocument is a Markdown file read from the vault for one build pass.
type SourceDocument struct {
	Path  string // absolute path on disk
	Rel   string // vault-relative, slash separated
	Stem  string // file name without extension
	Group string // vault-relative directory, RootGroup for the vault root
	Raw   []byte
}

// Asset is a non-document vault file copied verbatim into the output.
type Asset struct {
	Path string
	Rel  string
}

// Layout selects where a page is written in the output tree.
type Layout int

const (
	// LayoutNested writes <slug>/index.html.
	LayoutNested Layout = iota
	// LayoutRoot writes index.html at the output root.
	LayoutRoot
)

// Depth is the number of directories between the page and the output root.
func (l Layout) Depth() int {
	if l == LayoutRoot {
		return 0
	}
	return 1
}

// String returns the layout name.
func (l Layout) String() string {
	if l == LayoutRoot {
		return "root"
	}
	return "nested"
}

// Page is a classified document ready to be emitted.
type Page struct {
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Group        string          `json:"group"`
	IsGroupIndex bool            `json:"is_group_index"`
	IsHome       bool            `json:"is_home"`
	Hidden       bool            `json:"hidden"`
	Layout       Layout          `json:"-"`
	Source       *SourceDocument `json:"-"`
	Body         []byte          `json:"-"`
}

// OutputPath returns the page's file path relative to the output root.
func (p *Page) OutputPath() string {
	if p.Layout == LayoutRoot {
		return "index.html"
	}
	return p.Slug + "/index.html"
}

// NavLink is a single navigation target.
type NavLink struct {
	Title string
	Href  string
}

// NavGroup is a collapsible navigation entry for one vault directory.
// Index is nil when the directory has no group index page.
type NavGroup struct {
	Label string
	Index *NavLink
	Items []NavLink
}

// NavEntry is either a flat Link or a Group.
type NavEntry struct {
	Link  *NavLink
	Group *NavGroup
}

// NavTree is the sitewide navigation. Hrefs are relative to the output
// root; renderers prefix them for deeper pages.
type NavTree struct {
	Home    NavLink
	Entries []NavEntry
}

// Snapshot describes the result of one complete build pass.
type Snapshot struct {
	OutputDir string        `json:"output_dir"`
	Theme     string        `json:"theme"`
	Pages     []*Page       `json:"pages"`
	Home      *Page         `json:"home,omitempty"`
	Nav       NavTree       `json:"-"`
	Assets    int           `json:"assets"`
	Duration  time.Duration `json:"duration"`
}
