package site

import (
	"bytes"
	"fmt"
	"html/template"
	"path"
	"sort"
	"strings"

	"github.com/starford/quire/internal/models"
)

// DefaultHomeTitle labels the home link when the vault has no root index.
const DefaultHomeTitle = "Home"

// BuildNav groups visible pages by directory. The root group comes first as
// flat links; every other directory becomes one group entry.
func BuildNav(pages []*models.Page, home *models.Page) models.NavTree {
	tree := models.NavTree{
		Home: models.NavLink{Title: DefaultHomeTitle, Href: "index.html"},
	}
	if home != nil {
		tree.Home.Title = home.Title
	}

	groups := make(map[string][]*models.Page)
	for _, p := range pages {
		if p.Hidden || p.IsHome {
			continue
		}
		groups[p.Group] = append(groups[p.Group], p)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := names[i] == models.RootGroup, names[j] == models.RootGroup
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		members := groups[name]
		if name == models.RootGroup {
			sort.SliceStable(members, func(i, j int) bool {
				a, b := members[i], members[j]
				if a.IsGroupIndex != b.IsGroupIndex {
					return a.IsGroupIndex
				}
				return lessPage(a, b)
			})
			for _, p := range members {
				link := pageLink(p)
				tree.Entries = append(tree.Entries, models.NavEntry{Link: &link})
			}
			continue
		}
		tree.Entries = append(tree.Entries, models.NavEntry{Group: buildGroup(name, members)})
	}
	return tree
}

func buildGroup(name string, members []*models.Page) *models.NavGroup {
	group := &models.NavGroup{Label: path.Base(name)}
	var rest []*models.Page
	for _, p := range members {
		if p.IsGroupIndex && group.Index == nil {
			link := pageLink(p)
			group.Index = &link
			continue
		}
		rest = append(rest, p)
	}
	sort.SliceStable(rest, func(i, j int) bool { return lessPage(rest[i], rest[j]) })

	if group.Index != nil {
		group.Items = append(group.Items, *group.Index)
	}
	for _, p := range rest {
		group.Items = append(group.Items, pageLink(p))
	}
	return group
}

func lessPage(a, b *models.Page) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.Slug < b.Slug
}

// pageLink returns the clean URL of a page relative to the output root.
func pageLink(p *models.Page) models.NavLink {
	if p.Layout == models.LayoutRoot {
		return models.NavLink{Title: p.Title, Href: "index.html"}
	}
	return models.NavLink{Title: p.Title, Href: p.Slug + "/"}
}

// Prefix returns the relative path from a page at depth back to the output root.
func Prefix(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("../", depth)
}

type navData struct {
	Prefix string
	Tree   models.NavTree
}

// RenderNav renders tree as markup for a page at the given output depth.
func RenderNav(tree models.NavTree, depth int) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "nav", navData{Prefix: Prefix(depth), Tree: tree}); err != nil {
		return "", fmt.Errorf("site: render nav: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

// Navigation builds and renders the navigation for a page at depth.
func Navigation(pages []*models.Page, home *models.Page, depth int) (template.HTML, error) {
	return RenderNav(BuildNav(pages, home), depth)
}
