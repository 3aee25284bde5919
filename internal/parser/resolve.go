package parser

import (
	"regexp"
	"strings"

	"github.com/starford/quire/internal/slug"
)

// The embed pattern must run before the link pattern: "![[x]]" contains "[[x]]".
var (
	highlightRe = regexp.MustCompile(`==(.+?)==`)
	embedRe     = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
	wikilinkRe  = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

// Resolve rewrites highlights, embeds and wikilinks in md into plain
// Markdown. Link targets become slug-based ".html" URLs.
func Resolve(md string, preserveUnicode bool) string {
	md = highlightRe.ReplaceAllString(md, "<mark>$1</mark>")

	md = embedRe.ReplaceAllStringFunc(md, func(m string) string {
		display, url := splitReference(embedRe.FindStringSubmatch(m)[1], preserveUnicode)
		return "![" + display + "](" + url + ")"
	})

	return wikilinkRe.ReplaceAllStringFunc(md, func(m string) string {
		display, url := splitReference(wikilinkRe.FindStringSubmatch(m)[1], preserveUnicode)
		return "[" + display + "](" + url + ")"
	})
}

// splitReference handles aliases: "Target|Alias" displays Alias.
func splitReference(inner string, preserveUnicode bool) (display, url string) {
	target, alias, hasAlias := strings.Cut(strings.TrimSpace(inner), "|")
	display = target
	if hasAlias {
		display = alias
	}
	return display, slug.Normalize(target, preserveUnicode) + ".html"
}
