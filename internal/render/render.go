// Package render converts Markdown to HTML with a configurable set of goldmark extensions.
package render

import (
	"bytes"
	"fmt"
	"sort"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Extension names accepted in the render configuration.
const (
	ExtTables         = "tables"
	ExtFootnotes      = "footnotes"
	ExtFencedCode     = "fenced_code"
	ExtCodeHilite     = "codehilite"
	ExtTOC            = "toc"
	ExtMeta           = "meta"
	ExtStrikethrough  = "strikethrough"
	ExtTaskList       = "tasklist"
	ExtLinkify        = "linkify"
	ExtDefinitionList = "definition_list"
)

// DefaultExtensions mirrors the classic Markdown setup for published vaults.
var DefaultExtensions = []string{ExtTOC, ExtFootnotes, ExtTables, ExtFencedCode, ExtCodeHilite, ExtMeta}

type option struct {
	extender  goldmark.Extender
	parserOpt parser.Option
}

var known = map[string]option{
	ExtTables:         {extender: extension.Table},
	ExtFootnotes:      {extender: extension.Footnote},
	ExtFencedCode:     {}, // part of CommonMark
	ExtMeta:           {}, // frontmatter is split before rendering
	ExtTOC:            {parserOpt: parser.WithAutoHeadingID()},
	ExtStrikethrough:  {extender: extension.Strikethrough},
	ExtTaskList:       {extender: extension.TaskList},
	ExtLinkify:        {extender: extension.Linkify},
	ExtDefinitionList: {extender: extension.DefinitionList},
	ExtCodeHilite: {extender: highlighting.NewHighlighting(
		highlighting.WithStyle("github"),
		highlighting.WithGuessLanguage(false),
		highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
	)},
}

// Names returns every supported extension name, sorted.
func Names() []string {
	out := make([]string, 0, len(known))
	for name := range known {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Renderer turns Markdown into HTML. The underlying goldmark instance is
// configured once and never mutated, so a Renderer is safe for concurrent use;
// every Render call gets its own parse context.
type Renderer struct {
	md   goldmark.Markdown
	meta bool
}

// New builds a Renderer with the named extensions enabled.
func New(extensions []string) (*Renderer, error) {
	var (
		extenders []goldmark.Extender
		parserOps []parser.Option
		meta      bool
	)
	seen := make(map[string]struct{}, len(extensions))
	for _, name := range extensions {
		opt, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("render: unknown extension %q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if name == ExtMeta {
			meta = true
		}
		if opt.extender != nil {
			extenders = append(extenders, opt.extender)
		}
		if opt.parserOpt != nil {
			parserOps = append(parserOps, opt.parserOpt)
		}
	}

	md := goldmark.New(
		goldmark.WithExtensions(extenders...),
		goldmark.WithParserOptions(parserOps...),
		// Highlight spans are emitted as raw HTML by the link resolver.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md, meta: meta}, nil
}

// Meta reports whether frontmatter should be split from documents.
func (r *Renderer) Meta() bool {
	return r.meta
}

// Render converts Markdown source to HTML.
func (r *Renderer) Render(src string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("render: convert: %w", err)
	}
	return buf.Bytes(), nil
}
