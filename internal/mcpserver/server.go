// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault publishing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/slug"
	"github.com/starford/quire/internal/storage"
)

const conventionsURI = "quire://conventions"

// Server wraps the MCP server with vault publishing tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	builder *site.Builder
	opts    site.ClassifyOptions
}

// New creates a new MCP server with all tools registered. builder may be nil,
// in which case build_site reports an error.
func New(store storage.Provider, builder *site.Builder, opts site.ClassifyOptions) *Server {
	s := &Server{store: store, builder: builder, opts: opts}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("build_site",
		mcp.WithDescription("Run a full build of the vault into the configured output directory. "+
			"The output directory is deleted and recreated."),
	), s.buildSite)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the pages a build would produce, with slug, output path, "+
			"group and whether the page is hidden from navigation."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw Markdown of a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path (e.g. Notes/Idea.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("slugify",
		mcp.WithDescription("Normalize a title into the slug used for page URLs and link targets."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Title or file stem")),
		mcp.WithBoolean("preserve_unicode", mcp.Description("Keep non-ASCII letters instead of transliterating")),
	), s.slugify)

	s.mcp.AddTool(mcp.NewTool("resolve_links",
		mcp.WithDescription("Rewrite wiki-style links, embeds and ==highlights== in Markdown "+
			"the way a build does before rendering."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown source")),
	), s.resolveLinks)

	s.mcp.AddTool(mcp.NewTool("get_publishing_conventions",
		mcp.WithDescription("Returns the vault conventions that decide URLs, navigation and visibility. "+
			"Read this before creating or renaming documents."),
	), s.getConventions)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Publishing Conventions",
			mcp.WithResourceDescription("How vault structure maps to the published site."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type buildSummary struct {
	Output     string `json:"output"`
	Theme      string `json:"theme"`
	Pages      int    `json:"pages"`
	Assets     int    `json:"assets"`
	DurationMS int64  `json:"duration_ms"`
}

func (s *Server) buildSite(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.builder == nil {
		return mcp.NewToolResultError("building is not configured"), nil
	}
	snap, err := s.builder.Build(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(buildSummary{
		Output:     snap.OutputDir,
		Theme:      snap.Theme,
		Pages:      len(snap.Pages),
		Assets:     snap.Assets,
		DurationMS: snap.Duration.Milliseconds(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

type pageInfo struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Output     string `json:"output"`
	Group      string `json:"group"`
	GroupIndex bool   `json:"group_index,omitempty"`
	Home       bool   `json:"home,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
}

func (s *Server) listPages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources, err := s.store.Documents()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Titles match the build: frontmatter only counts when the builder reads it.
	meta := s.builder == nil || s.builder.ReadsFrontmatter()
	docs := make([]site.Document, 0, len(sources))
	for i := range sources {
		src := &sources[i]
		doc := site.Document{Source: src}
		if meta {
			data, err := s.store.Read(src.Rel)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", src.Rel, err)), nil
			}
			doc.Title = parser.Parse(data).Title
		}
		docs = append(docs, doc)
	}

	c := site.Classify(s.store.Name(), docs, s.opts)
	pages := make([]pageInfo, 0, len(c.Pages))
	for _, p := range c.Pages {
		pages = append(pages, pageInfo{
			Path:       p.Source.Rel,
			Title:      p.Title,
			Slug:       p.Slug,
			Output:     p.OutputPath(),
			Group:      p.Group,
			GroupIndex: p.IsGroupIndex,
			Home:       p.IsHome,
			Hidden:     p.Hidden,
		})
	}
	out, _ := json.MarshalIndent(pages, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if path.Ext(p) != ".md" {
		return mcp.NewToolResultError(fmt.Sprintf("not a document: %s", p)), nil
	}
	data, err := s.store.Read(p)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) slugify(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	preserve := req.GetBool("preserve_unicode", s.opts.PreserveUnicode)
	return mcp.NewToolResultText(slug.Normalize(text, preserve)), nil
}

func (s *Server) resolveLinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	md, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(parser.Resolve(md, s.opts.PreserveUnicode)), nil
}

func (s *Server) getConventions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PublishingConventions), nil
}

func (s *Server) readConventionsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     PublishingConventions,
		},
	}, nil
}
