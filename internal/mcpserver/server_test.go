package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/testutil"
)

var classifyOpts = site.ClassifyOptions{HiddenPrefix: "_", ExcludeDir: "Resources"}

func testServer(t *testing.T, withBuilder bool) *Server {
	t.Helper()
	if withBuilder {
		return testServerWith(t, render.DefaultExtensions)
	}
	return testServerWith(t, nil)
}

// testServerWith builds the Garden vault server. A nil extensions list
// leaves the server without a builder.
func testServerWith(t *testing.T, extensions []string) *Server {
	t.Helper()

	vaultDir := testutil.TestVault(t, "Garden", map[string]string{
		"Garden.md":         "---\ntitle: Welcome\n---\nHi [[Ideas|ideas]]",
		"Ideas/Ideas.md":    "# Ideas",
		"Ideas/First.md":    "first",
		"_Draft.md":         "draft",
		"Resources/tpl.md":  "template",
		"Ideas/diagram.png": "png",
	})
	store, err := storage.NewFS(vaultDir, storage.Options{ExcludeDir: "Resources"})
	if err != nil {
		t.Fatal(err)
	}

	var builder *site.Builder
	if extensions != nil {
		r, err := render.New(extensions)
		if err != nil {
			t.Fatal(err)
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		builder = site.NewBuilder(store, r,
			site.Themes{Dir: testutil.TestThemes(t, "paper-theme"), Default: "paper-theme"},
			site.BuildOptions{
				OutputDir:    filepath.Join(t.TempDir(), "out"),
				Theme:        "paper-theme",
				HiddenPrefix: classifyOpts.HiddenPrefix,
				ExcludeDir:   classifyOpts.ExcludeDir,
			}, logger)
	}
	return New(store, builder, classifyOpts)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "build_site":
		result, err = srv.buildSite(ctx, req)
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "slugify":
		result, err = srv.slugify(ctx, req)
	case "resolve_links":
		result, err = srv.resolveLinks(ctx, req)
	case "get_publishing_conventions":
		result, err = srv.getConventions(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestBuildSite(t *testing.T) {
	srv := testServer(t, true)

	r := callTool(t, srv, "build_site", nil)
	if r.IsError {
		t.Fatalf("build_site failed: %s", resultText(r))
	}
	var summary buildSummary
	if err := json.Unmarshal([]byte(resultText(r)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Pages != 4 || summary.Assets != 1 || summary.Theme != "paper-theme" {
		t.Errorf("summary = %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(summary.Output, "index.html")); err != nil {
		t.Errorf("home page not written: %v", err)
	}
}

func TestBuildSite_NotConfigured(t *testing.T) {
	srv := testServer(t, false)
	if r := callTool(t, srv, "build_site", nil); !r.IsError {
		t.Error("expected error without a builder")
	}
}

func TestListPages(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "list_pages", nil)
	if r.IsError {
		t.Fatalf("list_pages failed: %s", resultText(r))
	}
	var pages []pageInfo
	if err := json.Unmarshal([]byte(resultText(r)), &pages); err != nil {
		t.Fatalf("decode pages: %v", err)
	}
	byPath := make(map[string]pageInfo, len(pages))
	for _, p := range pages {
		byPath[p.Path] = p
	}
	if len(byPath) != 4 {
		t.Fatalf("pages = %+v", pages)
	}
	if home := byPath["Garden.md"]; !home.Home || home.Output != "index.html" || home.Title != "Welcome" {
		t.Errorf("home = %+v", home)
	}
	if idx := byPath["Ideas/Ideas.md"]; !idx.GroupIndex || idx.Output != "ideas/index.html" {
		t.Errorf("group index = %+v", idx)
	}
	if draft := byPath["_Draft.md"]; !draft.Hidden || draft.Slug != "draft" {
		t.Errorf("draft = %+v", draft)
	}
}

func TestListPages_TitlesFollowMetaExtension(t *testing.T) {
	tests := []struct {
		name       string
		extensions []string
		wantTitle  string
	}{
		{"meta enabled", render.DefaultExtensions, "Welcome"},
		{"meta disabled", []string{render.ExtTables}, "Garden"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := testServerWith(t, tc.extensions)
			r := callTool(t, srv, "list_pages", nil)
			if r.IsError {
				t.Fatalf("list_pages failed: %s", resultText(r))
			}
			var pages []pageInfo
			if err := json.Unmarshal([]byte(resultText(r)), &pages); err != nil {
				t.Fatalf("decode pages: %v", err)
			}
			for _, p := range pages {
				if p.Home && p.Title != tc.wantTitle {
					t.Errorf("home title = %q, want %q", p.Title, tc.wantTitle)
				}
			}
		})
	}
}

func TestReadDocument(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "Ideas/First.md"})
	if got := resultText(r); got != "first" {
		t.Errorf("read result = %q", got)
	}
	for _, p := range []string{"nope.md", "../outside.md", "Ideas/diagram.png"} {
		r = callTool(t, srv, "read_document", map[string]interface{}{"path": p})
		if !r.IsError {
			t.Errorf("read_document(%s) should fail", p)
		}
	}
	if r = callTool(t, srv, "read_document", map[string]interface{}{}); !r.IsError {
		t.Error("missing path should fail")
	}
}

func TestSlugify(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "slugify", map[string]interface{}{"text": "My Great Idea!"})
	if got := resultText(r); got != "my-great-idea" {
		t.Errorf("slugify = %q", got)
	}
	r = callTool(t, srv, "slugify", map[string]interface{}{"text": "Café", "preserve_unicode": true})
	if got := resultText(r); got != "café" {
		t.Errorf("slugify preserve = %q", got)
	}
	r = callTool(t, srv, "slugify", map[string]interface{}{"text": "Café"})
	if got := resultText(r); got != "cafe" {
		t.Errorf("slugify ascii = %q", got)
	}
}

func TestResolveLinks(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "resolve_links", map[string]interface{}{
		"markdown": "See [[Big Plan|the plan]] and ==this==.",
	})
	want := "See [the plan](big-plan.html) and <mark>this</mark>."
	if got := resultText(r); got != want {
		t.Errorf("resolve_links = %q, want %q", got, want)
	}
}

func TestConventions(t *testing.T) {
	srv := testServer(t, false)

	r := callTool(t, srv, "get_publishing_conventions", nil)
	if !strings.Contains(resultText(r), "# Quire Publishing Conventions") {
		t.Error("conventions tool returned unexpected text")
	}

	contents, err := srv.readConventionsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != conventionsURI || tc.Text != PublishingConventions {
		t.Errorf("resource = %+v", contents[0])
	}
}
