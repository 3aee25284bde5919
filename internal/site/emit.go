package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
)

const (
	stylesheetName  = "style.css"
	placeholderName = "Site Index"
)

// BuildOptions configures a Builder.
type BuildOptions struct {
	OutputDir       string
	Theme           string
	HiddenPrefix    string
	ExcludeDir      string
	PreserveUnicode bool
	// Concurrency bounds parallel document rendering; <= 0 uses GOMAXPROCS.
	Concurrency int
	// LiveReload, when non-empty, is the event-stream URL pages subscribe
	// to for reload notifications.
	LiveReload string
}

// Builder runs full build passes. Each Build call starts from scratch.
type Builder struct {
	store    storage.Provider
	renderer *render.Renderer
	themes   Themes
	opts     BuildOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(store storage.Provider, renderer *render.Renderer, themes Themes, opts BuildOptions, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:    store,
		renderer: renderer,
		themes:   themes,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Build deletes and recreates the output directory and writes the whole
// site into it. Any read, render or copy error aborts the pass; files
// already written stay on disk.
func (b *Builder) Build(ctx context.Context) (*models.Snapshot, error) {
	start := b.now()
	out, err := b.prepareOutput()
	if err != nil {
		return nil, err
	}

	themePath, theme, err := b.themes.Resolve(b.opts.Theme)
	if err != nil {
		return nil, err
	}
	if theme != b.opts.Theme {
		b.logger.Warn("site: theme not found, using default",
			slog.String("theme", b.opts.Theme),
			slog.String("default", theme))
	}
	if err := copyFile(themePath, filepath.Join(out, stylesheetName)); err != nil {
		return nil, fmt.Errorf("site: copy theme %s: %w", theme, err)
	}

	docs, err := b.renderDocuments(ctx)
	if err != nil {
		return nil, err
	}

	c := Classify(b.store.Name(), docs, ClassifyOptions{
		HiddenPrefix:    b.opts.HiddenPrefix,
		ExcludeDir:      b.opts.ExcludeDir,
		PreserveUnicode: b.opts.PreserveUnicode,
	})
	for _, p := range c.Shadowed {
		b.logger.Warn("site: root index shadowed", slog.String("path", p.Source.Rel))
	}
	for _, p := range c.Degenerate {
		b.logger.Warn("site: empty slug, page skipped", slog.String("path", p.Source.Rel))
	}

	tree := BuildNav(c.Pages, c.Home)
	navs := make(map[int]template.HTML, 2)
	for _, depth := range []int{models.LayoutRoot.Depth(), models.LayoutNested.Depth()} {
		if navs[depth], err = RenderNav(tree, depth); err != nil {
			return nil, err
		}
	}

	written := make(map[string]string, len(c.Pages))
	for _, p := range c.Pages {
		rel := p.OutputPath()
		if prev, ok := written[rel]; ok {
			b.logger.Warn("site: slug collision, last writer wins",
				slog.String("output", rel),
				slog.String("previous", prev),
				slog.String("path", p.Source.Rel))
		}
		written[rel] = p.Source.Rel

		depth := p.Layout.Depth()
		if err := b.writePage(filepath.Join(out, filepath.FromSlash(rel)), pageData{
			Title:      p.Title,
			Stylesheet: Prefix(depth) + stylesheetName,
			Nav:        navs[depth],
			Body:       template.HTML(p.Body), //nolint:gosec // rendered Markdown
			LiveReload: b.opts.LiveReload,
		}); err != nil {
			return nil, err
		}
	}

	assets, err := b.copyAssets(out)
	if err != nil {
		return nil, err
	}

	if c.Home == nil {
		if err := b.writePlaceholder(out, navs[0]); err != nil {
			return nil, err
		}
	}

	snap := &models.Snapshot{
		OutputDir: out,
		Theme:     theme,
		Pages:     c.Pages,
		Home:      c.Home,
		Nav:       tree,
		Assets:    assets,
		Duration:  b.now().Sub(start),
	}
	b.logger.Info("site: build complete",
		slog.String("output", out),
		slog.Int("pages", len(snap.Pages)),
		slog.Int("assets", snap.Assets),
		slog.String("theme", theme),
		slog.Duration("duration", snap.Duration))
	return snap, nil
}

// prepareOutput removes and recreates the output directory. It refuses to
// touch a directory that contains the vault.
func (b *Builder) prepareOutput() (string, error) {
	if b.opts.OutputDir == "" {
		return "", fmt.Errorf("%w: empty path", apperr.ErrUnsafeOutput)
	}
	out, err := filepath.Abs(b.opts.OutputDir)
	if err != nil {
		return "", fmt.Errorf("site: resolve output: %w", err)
	}
	root := b.store.Root()
	if out == root || strings.HasPrefix(root, out+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s contains the vault", apperr.ErrUnsafeOutput, out)
	}
	if err := os.RemoveAll(out); err != nil {
		return "", fmt.Errorf("site: clear output: %w", err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("site: create output: %w", err)
	}
	return out, nil
}

// renderDocuments reads and renders every document. Rendering is stateless
// per document, so documents are processed concurrently.
func (b *Builder) renderDocuments(ctx context.Context) ([]Document, error) {
	sources, err := b.store.Documents()
	if err != nil {
		return nil, err
	}

	limit := b.opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	docs := make([]Document, len(sources))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range sources {
		src := &sources[i]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			doc, err := b.renderDocument(src)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// ReadsFrontmatter reports whether page titles come from frontmatter.
func (b *Builder) ReadsFrontmatter() bool {
	return b.renderer.Meta()
}

func (b *Builder) renderDocument(src *models.SourceDocument) (Document, error) {
	raw, err := b.store.Read(src.Rel)
	if err != nil {
		return Document{}, fmt.Errorf("site: read %s: %w", src.Rel, err)
	}
	src.Raw = raw

	body, title := string(raw), ""
	if b.renderer.Meta() {
		res := parser.Parse(raw)
		body, title = res.Body, res.Title
	}

	html, err := b.renderer.Render(parser.Resolve(body, b.opts.PreserveUnicode))
	if err != nil {
		return Document{}, fmt.Errorf("site: render %s: %w", src.Rel, err)
	}
	return Document{Source: src, Title: title, Body: html}, nil
}

func (b *Builder) writePage(dst string, data pageData) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", data); err != nil {
		return fmt.Errorf("site: execute page template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("site: mkdir: %w", err)
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("site: write %s: %w", dst, err)
	}
	return nil
}

// writePlaceholder writes a generated home page for vaults without a root index.
func (b *Builder) writePlaceholder(out string, nav template.HTML) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "placeholder-body", b.now().Format(time.DateOnly)); err != nil {
		return fmt.Errorf("site: execute placeholder template: %w", err)
	}
	return b.writePage(filepath.Join(out, "index.html"), pageData{
		Title:      placeholderName,
		Stylesheet: stylesheetName,
		Nav:        nav,
		Body:       template.HTML(body.String()), //nolint:gosec // produced by html/template
		LiveReload: b.opts.LiveReload,
	})
}

func (b *Builder) copyAssets(out string) (int, error) {
	assets, err := b.store.Assets()
	if err != nil {
		return 0, err
	}
	copied := 0
	for _, a := range assets {
		if excluded(path.Dir(a.Rel), b.opts.ExcludeDir) {
			continue
		}
		if err := copyFile(a.Path, filepath.Join(out, filepath.FromSlash(a.Rel))); err != nil {
			return copied, fmt.Errorf("site: copy asset %s: %w", a.Rel, err)
		}
		copied++
	}
	return copied, nil
}
