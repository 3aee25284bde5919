package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/starford/quire/internal/models"
)

const (
	// DocumentExt marks a publishable document.
	DocumentExt = ".md"
	// CanvasExt marks visual-canvas files, which are never published.
	CanvasExt = ".canvas"
)

// Options controls which vault files are publishable.
type Options struct {
	// ExcludeDir is a directory name whose contents are never published,
	// wherever it appears in the tree.
	ExcludeDir string
	// IgnoreFile is a gitignore-style file at the vault root.
	IgnoreFile string
	// SkipDirs are directories never walked, such as a build output
	// nested inside the vault.
	SkipDirs []string
}

// FS implements Provider backed by the local file system.
type FS struct {
	root    string // absolute path to vault directory
	exclude string
	ignore  *ignore.GitIgnore
	skip    map[string]bool // absolute paths
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts Options) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}

	f := &FS{root: abs, exclude: opts.ExcludeDir, skip: make(map[string]bool, len(opts.SkipDirs))}
	for _, dir := range opts.SkipDirs {
		d, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve skip dir: %w", err)
		}
		f.skip[d] = true
	}
	if opts.IgnoreFile != "" {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(abs, opts.IgnoreFile))
		switch {
		case err == nil:
			f.ignore = gi
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("storage: read ignore file: %w", err)
		}
	}
	return f, nil
}

// Name returns the vault directory name.
func (f *FS) Name() string {
	return filepath.Base(f.root)
}

// Root returns the absolute vault path.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Documents walks the vault and returns every publishable document.
func (f *FS) Documents() ([]models.SourceDocument, error) {
	var out []models.SourceDocument
	err := f.walk(func(abs, rel string) {
		if path.Ext(rel) != DocumentExt {
			return
		}
		stem := strings.TrimSuffix(path.Base(rel), DocumentExt)
		group := path.Dir(rel)
		out = append(out, models.SourceDocument{
			Path:  abs,
			Rel:   rel,
			Stem:  stem,
			Group: group,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	return out, nil
}

// Assets walks the vault and returns every publishable non-document file.
func (f *FS) Assets() ([]models.Asset, error) {
	var out []models.Asset
	err := f.walk(func(abs, rel string) {
		switch strings.ToLower(path.Ext(rel)) {
		case DocumentExt, CanvasExt:
			return
		}
		out = append(out, models.Asset{Path: abs, Rel: rel})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list assets: %w", err)
	}
	return out, nil
}

// walk visits publishable regular files in lexical order of their
// relative paths.
func (f *FS) walk(visit func(abs, rel string)) error {
	var files [][2]string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == f.root {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if f.skip[p] || f.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if f.ignore != nil && f.ignore.MatchesPath(rel) {
			return nil
		}
		files = append(files, [2]string{p, rel})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(files, func(i, j int) bool { return files[i][1] < files[j][1] })
	for _, file := range files {
		visit(file[0], file[1])
	}
	return nil
}

func (f *FS) skipDir(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if f.exclude != "" && name == f.exclude {
		return true
	}
	return f.ignore != nil && f.ignore.MatchesPath(rel+"/")
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}
