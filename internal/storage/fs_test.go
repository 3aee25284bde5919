package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func tempVault(t *testing.T, opts Options, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	fs, err := NewFS(dir, opts)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestDocuments_SortedAndFiltered(t *testing.T) {
	s := tempVault(t, Options{ExcludeDir: "Resources"}, map[string]string{
		"b.md":                "b",
		"a.md":                "a",
		"Notes/Notes.md":      "n",
		"Notes/Idea.md":       "i",
		"Resources/hidden.md": "r",
		"Deep/Resources/x.md": "r",
		".obsidian/config.md": "c",
		"board.canvas":        "{}",
		"image.png":           "png",
		"UPPER.MD":            "not a document",
	})

	docs, err := s.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	want := []string{"Notes/Idea.md", "Notes/Notes.md", "a.md", "b.md"}
	if len(docs) != len(want) {
		t.Fatalf("docs = %v, want %v", docs, want)
	}
	for i, d := range docs {
		if d.Rel != want[i] {
			t.Errorf("docs[%d] = %q, want %q", i, d.Rel, want[i])
		}
	}
	if docs[0].Stem != "Idea" || docs[0].Group != "Notes" {
		t.Errorf("stem/group = %q/%q", docs[0].Stem, docs[0].Group)
	}
	if docs[2].Group != "." {
		t.Errorf("root group = %q, want .", docs[2].Group)
	}
}

func TestAssets(t *testing.T) {
	s := tempVault(t, Options{ExcludeDir: "Resources"}, map[string]string{
		"note.md":            "n",
		"img/photo.png":      "p",
		"board.canvas":       "{}",
		"Shout.MD":           "upper-case extension is neither document nor asset",
		"Resources/logo.png": "l",
		".git/HEAD":          "ref",
		"docs/.DS_Store":     "x",
		"docs/manual.pdf":    "pdf",
	})

	assets, err := s.Assets()
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	want := []string{"docs/manual.pdf", "img/photo.png"}
	if len(assets) != len(want) {
		t.Fatalf("assets = %v, want %v", assets, want)
	}
	for i, a := range assets {
		if a.Rel != want[i] {
			t.Errorf("assets[%d] = %q, want %q", i, a.Rel, want[i])
		}
	}
}

func TestIgnoreFile(t *testing.T) {
	s := tempVault(t, Options{IgnoreFile: ".publishignore"}, map[string]string{
		".publishignore": "drafts/\n*.tmp\n",
		"drafts/wip.md":  "w",
		"keep.md":        "k",
		"scratch.tmp":    "t",
		"photo.png":      "p",
	})
	docs, err := s.Documents()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Rel != "keep.md" {
		t.Errorf("docs = %v, want [keep.md]", docs)
	}
	assets, err := s.Assets()
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 1 || assets[0].Rel != "photo.png" {
		t.Errorf("assets = %v, want [photo.png]", assets)
	}
}

func TestRead(t *testing.T) {
	s := tempVault(t, Options{}, map[string]string{"a/b/c.md": "deep"})
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t, Options{}, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestName(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "My Vault")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := NewFS(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "My Vault" {
		t.Errorf("name = %q", s.Name())
	}
	if s.Root() != dir {
		t.Errorf("root = %q, want %q", s.Root(), dir)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/quire-does-not-exist-"+t.Name(), Options{})
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "quire-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name(), Options{})
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestWalk_SkipDirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"Page.md":             "p",
		"pic.png":             "png",
		"site/index.html":     "built",
		"site/style.css":      "built",
		"site/old/stale.md":   "stale",
		"other/site/keep.png": "png",
	})
	s, err := NewFS(dir, Options{SkipDirs: []string{filepath.Join(dir, "site")}})
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	docs, err := s.Documents()
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].Rel != "Page.md" {
		t.Errorf("docs = %v, want only Page.md", docs)
	}
	assets, err := s.Assets()
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	if len(assets) != 2 || assets[0].Rel != "other/site/keep.png" || assets[1].Rel != "pic.png" {
		t.Errorf("assets = %v", assets)
	}
}
