// Package testutil provides shared test helpers for setting up vaults and themes.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFiles writes files (slash-separated relative path → content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
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

// TestVault creates a temporary vault directory named name containing files.
// It returns the vault path.
func TestVault(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	vaultDir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(vaultDir, 0o755); err != nil {
		t.Fatal(err)
	}
	WriteFiles(t, vaultDir, files)
	return vaultDir
}

// TestThemes creates a temporary themes directory with one stylesheet per name.
func TestThemes(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	files := make(map[string]string, len(names))
	for _, n := range names {
		files[n+".css"] = "/* " + n + " */\nbody { color: black; }\n"
	}
	WriteFiles(t, dir, files)
	return dir
}

// ReadFile returns the content of root/rel, failing the test if it is missing.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}
