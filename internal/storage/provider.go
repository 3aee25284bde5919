// Package storage defines the read-only vault file-system abstraction.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for vault discovery and reads.
type Provider interface {
	// Name returns the vault directory name.
	Name() string
	// Root returns the absolute vault path.
	Root() string
	// Documents returns every publishable .md file, sorted by relative path.
	// Raw content is not loaded.
	Documents() ([]models.SourceDocument, error)
	// Assets returns every publishable non-document file, sorted by relative path.
	Assets() ([]models.Asset, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
}
