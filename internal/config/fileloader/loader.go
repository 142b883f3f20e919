package fileloader

import (
	"context"
	"fmt"
	"os"

	"github.com/ahrav/fringeproc/internal/config"
)

var _ config.Loader = (*FileLoader)(nil)

// FileLoader loads an action catalog from a YAML file on disk.
type FileLoader struct {
	// path is the filesystem path to the catalog file.
	path string
}

// NewFileLoader creates a FileLoader reading the catalog at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads and parses the catalog file.
func (l *FileLoader) Load(ctx context.Context) (*config.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return config.ParseCatalog(data)
}
