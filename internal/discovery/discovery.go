// Package discovery finds raster candidates on disk and watches input
// directories for changes.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// Ensure Walker implements the interface.
var _ driven.Discoverer = (*Walker)(nil)

// Walker discovers raster files by walking a directory tree and matching
// extensions against the converter registry.
type Walker struct {
	registry driven.ConverterRegistry
}

// NewWalker creates a discoverer over the given registry.
func NewWalker(registry driven.ConverterRegistry) *Walker {
	return &Walker{registry: registry}
}

// Discover walks root recursively and returns every file a registered
// converter accepts. WalkDir visits entries in lexical order, so results
// are deterministic for a given tree.
func (w *Walker) Discover(ctx context.Context, root string) ([]domain.SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	var files []domain.SourceFile
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable subtrees are logged and skipped, not fatal.
			logger.Warn("Skipping %s: %v", path, walkErr)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() != "." && strings.HasPrefix(entry.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		conv, err := w.registry.ForExtension(ext)
		if err != nil {
			return nil
		}

		fileInfo, err := entry.Info()
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			return nil
		}
		files = append(files, domain.SourceFile{
			Path:    path,
			Format:  conv.Format(),
			Size:    fileInfo.Size(),
			ModTime: fileInfo.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
