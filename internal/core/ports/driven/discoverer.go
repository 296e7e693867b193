package driven

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// Discoverer finds raster candidates under an input directory.
type Discoverer interface {
	// Discover walks root recursively and returns every file whose
	// extension a registered converter accepts, in deterministic order.
	Discover(ctx context.Context, root string) ([]domain.SourceFile, error)
}

// Hasher computes content fingerprints of source files.
type Hasher interface {
	// HashFile returns the hex digest of the file's bytes.
	HashFile(ctx context.Context, path string) (string, error)

	// Algorithm names the digest in use ("md5", "sha1", "sha256").
	Algorithm() string

	// BlobPath derives the content-addressed object name for a file.
	BlobPath(originalPath, hash string) string
}
