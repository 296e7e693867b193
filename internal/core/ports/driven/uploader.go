package driven

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// Uploader stores conversion artifacts in remote object storage.
//
// Object names are content-addressed (<hash>.<ext>), so uploading the same
// content twice is idempotent.
type Uploader interface {
	// Upload stores the file at localPath under blobPath and returns the
	// stored object's details. Wraps domain.ErrUploadFailed on failure.
	Upload(ctx context.Context, localPath, blobPath, contentHash string) (*domain.UploadResult, error)

	// Exists reports whether an object already exists under blobPath.
	Exists(ctx context.Context, blobPath string) (bool, error)

	// Close releases the underlying client.
	Close() error
}
