package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// Uploader is an in-memory implementation of driven.Uploader. It records
// every upload so tests and dry runs can inspect what would have been sent.
type Uploader struct {
	mu      sync.Mutex
	objects map[string]UploadedObject

	// Err, when set, is returned by Upload to simulate storage failures.
	Err error
}

// UploadedObject is one recorded upload.
type UploadedObject struct {
	LocalPath   string
	BlobPath    string
	ContentHash string
	UploadedAt  time.Time
}

// NewUploader creates an empty in-memory uploader.
func NewUploader() *Uploader {
	return &Uploader{
		objects: make(map[string]UploadedObject),
	}
}

// Upload records the object and returns a synthetic result.
func (u *Uploader) Upload(_ context.Context, localPath, blobPath, contentHash string) (*domain.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.Err != nil {
		return nil, u.Err
	}

	now := time.Now().UTC()
	u.objects[blobPath] = UploadedObject{
		LocalPath:   localPath,
		BlobPath:    blobPath,
		ContentHash: contentHash,
		UploadedAt:  now,
	}
	return &domain.UploadResult{
		BlobPath:    blobPath,
		BlobURL:     "memory://" + blobPath,
		ContentHash: contentHash,
		UploadedAt:  now,
	}, nil
}

// Exists reports whether an object was recorded under blobPath.
func (u *Uploader) Exists(_ context.Context, blobPath string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.objects[blobPath]
	return ok, nil
}

// Close is a no-op.
func (u *Uploader) Close() error {
	return nil
}

// Objects returns a snapshot of everything uploaded so far.
func (u *Uploader) Objects() []UploadedObject {
	u.mu.Lock()
	defer u.mu.Unlock()

	result := make([]UploadedObject, 0, len(u.objects))
	for _, obj := range u.objects {
		result = append(result, obj)
	}
	return result
}
