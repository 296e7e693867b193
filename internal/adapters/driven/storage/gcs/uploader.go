// Package gcs uploads conversion artifacts to a Google Cloud Storage
// bucket under content-addressed object names.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// Ensure Uploader implements the interface.
var _ driven.Uploader = (*Uploader)(nil)

// contentTypes maps artifact extensions to MIME types. Everything the
// pipeline uploads is a COG, but the original extension survives in the
// object name.
var contentTypes = map[string]string{
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".ecw":  "application/octet-stream",
}

// Config configures the uploader.
type Config struct {
	Bucket string

	// Prefix is prepended to every object name.
	Prefix string

	// RequestsPerSecond rate-limits upload starts. 0 disables limiting.
	RequestsPerSecond float64
}

// Uploader stores artifacts in a GCS bucket. Uploads are rate-limited to
// keep bulk runs from saturating the network path.
type Uploader struct {
	client  *storage.Client
	bucket  string
	prefix  string
	limiter *rate.Limiter
}

// NewUploader creates an uploader using ambient credentials (application
// default credentials or GOOGLE_APPLICATION_CREDENTIALS).
func NewUploader(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, domain.ErrBucketNotConfigured
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		limiter: limiter,
	}, nil
}

// Upload streams the file at localPath into the bucket under blobPath.
// The content hash travels as object metadata so bucket-side tooling can
// verify integrity without re-reading the metadata database.
func (u *Uploader) Upload(ctx context.Context, localPath, blobPath, contentHash string) (*domain.UploadResult, error) {
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening artifact: %w", domain.ErrUploadFailed, err)
	}
	defer f.Close()

	object := u.objectName(blobPath)
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType(blobPath)
	w.Metadata = map[string]string{"content-hash": contentHash}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: writing object %s: %w", domain.ErrUploadFailed, object, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalising object %s: %w", domain.ErrUploadFailed, object, err)
	}

	logger.Debug("Uploaded %s to gs://%s/%s", localPath, u.bucket, object)
	return &domain.UploadResult{
		BlobPath:    object,
		BlobURL:     fmt.Sprintf("gs://%s/%s", u.bucket, object),
		ContentHash: contentHash,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Exists reports whether an object is already in the bucket.
func (u *Uploader) Exists(ctx context.Context, blobPath string) (bool, error) {
	_, err := u.client.Bucket(u.bucket).Object(u.objectName(blobPath)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking object %s: %w", blobPath, err)
	}
	return true, nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

func (u *Uploader) objectName(blobPath string) string {
	if u.prefix == "" {
		return blobPath
	}
	return u.prefix + "/" + blobPath
}

func contentType(blobPath string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(blobPath))]; ok {
		return ct
	}
	return "application/octet-stream"
}
