// Package hashing computes content fingerprints for deduplication and
// derives content-addressed object names for uploads.
package hashing

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.Hasher = (*Service)(nil)

// chunkSize keeps memory flat while hashing multi-gigabyte rasters.
const chunkSize = 8192

// Service hashes file contents with a configurable algorithm.
// md5 is the default; artifacts are content-addressed, not authenticated,
// so a fast digest is fine.
type Service struct {
	algo string
}

// NewService creates a hasher for the named algorithm
// ("md5", "sha1", or "sha256").
func NewService(algo string) (*Service, error) {
	switch algo {
	case "md5", "sha1", "sha256":
		return &Service{algo: algo}, nil
	}
	return nil, fmt.Errorf("%w: unknown hash algorithm %q", domain.ErrInvalidInput, algo)
}

// Algorithm names the digest in use.
func (s *Service) Algorithm() string {
	return s.algo
}

// HashFile returns the hex digest of the file's bytes, reading in fixed
// chunks and honouring context cancellation between chunks.
func (s *Service) HashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := s.newHash()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read for hashing: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) newHash() hash.Hash {
	switch s.algo {
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	default:
		return md5.New()
	}
}

// BlobPath implements driven.Hasher.
func (s *Service) BlobPath(originalPath, contentHash string) string {
	return BlobPath(originalPath, contentHash)
}

// BlobPath derives the content-addressed object name for an original file:
// the hex digest followed by the file's lower-cased extension. Files with
// identical content and extension map to the same object.
func BlobPath(originalPath, contentHash string) string {
	ext := strings.ToLower(filepath.Ext(originalPath))
	if ext == "" {
		return contentHash
	}
	return contentHash + ext
}
