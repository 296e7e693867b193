package domain

import "time"

// SourceFile is a discovered raster candidate.
type SourceFile struct {
	// Path is the absolute path to the file.
	Path string

	// Format is the converter format key the file matched
	// (e.g. "geotiff", "worldimage", "ecw").
	Format string

	// Size and ModTime come from the discovery stat call.
	Size    int64
	ModTime time.Time
}

// Artifact describes a produced COG before upload.
type Artifact struct {
	// LocalPath is where the converter wrote the COG.
	LocalPath string

	// Size is the artifact size in bytes.
	Size int64
}

// UploadResult describes a stored artifact.
type UploadResult struct {
	// BlobPath is the object name within the bucket.
	BlobPath string

	// BlobURL is the full URL of the stored object.
	BlobURL string

	// ContentHash is the hash the object name was derived from.
	ContentHash string

	// UploadedAt is when the upload completed.
	UploadedAt time.Time
}
