package domain

import (
	"fmt"
	"time"
)

// ConversionStatus is the lifecycle state of a conversion record.
type ConversionStatus string

const (
	// StatusCompleted means the file was converted (and uploaded, if
	// storage is enabled) and owns its artifact.
	StatusCompleted ConversionStatus = "completed"

	// StatusFailed means conversion or upload failed definitively.
	StatusFailed ConversionStatus = "failed"

	// StatusSkipped means the file was deliberately not processed,
	// e.g. under the skip duplicate strategy.
	StatusSkipped ConversionStatus = "skipped"

	// StatusDuplicateReferenced means the file's content matched an earlier
	// conversion; the record points at the canonical one instead of owning
	// an artifact.
	StatusDuplicateReferenced ConversionStatus = "duplicate_referenced"
)

// Valid reports whether s is a known conversion status.
func (s ConversionStatus) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusDuplicateReferenced:
		return true
	}
	return false
}

// Failure kinds recorded alongside StatusFailed.
const (
	// FailureKindConversion marks a definitive conversion failure.
	FailureKindConversion = "conversion_failure"

	// FailureKindUpload marks a successful conversion whose artifact could
	// not be uploaded.
	FailureKindUpload = "upload_failure"
)

// ConversionRecord is the durable outcome of processing one source raster.
// Exactly one record exists per original path; re-processing the same path
// updates the record in place and preserves its ID.
type ConversionRecord struct {
	// ID is assigned by the store on first insert and never changes for a
	// given original path.
	ID int64

	// OriginalPath is the absolute path of the source raster. Unique.
	OriginalPath string

	// COGPath is the local path of the produced COG, empty once cleaned up.
	COGPath string

	// BlobPath is the content-addressed remote object name (<hash>.<ext>).
	BlobPath string

	// ContentHash is the fingerprint of the source file's bytes.
	ContentHash string

	// BlobURL is the full remote URL of the uploaded artifact.
	BlobURL string

	// OriginalSize and COGSize are byte sizes of source and artifact.
	OriginalSize int64
	COGSize      int64

	// ConvertedAt is when the conversion completed.
	ConvertedAt time.Time

	// SourceModTime is the source file's modification time at processing,
	// used by incremental filtering to detect changes.
	SourceModTime time.Time

	Status ConversionStatus

	// DuplicateOfID and DuplicateOfPath point at the canonical record when
	// Status is StatusDuplicateReferenced.
	DuplicateOfID   *int64
	DuplicateOfPath string

	// RunID links the record to the run that produced it. Nil when the run
	// has been deleted.
	RunID *int64

	// ErrorMessage and ErrorKind describe the failure when Status is
	// StatusFailed. ErrorKind is one of the FailureKind constants.
	ErrorMessage string
	ErrorKind    string

	// FailedAt is when the failure was recorded.
	FailedAt time.Time

	// UploadedAt is when the artifact upload completed.
	UploadedAt time.Time
}

// IsDuplicate reports whether the record defers to a canonical conversion.
func (r *ConversionRecord) IsDuplicate() bool {
	return r.Status == StatusDuplicateReferenced
}

// Validate checks the record is storable.
func (r *ConversionRecord) Validate() error {
	if r.OriginalPath == "" {
		return fmt.Errorf("%w: original path is empty", ErrInvalidInput)
	}
	if r.ContentHash == "" && r.Status != StatusFailed {
		return fmt.Errorf("%w: content hash is empty", ErrInvalidInput)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, r.Status)
	}
	return nil
}

// HashIndexEntry is one row of the content hash index: a (hash, path) pair
// recording that the file at Path had ContentHash when last processed.
type HashIndexEntry struct {
	ContentHash string
	FilePath    string
	IndexedAt   time.Time
}
