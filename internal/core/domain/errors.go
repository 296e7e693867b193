package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file extension no converter handles.
	ErrUnsupportedFormat = errors.New("unsupported raster format")

	// Conversion Errors.

	// ErrConversionFailed indicates the converter examined the input and
	// determined it cannot be converted. This outcome is terminal and is
	// never retried.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrMissingWorldFile indicates a world image has no accompanying
	// georeferencing sidecar (.jpw/.pgw/.wld).
	ErrMissingWorldFile = errors.New("missing world file")

	// Upload Errors.

	// ErrUploadFailed indicates the artifact could not be uploaded.
	// The conversion itself still counts as successful.
	ErrUploadFailed = errors.New("upload failed")

	// ErrBucketNotConfigured indicates remote storage was requested but no
	// bucket is configured.
	ErrBucketNotConfigured = errors.New("storage bucket not configured")

	// Run Errors.

	// ErrRunInProgress indicates a run is already active on this orchestrator.
	ErrRunInProgress = errors.New("run in progress")

	// ErrRunNotStarted indicates an operation that needs an active run was
	// called outside one.
	ErrRunNotStarted = errors.New("run not started")
)
