package domain

import (
	"fmt"
	"time"
)

// ProcessingState is the incremental bookkeeping for one file in one run.
// The (FilePath, RunID) pair is unique; a file reappearing in a later run
// gets a fresh state row while its conversion record is updated in place.
type ProcessingState struct {
	FilePath    string
	ContentHash string

	// ModTime and FileSize describe the source file as observed when the
	// state was written.
	ModTime  time.Time
	FileSize int64

	Status      ConversionStatus
	ProcessedAt time.Time
	RunID       int64
}

// DuplicateStrategy selects how the pipeline treats files whose content
// matches an already-converted file.
type DuplicateStrategy string

const (
	// StrategyReference records the duplicate as a reference to the
	// canonical conversion without re-uploading. The default.
	StrategyReference DuplicateStrategy = "reference"

	// StrategySkip records the duplicate as skipped.
	StrategySkip DuplicateStrategy = "skip"

	// StrategyProcess ignores the duplicate match and keeps the file's own
	// completed record and artifact.
	StrategyProcess DuplicateStrategy = "process"

	// StrategyWarn behaves like StrategyProcess but logs a warning.
	StrategyWarn DuplicateStrategy = "warn"
)

// ParseDuplicateStrategy validates a strategy name from config or flags.
func ParseDuplicateStrategy(s string) (DuplicateStrategy, error) {
	switch DuplicateStrategy(s) {
	case StrategyReference, StrategySkip, StrategyProcess, StrategyWarn:
		return DuplicateStrategy(s), nil
	}
	return "", fmt.Errorf("%w: unknown duplicate strategy %q", ErrInvalidInput, s)
}

// ProcessOptions are the behaviour switches for a pipeline run.
type ProcessOptions struct {
	// ForceReprocess processes every discovered file regardless of prior
	// state.
	ForceReprocess bool

	// SkipProcessed enables incremental filtering on prior state and
	// modification time.
	SkipProcessed bool

	// DetectDuplicates enables content deduplication after conversion.
	DetectDuplicates bool

	// DuplicateStrategy applies when DetectDuplicates finds a match.
	DuplicateStrategy DuplicateStrategy

	// TrackFileChanges records source modification times so changed files
	// are re-processed on later runs.
	TrackFileChanges bool

	// UploadEnabled sends artifacts to remote storage after conversion.
	UploadEnabled bool

	// PreserveLocalCOGs keeps the local artifact after a successful upload.
	PreserveLocalCOGs bool

	// MaxRetries bounds re-attempts after transient conversion errors.
	// A definitive converter failure is never retried.
	MaxRetries int

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
}

// DefaultProcessOptions mirror the shipped configuration defaults.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		SkipProcessed:     true,
		DetectDuplicates:  true,
		DuplicateStrategy: StrategyReference,
		TrackFileChanges:  true,
		MaxRetries:        3,
		RetryDelay:        5 * time.Second,
	}
}

// Decision is the incremental filter's verdict for one file.
type Decision struct {
	Process bool

	// Reason is a short human-readable explanation, logged and surfaced in
	// verbose output ("new file", "modified since last run", ...).
	Reason string
}
