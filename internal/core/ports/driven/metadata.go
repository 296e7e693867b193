package driven

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// ConversionStore persists conversion outcomes.
//
// A path has at most one conversion record. Writes for an existing path
// update the record in place and keep its original ID, so external
// references to a conversion survive re-processing.
type ConversionStore interface {
	// RecordConversion stores a completed conversion. The record write, the
	// processing state upsert, and the hash index entry are committed in a
	// single transaction. Returns the record's ID (the original one if the
	// path was seen before).
	RecordConversion(ctx context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error)

	// RecordFailure stores a failed conversion attempt together with its
	// processing state. No hash index entry is written.
	RecordFailure(ctx context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error)

	// MarkDuplicate demotes the record at path to duplicate_referenced,
	// pointing at the canonical record. The path's own record must already
	// exist.
	MarkDuplicate(ctx context.Context, path string, canonical *domain.ConversionRecord) error

	// GetByPath retrieves the conversion record for an original path.
	// Returns domain.ErrNotFound if the path was never processed.
	GetByPath(ctx context.Context, path string) (*domain.ConversionRecord, error)

	// CanonicalForHash returns the oldest completed conversion owning an
	// artifact for the given content hash, or domain.ErrNotFound.
	CanonicalForHash(ctx context.Context, hash string) (*domain.ConversionRecord, error)

	// List returns records filtered by status (empty status means all),
	// newest first, at most limit (0 means no limit).
	List(ctx context.Context, status domain.ConversionStatus, limit int) ([]*domain.ConversionRecord, error)

	// Statistics aggregates totals across all records and runs.
	Statistics(ctx context.Context) (*domain.AggregateStats, error)
}

// StateStore persists per-file incremental processing state.
type StateStore interface {
	// Upsert stores or updates the state for (state.FilePath, state.RunID).
	Upsert(ctx context.Context, state *domain.ProcessingState) error

	// Latest retrieves the most recent state for a path across all runs.
	// Returns domain.ErrNotFound if the path has no state.
	Latest(ctx context.Context, path string) (*domain.ProcessingState, error)
}

// HashIndexStore persists the content hash index used for deduplication.
type HashIndexStore interface {
	// Add records that path currently has the given content hash.
	// Re-adding an existing (hash, path) pair is a no-op.
	Add(ctx context.Context, hash, path string) error

	// HasOther reports whether any path other than exclude carries the hash.
	HasOther(ctx context.Context, hash, exclude string) (bool, error)

	// Paths returns all paths indexed under the hash.
	Paths(ctx context.Context, hash string) ([]string, error)
}

// RunStore persists run lifecycle and statistics.
type RunStore interface {
	// Begin opens a new run and returns its ID.
	Begin(ctx context.Context, inputDir, configSnapshot string) (int64, error)

	// End closes the run, persisting its final statistics.
	End(ctx context.Context, runID int64, stats domain.RunStats) error

	// Get retrieves a run by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, runID int64) (*domain.Run, error)

	// List returns runs newest first, at most limit (0 means no limit).
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}
