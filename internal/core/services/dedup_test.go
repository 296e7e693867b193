package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/memory"
	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// recordCompleted stores a completed conversion and returns it with its ID.
func recordCompleted(t *testing.T, store *memory.MetadataStore, path, hash string) *domain.ConversionRecord {
	t.Helper()

	rec := &domain.ConversionRecord{
		OriginalPath: path,
		COGPath:      path + ".cog.tif",
		ContentHash:  hash,
		ConvertedAt:  time.Now().UTC(),
		Status:       domain.StatusCompleted,
	}
	_, err := store.Conversions().RecordConversion(context.Background(), rec, nil)
	require.NoError(t, err)
	return rec
}

// TestApply_UniqueContent tests that a hash seen on no other path is a no-op.
func TestApply_UniqueContent(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	rec := recordCompleted(t, store, "/data/a.tif", "hash-a")

	out, err := engine.Apply(context.Background(), rec, domain.StrategyReference)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.False(t, out.Demoted)
}

// TestApply_SelfMatchIsNotDuplicate tests that a file matching only its own
// index entry (the same file re-processed) is left alone.
func TestApply_SelfMatchIsNotDuplicate(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	rec := recordCompleted(t, store, "/data/a.tif", "hash-a")
	// Re-record the same path, as a second run would.
	rec = recordCompleted(t, store, "/data/a.tif", "hash-a")

	out, err := engine.Apply(context.Background(), rec, domain.StrategyReference)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	stored, err := store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

// TestApply_ReferenceStrategy tests that the fresh record is demoted to
// reference the oldest completed record and the canonical stays untouched.
func TestApply_ReferenceStrategy(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	first := recordCompleted(t, store, "/data/a.tif", "shared")
	second := recordCompleted(t, store, "/data/b.tif", "shared")

	out, err := engine.Apply(context.Background(), second, domain.StrategyReference)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.True(t, out.Demoted)
	assert.False(t, out.Skipped)
	require.NotNil(t, out.Canonical)
	assert.Equal(t, first.ID, out.Canonical.ID)

	demoted, err := store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicateReferenced, demoted.Status)
	require.NotNil(t, demoted.DuplicateOfID)
	assert.Equal(t, first.ID, *demoted.DuplicateOfID)
	assert.Equal(t, "/data/a.tif", demoted.DuplicateOfPath)

	canonical, err := store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, canonical.Status)
}

// TestApply_SkipStrategy tests that skip demotes like reference but reports
// the file as skipped.
func TestApply_SkipStrategy(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	recordCompleted(t, store, "/data/a.tif", "shared")
	second := recordCompleted(t, store, "/data/b.tif", "shared")

	out, err := engine.Apply(context.Background(), second, domain.StrategySkip)
	require.NoError(t, err)
	assert.True(t, out.Demoted)
	assert.True(t, out.Skipped)

	demoted, err := store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicateReferenced, demoted.Status)
}

// TestApply_WarnStrategy tests that warn reports the duplicate but leaves
// the record completed.
func TestApply_WarnStrategy(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	recordCompleted(t, store, "/data/a.tif", "shared")
	second := recordCompleted(t, store, "/data/b.tif", "shared")

	out, err := engine.Apply(context.Background(), second, domain.StrategyWarn)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.False(t, out.Demoted)

	stored, err := store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

// TestApply_ProcessStrategy tests that process ignores duplicates entirely.
func TestApply_ProcessStrategy(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	recordCompleted(t, store, "/data/a.tif", "shared")
	second := recordCompleted(t, store, "/data/b.tif", "shared")

	out, err := engine.Apply(context.Background(), second, domain.StrategyProcess)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.False(t, out.Demoted)
}

// TestApply_NoCompletedCanonical tests that index entries without any
// completed record to reference result in a no-op.
func TestApply_NoCompletedCanonical(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	// The other path is in the index but its record later failed.
	require.NoError(t, store.HashIndex().Add(context.Background(), "shared", "/data/a.tif"))
	_, err := store.Conversions().RecordFailure(context.Background(), &domain.ConversionRecord{
		OriginalPath: "/data/a.tif",
		ErrorMessage: "gdal_translate exited 1",
		ErrorKind:    domain.FailureKindConversion,
	}, nil)
	require.NoError(t, err)

	second := recordCompleted(t, store, "/data/b.tif", "shared")

	out, err := engine.Apply(context.Background(), second, domain.StrategyReference)
	require.NoError(t, err)
	assert.False(t, out.Demoted)

	stored, err := store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

// TestApply_UnknownStrategy tests that an unrecognised strategy is rejected.
func TestApply_UnknownStrategy(t *testing.T) {
	store := memory.NewMetadataStore()
	engine := NewDeduplicationEngine(store.Conversions(), store.HashIndex())

	recordCompleted(t, store, "/data/a.tif", "shared")
	second := recordCompleted(t, store, "/data/b.tif", "shared")

	_, err := engine.Apply(context.Background(), second, domain.DuplicateStrategy("bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
