package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// DuplicateOutcome describes what the engine did with a freshly recorded
// conversion.
type DuplicateOutcome struct {
	// Duplicate is true when another path carries the same content.
	Duplicate bool

	// Demoted is true when the record was rewritten to defer to the
	// canonical one (reference and skip strategies).
	Demoted bool

	// Skipped is true when the skip strategy applied; the file counts as
	// skipped rather than successful.
	Skipped bool

	// Canonical is the record that owns the artifact, set when Duplicate.
	Canonical *domain.ConversionRecord
}

// DeduplicationEngine detects content duplicates after a conversion has
// been committed and applies the configured strategy.
//
// Detection runs strictly after the success record exists: the freshly
// recorded conversion is demoted, never the pre-existing one, so the
// canonical record for a hash stays stable across runs. A file matching
// only its own path (the same file re-processed) is not a duplicate.
type DeduplicationEngine struct {
	conversions driven.ConversionStore
	hashIndex   driven.HashIndexStore
}

// NewDeduplicationEngine creates an engine over the given stores.
func NewDeduplicationEngine(conversions driven.ConversionStore, hashIndex driven.HashIndexStore) *DeduplicationEngine {
	return &DeduplicationEngine{
		conversions: conversions,
		hashIndex:   hashIndex,
	}
}

// Apply checks the committed record against the hash index and applies the
// strategy. rec must already be stored with its final ID.
func (e *DeduplicationEngine) Apply(ctx context.Context, rec *domain.ConversionRecord, strategy domain.DuplicateStrategy) (DuplicateOutcome, error) {
	var out DuplicateOutcome

	has, err := e.hashIndex.HasOther(ctx, rec.ContentHash, rec.OriginalPath)
	if err != nil {
		return out, fmt.Errorf("checking hash index: %w", err)
	}
	if !has {
		return out, nil
	}

	canonical, err := e.conversions.CanonicalForHash(ctx, rec.ContentHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Index entries exist but no completed record owns the
			// artifact (e.g. the other copy failed later). Nothing to
			// reference.
			return out, nil
		}
		return out, fmt.Errorf("resolving canonical conversion: %w", err)
	}

	// The oldest completed record for this hash may be the record itself;
	// pointing a record at itself would be meaningless.
	if canonical.ID == rec.ID {
		return out, nil
	}

	out.Duplicate = true
	out.Canonical = canonical

	switch strategy {
	case domain.StrategyReference, domain.StrategySkip:
		if err := e.conversions.MarkDuplicate(ctx, rec.OriginalPath, canonical); err != nil {
			return out, fmt.Errorf("marking duplicate: %w", err)
		}
		out.Demoted = true
		out.Skipped = strategy == domain.StrategySkip
		logger.Info("Duplicate content: %s references %s", rec.OriginalPath, canonical.OriginalPath)
	case domain.StrategyWarn:
		logger.Warn("Duplicate content detected: %s matches %s", rec.OriginalPath, canonical.OriginalPath)
	case domain.StrategyProcess:
		logger.Debug("Duplicate content ignored for %s (process strategy)", rec.OriginalPath)
	default:
		return out, fmt.Errorf("%w: unknown duplicate strategy %q", domain.ErrInvalidInput, strategy)
	}

	return out, nil
}
