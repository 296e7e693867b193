package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// IncrementalFilter decides whether a discovered file needs processing,
// based on its prior processing state and modification time. The filter
// never reads file contents; hashing happens only for files that pass.
type IncrementalFilter struct {
	states driven.StateStore
}

// NewIncrementalFilter creates a filter backed by the given state store.
func NewIncrementalFilter(states driven.StateStore) *IncrementalFilter {
	return &IncrementalFilter{states: states}
}

// Decide returns the verdict for one file.
func (f *IncrementalFilter) Decide(ctx context.Context, file domain.SourceFile, opts domain.ProcessOptions) (domain.Decision, error) {
	if opts.ForceReprocess {
		return domain.Decision{Process: true, Reason: "forced reprocess"}, nil
	}
	if !opts.SkipProcessed {
		return domain.Decision{Process: true, Reason: "incremental filtering disabled"}, nil
	}

	state, err := f.states.Latest(ctx, file.Path)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Decision{Process: true, Reason: "new file"}, nil
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("looking up processing state: %w", err)
	}

	// A source that changed since it was last processed is always
	// re-processed, regardless of how that processing ended.
	if opts.TrackFileChanges && !state.ModTime.IsZero() && file.ModTime.After(state.ModTime) {
		return domain.Decision{Process: true, Reason: "modified since last run"}, nil
	}

	switch state.Status {
	case domain.StatusCompleted, domain.StatusDuplicateReferenced, domain.StatusSkipped:
		return domain.Decision{
			Process: false,
			Reason:  fmt.Sprintf("already processed (%s)", state.Status),
		}, nil
	case domain.StatusFailed:
		return domain.Decision{Process: true, Reason: "retrying previously failed file"}, nil
	default:
		return domain.Decision{Process: true, Reason: "unknown prior state"}, nil
	}
}
