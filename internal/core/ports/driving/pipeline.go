package driving

import (
	"context"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// Pipeline orchestrates a conversion run over an input directory.
type Pipeline interface {
	// Run discovers, filters, converts, uploads, and records every raster
	// under inputDir, returning the completed run with its statistics.
	// Only one run may be active per Pipeline at a time.
	Run(ctx context.Context, inputDir string, opts domain.ProcessOptions) (*domain.Run, error)

	// Status returns the pipeline's current progress.
	Status() PipelineStatus
}

// PipelineStatus is a snapshot of an active or finished run.
type PipelineStatus struct {
	// Running indicates a run is in progress.
	Running bool

	// RunID is the active (or last) run's ID, 0 before any run.
	RunID int64

	// CurrentFile is the path being processed, empty between files.
	CurrentFile string

	// Stats are the counters accumulated so far.
	Stats domain.RunStats
}
