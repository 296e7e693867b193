package domain

import "time"

// Run records a single pipeline execution over an input directory.
type Run struct {
	// ID is assigned by the store when the run starts.
	ID int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// EndedAt is when the run finished. Zero while the run is active.
	EndedAt time.Time

	// InputDir is the directory the run discovered files under.
	InputDir string

	// Stats are the final counters, persisted when the run ends.
	Stats RunStats

	// ConfigSnapshot is the JSON-serialised effective configuration,
	// kept for post-hoc reproduction of the run.
	ConfigSnapshot string
}

// Active reports whether the run has not yet ended.
func (r *Run) Active() bool {
	return r.EndedAt.IsZero()
}

// RunStats are the monotone counters accumulated during a run.
// A file counts in exactly one of Successful, Failed, or Skipped;
// DuplicatesReferenced is a subset of Successful.
type RunStats struct {
	TotalFiles           int
	Successful           int
	Failed               int
	Skipped              int
	Retries              int
	Uploaded             int
	UploadFailed         int
	DuplicatesReferenced int
}

// AggregateStats summarise the whole store across runs.
type AggregateStats struct {
	TotalConversions int
	ByStatus         map[ConversionStatus]int
	TotalRuns        int

	// OriginalBytes and COGBytes sum sizes over completed conversions.
	OriginalBytes int64
	COGBytes      int64

	// UniqueHashes counts distinct content fingerprints in the index.
	UniqueHashes int
}

// SuccessRate returns the fraction of processed (non-skipped) files that
// succeeded, in percent. Returns 0 when nothing was processed.
func (s RunStats) SuccessRate() float64 {
	processed := s.Successful + s.Failed
	if processed == 0 {
		return 0
	}
	return float64(s.Successful) / float64(processed) * 100
}
