package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driving"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// Ensure PipelineOrchestrator implements the interface.
var _ driving.Pipeline = (*PipelineOrchestrator)(nil)

// PipelineConfig wires the orchestrator's collaborators.
type PipelineConfig struct {
	Conversions driven.ConversionStore
	States      driven.StateStore
	HashIndex   driven.HashIndexStore
	Runs        driven.RunStore
	Registry    driven.ConverterRegistry
	Discoverer  driven.Discoverer
	Hasher      driven.Hasher

	// Uploader is optional; when nil (or uploads are disabled per run),
	// artifacts stay local.
	Uploader driven.Uploader

	// OutputDir is where converters write artifacts.
	OutputDir string

	// COGParams are the creation options applied to every conversion.
	COGParams driven.COGParams

	// ConfigSnapshot is the JSON-serialised effective configuration,
	// stored on each run for post-hoc reproduction.
	ConfigSnapshot string
}

// PipelineOrchestrator runs the conversion pipeline: discover, filter,
// convert with bounded retry, upload, record, deduplicate.
type PipelineOrchestrator struct {
	cfg    PipelineConfig
	filter *IncrementalFilter
	dedup  *DeduplicationEngine

	// sleep is swapped out in tests to avoid real retry delays.
	sleep func(time.Duration)

	// Status tracking
	mu     sync.RWMutex
	status driving.PipelineStatus
}

// NewPipeline creates a pipeline orchestrator.
func NewPipeline(cfg PipelineConfig) *PipelineOrchestrator {
	return &PipelineOrchestrator{
		cfg:    cfg,
		filter: NewIncrementalFilter(cfg.States),
		dedup:  NewDeduplicationEngine(cfg.Conversions, cfg.HashIndex),
		sleep:  time.Sleep,
	}
}

// Status returns the pipeline's current progress.
func (p *PipelineOrchestrator) Status() driving.PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run executes one pipeline run over inputDir.
//
// Per-file conversion and upload failures are recorded and counted but do
// not abort the run; metadata store failures do, since continuing without
// bookkeeping would desynchronise state from reality.
func (p *PipelineOrchestrator) Run(ctx context.Context, inputDir string, opts domain.ProcessOptions) (*domain.Run, error) {
	p.mu.Lock()
	if p.status.Running {
		p.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	p.status = driving.PipelineStatus{Running: true}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.status.Running = false
		p.status.CurrentFile = ""
		p.mu.Unlock()
	}()

	logger.Section("Discovery")
	files, err := p.cfg.Discoverer.Discover(ctx, inputDir)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	logger.Info("Discovered %d candidate files under %s", len(files), inputDir)

	runID, err := p.cfg.Runs.Begin(ctx, inputDir, p.cfg.ConfigSnapshot)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	p.mu.Lock()
	p.status.RunID = runID
	p.mu.Unlock()

	stats := domain.RunStats{TotalFiles: len(files)}

	logger.Section("Processing")
	for _, file := range files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Persist what was counted before the interruption.
			if endErr := p.cfg.Runs.End(ctx, runID, stats); endErr != nil {
				logger.Error("Ending interrupted run %d: %v", runID, endErr)
			}
			return nil, ctxErr
		}

		p.setCurrent(file.Path, stats)
		if err := p.processFile(ctx, runID, file, opts, &stats); err != nil {
			if endErr := p.cfg.Runs.End(ctx, runID, stats); endErr != nil {
				logger.Error("Ending aborted run %d: %v", runID, endErr)
			}
			return nil, fmt.Errorf("processing %s: %w", file.Path, err)
		}
	}

	if err := p.cfg.Runs.End(ctx, runID, stats); err != nil {
		return nil, fmt.Errorf("ending run: %w", err)
	}

	p.mu.Lock()
	p.status.Stats = stats
	p.mu.Unlock()

	return p.cfg.Runs.Get(ctx, runID)
}

func (p *PipelineOrchestrator) setCurrent(path string, stats domain.RunStats) {
	p.mu.Lock()
	p.status.CurrentFile = path
	p.status.Stats = stats
	p.mu.Unlock()
}

// processFile runs one file through filter, conversion, upload, recording,
// and deduplication. Returns an error only for metadata store failures.
func (p *PipelineOrchestrator) processFile(ctx context.Context, runID int64, file domain.SourceFile, opts domain.ProcessOptions, stats *domain.RunStats) error {
	decision, err := p.filter.Decide(ctx, file, opts)
	if err != nil {
		return err
	}
	if !decision.Process {
		logger.Debug("Skipping %s: %s", file.Path, decision.Reason)
		stats.Skipped++
		// Record the skip against this run so the run is self-describing.
		return p.cfg.States.Upsert(ctx, &domain.ProcessingState{
			FilePath: file.Path,
			ModTime:  file.ModTime,
			FileSize: file.Size,
			Status:   domain.StatusSkipped,
			RunID:    runID,
		})
	}
	logger.Debug("Processing %s: %s", file.Path, decision.Reason)

	converter, err := p.cfg.Registry.ForExtension(filepath.Ext(file.Path))
	if err != nil {
		return p.recordConversionFailure(ctx, runID, file, stats,
			fmt.Errorf("selecting converter: %w", err))
	}

	if converter.Capabilities().Validate {
		if err := converter.Validate(ctx, file); err != nil {
			return p.recordConversionFailure(ctx, runID, file, stats,
				fmt.Errorf("validating input: %w", err))
		}
	}

	artifact, retries, err := p.convertWithRetry(ctx, converter, file, opts)
	stats.Retries += retries
	if err != nil {
		return p.recordConversionFailure(ctx, runID, file, stats, err)
	}

	hash, err := p.cfg.Hasher.HashFile(ctx, file.Path)
	if err != nil {
		return p.recordConversionFailure(ctx, runID, file, stats,
			fmt.Errorf("hashing source: %w", err))
	}

	rec := &domain.ConversionRecord{
		OriginalPath:  file.Path,
		COGPath:       artifact.LocalPath,
		ContentHash:   hash,
		OriginalSize:  file.Size,
		COGSize:       artifact.Size,
		ConvertedAt:   time.Now().UTC(),
		SourceModTime: file.ModTime,
		Status:        domain.StatusCompleted,
		RunID:         &runID,
	}

	uploaded := false
	if opts.UploadEnabled && p.cfg.Uploader != nil {
		blobPath := p.cfg.Hasher.BlobPath(file.Path, hash)
		res, err := p.cfg.Uploader.Upload(ctx, artifact.LocalPath, blobPath, hash)
		if err != nil {
			// The conversion itself succeeded; only the upload is lost.
			// Record the failure so the next run retries the file.
			logger.Error("Upload failed for %s: %v", file.Path, err)
			stats.UploadFailed++
			stats.Successful++
			rec.ErrorMessage = err.Error()
			rec.ErrorKind = domain.FailureKindUpload
			_, recErr := p.cfg.Conversions.RecordFailure(ctx, rec, &domain.ProcessingState{
				FilePath:    file.Path,
				ContentHash: hash,
				ModTime:     file.ModTime,
				FileSize:    file.Size,
				Status:      domain.StatusFailed,
				RunID:       runID,
			})
			return recErr
		}
		rec.BlobPath = res.BlobPath
		rec.BlobURL = res.BlobURL
		rec.UploadedAt = res.UploadedAt
		uploaded = true
		stats.Uploaded++
	}

	state := &domain.ProcessingState{
		FilePath:    file.Path,
		ContentHash: hash,
		ModTime:     file.ModTime,
		FileSize:    file.Size,
		Status:      domain.StatusCompleted,
		RunID:       runID,
	}
	id, err := p.cfg.Conversions.RecordConversion(ctx, rec, state)
	if err != nil {
		return fmt.Errorf("recording conversion: %w", err)
	}
	rec.ID = id

	if uploaded && !opts.PreserveLocalCOGs {
		if err := os.Remove(artifact.LocalPath); err != nil {
			logger.Warn("Removing local artifact %s: %v", artifact.LocalPath, err)
		}
	}

	if !opts.DetectDuplicates {
		stats.Successful++
		return nil
	}

	outcome, err := p.dedup.Apply(ctx, rec, opts.DuplicateStrategy)
	if err != nil {
		return fmt.Errorf("deduplicating: %w", err)
	}

	switch {
	case outcome.Demoted && outcome.Skipped:
		stats.Skipped++
		state.Status = domain.StatusSkipped
		return p.cfg.States.Upsert(ctx, state)
	case outcome.Demoted:
		stats.Successful++
		stats.DuplicatesReferenced++
		state.Status = domain.StatusDuplicateReferenced
		return p.cfg.States.Upsert(ctx, state)
	default:
		stats.Successful++
		return nil
	}
}

// convertWithRetry attempts the conversion, retrying transient errors with
// a fixed delay. Definitive failures (domain.ErrConversionFailed) are never
// retried. Returns the number of retries performed.
func (p *PipelineOrchestrator) convertWithRetry(ctx context.Context, converter driven.Converter, file domain.SourceFile, opts domain.ProcessOptions) (*domain.Artifact, int, error) {
	retries := 0
	for attempt := 0; ; attempt++ {
		artifact, err := converter.Convert(ctx, file, p.cfg.OutputDir, p.cfg.COGParams)
		if err == nil {
			return artifact, retries, nil
		}
		if errors.Is(err, domain.ErrConversionFailed) {
			return nil, retries, err
		}
		if ctx.Err() != nil {
			return nil, retries, err
		}
		if attempt >= opts.MaxRetries {
			return nil, retries, fmt.Errorf("after %d attempts: %w", attempt+1, err)
		}
		retries++
		logger.Warn("Transient conversion error for %s (attempt %d/%d): %v",
			file.Path, attempt+1, opts.MaxRetries+1, err)
		p.sleep(opts.RetryDelay)
	}
}

// recordConversionFailure books a definitive per-file failure and keeps the
// run going. The returned error is non-nil only if the store write failed.
func (p *PipelineOrchestrator) recordConversionFailure(ctx context.Context, runID int64, file domain.SourceFile, stats *domain.RunStats, cause error) error {
	logger.Error("Conversion failed for %s: %v", file.Path, cause)
	stats.Failed++

	rec := &domain.ConversionRecord{
		OriginalPath:  file.Path,
		OriginalSize:  file.Size,
		SourceModTime: file.ModTime,
		ErrorMessage:  cause.Error(),
		ErrorKind:     domain.FailureKindConversion,
		RunID:         &runID,
	}
	_, err := p.cfg.Conversions.RecordFailure(ctx, rec, &domain.ProcessingState{
		FilePath: file.Path,
		ModTime:  file.ModTime,
		FileSize: file.Size,
		Status:   domain.StatusFailed,
		RunID:    runID,
	})
	return err
}
