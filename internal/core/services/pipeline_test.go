package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/memory"
	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// ==================== Mocks ====================

type mockDiscoverer struct {
	files []domain.SourceFile
	err   error
}

func (d *mockDiscoverer) Discover(_ context.Context, _ string) ([]domain.SourceFile, error) {
	return d.files, d.err
}

// mockHasher maps paths to fixed digests.
type mockHasher struct {
	hashes map[string]string
}

func (h *mockHasher) HashFile(_ context.Context, path string) (string, error) {
	hash, ok := h.hashes[path]
	if !ok {
		return "", fmt.Errorf("no hash configured for %s", path)
	}
	return hash, nil
}

func (h *mockHasher) Algorithm() string { return "md5" }

func (h *mockHasher) BlobPath(originalPath, hash string) string {
	return hash + strings.ToLower(filepath.Ext(originalPath))
}

// mockConverter returns scripted errors per path before succeeding.
type mockConverter struct {
	caps        driven.ConverterCapabilities
	validateErr error
	failures    map[string][]error
	calls       map[string]int
}

func newMockConverter() *mockConverter {
	return &mockConverter{
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

func (c *mockConverter) Format() string                           { return "geotiff" }
func (c *mockConverter) Extensions() []string                     { return []string{".tif", ".tiff"} }
func (c *mockConverter) Capabilities() driven.ConverterCapabilities { return c.caps }

func (c *mockConverter) Validate(_ context.Context, _ domain.SourceFile) error {
	return c.validateErr
}

func (c *mockConverter) Convert(_ context.Context, src domain.SourceFile, destDir string, _ driven.COGParams) (*domain.Artifact, error) {
	c.calls[src.Path]++
	if seq := c.failures[src.Path]; len(seq) > 0 {
		err := seq[0]
		c.failures[src.Path] = seq[1:]
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	return &domain.Artifact{
		LocalPath: filepath.Join(destDir, base+"_cog.tif"),
		Size:      src.Size / 2,
	}, nil
}

type mockRegistry struct {
	converter driven.Converter
}

func (r *mockRegistry) ForExtension(ext string) (driven.Converter, error) {
	for _, known := range r.converter.Extensions() {
		if known == strings.ToLower(ext) {
			return r.converter, nil
		}
	}
	return nil, domain.ErrUnsupportedFormat
}

func (r *mockRegistry) Extensions() []string {
	return r.converter.Extensions()
}

// ==================== Helpers ====================

type pipelineFixture struct {
	store     *memory.MetadataStore
	converter *mockConverter
	uploader  *memory.Uploader
	hasher    *mockHasher
	pipeline  *PipelineOrchestrator
	slept     []time.Duration
}

// newPipelineFixture wires a pipeline over in-memory collaborators for the
// given files, hashing each to the supplied digest.
func newPipelineFixture(t *testing.T, files []domain.SourceFile, hashes map[string]string) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		store:     memory.NewMetadataStore(),
		converter: newMockConverter(),
		uploader:  memory.NewUploader(),
		hasher:    &mockHasher{hashes: hashes},
	}
	f.pipeline = NewPipeline(PipelineConfig{
		Conversions: f.store.Conversions(),
		States:      f.store.States(),
		HashIndex:   f.store.HashIndex(),
		Runs:        f.store.Runs(),
		Registry:    &mockRegistry{converter: f.converter},
		Discoverer:  &mockDiscoverer{files: files},
		Hasher:      f.hasher,
		Uploader:    f.uploader,
		OutputDir:   t.TempDir(),
		COGParams:   driven.COGParams{Compression: "LZW", BlockSize: 512, OverviewResampling: "average"},
	})
	f.pipeline.sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	return f
}

func sourceFile(path string, size int64) domain.SourceFile {
	return domain.SourceFile{
		Path:    path,
		Format:  "geotiff",
		Size:    size,
		ModTime: time.Now().Add(-time.Hour),
	}
}

// ==================== Tests ====================

// TestRun_ConvertsAndRecords tests the happy path over two distinct files.
func TestRun_ConvertsAndRecords(t *testing.T) {
	files := []domain.SourceFile{
		sourceFile("/data/a.tif", 1000),
		sourceFile("/data/b.tif", 2000),
	}
	f := newPipelineFixture(t, files, map[string]string{
		"/data/a.tif": "hash-a",
		"/data/b.tif": "hash-b",
	})

	opts := domain.DefaultProcessOptions()
	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 2, run.Stats.TotalFiles)
	assert.Equal(t, 2, run.Stats.Successful)
	assert.Equal(t, 0, run.Stats.Failed)
	assert.Equal(t, 0, run.Stats.Skipped)
	assert.False(t, run.EndedAt.IsZero())

	rec, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, "hash-a", rec.ContentHash)
	require.NotNil(t, rec.RunID)
	assert.Equal(t, run.ID, *rec.RunID)
}

// TestRun_DeduplicatesIdenticalContent tests that the second file carrying
// the same bytes is demoted to reference the first.
func TestRun_DeduplicatesIdenticalContent(t *testing.T) {
	files := []domain.SourceFile{
		sourceFile("/data/a.tif", 1000),
		sourceFile("/data/b.tif", 1000),
	}
	f := newPipelineFixture(t, files, map[string]string{
		"/data/a.tif": "shared",
		"/data/b.tif": "shared",
	})

	run, err := f.pipeline.Run(context.Background(), "/data", domain.DefaultProcessOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, run.Stats.Successful)
	assert.Equal(t, 1, run.Stats.DuplicatesReferenced)

	canonical, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, canonical.Status)

	dup, err := f.store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicateReferenced, dup.Status)
	require.NotNil(t, dup.DuplicateOfID)
	assert.Equal(t, canonical.ID, *dup.DuplicateOfID)
	assert.Equal(t, "/data/a.tif", dup.DuplicateOfPath)
}

// TestRun_SkipStrategy tests that the skip strategy counts the duplicate as
// skipped instead of successful.
func TestRun_SkipStrategy(t *testing.T) {
	files := []domain.SourceFile{
		sourceFile("/data/a.tif", 1000),
		sourceFile("/data/b.tif", 1000),
	}
	f := newPipelineFixture(t, files, map[string]string{
		"/data/a.tif": "shared",
		"/data/b.tif": "shared",
	})

	opts := domain.DefaultProcessOptions()
	opts.DuplicateStrategy = domain.StrategySkip

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Successful)
	assert.Equal(t, 1, run.Stats.Skipped)
	assert.Equal(t, 0, run.Stats.DuplicatesReferenced)
}

// TestRun_RetriesTransientErrors tests that transient conversion errors are
// retried with the configured delay and eventually succeed.
func TestRun_RetriesTransientErrors(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})
	f.converter.failures["/data/a.tif"] = []error{
		errors.New("gdal busy"),
		errors.New("gdal busy"),
	}

	opts := domain.DefaultProcessOptions()
	opts.RetryDelay = 5 * time.Second

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Successful)
	assert.Equal(t, 0, run.Stats.Failed)
	assert.Equal(t, 2, run.Stats.Retries)
	assert.Equal(t, 3, f.converter.calls["/data/a.tif"])
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, f.slept)
}

// TestRun_DefinitiveFailureNotRetried tests that a conversion failure is
// terminal: one attempt, one failure record.
func TestRun_DefinitiveFailureNotRetried(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/bad.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/bad.tif": "hash-bad"})
	f.converter.failures["/data/bad.tif"] = []error{
		fmt.Errorf("%w: unsupported band layout", domain.ErrConversionFailed),
	}

	run, err := f.pipeline.Run(context.Background(), "/data", domain.DefaultProcessOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Failed)
	assert.Equal(t, 0, run.Stats.Retries)
	assert.Equal(t, 1, f.converter.calls["/data/bad.tif"])
	assert.Empty(t, f.slept)

	rec, err := f.store.Conversions().GetByPath(context.Background(), "/data/bad.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Equal(t, domain.FailureKindConversion, rec.ErrorKind)
	assert.Contains(t, rec.ErrorMessage, "unsupported band layout")
}

// TestRun_RetriesExhausted tests that a persistently transient error fails
// after MaxRetries additional attempts.
func TestRun_RetriesExhausted(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})
	f.converter.failures["/data/a.tif"] = []error{
		errors.New("gdal busy"),
		errors.New("gdal busy"),
		errors.New("gdal busy"),
	}

	opts := domain.DefaultProcessOptions()
	opts.MaxRetries = 2

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Failed)
	assert.Equal(t, 2, run.Stats.Retries)
	assert.Equal(t, 3, f.converter.calls["/data/a.tif"])
}

// TestRun_FailedFileRetriedNextRun tests that a recorded failure is picked
// up again on the following run.
func TestRun_FailedFileRetriedNextRun(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})
	f.converter.failures["/data/a.tif"] = []error{
		fmt.Errorf("%w: truncated input", domain.ErrConversionFailed),
	}

	opts := domain.DefaultProcessOptions()
	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Stats.Failed)

	// Second run: the converter now succeeds, and the failed state must not
	// shield the file from re-processing.
	run, err = f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Stats.Successful)
	assert.Equal(t, 0, run.Stats.Skipped)

	rec, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
}

// TestRun_UploadSuccess tests that artifacts are uploaded under their
// content-addressed names and recorded with blob details.
func TestRun_UploadSuccess(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})

	opts := domain.DefaultProcessOptions()
	opts.UploadEnabled = true

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Successful)
	assert.Equal(t, 1, run.Stats.Uploaded)
	assert.Equal(t, 0, run.Stats.UploadFailed)

	rec, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, "hash-a.tif", rec.BlobPath)
	assert.Equal(t, "memory://hash-a.tif", rec.BlobURL)
	assert.False(t, rec.UploadedAt.IsZero())

	exists, err := f.uploader.Exists(context.Background(), "hash-a.tif")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestRun_UploadFailure tests that a failed upload counts the conversion as
// successful but records an upload failure for the next run to retry.
func TestRun_UploadFailure(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})
	f.uploader.Err = fmt.Errorf("%w: bucket unreachable", domain.ErrUploadFailed)

	opts := domain.DefaultProcessOptions()
	opts.UploadEnabled = true

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Successful)
	assert.Equal(t, 1, run.Stats.UploadFailed)
	assert.Equal(t, 0, run.Stats.Uploaded)
	assert.Equal(t, 0, run.Stats.Failed)

	rec, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Equal(t, domain.FailureKindUpload, rec.ErrorKind)
}

// TestRun_SecondRunSkipsProcessed tests idempotency: an unchanged input
// directory produces an all-skipped second run and stable conversion IDs.
func TestRun_SecondRunSkipsProcessed(t *testing.T) {
	files := []domain.SourceFile{
		sourceFile("/data/a.tif", 1000),
		sourceFile("/data/b.tif", 2000),
	}
	f := newPipelineFixture(t, files, map[string]string{
		"/data/a.tif": "hash-a",
		"/data/b.tif": "hash-b",
	})

	opts := domain.DefaultProcessOptions()
	first, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.Successful)

	recBefore, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)

	second, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.Successful)
	assert.Equal(t, 2, second.Stats.Skipped)
	assert.NotEqual(t, first.ID, second.ID)

	recAfter, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, recBefore.ID, recAfter.ID)
}

// TestRun_ForceReprocess tests that forcing re-converts everything while
// each path keeps its original conversion ID.
func TestRun_ForceReprocess(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})

	opts := domain.DefaultProcessOptions()
	first, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Stats.Successful)

	recBefore, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)

	opts.ForceReprocess = true
	second, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Stats.Successful)
	// Matching only its own prior index entry must not demote the record.
	assert.Equal(t, 0, second.Stats.DuplicatesReferenced)
	assert.Equal(t, 2, f.converter.calls["/data/a.tif"])

	recAfter, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, recBefore.ID, recAfter.ID)
	assert.Equal(t, domain.StatusCompleted, recAfter.Status)
}

// TestRun_ValidationFailure tests that a converter rejecting its input books
// a definitive failure without attempting conversion.
func TestRun_ValidationFailure(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})
	f.converter.caps.Validate = true
	f.converter.validateErr = fmt.Errorf("%w: not a raster", domain.ErrConversionFailed)

	run, err := f.pipeline.Run(context.Background(), "/data", domain.DefaultProcessOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.Failed)
	assert.Equal(t, 0, f.converter.calls["/data/a.tif"])
}

// TestRun_RejectsConcurrentRun tests that a second Run while one is active
// returns ErrRunInProgress.
func TestRun_RejectsConcurrentRun(t *testing.T) {
	f := newPipelineFixture(t, nil, nil)
	f.pipeline.status.Running = true

	_, err := f.pipeline.Run(context.Background(), "/data", domain.DefaultProcessOptions())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

// TestRun_CancelledContext tests that cancellation ends the run with the
// counters accumulated so far.
func TestRun_CancelledContext(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, "/data", domain.DefaultProcessOptions())
	assert.ErrorIs(t, err, context.Canceled)

	runs, err := f.store.Runs().List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].EndedAt.IsZero())
	assert.Equal(t, 0, runs[0].Stats.Successful)
}

// TestStatus tests the status snapshot before and after a run.
func TestStatus(t *testing.T) {
	files := []domain.SourceFile{sourceFile("/data/a.tif", 1000)}
	f := newPipelineFixture(t, files, map[string]string{"/data/a.tif": "hash-a"})

	assert.False(t, f.pipeline.Status().Running)
	assert.Zero(t, f.pipeline.Status().RunID)

	run, err := f.pipeline.Run(context.Background(), "/data", domain.DefaultProcessOptions())
	require.NoError(t, err)

	status := f.pipeline.Status()
	assert.False(t, status.Running)
	assert.Equal(t, run.ID, status.RunID)
	assert.Equal(t, 1, status.Stats.Successful)
}

// TestRun_DuplicateSharesUploadedBlob tests that when uploads are on, a
// demoted duplicate ends up carrying the canonical record's remote object.
func TestRun_DuplicateSharesUploadedBlob(t *testing.T) {
	files := []domain.SourceFile{
		sourceFile("/data/a.tif", 1000),
		sourceFile("/data/b.tif", 1000),
	}
	f := newPipelineFixture(t, files, map[string]string{
		"/data/a.tif": "shared",
		"/data/b.tif": "shared",
	})

	opts := domain.DefaultProcessOptions()
	opts.UploadEnabled = true
	opts.PreserveLocalCOGs = true

	run, err := f.pipeline.Run(context.Background(), "/data", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Stats.DuplicatesReferenced)

	canonical, err := f.store.Conversions().GetByPath(context.Background(), "/data/a.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, canonical.Status)
	assert.Equal(t, "shared.tif", canonical.BlobPath)

	dup, err := f.store.Conversions().GetByPath(context.Background(), "/data/b.tif")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDuplicateReferenced, dup.Status)
	assert.Equal(t, canonical.BlobPath, dup.BlobPath)
	assert.Equal(t, canonical.BlobURL, dup.BlobURL)

	exists, err := f.uploader.Exists(context.Background(), "shared.tif")
	require.NoError(t, err)
	assert.True(t, exists)
}
