package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/gcs"
	"github.com/meridian-labs/cogsync-cli/internal/converters"
	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
	"github.com/meridian-labs/cogsync-cli/internal/core/services"
	"github.com/meridian-labs/cogsync-cli/internal/discovery"
	"github.com/meridian-labs/cogsync-cli/internal/hashing"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

var (
	flagOutput        string
	flagForce         bool
	flagSkipProcessed bool
	flagDetectDups    bool
	flagDupStrategy   string
	flagTrackChanges  bool
	flagEnableStorage bool
	flagBucket        string
	flagPrefix        string
	flagPreserveLocal bool
	flagMaxRetries    int
	flagRetryDelay    time.Duration
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-dir>",
	Short: "Convert rasters under a directory to COGs",
	Long: `Discovers raster files under the input directory, converts each to a
Cloud-Optimized GeoTIFF, and records the outcome in the metadata database.

Files processed by an earlier run are skipped unless they changed on disk;
identical content across different paths is detected and handled per the
duplicate strategy (reference, skip, warn, or process).`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	registerConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

// registerConvertFlags binds the conversion flags; the watch command shares
// them so both entry points accept the same overrides.
func registerConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "",
		"output directory for COG artifacts")
	cmd.Flags().BoolVarP(&flagForce, "force", "f", false,
		"re-process every file regardless of prior state")
	cmd.Flags().BoolVar(&flagSkipProcessed, "skip-processed", true,
		"skip files already processed in earlier runs")
	cmd.Flags().BoolVar(&flagDetectDups, "detect-duplicates", true,
		"detect files with identical content")
	cmd.Flags().StringVar(&flagDupStrategy, "duplicate-strategy", "",
		"duplicate handling: reference, skip, warn, or process")
	cmd.Flags().BoolVar(&flagTrackChanges, "track-changes", true,
		"re-process files whose modification time changed")
	cmd.Flags().BoolVar(&flagEnableStorage, "enable-storage", false,
		"upload artifacts to the configured bucket")
	cmd.Flags().StringVar(&flagBucket, "bucket", "",
		"storage bucket (overrides configuration)")
	cmd.Flags().StringVar(&flagPrefix, "prefix", "",
		"object name prefix (overrides configuration)")
	cmd.Flags().BoolVar(&flagPreserveLocal, "preserve-local", false,
		"keep local COGs after a successful upload")
	cmd.Flags().IntVar(&flagMaxRetries, "max-retries", 0,
		"retries for transient conversion errors (overrides configuration)")
	cmd.Flags().DurationVar(&flagRetryDelay, "retry-delay", 0,
		"delay between retries (overrides configuration)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts, cleanup, err := prepareConvert(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := pipeline.Run(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("conversion run failed: %w", err)
	}

	printRunSummary(cmd, run)
	return nil
}

// prepareConvert resolves options and wires the pipeline. The returned
// cleanup removes staging state and must run after the conversion.
func prepareConvert(ctx context.Context, cmd *cobra.Command) (domain.ProcessOptions, func(), error) {
	noop := func() {}
	if pipeline != nil {
		// Injected by tests; options come from defaults plus flags.
		return convertOptions(cmd, domain.DefaultProcessOptions()), noop, nil
	}

	if err := requireStore(); err != nil {
		return domain.ProcessOptions{}, noop, err
	}
	if flagBucket != "" {
		cfg.Storage.Bucket = flagBucket
	}
	if flagPrefix != "" {
		cfg.Storage.Prefix = flagPrefix
	}
	opts := convertOptions(cmd, cfg.Options())

	if opts.DuplicateStrategy != "" {
		if _, err := domain.ParseDuplicateStrategy(string(opts.DuplicateStrategy)); err != nil {
			return opts, noop, err
		}
	}

	hasher, err := hashing.NewService(cfg.Hash.Algorithm)
	if err != nil {
		return opts, noop, err
	}
	registry, err := converters.FromFormats(cfg.Formats)
	if err != nil {
		return opts, noop, err
	}

	outputDir := cfg.OutputDir
	if flagOutput != "" {
		outputDir = flagOutput
	}

	cleanup := noop
	var uploader driven.Uploader
	if opts.UploadEnabled {
		if cfg.Storage.Bucket == "" {
			return opts, noop, domain.ErrBucketNotConfigured
		}
		up, err := gcs.NewUploader(ctx, gcs.Config{
			Bucket:            cfg.Storage.Bucket,
			Prefix:            cfg.Storage.Prefix,
			RequestsPerSecond: cfg.Storage.RequestsPerSecond,
		})
		if err != nil {
			return opts, noop, err
		}
		uploader = up

		closer := func() {
			if err := up.Close(); err != nil {
				logger.Warn("Closing storage client: %v", err)
			}
		}
		cleanup = closer

		if !opts.PreserveLocalCOGs {
			// Artifacts are transient; stage them in a per-run directory
			// that is removed wholesale afterwards.
			staging := filepath.Join(outputDir, ".staging-"+uuid.NewString())
			outputDir = staging
			cleanup = func() {
				closer()
				if err := os.RemoveAll(staging); err != nil {
					logger.Warn("Removing staging directory %s: %v", staging, err)
				}
			}
		}
	}

	pipeline = services.NewPipeline(services.PipelineConfig{
		Conversions:    store.Conversions(),
		States:         store.States(),
		HashIndex:      store.HashIndex(),
		Runs:           store.Runs(),
		Registry:       registry,
		Discoverer:     discovery.NewWalker(registry),
		Hasher:         hasher,
		Uploader:       uploader,
		OutputDir:      outputDir,
		COGParams:      cogParams(),
		ConfigSnapshot: cfg.Snapshot(),
	})
	return opts, cleanup, nil
}

// convertOptions layers explicit flags over the configured defaults.
func convertOptions(cmd *cobra.Command, opts domain.ProcessOptions) domain.ProcessOptions {
	flags := cmd.Flags()

	opts.ForceReprocess = flagForce
	if flags.Changed("skip-processed") {
		opts.SkipProcessed = flagSkipProcessed
	}
	if flags.Changed("detect-duplicates") {
		opts.DetectDuplicates = flagDetectDups
	}
	if flagDupStrategy != "" {
		opts.DuplicateStrategy = domain.DuplicateStrategy(flagDupStrategy)
	}
	if flags.Changed("track-changes") {
		opts.TrackFileChanges = flagTrackChanges
	}
	if flags.Changed("enable-storage") {
		opts.UploadEnabled = flagEnableStorage
	}
	if flags.Changed("preserve-local") {
		opts.PreserveLocalCOGs = flagPreserveLocal
	}
	if flags.Changed("max-retries") {
		opts.MaxRetries = flagMaxRetries
	}
	if flags.Changed("retry-delay") {
		opts.RetryDelay = flagRetryDelay
	}
	return opts
}

func cogParams() driven.COGParams {
	return driven.COGParams{
		Compression:        cfg.COG.Compression,
		BlockSize:          cfg.COG.BlockSize,
		OverviewResampling: cfg.COG.OverviewResampling,
	}
}

func printRunSummary(cmd *cobra.Command, run *domain.Run) {
	s := run.Stats
	cmd.Println()
	cmd.Printf("Run %d complete (%s)\n", run.ID, run.InputDir)
	cmd.Printf("  Files found:      %d\n", s.TotalFiles)
	cmd.Printf("  Converted:        %d\n", s.Successful)
	cmd.Printf("  Failed:           %d\n", s.Failed)
	cmd.Printf("  Skipped:          %d\n", s.Skipped)
	if s.Retries > 0 {
		cmd.Printf("  Retries:          %d\n", s.Retries)
	}
	if s.DuplicatesReferenced > 0 {
		cmd.Printf("  Duplicates:       %d\n", s.DuplicatesReferenced)
	}
	if s.Uploaded > 0 || s.UploadFailed > 0 {
		cmd.Printf("  Uploaded:         %d (%d failed)\n", s.Uploaded, s.UploadFailed)
	}
	if s.Successful+s.Failed > 0 {
		cmd.Printf("  Success rate:     %.1f%%\n", s.SuccessRate())
	}
}
