package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/converters"
	"github.com/meridian-labs/cogsync-cli/internal/discovery"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <input-dir>",
	Short: "Watch a directory and convert new rasters as they arrive",
	Long: `Runs an initial conversion pass over the input directory, then keeps
watching it. When raster files are created or modified, another pass runs
once the activity settles. Files already processed stay skipped, so each
pass only touches what changed.

Interrupt with Ctrl-C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	registerConvertFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	inputDir := args[0]

	opts, cleanup, err := prepareConvert(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	convertPass := func(passCtx context.Context) {
		run, err := pipeline.Run(passCtx, inputDir, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("Conversion pass failed: %v", err)
			return
		}
		printRunSummary(cmd, run)
	}

	convertPass(ctx)

	var formats map[string][]string
	if cfg != nil {
		formats = cfg.Formats
	}
	registry, err := converters.FromFormats(formats)
	if err != nil {
		return err
	}

	watcher := discovery.NewWatcher(registry)
	cmd.Printf("Watching %s for new rasters...\n", inputDir)
	if err := watcher.Watch(ctx, inputDir, convertPass); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching %s: %w", inputDir, err)
	}
	return nil
}
