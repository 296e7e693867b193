// Package cli implements the cogsync command line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/sqlite"
	"github.com/meridian-labs/cogsync-cli/internal/config"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driving"
	"github.com/meridian-labs/cogsync-cli/internal/logger"
)

// version is overridden at build time via ldflags.
var version = "dev"

// Persistent flag values.
var (
	flagVerbose   bool
	flagConfigDir string
	flagDatabase  string
)

// Injected collaborators. initServices wires the real implementations on
// first use; tests swap them directly.
var (
	cfg      *config.Config
	store    *sqlite.Store
	pipeline driving.Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "cogsync",
	Short: "Convert rasters to Cloud-Optimized GeoTIFFs",
	Long: `cogsync converts raster datasets (GeoTIFF, world images, grids, ECW)
to Cloud-Optimized GeoTIFFs, tracks every conversion in a local metadata
database, deduplicates identical content, and optionally uploads artifacts
to a storage bucket under content-addressed names.

Re-running over the same input directory is cheap: files already processed
are skipped unless they changed on disk.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "",
		"configuration directory (default ~/.cogsync)")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "database", "",
		"metadata database path (overrides configuration)")
}

// Execute runs the root command.
func Execute() error {
	defer closeStore()
	return rootCmd.Execute()
}

// initConfig loads configuration once per invocation.
func initConfig() error {
	if cfg != nil {
		return nil
	}
	dir, err := config.Dir(flagConfigDir)
	if err != nil {
		return err
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if flagDatabase != "" {
		loaded.Database = flagDatabase
	}
	cfg = loaded
	return nil
}

// initStore opens the metadata database once per invocation.
func initStore() error {
	if store != nil {
		return nil
	}
	if err := initConfig(); err != nil {
		return err
	}
	s, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening metadata database: %w", err)
	}
	store = s
	return nil
}

func closeStore() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing metadata database: %v", err)
		}
		store = nil
	}
}

// requireStore is the shared preamble for commands that read metadata.
func requireStore() error {
	if err := initStore(); err != nil {
		return err
	}
	if store == nil {
		return errors.New("metadata store not configured")
	}
	return nil
}
