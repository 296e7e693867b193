package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/config"
	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cogsync configuration",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the default configuration to the configuration directory
(~/.cogsync/config.toml unless --config is set) so it can be edited.
Fails if a configuration file already exists.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	cmd.Printf("Database:            %s\n", cfg.Database)
	cmd.Printf("Output directory:    %s\n", cfg.OutputDir)
	cmd.Printf("Compression:         %s\n", cfg.COG.Compression)
	cmd.Printf("Block size:          %d\n", cfg.COG.BlockSize)
	cmd.Printf("Overview resampling: %s\n", cfg.COG.OverviewResampling)
	cmd.Printf("Hash algorithm:      %s\n", cfg.Hash.Algorithm)
	cmd.Printf("Duplicate strategy:  %s\n", cfg.Processing.DuplicateStrategy)
	cmd.Printf("Max retries:         %d\n", cfg.Retry.MaxRetries)
	cmd.Printf("Retry delay:         %ds\n", cfg.Retry.RetryDelaySeconds)
	if cfg.Storage.Enabled {
		cmd.Printf("Storage:             gs://%s/%s\n", cfg.Storage.Bucket, cfg.Storage.Prefix)
	} else {
		cmd.Println("Storage:             disabled")
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	dir, err := config.Dir(flagConfigDir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", domain.ErrAlreadyExists, path)
	}
	if err := config.Default().Save(dir); err != nil {
		return err
	}
	cmd.Printf("Wrote default configuration to %s\n", path)
	return nil
}
