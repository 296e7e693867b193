package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/sqlite"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the metadata database",
}

var dbExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all metadata to a JSON file",
	Long: `Writes every conversion record, processing state, hash index entry,
and run to a JSON file. The export is lossless and can be imported into a
fresh database with "db import".`,
	Args: cobra.ExactArgs(1),
	RunE: runDBExport,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import metadata from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBImport,
}

var flagBackupKeep int

var dbBackupCmd = &cobra.Command{
	Use:   "backup [directory]",
	Short: "Write a consistent snapshot of the database",
	Long: `Copies the live database into a timestamped backup file using SQLite's
VACUUM INTO, which is safe while other processes hold the database open.
Defaults to the database's own directory. Backups beyond --keep are pruned,
oldest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDBBackup,
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the database in place",
	RunE:  runDBVacuum,
}

func init() {
	dbBackupCmd.Flags().IntVar(&flagBackupKeep, "keep", 5, "number of backups to retain")
	dbCmd.AddCommand(dbExportCmd)
	dbCmd.AddCommand(dbImportCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbVacuumCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBExport(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := store.ExportJSON(context.Background(), f); err != nil {
		return err
	}
	cmd.Printf("Exported metadata to %s\n", args[0])
	return nil
}

func runDBImport(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()

	if err := store.ImportJSON(context.Background(), f); err != nil {
		return err
	}
	cmd.Printf("Imported metadata from %s\n", args[0])
	return nil
}

func runDBBackup(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	dir := filepath.Dir(store.Path())
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	dest := sqlite.BackupName(dir, time.Now())
	if err := store.Backup(context.Background(), dest); err != nil {
		return err
	}
	cmd.Printf("Backup written to %s\n", dest)

	pruned, err := sqlite.PruneBackups(dir, flagBackupKeep)
	if err != nil {
		return err
	}
	for _, path := range pruned {
		cmd.Printf("Pruned old backup %s\n", path)
	}
	return nil
}

func runDBVacuum(cmd *cobra.Command, _ []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	if err := store.Vacuum(context.Background()); err != nil {
		return err
	}
	cmd.Println("Database compacted.")
	return nil
}
