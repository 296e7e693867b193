package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

var (
	flagConvStatus string
	flagConvLimit  int
)

var conversionsCmd = &cobra.Command{
	Use:   "conversions",
	Short: "Inspect recorded conversions",
	RunE:  runConversionsList,
}

var conversionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded conversions",
	RunE:  runConversionsList,
}

func init() {
	conversionsCmd.PersistentFlags().StringVar(&flagConvStatus, "status", "",
		"filter by status: completed, failed, skipped, duplicate_referenced")
	conversionsCmd.PersistentFlags().IntVar(&flagConvLimit, "limit", 50,
		"maximum number of conversions to list")
	conversionsCmd.AddCommand(conversionsListCmd)
	rootCmd.AddCommand(conversionsCmd)
}

func runConversionsList(cmd *cobra.Command, _ []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	status := domain.ConversionStatus(flagConvStatus)
	if status != "" && !status.Valid() {
		return domain.ErrInvalidInput
	}

	records, err := store.Conversions().List(context.Background(), status, flagConvLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("No conversions recorded yet.")
		return nil
	}

	cmd.Printf("%-6s %-22s %-34s  %s\n", "ID", "STATUS", "HASH", "PATH")
	for _, rec := range records {
		hash := rec.ContentHash
		if hash == "" {
			hash = "-"
		}
		cmd.Printf("%-6d %-22s %-34s  %s\n", rec.ID, rec.Status, hash, rec.OriginalPath)
		if rec.IsDuplicate() && rec.DuplicateOfPath != "" {
			cmd.Printf("%-6s %-22s %-34s  -> %s\n", "", "", "", rec.DuplicateOfPath)
		}
		if rec.Status == domain.StatusFailed && rec.ErrorMessage != "" {
			cmd.Printf("%-6s %-22s %-34s  !! %s\n", "", "", "", rec.ErrorMessage)
		}
	}
	return nil
}
