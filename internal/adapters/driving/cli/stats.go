package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate conversion statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	stats, err := store.Conversions().Statistics(context.Background())
	if err != nil {
		return err
	}

	cmd.Printf("Conversions:     %d\n", stats.TotalConversions)
	for _, status := range []domain.ConversionStatus{
		domain.StatusCompleted,
		domain.StatusDuplicateReferenced,
		domain.StatusSkipped,
		domain.StatusFailed,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			cmd.Printf("  %-14s %d\n", string(status)+":", n)
		}
	}
	cmd.Printf("Runs:            %d\n", stats.TotalRuns)
	cmd.Printf("Unique content:  %d hashes\n", stats.UniqueHashes)
	cmd.Printf("Original bytes:  %s\n", formatBytes(stats.OriginalBytes))
	cmd.Printf("COG bytes:       %s\n", formatBytes(stats.COGBytes))
	if stats.OriginalBytes > 0 {
		ratio := float64(stats.COGBytes) / float64(stats.OriginalBytes) * 100
		cmd.Printf("Size ratio:      %.1f%%\n", ratio)
	}
	return nil
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
