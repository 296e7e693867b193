package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect conversion runs",
	RunE:  runRunsList,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().IntVar(&flagRunsLimit, "limit", 20,
		"maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	runs, err := store.Runs().List(context.Background(), flagRunsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	cmd.Printf("%-6s %-20s %-10s %6s %6s %6s %6s  %s\n",
		"RUN", "STARTED", "DURATION", "OK", "FAIL", "SKIP", "DUP", "INPUT")
	for _, run := range runs {
		cmd.Printf("%-6d %-20s %-10s %6d %6d %6d %6d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(run),
			run.Stats.Successful,
			run.Stats.Failed,
			run.Stats.Skipped,
			run.Stats.DuplicatesReferenced,
			run.InputDir)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if err := requireStore(); err != nil {
		return err
	}

	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return domain.ErrInvalidInput
	}
	run, err := store.Runs().Get(context.Background(), runID)
	if err != nil {
		return err
	}

	cmd.Printf("Run %d\n", run.ID)
	cmd.Printf("  Input:       %s\n", run.InputDir)
	cmd.Printf("  Started:     %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.Active() {
		cmd.Println("  Ended:       (in progress)")
	} else {
		cmd.Printf("  Ended:       %s (%s)\n",
			run.EndedAt.Local().Format(time.RFC3339), runDuration(run))
	}
	printRunSummary(cmd, run)
	return nil
}

// runDuration formats the elapsed time, or a dash while still active.
func runDuration(run *domain.Run) string {
	if run.Active() {
		return "-"
	}
	return run.EndedAt.Sub(run.StartedAt).Round(time.Second).String()
}
