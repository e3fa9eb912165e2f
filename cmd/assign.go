package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/output"
)

var assignAll bool

var assignCmd = &cobra.Command{
	Use:   "assign [track-id]",
	Short: "Assign reviewers to a track",
	Long: `Run the assignment engine for one track, filling its open review
slots with eligible reviewers.

With --all, scan recent unfilled tracks instead and assign each one.
This is the safety net for missed payment webhooks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if assignAll {
			return assignAllRun()
		}
		if len(args) != 1 {
			return fmt.Errorf("track ID required (or use --all)")
		}
		return assignRun(args[0])
	},
}

func init() {
	assignCmd.Flags().BoolVar(&assignAll, "all", false, "Assign all recent unfilled tracks")
	rootCmd.AddCommand(assignCmd)
}

func assignRun(trackID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would assign reviewers to track %s", trackID)
		return nil
	}

	n, err := newAssigner(s).Assign(context.Background(), trackID)
	if err != nil {
		return fmt.Errorf("assign track %s: %w", trackID, err)
	}

	if n == 0 {
		ui.Info("No new assignments for track %s (already filled or no eligible reviewers)", trackID)
		return nil
	}
	ui.Success("Assigned %d reviewer(s) to track %s", n, output.Cyan(trackID))
	return nil
}

func assignAllRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would scan recent tracks for unfilled review slots")
		return nil
	}

	assigner := newAssigner(s)
	n, err := newSweeper(s, assigner).BulkAssign(context.Background())
	if err != nil {
		return fmt.Errorf("bulk assign: %w", err)
	}

	if n == 0 {
		ui.Info("No unfilled tracks found")
		return nil
	}
	ui.Success("Assigned %d reviewer(s) across recent tracks", n)
	return nil
}
