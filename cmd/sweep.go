package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue leases and reassign their slots",
	Long: `Run one lease-expiry sweep: find leases past their deadline, mark
their review intents expired, and re-run assignment on the affected
tracks. The serve daemon runs this automatically on an interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweepRun()
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweepRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would sweep expired leases")
		return nil
	}

	assigner := newAssigner(s)
	res, err := newSweeper(s, assigner).Sweep(context.Background())
	if err != nil {
		return err
	}

	if res.ExpiredCount == 0 {
		ui.Info("No expired leases")
		return nil
	}
	ui.Success("Expired %d lease(s) across %d track(s), reassignment queued",
		res.ExpiredCount, res.AffectedTrackCount)
	return nil
}
