package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/output"
)

var queueCmd = &cobra.Command{
	Use:   "queue <reviewer-or-artist-id>",
	Short: "Show a candidate's review queue",
	Long: `Show the live review queue for a reviewer or peer artist: their
unexpired leases ordered by package priority, then assignment time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queueRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func queueRun(candidateID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	leases, err := s.ListCandidateQueue(ctx, candidateID, time.Now().UTC())
	if err != nil {
		return err
	}

	if len(leases) == 0 {
		ui.Info("Queue for %s is empty", candidateID)
		return nil
	}

	table := ui.Table([]string{"Track", "Package", "Priority", "Assigned", "Expires"})
	for _, l := range leases {
		title, pkg := l.TrackID, "?"
		if tr, err := s.GetTrack(ctx, l.TrackID); err == nil {
			title = tr.Title
			pkg = string(tr.Package)
		}
		expires := l.ExpiresAt.Local().Format("2006-01-02 15:04")
		if time.Until(l.ExpiresAt) < 6*time.Hour {
			expires = output.Yellow(expires)
		}
		_ = table.Append([]string{
			output.Cyan(title),
			pkg,
			fmt.Sprintf("%d", l.Priority),
			timeAgo(l.AssignedAt),
			expires,
		})
	}
	_ = table.Render()
	return nil
}
