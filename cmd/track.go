package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/output"
	"github.com/wavecrit/wavecrit/internal/store"
)

var (
	trackArtist  string
	trackTitle   string
	trackPackage string
	trackReviews int
	trackTags    []string
	trackStatus  string
	trackListArt string
	trackListPkg string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Manage submitted tracks",
	Long:  "Submit, list, and inspect tracks in the review queue.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackListRun()
	},
}

var trackAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Submit a new track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackAddRun()
	},
}

var trackListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackListRun()
	},
}

var trackShowCmd = &cobra.Command{
	Use:   "show <track-id>",
	Short: "Show a track with its leases and review intents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackShowRun(args[0])
	},
}

func init() {
	trackAddCmd.Flags().StringVar(&trackArtist, "artist", "", "Artist ID (required)")
	trackAddCmd.Flags().StringVar(&trackTitle, "title", "", "Track title (required)")
	trackAddCmd.Flags().StringVar(&trackPackage, "package", "standard", "Review package: standard, priority, deep, peer")
	trackAddCmd.Flags().IntVar(&trackReviews, "reviews", 1, "Number of reviews requested")
	trackAddCmd.Flags().StringSliceVar(&trackTags, "tags", nil, "Genre tags")
	_ = trackAddCmd.MarkFlagRequired("artist")
	_ = trackAddCmd.MarkFlagRequired("title")

	trackListCmd.Flags().StringVar(&trackStatus, "status", "", "Filter by status")
	trackListCmd.Flags().StringVar(&trackListArt, "artist", "", "Filter by artist ID")
	trackListCmd.Flags().StringVar(&trackListPkg, "package", "", "Filter by package")

	trackCmd.AddCommand(trackAddCmd)
	trackCmd.AddCommand(trackListCmd)
	trackCmd.AddCommand(trackShowCmd)
	rootCmd.AddCommand(trackCmd)
}

func trackAddRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	pkg := models.Package(trackPackage)
	switch pkg {
	case models.PackageStandard, models.PackagePriority, models.PackageDeep, models.PackagePeer:
	default:
		return fmt.Errorf("unknown package: %s (use: standard, priority, deep, peer)", trackPackage)
	}

	if dryRun {
		ui.DryRunMsg("Would submit track: %s (%s, %d reviews)", trackTitle, pkg, trackReviews)
		return nil
	}

	tr := &models.Track{
		ArtistID:         trackArtist,
		Title:            trackTitle,
		Package:          pkg,
		RequestedReviews: trackReviews,
		Tags:             trackTags,
	}
	if err := s.CreateTrack(context.Background(), tr); err != nil {
		return fmt.Errorf("create track: %w", err)
	}

	ui.Success("Submitted track: %s (%s)", output.Cyan(tr.Title), tr.ID)
	if pkg.PushAssigned() {
		ui.Info("Run 'wavecrit assign %s' once payment clears.", tr.ID)
	} else {
		ui.Info("Peer track: it is now claimable by other artists.")
	}
	return nil
}

func trackListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	filter := store.TrackListFilter{
		ArtistID: trackListArt,
		Package:  models.Package(trackListPkg),
	}
	if trackStatus != "" {
		filter.Statuses = []models.TrackStatus{models.TrackStatus(trackStatus)}
	}

	tracks, err := s.ListTracks(context.Background(), filter)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		ui.Info("No tracks. Use 'wavecrit track add' to submit one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Artist", "Package", "Reviews", "Status", "Submitted"})
	for _, tr := range tracks {
		_ = table.Append([]string{
			tr.ID,
			output.Cyan(tr.Title),
			tr.ArtistID,
			string(tr.Package),
			fmt.Sprintf("%d/%d", tr.CompletedReviews, tr.RequestedReviews),
			output.StatusColor(string(tr.Status)),
			timeAgo(tr.CreatedAt),
		})
	}
	_ = table.Render()
	return nil
}

func trackShowRun(trackID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	tr, err := s.GetTrack(ctx, trackID)
	if err != nil {
		return fmt.Errorf("track not found: %s", trackID)
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(tr.Title))
	fmt.Fprintf(ui.Out, "  ID:       %s\n", tr.ID)
	fmt.Fprintf(ui.Out, "  Artist:   %s\n", tr.ArtistID)
	fmt.Fprintf(ui.Out, "  Package:  %s\n", tr.Package)
	fmt.Fprintf(ui.Out, "  Status:   %s\n", output.StatusColor(string(tr.Status)))
	fmt.Fprintf(ui.Out, "  Reviews:  %d of %d completed\n", tr.CompletedReviews, tr.RequestedReviews)
	if len(tr.Tags) > 0 {
		fmt.Fprintf(ui.Out, "  Tags:     %s\n", strings.Join(tr.Tags, ", "))
	}
	fmt.Fprintln(ui.Out)

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	if err != nil {
		return err
	}
	if len(leases) > 0 {
		fmt.Fprintln(ui.Out, "Active leases:")
		table := ui.Table([]string{"Holder", "Priority", "Assigned", "Expires"})
		for _, l := range leases {
			_ = table.Append([]string{
				l.HolderID(),
				fmt.Sprintf("%d", l.Priority),
				timeAgo(l.AssignedAt),
				l.ExpiresAt.Local().Format("2006-01-02 15:04"),
			})
		}
		_ = table.Render()
		fmt.Fprintln(ui.Out)
	}

	intents, err := s.ListTrackIntents(ctx, tr.ID)
	if err != nil {
		return err
	}
	if len(intents) > 0 {
		fmt.Fprintln(ui.Out, "Review intents:")
		table := ui.Table([]string{"ID", "Holder", "Status", "Score"})
		for _, ri := range intents {
			score := "-"
			if ri.Status == models.IntentStatusCompleted {
				score = fmt.Sprintf("%d", ri.Score)
			}
			_ = table.Append([]string{
				ri.ID,
				ri.HolderID(),
				output.StatusColor(string(ri.Status)),
				score,
			})
		}
		_ = table.Render()
	}
	return nil
}

// timeAgo formats a timestamp as a short relative duration.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
