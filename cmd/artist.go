package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/output"
)

var (
	artistEmail     string
	artistName      string
	artistTags      []string
	artistOnboarded bool
)

var artistCmd = &cobra.Command{
	Use:   "artist",
	Short: "Manage artists and peer review claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		return artistListRun()
	},
}

var artistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new artist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return artistAddRun()
	},
}

var artistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List artists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return artistListRun()
	},
}

var artistClaimableCmd = &cobra.Command{
	Use:   "claimable <artist-id>",
	Short: "List peer tracks the artist can claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return artistClaimableRun(args[0])
	},
}

var artistClaimCmd = &cobra.Command{
	Use:   "claim <artist-id> <track-id>",
	Short: "Claim a peer track for review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return artistClaimRun(args[0], args[1])
	},
}

func init() {
	artistAddCmd.Flags().StringVar(&artistEmail, "email", "", "Email address (required)")
	artistAddCmd.Flags().StringVar(&artistName, "name", "", "Display name")
	artistAddCmd.Flags().StringSliceVar(&artistTags, "tags", nil, "Genre tags")
	artistAddCmd.Flags().BoolVar(&artistOnboarded, "onboarded", false, "Mark onboarding complete")
	_ = artistAddCmd.MarkFlagRequired("email")

	artistCmd.AddCommand(artistAddCmd)
	artistCmd.AddCommand(artistListCmd)
	artistCmd.AddCommand(artistClaimableCmd)
	artistCmd.AddCommand(artistClaimCmd)
	rootCmd.AddCommand(artistCmd)
}

func artistAddRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would register artist: %s", artistEmail)
		return nil
	}

	a := &models.Artist{
		Email:              artistEmail,
		DisplayName:        artistName,
		Tags:               artistTags,
		OnboardingComplete: artistOnboarded,
	}
	if err := s.CreateArtist(context.Background(), a); err != nil {
		return fmt.Errorf("create artist: %w", err)
	}

	ui.Success("Registered artist: %s (%s)", output.Cyan(a.Email), a.ID)
	return nil
}

func artistListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	artists, err := s.ListArtists(context.Background())
	if err != nil {
		return err
	}

	if len(artists) == 0 {
		ui.Info("No artists. Use 'wavecrit artist add' to register one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Email", "Peer Reviews", "Onboarded"})
	for _, a := range artists {
		_ = table.Append([]string{
			a.ID,
			output.Cyan(a.Email),
			fmt.Sprintf("%d", a.PeerReviews),
			fmt.Sprintf("%t", a.OnboardingComplete),
		})
	}
	_ = table.Render()
	return nil
}

func artistClaimableRun(artistID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	tracks, err := newAssigner(s).ListClaimable(context.Background(), artistID)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		ui.Info("No claimable peer tracks for %s", artistID)
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Artist", "Slots", "Submitted"})
	for _, tr := range tracks {
		_ = table.Append([]string{
			tr.ID,
			output.Cyan(tr.Title),
			tr.ArtistID,
			fmt.Sprintf("%d", tr.RequestedReviews),
			timeAgo(tr.CreatedAt),
		})
	}
	_ = table.Render()
	return nil
}

func artistClaimRun(artistID, trackID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would claim track %s for artist %s", trackID, artistID)
		return nil
	}

	if err := newAssigner(s).Claim(context.Background(), trackID, artistID); err != nil {
		return fmt.Errorf("claim track: %w", err)
	}

	ui.Success("Artist %s claimed track %s", artistID, output.Cyan(trackID))
	return nil
}
