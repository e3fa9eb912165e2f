package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/output"
)

var (
	reviewerEmail     string
	reviewerName      string
	reviewerTags      []string
	reviewerOnboarded bool
	reviewerQualified bool
)

var reviewerCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "Manage paid reviewers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewerListRun()
	},
}

var reviewerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new reviewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewerAddRun()
	},
}

var reviewerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviewers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewerListRun()
	},
}

var reviewerShowCmd = &cobra.Command{
	Use:   "show <reviewer-id>",
	Short: "Show reviewer details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewerShowRun(args[0])
	},
}

var reviewerRecalcCmd = &cobra.Command{
	Use:   "recalc <reviewer-id>",
	Short: "Recompute a reviewer's tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewerRecalcRun(args[0])
	},
}

func init() {
	reviewerAddCmd.Flags().StringVar(&reviewerEmail, "email", "", "Email address (required)")
	reviewerAddCmd.Flags().StringVar(&reviewerName, "name", "", "Display name")
	reviewerAddCmd.Flags().StringSliceVar(&reviewerTags, "tags", nil, "Genre tags")
	reviewerAddCmd.Flags().BoolVar(&reviewerOnboarded, "onboarded", false, "Mark onboarding complete")
	reviewerAddCmd.Flags().BoolVar(&reviewerQualified, "qualified", false, "Mark qualification check passed")
	_ = reviewerAddCmd.MarkFlagRequired("email")

	reviewerCmd.AddCommand(reviewerAddCmd)
	reviewerCmd.AddCommand(reviewerListCmd)
	reviewerCmd.AddCommand(reviewerShowCmd)
	reviewerCmd.AddCommand(reviewerRecalcCmd)
	rootCmd.AddCommand(reviewerCmd)
}

func reviewerAddRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would register reviewer: %s", reviewerEmail)
		return nil
	}

	rev := &models.Reviewer{
		Email:               reviewerEmail,
		DisplayName:         reviewerName,
		Tags:                reviewerTags,
		OnboardingComplete:  reviewerOnboarded,
		QualificationPassed: reviewerQualified,
	}
	if err := s.CreateReviewer(context.Background(), rev); err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}

	ui.Success("Registered reviewer: %s (%s)", output.Cyan(rev.Email), rev.ID)
	return nil
}

func reviewerListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	reviewers, err := s.ListReviewers(context.Background())
	if err != nil {
		return err
	}

	if len(reviewers) == 0 {
		ui.Info("No reviewers. Use 'wavecrit reviewer add' to register one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Email", "Tier", "Rating", "Reviews", "Commends"})
	for _, r := range reviewers {
		_ = table.Append([]string{
			r.ID,
			output.Cyan(r.Email),
			output.TierColor(string(r.Tier)),
			output.RatingColor(r.Rating),
			fmt.Sprintf("%d", r.CompletedReviews),
			fmt.Sprintf("%d", r.Commendations),
		})
	}
	_ = table.Render()
	return nil
}

func reviewerShowRun(reviewerID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	r, err := s.GetReviewer(context.Background(), reviewerID)
	if err != nil {
		return fmt.Errorf("reviewer not found: %s", reviewerID)
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(r.Email))
	fmt.Fprintf(ui.Out, "  ID:            %s\n", r.ID)
	if r.DisplayName != "" {
		fmt.Fprintf(ui.Out, "  Name:          %s\n", r.DisplayName)
	}
	fmt.Fprintf(ui.Out, "  Tier:          %s\n", output.TierColor(string(r.Tier)))
	fmt.Fprintf(ui.Out, "  Rating:        %s\n", output.RatingColor(r.Rating))
	fmt.Fprintf(ui.Out, "  Reviews:       %d\n", r.CompletedReviews)
	fmt.Fprintf(ui.Out, "  Commendations: %d\n", r.Commendations)
	fmt.Fprintf(ui.Out, "  Onboarded:     %t\n", r.OnboardingComplete)
	fmt.Fprintf(ui.Out, "  Qualified:     %t\n", r.QualificationPassed)
	if r.Restricted {
		fmt.Fprintf(ui.Out, "  Restricted:    %s\n", output.Red("yes"))
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(ui.Out, "  Tags:          %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(ui.Out, "  Joined:        %s\n", r.CreatedAt.Local().Format("2006-01-02"))
	return nil
}

func reviewerRecalcRun(reviewerID string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would recompute tier for reviewer %s", reviewerID)
		return nil
	}

	if err := newRecalculator(s).Recompute(context.Background(), reviewerID); err != nil {
		return fmt.Errorf("recompute tier: %w", err)
	}

	r, err := s.GetReviewer(context.Background(), reviewerID)
	if err != nil {
		return err
	}
	ui.Success("Reviewer %s is tier: %s", reviewerID, output.TierColor(string(r.Tier)))
	return nil
}
