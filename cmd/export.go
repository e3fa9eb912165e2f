package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

var (
	exportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long:  "Export tracks, reviewers, or review intents in various formats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "tracks", "Data type: tracks, reviewers, intents")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "tracks":
		return exportTracks(ctx, s)
	case "reviewers":
		return exportReviewers(ctx, s)
	case "intents":
		return exportIntents(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: tracks, reviewers, intents)", exportType)
	}
}

func exportTracks(ctx context.Context, s store.Store) error {
	tracks, err := s.ListTracks(ctx, store.TrackListFilter{})
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		return writeJSONOut(tracks)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"id", "title", "artist_id", "package", "status", "requested", "completed", "tags"})
		for _, tr := range tracks {
			_ = w.Write([]string{
				tr.ID, tr.Title, tr.ArtistID, string(tr.Package), string(tr.Status),
				fmt.Sprintf("%d", tr.RequestedReviews),
				fmt.Sprintf("%d", tr.CompletedReviews),
				strings.Join(tr.Tags, ";"),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "| Title | Artist | Package | Status | Reviews |")
		fmt.Fprintln(ui.Out, "|-------|--------|---------|--------|---------|")
		for _, tr := range tracks {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %d/%d |\n",
				tr.Title, tr.ArtistID, tr.Package, tr.Status,
				tr.CompletedReviews, tr.RequestedReviews)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: json, csv, markdown)", exportFormat)
	}
}

func exportReviewers(ctx context.Context, s store.Store) error {
	reviewers, err := s.ListReviewers(ctx)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		return writeJSONOut(reviewers)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"id", "email", "tier", "rating", "completed", "commendations"})
		for _, r := range reviewers {
			_ = w.Write([]string{
				r.ID, r.Email, string(r.Tier),
				fmt.Sprintf("%.2f", r.Rating),
				fmt.Sprintf("%d", r.CompletedReviews),
				fmt.Sprintf("%d", r.Commendations),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "| Email | Tier | Rating | Reviews | Commendations |")
		fmt.Fprintln(ui.Out, "|-------|------|--------|---------|---------------|")
		for _, r := range reviewers {
			fmt.Fprintf(ui.Out, "| %s | %s | %.2f | %d | %d |\n",
				r.Email, r.Tier, r.Rating, r.CompletedReviews, r.Commendations)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: json, csv, markdown)", exportFormat)
	}
}

func exportIntents(ctx context.Context, s store.Store) error {
	tracks, err := s.ListTracks(ctx, store.TrackListFilter{})
	if err != nil {
		return err
	}

	var intents []*models.ReviewIntent
	for _, tr := range tracks {
		ris, err := s.ListTrackIntents(ctx, tr.ID)
		if err != nil {
			return err
		}
		intents = append(intents, ris...)
	}

	switch exportFormat {
	case "json":
		return writeJSONOut(intents)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"id", "track_id", "holder", "status", "score"})
		for _, ri := range intents {
			_ = w.Write([]string{
				ri.ID, ri.TrackID, ri.HolderID(), string(ri.Status),
				fmt.Sprintf("%d", ri.Score),
			})
		}
		w.Flush()
		return w.Error()
	case "markdown":
		fmt.Fprintln(ui.Out, "| Track | Holder | Status | Score |")
		fmt.Fprintln(ui.Out, "|-------|--------|--------|-------|")
		for _, ri := range intents {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %d |\n",
				ri.TrackID, ri.HolderID(), ri.Status, ri.Score)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: json, csv, markdown)", exportFormat)
	}
}

func writeJSONOut(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
