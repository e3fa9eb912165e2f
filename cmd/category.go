package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/output"
)

var categoryParent string

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage the genre taxonomy",
	Long:  "Create and list genre category tags. Categories form a two-level parent/child hierarchy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun()
	},
}

var categoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the genre tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryListRun()
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <slug> <name>",
	Short: "Add a genre category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return categoryAddRun(args[0], args[1])
	},
}

func init() {
	categoryAddCmd.Flags().StringVar(&categoryParent, "parent", "", "Parent category slug")
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryAddCmd)
	rootCmd.AddCommand(categoryCmd)
}

func categoryListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	cats, err := s.ListCategories(context.Background())
	if err != nil {
		return err
	}

	if len(cats) == 0 {
		ui.Info("No categories. Use 'wavecrit category add' to create one.")
		return nil
	}

	children := make(map[string][]*models.CategoryTag)
	var roots []*models.CategoryTag
	for _, c := range cats {
		if c.ParentSlug == "" {
			roots = append(roots, c)
		} else {
			children[c.ParentSlug] = append(children[c.ParentSlug], c)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Slug < roots[j].Slug })

	for _, root := range roots {
		fmt.Fprintf(ui.Out, "%s (%s)\n", output.Cyan(root.Name), root.Slug)
		kids := children[root.Slug]
		sort.Slice(kids, func(i, j int) bool { return kids[i].Slug < kids[j].Slug })
		for _, kid := range kids {
			fmt.Fprintf(ui.Out, "  %s (%s)\n", kid.Name, kid.Slug)
		}
	}
	return nil
}

func categoryAddRun(slug, name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create category: %s", slug)
		return nil
	}

	c := &models.CategoryTag{Slug: slug, Name: name, ParentSlug: categoryParent}
	if err := s.UpsertCategory(context.Background(), c); err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	ui.Success("Created category: %s", output.Cyan(slug))
	return nil
}
