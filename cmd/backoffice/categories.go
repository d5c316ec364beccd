package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mundobebe/backoffice/app"
	"github.com/mundobebe/backoffice/catalog"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cat"},
	Short:   "Manage catalog categories",
}

var (
	categoryList  listFlags
	categoryCSV   bool
	categoryInput catalog.CreateCategoryInput
	categoryOff   bool
)

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := categoryList.params()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if categoryCSV {
				return a.Catalog.ExportCategories(ctx, p, cmd.OutOrStdout())
			}
			page, err := a.Catalog.GetCategories(ctx, p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		})
	},
}

var categoriesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count active and inactive categories",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			counts, err := a.Catalog.GetCategoryCounts(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		})
	},
}

var categoriesCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := categoryInput
		in.Name = args[0]
		if cmd.Flags().Changed("inactive") {
			active := !categoryOff
			in.Active = &active
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			c, err := a.Catalog.CreateCategory(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete categories and their subcategories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Catalog.DeleteCategories(ctx, catalog.DeleteInput{IDs: splitIDs(args)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d category(ies) deleted\n", n)
			return nil
		})
	},
}

func init() {
	categoryList.register(categoriesListCmd)
	categoriesListCmd.Flags().BoolVar(&categoryCSV, "csv", false, "export every matching row as CSV")

	categoriesCreateCmd.Flags().StringVar(&categoryInput.Slug, "slug", "", "explicit slug (default derived from the name)")
	categoriesCreateCmd.Flags().StringVar(&categoryInput.Description, "description", "", "description")
	categoriesCreateCmd.Flags().BoolVar(&categoryOff, "inactive", false, "create the category inactive")

	categoriesCmd.AddCommand(categoriesListCmd, categoriesCountCmd, categoriesCreateCmd, categoriesDeleteCmd)
}
