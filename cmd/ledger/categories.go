package main

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/spf13/cobra"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
		Long:  `List the built-in categories and add or remove custom ones.`,
	}

	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(addCategoryCmd(a))
	cmd.AddCommand(removeCategoryCmd(a))

	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Long:  `Display the built-in categories followed by custom categories with their index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			custom, err := ledger.CustomCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			tw, err := newTable(cmd.OutOrStdout(), "Index", "Name", "Kind")
			if err != nil {
				return err
			}
			defer flushTable(tw)

			for _, c := range model.BuiltinCategories {
				if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", "-", c.Name(), cli.SubtleStyle.Render("built-in")); err != nil {
					return fmt.Errorf("failed to write category row: %w", err)
				}
			}
			for i, name := range custom {
				if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\n", i, name, "custom"); err != nil {
					return fmt.Errorf("failed to write category row: %w", err)
				}
			}
			return nil
		},
	}
}

func addCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := ledger.AddCustomCategory(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to add category: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added category %q", args[0])))
			return nil
		},
	}
}

func removeCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a custom category",
		Long: `Remove the custom category at the given index, as shown by 'ledger categories list'.

Transactions already filed under the category keep it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category index: %w", err)
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := ledger.RemoveCustomCategory(ctx, index); err != nil {
				return fmt.Errorf("failed to remove category: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed category %d", index)))
			return nil
		},
	}
}
