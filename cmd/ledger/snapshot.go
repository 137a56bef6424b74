package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/spf13/cobra"
)

func snapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the whole ledger as JSON",
		Long: `Write every account, transaction and custom category to a JSON document,
or replace the ledger with the contents of one.`,
	}

	cmd.AddCommand(exportSnapshotCmd(a))
	cmd.AddCommand(importSnapshotCmd(a))

	return cmd
}

func exportSnapshotCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to a snapshot file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			snapshot, err := ledger.ExportSnapshot(ctx)
			if err != nil {
				return fmt.Errorf("failed to export snapshot: %w", err)
			}

			if output == "" || output == "-" {
				return engine.EncodeSnapshot(cmd.OutOrStdout(), snapshot)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := engine.EncodeSnapshot(f, snapshot); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			writeLine(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Exported %d accounts and %d transactions to %s",
				len(snapshot.Accounts), len(snapshot.Transactions), output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func importSnapshotCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger with a snapshot file",
		Long: `Validate a snapshot document and replace the entire ledger with it.

The document is checked completely before anything is written. If any
record is invalid the current ledger is left untouched. Use "-" to read
from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open snapshot: %w", err)
				}
				defer func() {
					if closeErr := f.Close(); closeErr != nil {
						slog.Warn("failed to close snapshot file", "error", closeErr)
					}
				}()
				r = f
			}

			snapshot, err := engine.DecodeSnapshot(r)
			if err != nil {
				return err
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if !force && !confirm(cmd, "Replace the entire ledger with this snapshot?") {
				writeLine(cmd.OutOrStdout(), "Import cancelled.")
				return nil
			}

			progress := cli.NewProgress(cmd.ErrOrStderr(), "Validating snapshot...")
			if err := ledger.ImportSnapshot(ctx, snapshot, engine.WithProgress(progress)); err != nil {
				return fmt.Errorf("failed to import snapshot: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d accounts, %d transactions and %d custom categories",
				len(snapshot.Accounts), len(snapshot.Transactions), len(snapshot.CustomCategories))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
