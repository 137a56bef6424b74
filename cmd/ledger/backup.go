package main

import (
	"fmt"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/spf13/cobra"
)

func backupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up or restore the ledger database",
		Long: `Copy the ledger database to the configured user's backup location, or
replace the ledger with that copy. Each user keeps one backup, which every
new backup overwrites.`,
	}

	cmd.AddCommand(createBackupCmd(a))
	cmd.AddCommand(restoreBackupCmd(a))

	return cmd
}

func createBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Back up the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			info, err := ledger.Backup(ctx)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			body := fmt.Sprintf("User:         %s\nAccounts:     %d\nTransactions: %d\nSize:         %d bytes\nPath:         %s",
				info.UserID, info.Accounts, info.Transactions, info.FileSize, info.Path)
			writeLine(cmd.OutOrStdout(), cli.RenderBox(cli.SuccessIcon+" Backup created", body))
			return nil
		},
	}
}

func restoreBackupCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the ledger from the last backup",
		Long: `Replace the current ledger with the configured user's backup. The backup
is verified first; a damaged backup leaves the ledger untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if !force && !confirm(cmd, fmt.Sprintf("Replace the ledger with the backup of user %q?", a.cfg.UserID)) {
				writeLine(cmd.OutOrStdout(), "Restore cancelled.")
				return nil
			}

			if err := ledger.Restore(ctx); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Restored ledger from backup of user %q", a.cfg.UserID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
