package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates automatically; this one only reports what it did.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			status, _ := cmd.Flags().GetBool("status")

			slog.Info("Starting database migration",
				"database", a.cfg.DatabasePath,
				"status_only", status)

			store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			before, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if status {
				writeLine(out, cli.FormatInfo(fmt.Sprintf("Database %s is at schema version %d of %d",
					a.cfg.DatabasePath, before, storage.ExpectedSchemaVersion)))
				return nil
			}

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if before == storage.ExpectedSchemaVersion {
				writeLine(out, cli.FormatSuccess(fmt.Sprintf("Database already at schema version %d", before)))
				return nil
			}
			writeLine(out, cli.FormatSuccess(fmt.Sprintf("Migrated database from schema version %d to %d",
				before, storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}
