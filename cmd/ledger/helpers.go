package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// initStorage opens the configured database and runs migrations.
func (a *app) initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openLedger builds a ledger over the configured database. The returned
// function closes the underlying storage.
func (a *app) openLedger(ctx context.Context) (*engine.Ledger, func(), error) {
	store, err := a.initStorage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	closeStore := func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}

	opts := []engine.Option{}
	if a.cfg.BackupDir != "" {
		backups, err := store.NewBackupManager(a.cfg.BackupDir)
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("failed to initialize backups: %w", err)
		}
		opts = append(opts, engine.WithBackupStore(backups))
	}

	ledger := engine.New(store, engine.Config{
		UserID:          a.cfg.UserID,
		RecentLimit:     a.cfg.RecentLimit,
		InterestGateDay: a.cfg.InterestGateDay,
	}, opts...)

	return ledger, closeStore, nil
}

// money formats an amount in the configured display currency.
func (a *app) money(d decimal.Decimal) string {
	return cli.FormatAmount(d, a.cfg.Currency)
}

// newTable returns a tab-aligned writer with a styled header row.
func newTable(w io.Writer, headers ...string) (*tabwriter.Writer, error) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = cli.HeaderStyle.Render(h)
		rules[i] = strings.Repeat("─", max(len(h), 4))
	}

	if _, err := fmt.Fprintln(tw, strings.Join(styled, "\t")); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(rules, "\t")); err != nil {
		return nil, fmt.Errorf("failed to write separator: %w", err)
	}
	return tw, nil
}

func flushTable(tw *tabwriter.Writer) {
	if err := tw.Flush(); err != nil {
		slog.Error("failed to flush table writer", "error", err)
	}
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt(question+" (y/N)"))
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// parseAccountType accepts an account type tag in any case, with spaces,
// dashes or underscores between words ("credit-card", "Credit Card"). A
// trailing "account" may be left off.
func parseAccountType(s string) (model.AccountType, error) {
	want := normalizeTag(s)
	for _, t := range model.AccountTypes {
		tag := normalizeTag(string(t))
		if tag == want || strings.TrimSuffix(tag, "account") == want {
			return t, nil
		}
	}

	names := make([]string, len(model.AccountTypes))
	for i, t := range model.AccountTypes {
		names[i] = string(t)
	}
	return "", fmt.Errorf("unknown account type %q (valid: %s)", s, strings.Join(names, ", "))
}

func normalizeTag(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// parseDate parses a YYYY-MM-DD flag value as midnight UTC.
func parseDate(flag, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", flag, s)
	}
	return t, nil
}

func writeLine(w io.Writer, s string) {
	if _, err := fmt.Fprintln(w, s); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
