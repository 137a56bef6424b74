package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/spf13/cobra"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions", "transaction"},
		Short:   "Record and edit transactions",
		Long: `List, add, update, and delete transactions.

Credits add to asset balances and pay down liabilities; debits do the
opposite. Editing or deleting a transaction reverses its effect on the
account balance.`,
	}

	cmd.AddCommand(listTransactionsCmd(a))
	cmd.AddCommand(addTransactionCmd(a))
	cmd.AddCommand(updateTransactionCmd(a))
	cmd.AddCommand(deleteTransactionCmd(a))

	return cmd
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		accountID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		Long:  `Display the most recent transactions, newest first, optionally for one account.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			var txns []model.Transaction
			if accountID != "" {
				txns, err = ledger.TransactionsForAccount(ctx, accountID)
			} else {
				txns, err = ledger.RecentTransactions(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}
			if limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				writeLine(out, cli.InfoStyle.Render("No transactions found. Use 'ledger tx add' to record one."))
				return nil
			}
			return a.writeTransactions(out, txns, accountID == "")
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only list transactions of this account")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of transactions to show")

	return cmd
}

// writeTransactions renders txns as a table.
func (a *app) writeTransactions(w io.Writer, txns []model.Transaction, withAccount bool) error {
	headers := []string{"ID", "Date", "Category", "Amount", "Notes"}
	if withAccount {
		headers = append(headers, "Account")
	}

	tw, err := newTable(w, headers...)
	if err != nil {
		return err
	}
	defer flushTable(tw)

	for i := range txns {
		t := &txns[i]
		cols := []string{
			t.ID,
			t.Date.Format(dateLayout),
			t.Category.Name(),
			cli.FormatFlow(t.Amount, a.cfg.Currency, t.IsCredit),
			t.Notes,
		}
		if withAccount {
			cols = append(cols, t.AccountID)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return fmt.Errorf("failed to write transaction row: %w", err)
		}
	}
	return nil
}

// flowFlags are the flag values shared by add and update.
type flowFlags struct {
	amount   string
	category string
	notes    string
	credit   bool
}

func (f *flowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, always positive")
	cmd.Flags().StringVar(&f.category, "category", string(model.CategoryOther), "category name, built-in or custom")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&f.credit, "credit", false, "money flowing into the account (default is a debit)")
}

func addTransactionCmd(a *app) *cobra.Command {
	var (
		flags     flowFlags
		accountID string
		date      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record a debit or, with --credit, a credit against an account and
update the account balance accordingly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			amount, err := engine.ParseAmount("amount", flags.amount)
			if err != nil {
				return err
			}
			in := engine.NewTransaction{
				AccountID: accountID,
				Amount:    amount,
				Category:  model.ParseCategory(strings.TrimSpace(flags.category)),
				Notes:     flags.notes,
				IsCredit:  flags.credit,
			}
			if date != "" {
				if in.Date, err = parseDate("date", date); err != nil {
					return err
				}
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			txn, err := ledger.AddTransaction(ctx, in)
			if err != nil {
				return fmt.Errorf("failed to add transaction: %w", err)
			}
			account, err := ledger.Account(ctx, txn.AccountID)
			if err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s on %q (ID: %s), balance now %s",
				cli.FormatFlow(txn.Amount, a.cfg.Currency, txn.IsCredit), account.Name, txn.ID, a.money(account.Balance))))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&accountID, "account", "", "account id")
	cmd.Flags().StringVar(&date, "date", "", "transaction date, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func updateTransactionCmd(a *app) *cobra.Command {
	var flags flowFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a transaction",
		Long: `Change the amount, category, direction or notes of a transaction.

The old amount is reversed on the account before the new one is applied.
Only the flags given are changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			current, err := ledger.Transaction(ctx, args[0])
			if err != nil {
				return err
			}

			upd := engine.TransactionUpdate{
				Amount:   current.Amount,
				Category: current.Category,
				Notes:    current.Notes,
				IsCredit: current.IsCredit,
			}
			if cmd.Flags().Changed("amount") {
				if upd.Amount, err = engine.ParseAmount("amount", flags.amount); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("category") {
				upd.Category = model.ParseCategory(strings.TrimSpace(flags.category))
			}
			if cmd.Flags().Changed("notes") {
				upd.Notes = flags.notes
			}
			if cmd.Flags().Changed("credit") {
				upd.IsCredit = flags.credit
			}

			txn, err := ledger.UpdateTransaction(ctx, current.ID, upd)
			if err != nil {
				return fmt.Errorf("failed to update transaction: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated transaction %s to %s", txn.ID,
				cli.FormatFlow(txn.Amount, a.cfg.Currency, txn.IsCredit))))
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func deleteTransactionCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Long:  `Delete a transaction and reverse its effect on the account balance.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			txn, err := ledger.Transaction(ctx, args[0])
			if err != nil {
				return err
			}

			// Confirm deletion
			if !force && !confirm(cmd, fmt.Sprintf("Delete transaction %s (%s, %s)?",
				txn.ID, txn.Category, a.money(txn.Amount))) {
				writeLine(cmd.OutOrStdout(), "Deletion cancelled.")
				return nil
			}

			if err := ledger.DeleteTransaction(ctx, txn.ID); err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted transaction %s", txn.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
