package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage accounts",
		Long:    `List, add, update, show, and delete the accounts tracked by the ledger.`,
	}

	cmd.AddCommand(listAccountsCmd(a))
	cmd.AddCommand(addAccountCmd(a))
	cmd.AddCommand(updateAccountCmd(a))
	cmd.AddCommand(showAccountCmd(a))
	cmd.AddCommand(deleteAccountCmd(a))

	return cmd
}

func listAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Long:  `Display every account sorted by name with its balance and type-specific details.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			accounts, err := ledger.Accounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				writeLine(out, cli.InfoStyle.Render("No accounts found. Use 'ledger accounts add' to create one."))
				return nil
			}

			tw, err := newTable(out, "ID", "Name", "Type", "Balance", "Details")
			if err != nil {
				return err
			}
			defer flushTable(tw)

			now := time.Now()
			for i := range accounts {
				acct := &accounts[i]
				if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					acct.ID, acct.Name, acct.Type, a.money(acct.Balance), a.accountDetails(acct, now)); err != nil {
					return fmt.Errorf("failed to write account row: %w", err)
				}
			}
			return nil
		},
	}
}

// accountDetails summarizes the type-specific fields of an account.
func (a *app) accountDetails(acct *model.Account, now time.Time) string {
	switch acct.Type {
	case model.AccountTypeCreditCard:
		if !acct.CreditLimit.IsPositive() {
			return ""
		}
		return fmt.Sprintf("%s%% of %s limit", engine.CreditUtilization(acct), a.money(acct.CreditLimit))
	case model.AccountTypeMutualFund:
		profit, percent := engine.MutualFundReturns(acct)
		return fmt.Sprintf("invested %s, returns %s (%s%%)", a.money(acct.CreditLimit), a.money(profit), percent)
	case model.AccountTypeLoan:
		rate, _ := acct.Meta(model.MetaInterestRate)
		if rate == "" {
			return ""
		}
		details := rate + "% p.a."
		if last, ok := acct.Meta(model.MetaLastInterestDate); ok {
			details += ", last interest " + shortDate(last)
		}
		return details
	case model.AccountTypePersonalLoanGiven:
		v := engine.PersonalLoanValue(acct, now)
		details := fmt.Sprintf("worth %s after %d days", a.money(v.Total), v.Days)
		if borrower, ok := acct.Meta(model.MetaBorrowerName); ok {
			details = "to " + borrower + ", " + details
		}
		return details
	default:
		notes, _ := acct.Meta(model.MetaNotes)
		return notes
	}
}

// shortDate trims an RFC 3339 timestamp to its date.
func shortDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(dateLayout)
	}
	return s
}

// accountFlags are the flag values shared by add and update.
type accountFlags struct {
	balance   string
	limit     string
	rate      string
	borrower  string
	loanDate  string
	notes     string
	name      string
	accountTy string
}

func (f *accountFlags) register(cmd *cobra.Command, withType bool) {
	if withType {
		cmd.Flags().StringVar(&f.accountTy, "type", "", "account type, e.g. bank, cash, credit-card, loan, mutual-fund")
	}
	cmd.Flags().StringVar(&f.balance, "balance", "0", "current balance")
	cmd.Flags().StringVar(&f.limit, "limit", "0", "credit limit, loan principal or invested amount")
	cmd.Flags().StringVar(&f.rate, "rate", "", "annual interest rate in percent (loans and personal loans given)")
	cmd.Flags().StringVar(&f.borrower, "borrower", "", "borrower name (personal loans given)")
	cmd.Flags().StringVar(&f.loanDate, "loan-date", "", "date the loan was made, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

// metadata collects the metadata flags that were set on cmd.
func (f *accountFlags) metadata(cmd *cobra.Command) (map[string]string, error) {
	meta := make(map[string]string)
	if cmd.Flags().Changed("rate") {
		meta[model.MetaInterestRate] = strings.TrimSpace(f.rate)
	}
	if cmd.Flags().Changed("borrower") {
		meta[model.MetaBorrowerName] = strings.TrimSpace(f.borrower)
	}
	if cmd.Flags().Changed("notes") {
		meta[model.MetaNotes] = f.notes
	}
	if cmd.Flags().Changed("loan-date") {
		if f.loanDate == "" {
			meta[model.MetaLoanDate] = ""
		} else {
			date, err := parseDate("loan-date", f.loanDate)
			if err != nil {
				return nil, err
			}
			meta[model.MetaLoanDate] = date.UTC().Format(time.RFC3339)
		}
	}
	return meta, nil
}

func addAccountCmd(a *app) *cobra.Command {
	var flags accountFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new account",
		Long: `Create a new account with an opening balance.

For credit cards --limit is the credit limit, for loans it is the principal
and for mutual funds it is the amount invested. Loans with a --rate accrue
monthly interest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			accountType, err := parseAccountType(flags.accountTy)
			if err != nil {
				return err
			}
			balance, err := engine.ParseAmount("balance", flags.balance)
			if err != nil {
				return err
			}
			limit, err := engine.ParseAmount("limit", flags.limit)
			if err != nil {
				return err
			}
			meta, err := flags.metadata(cmd)
			if err != nil {
				return err
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			account, err := ledger.AddAccount(ctx, engine.NewAccount{
				Name:        args[0],
				Type:        accountType,
				Balance:     balance,
				CreditLimit: limit,
				Metadata:    meta,
			})
			if err != nil {
				return fmt.Errorf("failed to add account: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s account %q (ID: %s)", account.Type, account.Name, account.ID)))
			return nil
		},
	}

	flags.register(cmd, true)
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func updateAccountCmd(a *app) *cobra.Command {
	var flags accountFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account",
		Long: `Update the name, balance, limit or metadata of an existing account.

Only the flags given are changed. Pass an empty value to --rate, --borrower,
--loan-date or --notes to clear it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			current, err := ledger.Account(ctx, args[0])
			if err != nil {
				return err
			}

			upd := engine.AccountUpdate{Name: current.Name}
			if cmd.Flags().Changed("name") {
				upd.Name = flags.name
			}
			if cmd.Flags().Changed("balance") {
				balance, err := engine.ParseAmount("balance", flags.balance)
				if err != nil {
					return err
				}
				upd.Balance = &balance
			}
			if cmd.Flags().Changed("limit") {
				limit, err := engine.ParseAmount("limit", flags.limit)
				if err != nil {
					return err
				}
				upd.CreditLimit = &limit
			}
			if upd.Metadata, err = flags.metadata(cmd); err != nil {
				return err
			}

			account, err := ledger.UpdateAccount(ctx, current.ID, upd)
			if err != nil {
				return fmt.Errorf("failed to update account: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated account %q, balance %s", account.Name, a.money(account.Balance))))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "new account name")
	flags.register(cmd, false)

	return cmd
}

func showAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an account and its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			account, err := ledger.Account(ctx, args[0])
			if err != nil {
				return err
			}
			txns, err := ledger.TransactionsForAccount(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			var body strings.Builder
			fmt.Fprintf(&body, "Type:    %s\n", account.Type)
			fmt.Fprintf(&body, "Balance: %s\n", a.money(account.Balance))
			if !account.CreditLimit.IsZero() {
				fmt.Fprintf(&body, "Limit:   %s\n", a.money(account.CreditLimit))
			}
			if details := a.accountDetails(account, time.Now()); details != "" {
				fmt.Fprintf(&body, "Details: %s\n", details)
			}
			fmt.Fprintf(&body, "Created: %s", account.CreatedAt.Format(dateLayout))

			out := cmd.OutOrStdout()
			writeLine(out, cli.RenderBox(account.Name, body.String()))
			writeLine(out, "")

			if len(txns) == 0 {
				writeLine(out, cli.SubtleStyle.Render("No transactions."))
				return nil
			}
			return a.writeTransactions(out, txns, false)
		},
	}
}

func deleteAccountCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Long:  `Delete an account together with all of its transactions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			account, err := ledger.Account(ctx, args[0])
			if err != nil {
				return err
			}

			// Confirm deletion
			if !force && !confirm(cmd, fmt.Sprintf("Delete account %q and all its transactions?", account.Name)) {
				writeLine(cmd.OutOrStdout(), "Deletion cancelled.")
				return nil
			}

			if err := ledger.DeleteAccount(ctx, account.ID); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted account %q", account.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
