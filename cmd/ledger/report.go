package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/spf13/cobra"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summaries of balances and spending",
	}

	cmd.AddCommand(summaryReportCmd(a))
	cmd.AddCommand(periodReportCmd(a))

	return cmd
}

func summaryReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show assets, liabilities and net worth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			s, err := ledger.Summary(ctx)
			if err != nil {
				return fmt.Errorf("failed to summarize ledger: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" Summary", a.formatSummary(s)))
			return nil
		},
	}
}

func (a *app) formatSummary(s *engine.Summary) string {
	var b strings.Builder
	row := func(label string, value string) {
		fmt.Fprintf(&b, "%-20s %s\n", label, value)
	}

	row("Bank", a.money(s.BankBalance))
	row("Investments", fmt.Sprintf("%s (invested %s, returns %s)",
		a.money(s.InvestmentBalance), a.money(s.InvestedTotal), a.money(s.InvestmentReturns)))
	row("Credit cards", fmt.Sprintf("%s of %s limit", a.money(s.CreditCardBalance), a.money(s.CreditLimitTotal)))
	row("Loans", fmt.Sprintf("%s (principal %s)", a.money(s.LoanBalance), a.money(s.LoanPrincipalTotal)))
	row("Total assets", a.money(s.TotalAssets))
	row("Total liabilities", a.money(s.TotalLiabilities))

	net := a.money(s.NetWorth)
	if s.NetWorth.IsNegative() {
		net = cli.NegativeStyle.Render(net)
	} else {
		net = cli.PositiveStyle.Render(net)
	}
	fmt.Fprintf(&b, "%-20s %s", "Net worth", cli.BoldStyle.Render(net))
	return b.String()
}

func periodReportCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Show income and spending by category for a date range",
		Long: `Total the transactions dated from --from up to but excluding --to,
grouped by category. Defaults to the current calendar month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			now := time.Now().UTC()
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 1, 0)
			var err error
			if from != "" {
				if start, err = parseDate("from", from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = parseDate("to", to); err != nil {
					return err
				}
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := ledger.PeriodReport(ctx, start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writeLine(out, cli.FormatTitle(fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout))))
			writeLine(out, fmt.Sprintf("Income:   %s", cli.PositiveStyle.Render(a.money(report.Income))))
			writeLine(out, fmt.Sprintf("Expenses: %s", cli.NegativeStyle.Render(a.money(report.Expenses))))
			writeLine(out, fmt.Sprintf("Transactions: %d", report.Transactions))
			writeLine(out, "")

			if len(report.Categories) == 0 {
				return nil
			}

			tw, err := newTable(out, "Category", "Net")
			if err != nil {
				return err
			}
			defer flushTable(tw)

			for _, c := range report.Categories {
				net := cli.FormatFlow(c.Net, a.cfg.Currency, !c.Net.IsNegative())
				if _, err := fmt.Fprintf(tw, "%s\t%s\n", c.Category.Name(), net); err != nil {
					return fmt.Errorf("failed to write category row: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default: start of this month)")
	cmd.Flags().StringVar(&to, "to", "", "day after the last, YYYY-MM-DD (default: start of next month)")

	return cmd
}
