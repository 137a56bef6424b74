package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/cli"
	"github.com/Veraticus/pocket-ledger/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func interestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Accrue loan interest",
		Long: `Post monthly interest on loan accounts.

Automatic accrual runs once per loan per calendar month, on the configured
gate day (interest.gate_day, 0 for any day).`,
	}

	cmd.AddCommand(checkInterestCmd(a))
	cmd.AddCommand(addInterestCmd(a))
	cmd.AddCommand(watchInterestCmd(a))

	return cmd
}

func checkInterestCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Accrue interest on every loan that is due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			now := time.Now()
			if date != "" {
				var err error
				if now, err = parseDate("date", date); err != nil {
					return err
				}
			}

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := ledger.CheckAndAccrueInterest(ctx, now)
			if err != nil {
				return fmt.Errorf("interest check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.Gated {
				writeLine(out, cli.FormatInfo(fmt.Sprintf("Interest is only accrued on day %d of the month", ledger.Config().InterestGateDay)))
				return nil
			}
			for _, txn := range result.Posted {
				writeLine(out, cli.FormatSuccess(fmt.Sprintf("Posted %s interest to %s", a.money(txn.Amount), txn.AccountID)))
			}
			writeLine(out, cli.FormatInfo(fmt.Sprintf("%d posted, %d skipped", len(result.Posted), result.Skipped)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "check as of this date, YYYY-MM-DD (default now)")

	return cmd
}

func addInterestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <account-id>",
		Short: "Post one month of interest on a loan now",
		Long: `Post one month of interest on a loan immediately, ignoring the gate day.

This does not count as the month's automatic accrual.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ledger, closeStore, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			txn, err := ledger.AddInterestNow(ctx, args[0], time.Now())
			if err != nil {
				return fmt.Errorf("failed to add interest: %w", err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Posted %s interest (ID: %s)", a.money(txn.Amount), txn.ID)))
			return nil
		},
	}
}

func watchInterestCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep running and accrue interest as it becomes due",
		Long: `Check for due loan interest immediately and then on every interval until
interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.InterestCheckInterval
			}

			ledger, closeStore, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			writeLine(cmd.OutOrStdout(), cli.FormatTitle(fmt.Sprintf("Watching loan interest every %s", interval)))

			g, ctx := errgroup.WithContext(cmd.Context())
			handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Stopping interest scheduler.")
			g.Go(func() error {
				return handler.Wait(ctx)
			})
			g.Go(func() error {
				return engine.NewScheduler(ledger, interval).Run(ctx)
			})

			err = g.Wait()
			if errors.Is(err, cli.ErrInterrupted) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "time between checks (default from interest.check_interval)")

	return cmd
}
