package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/shopspring/decimal"
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	hundred       = decimal.NewFromInt(100)
)

// AccrualResult reports what one interest check did.
type AccrualResult struct {
	Posted []model.Transaction
	// Gated is true when the check did not run because of the gate day.
	Gated   bool
	Skipped int
}

// MonthlyInterest returns balance * rate / 12 / 100 at full precision, where
// rate is an annual percentage. Rounding is left to display.
func MonthlyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(monthsPerYear).Div(hundred)
}

// CheckAndAccrueInterest posts one interest transaction per loan that has not
// accrued in the calendar month of now. Loans whose interest metadata is
// missing or does not parse are skipped. A loan whose interest comes to zero
// or less posts nothing but is marked as accrued for the month. Calling it
// again in the same month posts nothing.
func (l *Ledger) CheckAndAccrueInterest(ctx context.Context, now time.Time) (*AccrualResult, error) {
	result := &AccrualResult{}

	if gate := l.cfg.InterestGateDay; gate > 0 && now.Day() != gate {
		slog.Debug("interest check gated", "day", now.Day(), "gate_day", gate)
		result.Gated = true
		return result, nil
	}

	err := l.mutate(ctx, "accrue interest", func(tx service.Transaction) error {
		result.Posted = result.Posted[:0]
		result.Skipped = 0

		accounts, err := tx.GetAccounts(ctx)
		if err != nil {
			return err
		}

		for i := range accounts {
			account := &accounts[i]
			if account.Type != model.AccountTypeLoan {
				continue
			}

			rate, due, reason := accrualState(account, now)
			if !due {
				slog.Debug("skipping interest accrual", "account_id", account.ID, "reason", reason)
				result.Skipped++
				continue
			}

			interest := MonthlyInterest(account.Balance, rate)
			if !interest.IsPositive() {
				// Nothing is posted, but the month still counts as checked.
				slog.Debug("skipping interest accrual", "account_id", account.ID, "reason", "no interest due")
				account.SetMeta(model.MetaLastInterestDate, formatMetaTime(now))
				if err := tx.SaveAccount(ctx, account); err != nil {
					return err
				}
				result.Skipped++
				continue
			}

			txn := l.interestTransaction(account.ID, interest, rate, now)
			if _, err := postTransaction(ctx, tx, txn); err != nil {
				return err
			}

			// Re-read so the marker is written over the balance just posted.
			stored, err := tx.GetAccount(ctx, account.ID)
			if err != nil {
				return err
			}
			stored.SetMeta(model.MetaLastInterestDate, formatMetaTime(now))
			if err := tx.SaveAccount(ctx, stored); err != nil {
				return err
			}

			result.Posted = append(result.Posted, *txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, txn := range result.Posted {
		slog.Info("Accrued interest",
			"account_id", txn.AccountID,
			"transaction_id", txn.ID,
			"amount", txn.Amount.String())
	}
	return result, nil
}

// AddInterestNow posts one month of interest on a loan immediately. The
// calendar check is not applied and lastInterestDate is left unchanged.
func (l *Ledger) AddInterestNow(ctx context.Context, accountID string, now time.Time) (*model.Transaction, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, common.NewValidationError("accountID", "is required")
	}

	var txn *model.Transaction
	err := l.mutate(ctx, "add interest", func(tx service.Transaction) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Type != model.AccountTypeLoan {
			return common.NewValidationError("accountID", "account %s is a %s, not a loan", accountID, account.Type)
		}

		raw, ok := account.Meta(model.MetaInterestRate)
		if !ok {
			return common.NewValidationError(model.MetaInterestRate, "loan %s has no interest rate", accountID)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return common.NewValidationError(model.MetaInterestRate, "%q is not a number", raw)
		}

		interest := MonthlyInterest(account.Balance, rate)
		if !interest.IsPositive() {
			return common.NewValidationError("balance", "no interest due on balance %s", account.Balance)
		}

		txn = l.interestTransaction(account.ID, interest, rate, now)
		_, err = postTransaction(ctx, tx, txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Added interest",
		"account_id", accountID,
		"transaction_id", txn.ID,
		"amount", txn.Amount.String())
	return txn, nil
}

// accrualState decides whether a loan is due for interest at now and returns
// its parsed annual rate.
func accrualState(account *model.Account, now time.Time) (rate decimal.Decimal, due bool, reason string) {
	raw, ok := account.Meta(model.MetaInterestRate)
	if !ok {
		return decimal.Zero, false, "no interest rate"
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false, "unparsable interest rate"
	}

	rawDate, ok := account.Meta(model.MetaLastInterestDate)
	if !ok {
		return decimal.Zero, false, "no last interest date"
	}
	last, err := parseMetaTime(rawDate)
	if err != nil {
		return decimal.Zero, false, "unparsable last interest date"
	}

	last = last.In(now.Location())
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return decimal.Zero, false, "already posted this month"
	}
	return rate, true, ""
}

func (l *Ledger) interestTransaction(accountID string, interest, rate decimal.Decimal, now time.Time) *model.Transaction {
	return &model.Transaction{
		ID:        l.newID(),
		AccountID: accountID,
		Amount:    interest,
		Category:  model.CategoryInterest,
		IsCredit:  false,
		Notes:     fmt.Sprintf("Monthly Interest @ %s%% per annum", rate.String()),
		Date:      now,
		CreatedAt: l.now(),
	}
}
