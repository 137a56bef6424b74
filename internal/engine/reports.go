package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/shopspring/decimal"
)

var daysPerLoanMonth = decimal.NewFromInt(30)

// Summary aggregates balances across all accounts.
type Summary struct {
	BankBalance        decimal.Decimal
	InvestmentBalance  decimal.Decimal
	InvestedTotal      decimal.Decimal
	InvestmentReturns  decimal.Decimal
	TotalAssets        decimal.Decimal
	TotalLiabilities   decimal.Decimal
	CreditCardBalance  decimal.Decimal
	LoanBalance        decimal.Decimal
	LoanPrincipalTotal decimal.Decimal
	CreditLimitTotal   decimal.Decimal
	NetWorth           decimal.Decimal
}

// CategoryTotal is the net flow of one category in a period.
type CategoryTotal struct {
	Category model.Category
	Net      decimal.Decimal
}

// PeriodReport summarizes the transactions in [Start, End).
type PeriodReport struct {
	Start        time.Time
	End          time.Time
	Categories   []CategoryTotal
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	Transactions int
}

// LoanValuation is the current worth of a personal loan given.
type LoanValuation struct {
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Total     decimal.Decimal
	Days      int
}

// Summary computes the balance summary over all accounts.
func (l *Ledger) Summary(ctx context.Context) (*Summary, error) {
	accounts, err := l.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(accounts), nil
}

// Summarize computes a balance summary. Net worth is total assets minus total
// liabilities.
func Summarize(accounts []model.Account) *Summary {
	s := &Summary{}
	for _, a := range accounts {
		switch a.Type {
		case model.AccountTypeBank:
			s.BankBalance = s.BankBalance.Add(a.Balance)
		case model.AccountTypeMutualFund:
			s.InvestmentBalance = s.InvestmentBalance.Add(a.Balance)
			s.InvestedTotal = s.InvestedTotal.Add(a.CreditLimit)
		case model.AccountTypeCreditCard:
			s.CreditCardBalance = s.CreditCardBalance.Add(a.Balance)
			s.CreditLimitTotal = s.CreditLimitTotal.Add(a.CreditLimit)
		case model.AccountTypeLoan:
			s.LoanBalance = s.LoanBalance.Add(a.Balance)
			s.LoanPrincipalTotal = s.LoanPrincipalTotal.Add(a.CreditLimit)
		}

		if a.Type.IsAsset() {
			s.TotalAssets = s.TotalAssets.Add(a.Balance)
		} else {
			s.TotalLiabilities = s.TotalLiabilities.Add(a.Balance)
		}
	}
	s.InvestmentReturns = s.InvestmentBalance.Sub(s.InvestedTotal)
	s.NetWorth = s.TotalAssets.Sub(s.TotalLiabilities)
	return s
}

// PeriodReport totals transactions dated in [start, end) by category.
// Categories are ordered by the magnitude of their net flow, largest first.
func (l *Ledger) PeriodReport(ctx context.Context, start, end time.Time) (*PeriodReport, error) {
	if !end.After(start) {
		return nil, common.NewValidationError("end", "must be after start")
	}

	l.mu.RLock()
	txns, err := l.store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
	l.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	report := &PeriodReport{Start: start, End: end, Transactions: len(txns)}
	nets := make(map[model.Category]decimal.Decimal)
	var order []model.Category
	for i := range txns {
		t := &txns[i]
		if t.IsCredit {
			report.Income = report.Income.Add(t.Amount)
		} else {
			report.Expenses = report.Expenses.Add(t.Amount)
		}
		if _, seen := nets[t.Category]; !seen {
			order = append(order, t.Category)
		}
		nets[t.Category] = nets[t.Category].Add(t.SignedAmount())
	}

	for _, c := range order {
		report.Categories = append(report.Categories, CategoryTotal{Category: c, Net: nets[c]})
	}
	sort.SliceStable(report.Categories, func(i, j int) bool {
		ai, aj := report.Categories[i].Net.Abs(), report.Categories[j].Net.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return report.Categories[i].Category < report.Categories[j].Category
	})
	return report, nil
}

// PersonalLoanValue values a personal loan given at now. The interest rate is
// per 100 of principal per 30-day month, accrued on whole elapsed days since
// loanDate. Missing or unparsable terms value the loan at its principal.
func PersonalLoanValue(account *model.Account, now time.Time) LoanValuation {
	v := LoanValuation{Principal: account.CreditLimit, Total: account.CreditLimit}

	rawRate, ok := account.Meta(model.MetaInterestRate)
	if !ok {
		return v
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(rawRate))
	if err != nil {
		return v
	}
	rawDate, ok := account.Meta(model.MetaLoanDate)
	if !ok {
		return v
	}
	loanDate, err := parseMetaTime(rawDate)
	if err != nil {
		return v
	}

	days := int(now.Sub(loanDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	months := decimal.NewFromInt(int64(days)).Div(daysPerLoanMonth)

	v.Days = days
	v.Interest = v.Principal.Div(hundred).Mul(rate).Mul(months).Round(2)
	v.Total = v.Principal.Add(v.Interest)
	return v
}

// MutualFundReturns returns the profit over the invested cost basis and, when
// the cost basis is positive, the return as a percentage.
func MutualFundReturns(account *model.Account) (profit, percent decimal.Decimal) {
	profit = account.Balance.Sub(account.CreditLimit)
	if account.CreditLimit.IsPositive() {
		percent = profit.Div(account.CreditLimit).Mul(hundred).Round(2)
	}
	return profit, percent
}

// CreditUtilization returns the balance as a percentage of the credit limit,
// or zero when no limit is set.
func CreditUtilization(account *model.Account) decimal.Decimal {
	if !account.CreditLimit.IsPositive() {
		return decimal.Zero
	}
	return account.Balance.Div(account.CreditLimit).Mul(hundred).Round(1)
}
