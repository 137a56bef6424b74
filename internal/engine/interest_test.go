package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (tl *testLedger) mustAddLoan(t *testing.T, balance string, meta map[string]string) *model.Account {
	t.Helper()
	loan, err := tl.AddAccount(context.Background(), NewAccount{
		Name:     "Home improvement",
		Type:     model.AccountTypeLoan,
		Balance:  dec(balance),
		Metadata: meta,
	})
	require.NoError(t, err)
	return loan
}

func TestMonthlyInterest(t *testing.T) {
	assert.True(t, MonthlyInterest(dec("12000"), dec("12")).Equal(dec("120")))
	assert.True(t, MonthlyInterest(dec("1000"), dec("7.5")).Equal(dec("6.25")))
	assert.True(t, MonthlyInterest(dec("333"), dec("10")).Equal(dec("2.775")))
}

func TestCheckAndAccrueInterest_PostsOncePerMonth(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	loan := tl.mustAddLoan(t, "12000", map[string]string{
		model.MetaInterestRate:     "12",
		model.MetaLastInterestDate: "2024-02-29T09:00:00Z",
	})

	result, err := tl.CheckAndAccrueInterest(ctx, testStart)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)

	txn := result.Posted[0]
	assert.True(t, txn.Amount.Equal(dec("120")))
	assert.False(t, txn.IsCredit)
	assert.Equal(t, model.CategoryInterest, txn.Category)
	assert.Equal(t, "Monthly Interest @ 12% per annum", txn.Notes)
	assert.True(t, txn.Date.Equal(testStart))

	stored, err := tl.Account(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("12120")), "debit raises a loan balance")
	last, _ := stored.Meta(model.MetaLastInterestDate)
	assert.Equal(t, "2024-03-30T09:00:00Z", last)

	again, err := tl.CheckAndAccrueInterest(ctx, testStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again.Posted)
	assert.Equal(t, 1, again.Skipped)

	txns, err := tl.TransactionsForAccount(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestCheckAndAccrueInterest_SameMonthOtherYearIsDue(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())

	tl.mustAddLoan(t, "1200", map[string]string{
		model.MetaInterestRate:     "10",
		model.MetaLastInterestDate: "2023-03-30T09:00:00Z",
	})

	result, err := tl.CheckAndAccrueInterest(context.Background(), testStart)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.True(t, result.Posted[0].Amount.Equal(dec("10")))
}

func TestCheckAndAccrueInterest_GateDay(t *testing.T) {
	tests := []struct {
		now      time.Time
		name     string
		gateDay  int
		wantPost bool
	}{
		{name: "default gate on the 30th", gateDay: 30, now: testStart, wantPost: true},
		{name: "default gate on the 15th", gateDay: 30, now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), wantPost: false},
		{name: "gate disabled", gateDay: 0, now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), wantPost: true},
		{name: "custom gate", gateDay: 1, now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), wantPost: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestLedger(t, Config{InterestGateDay: tt.gateDay})
			tl.mustAddLoan(t, "1200", map[string]string{
				model.MetaInterestRate:     "10",
				model.MetaLastInterestDate: "2024-01-30T09:00:00Z",
			})

			result, err := tl.CheckAndAccrueInterest(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Equal(t, !tt.wantPost, result.Gated)
			if tt.wantPost {
				assert.Len(t, result.Posted, 1)
			} else {
				assert.Empty(t, result.Posted)
			}
		})
	}
}

func TestCheckAndAccrueInterest_SkipsSilently(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	skipped := []map[string]string{
		nil,
		{model.MetaInterestRate: "abc", model.MetaLastInterestDate: "2024-01-01T00:00:00Z"},
		{model.MetaInterestRate: "12", model.MetaLastInterestDate: "last tuesday"},
	}
	for _, meta := range skipped {
		account, err := tl.AddAccount(ctx, NewAccount{Name: "Legacy", Type: model.AccountTypeLoan, Balance: dec("1000")})
		require.NoError(t, err)

		// Write legacy metadata straight to the store, bypassing validation.
		account.Metadata = meta
		require.NoError(t, tl.db.Storage.SaveAccount(ctx, account))
	}

	// Zero balance produces no interest.
	tl.mustAddLoan(t, "0", map[string]string{
		model.MetaInterestRate:     "12",
		model.MetaLastInterestDate: "2024-01-01T00:00:00Z",
	})
	// Non-loan accounts are ignored entirely.
	tl.mustAddAccount(t, "Mortgage", model.AccountTypeMortgage, "100000")

	result, err := tl.CheckAndAccrueInterest(ctx, testStart)
	require.NoError(t, err)
	assert.Empty(t, result.Posted)
	assert.Equal(t, 4, result.Skipped)
}

func TestCheckAndAccrueInterest_ZeroInterestAdvancesMarker(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	loan := tl.mustAddLoan(t, "0", map[string]string{
		model.MetaInterestRate:     "12",
		model.MetaLastInterestDate: "2024-01-01T00:00:00Z",
	})

	result, err := tl.CheckAndAccrueInterest(ctx, testStart)
	require.NoError(t, err)
	assert.Empty(t, result.Posted)
	assert.Equal(t, 1, result.Skipped)

	stored, err := tl.Account(ctx, loan.ID)
	require.NoError(t, err)
	last, _ := stored.Meta(model.MetaLastInterestDate)
	assert.Equal(t, "2024-03-30T09:00:00Z", last)
	assert.True(t, stored.Balance.IsZero())

	txns, err := tl.TransactionsForAccount(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCheckAndAccrueInterest_KeepsFullPrecision(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())

	loan := tl.mustAddLoan(t, "333", map[string]string{
		model.MetaInterestRate:     "10",
		model.MetaLastInterestDate: "2024-02-29T09:00:00Z",
	})

	result, err := tl.CheckAndAccrueInterest(context.Background(), testStart)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.True(t, result.Posted[0].Amount.Equal(dec("2.775")))
	assert.True(t, tl.balance(t, loan.ID).Equal(dec("335.775")))
}

func TestCheckAndAccrueInterest_LoanCreatedThisMonthWaits(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	tl.mustAddLoan(t, "5000", map[string]string{model.MetaInterestRate: "12"})

	result, err := tl.CheckAndAccrueInterest(context.Background(), testStart)
	require.NoError(t, err)
	assert.Empty(t, result.Posted)

	next := time.Date(2024, time.April, 30, 9, 0, 0, 0, time.UTC)
	result, err = tl.CheckAndAccrueInterest(context.Background(), next)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.True(t, result.Posted[0].Amount.Equal(dec("50")))
}

func TestAddInterestNow(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	loan := tl.mustAddLoan(t, "12000", map[string]string{model.MetaInterestRate: "12"})
	marker, _ := loan.Meta(model.MetaLastInterestDate)

	// Posts even though the loan accrued this month and today is not the gate day.
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	txn, err := tl.AddInterestNow(ctx, loan.ID, now)
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("120")))
	assert.True(t, txn.Date.Equal(now))

	stored, err := tl.Account(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("12120")))
	after, _ := stored.Meta(model.MetaLastInterestDate)
	assert.Equal(t, marker, after, "manual interest leaves the accrual marker alone")

	// Interest is computed from the current balance.
	txn, err = tl.AddInterestNow(ctx, loan.ID, now)
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("121.2")))
}

func TestAddInterestNow_Errors(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	bank := tl.mustAddAccount(t, "Checking", model.AccountTypeBank, "100")
	noRate := tl.mustAddLoan(t, "100", nil)

	_, err := tl.AddInterestNow(ctx, bank.ID, testStart)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = tl.AddInterestNow(ctx, noRate.ID, testStart)
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = tl.AddInterestNow(ctx, "ghost", testStart)
	assert.ErrorIs(t, err, common.ErrNotFound)

	recent, err := tl.RecentTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
