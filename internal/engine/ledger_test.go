package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.March, 30, 9, 0, 0, 0, time.UTC)

type testLedger struct {
	*Ledger
	db    *testutil.TestDB
	clock *testutil.Clock
}

func newTestLedger(t *testing.T, cfg Config) *testLedger {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := testutil.NewClock(testStart)
	l := New(db.Storage, cfg,
		WithClock(clock.Now),
		WithIDGenerator(testutil.SequentialIDs("id")),
		WithBackupStore(db.BackupManager()),
	)
	return &testLedger{Ledger: l, db: db, clock: clock}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (tl *testLedger) mustAddAccount(t *testing.T, name string, accountType model.AccountType, balance string) *model.Account {
	t.Helper()
	account, err := tl.AddAccount(context.Background(), NewAccount{
		Name:    name,
		Type:    accountType,
		Balance: dec(balance),
	})
	require.NoError(t, err)
	return account
}

func (tl *testLedger) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	account, err := tl.Account(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}

func TestNew_AppliesDefaults(t *testing.T) {
	l := New(nil, Config{InterestGateDay: -3})
	cfg := l.Config()
	assert.Equal(t, 50, cfg.RecentLimit)
	assert.Equal(t, "local", cfg.UserID)
	assert.Equal(t, 0, cfg.InterestGateDay)
}

func TestAddAccount(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	account, err := tl.AddAccount(ctx, NewAccount{
		Name:        "  Visa  ",
		Type:        model.AccountTypeCreditCard,
		Balance:     dec("120.50"),
		CreditLimit: dec("5000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", account.ID)
	assert.Equal(t, "Visa", account.Name)
	assert.True(t, account.CreatedAt.Equal(testStart))

	stored, err := tl.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("120.50")))
	assert.True(t, stored.CreditLimit.Equal(dec("5000")))
}

func TestAddAccount_Validation(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewAccount
	}{
		{name: "missing name", in: NewAccount{Type: model.AccountTypeCash}},
		{name: "unknown type", in: NewAccount{Name: "X", Type: "Crypto"}},
		{
			name: "unparsable loan rate",
			in: NewAccount{
				Name:     "Car",
				Type:     model.AccountTypeLoan,
				Metadata: map[string]string{model.MetaInterestRate: "twelve"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.AddAccount(ctx, tt.in)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	accounts, err := tl.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAddAccount_LoanDefaultsLastInterestDate(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	loan, err := tl.AddAccount(ctx, NewAccount{
		Name:     "Car loan",
		Type:     model.AccountTypeLoan,
		Balance:  dec("10000"),
		Metadata: map[string]string{model.MetaInterestRate: "9.5"},
	})
	require.NoError(t, err)

	last, ok := loan.Meta(model.MetaLastInterestDate)
	require.True(t, ok)
	assert.Equal(t, "2024-03-30T09:00:00Z", last)

	plain, err := tl.AddAccount(ctx, NewAccount{Name: "Family loan", Type: model.AccountTypeLoan})
	require.NoError(t, err)
	_, ok = plain.Meta(model.MetaLastInterestDate)
	assert.False(t, ok, "no rate means no accrual marker")
}

func TestUpdateAccount(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	account, err := tl.AddAccount(ctx, NewAccount{
		Name:        "Loan to Sam",
		Type:        model.AccountTypePersonalLoanGiven,
		Balance:     dec("1000"),
		CreditLimit: dec("1000"),
		Metadata: map[string]string{
			model.MetaBorrowerName: "Sam",
			model.MetaNotes:        "birthday",
		},
	})
	require.NoError(t, err)

	limit := dec("1500")
	balance := dec("1500")
	updated, err := tl.UpdateAccount(ctx, account.ID, AccountUpdate{
		Name:        "Loan to Sam R.",
		Balance:     &balance,
		CreditLimit: &limit,
		Metadata:    map[string]string{model.MetaNotes: "", model.MetaInterestRate: "1.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Loan to Sam R.", updated.Name)
	assert.Equal(t, model.AccountTypePersonalLoanGiven, updated.Type)

	stored, err := tl.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("1500")))
	assert.True(t, stored.CreditLimit.Equal(limit))
	_, hasNotes := stored.Meta(model.MetaNotes)
	assert.False(t, hasNotes)
	rate, _ := stored.Meta(model.MetaInterestRate)
	assert.Equal(t, "1.5", rate)

	// Without a balance or credit limit the stored values stay.
	_, err = tl.UpdateAccount(ctx, account.ID, AccountUpdate{Name: "Sam"})
	require.NoError(t, err)
	stored, err = tl.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(balance))
	assert.True(t, stored.CreditLimit.Equal(limit))
}

func TestUpdateAccount_RenameKeepsPostedInterest(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	loan := tl.mustAddLoan(t, "12000", map[string]string{
		model.MetaInterestRate:     "12",
		model.MetaLastInterestDate: "2024-02-29T09:00:00Z",
	})

	// Read before the accrual, the way a caller holding a stale copy would.
	before, err := tl.Account(ctx, loan.ID)
	require.NoError(t, err)

	result, err := tl.CheckAndAccrueInterest(ctx, testStart)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)

	_, err = tl.UpdateAccount(ctx, before.ID, AccountUpdate{Name: before.Name + " (renamed)"})
	require.NoError(t, err)

	assert.True(t, tl.balance(t, loan.ID).Equal(dec("12120")))
}

func TestUpdateAccount_Errors(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	_, err := tl.UpdateAccount(ctx, "missing", AccountUpdate{Name: "X"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	account := tl.mustAddAccount(t, "Cash", model.AccountTypeCash, "10")
	_, err = tl.UpdateAccount(ctx, account.ID, AccountUpdate{Name: " "})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestDeleteAccount_RemovesTransactions(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	a := tl.mustAddAccount(t, "Checking", model.AccountTypeBank, "1000")
	b := tl.mustAddAccount(t, "Wallet", model.AccountTypeCash, "100")
	for _, accountID := range []string{a.ID, a.ID, b.ID} {
		_, err := tl.AddTransaction(ctx, NewTransaction{
			AccountID: accountID,
			Amount:    dec("5"),
			Category:  model.CategoryFood,
		})
		require.NoError(t, err)
	}

	require.NoError(t, tl.DeleteAccount(ctx, a.ID))

	recent, err := tl.RecentTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	for _, txn := range recent {
		assert.Equal(t, b.ID, txn.AccountID)
	}

	assert.ErrorIs(t, tl.DeleteAccount(ctx, a.ID), common.ErrNotFound)
}

func TestView_SortedAndBounded(t *testing.T) {
	tl := newTestLedger(t, Config{RecentLimit: 3})
	ctx := context.Background()

	tl.mustAddAccount(t, "Zeta", model.AccountTypeCash, "0")
	tl.mustAddAccount(t, "Alpha", model.AccountTypeCash, "0")
	mid := tl.mustAddAccount(t, "Mid", model.AccountTypeBank, "0")

	for i := 0; i < 5; i++ {
		_, err := tl.AddTransaction(ctx, NewTransaction{
			AccountID: mid.ID,
			Amount:    dec("1"),
			Category:  model.CategoryOther,
			IsCredit:  true,
			Date:      testStart.AddDate(0, 0, -i),
		})
		require.NoError(t, err)
	}

	view, err := tl.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Accounts, 3)
	assert.Equal(t, "Alpha", view.Accounts[0].Name)
	assert.Equal(t, "Mid", view.Accounts[1].Name)
	assert.Equal(t, "Zeta", view.Accounts[2].Name)

	require.Len(t, view.RecentTransactions, 3)
	for i := 1; i < len(view.RecentTransactions); i++ {
		assert.False(t, view.RecentTransactions[i].Date.After(view.RecentTransactions[i-1].Date))
	}
	assert.True(t, view.RecentTransactions[0].Date.Equal(testStart))
}

func TestSubscribe_NotifiesAfterMutation(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	var views []View
	unsubscribe := tl.Subscribe(func(v View) { views = append(views, v) })

	account := tl.mustAddAccount(t, "Checking", model.AccountTypeBank, "1000")
	require.Len(t, views, 1)
	require.Len(t, views[0].Accounts, 1)

	_, err := tl.AddTransaction(ctx, NewTransaction{
		AccountID: account.ID,
		Amount:    dec("50"),
		Category:  model.CategoryFood,
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[1].Accounts[0].Balance.Equal(dec("950")), "view reflects the committed balance")
	assert.Len(t, views[1].RecentTransactions, 1)

	// Failed mutations do not notify.
	_, err = tl.AddTransaction(ctx, NewTransaction{AccountID: "missing", Amount: dec("1"), Category: model.CategoryFood})
	require.Error(t, err)
	assert.Len(t, views, 2)

	unsubscribe()
	require.NoError(t, tl.AddCustomCategory(ctx, "Pets"))
	assert.Len(t, views, 2)
}

func TestSubscribe_ObserverMayReadLedger(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()

	var count int
	tl.Subscribe(func(View) {
		accounts, err := tl.Accounts(ctx)
		if err == nil {
			count = len(accounts)
		}
	})

	tl.mustAddAccount(t, "Cash", model.AccountTypeCash, "1")
	assert.Equal(t, 1, count)
}

func TestLedger_ConcurrentMutationsDoNotDrift(t *testing.T) {
	tl := newTestLedger(t, DefaultConfig())
	ctx := context.Background()
	account := tl.mustAddAccount(t, "Checking", model.AccountTypeBank, "0")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(credit bool) {
			defer wg.Done()
			_, err := tl.AddTransaction(ctx, NewTransaction{
				AccountID: account.ID,
				Amount:    dec("10"),
				Category:  model.CategoryOther,
				IsCredit:  credit,
			})
			assert.NoError(t, err)
		}(i%4 != 0)
	}
	wg.Wait()

	// 15 credits, 5 debits.
	assert.True(t, tl.balance(t, account.ID).Equal(dec("100")))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("amount", " 12.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("12.5")))

	_, err = ParseAmount("amount", "12,50")
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
}
