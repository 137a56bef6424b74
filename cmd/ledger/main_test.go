package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/storage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a config file and database in a temporary directory.
type testEnv struct {
	t          *testing.T
	configPath string
	dbPath     string
	stdin      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		t:          t,
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "ledger.db"),
	}

	cfg := "user:\n  id: tester\ninterest:\n  gate_day: 0\nbackup:\n  dir: " + filepath.Join(dir, "backups") + "\n"
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0600))
	return env
}

// run executes the ledger command line and returns its standard output.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := newRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(e.stdin))
	root.SetArgs(append([]string{"--config", e.configPath, "--db", e.dbPath, "--log-level", "error"}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "ledger %s", strings.Join(args, " "))
	return out
}

// accounts reads the accounts straight from the database.
func (e *testEnv) accounts() []model.Account {
	e.t.Helper()
	store, err := storage.NewSQLiteStorage(e.dbPath)
	require.NoError(e.t, err)
	defer func() { _ = store.Close() }()

	accounts, err := store.GetAccounts(context.Background())
	require.NoError(e.t, err)
	return accounts
}

func (e *testEnv) accountID(name string) string {
	e.t.Helper()
	for _, a := range e.accounts() {
		if a.Name == name {
			return a.ID
		}
	}
	e.t.Fatalf("account %q not found", name)
	return ""
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]*cobra.Command)
	for _, sub := range root.Commands() {
		names[sub.Name()] = sub
	}
	for _, want := range []string{"accounts", "tx", "categories", "snapshot", "interest", "backup", "report", "migrate", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "db", "user", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("version")
	assert.Contains(t, out, "ledger version dev")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("--log-level", "loud", "version")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestAccountAndTransactionFlow(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("accounts", "add", "Checking", "--type", "bank", "--balance", "1000")
	assert.Contains(t, out, `Created Bank Account account "Checking"`)
	id := env.accountID("Checking")

	out = env.mustRun("tx", "add", "--account", id, "--amount", "50", "--category", "Food")
	assert.Contains(t, out, "balance now $950.00")

	out = env.mustRun("accounts", "list")
	assert.Contains(t, out, "Checking")
	assert.Contains(t, out, "$950.00")

	out = env.mustRun("tx", "list")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "-$50.00")

	accounts := env.accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "950", accounts[0].Balance.String())
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Visa", "--type", "Credit Card", "--balance", "100", "--limit", "1000")
	id := env.accountID("Visa")

	env.mustRun("tx", "add", "--account", id, "--amount", "40", "--category", "Shopping")
	assert.Equal(t, "140", env.accounts()[0].Balance.String())

	out := env.mustRun("tx", "list", "--account", id)
	fields := strings.Fields(strings.Split(strings.TrimSpace(out), "\n")[2])
	txnID := fields[0]

	env.mustRun("tx", "update", txnID, "--credit")
	assert.Equal(t, "60", env.accounts()[0].Balance.String())

	env.mustRun("tx", "delete", txnID, "--force")
	assert.Equal(t, "100", env.accounts()[0].Balance.String())
}

func TestDeleteAccount_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Wallet", "--type", "cash", "--balance", "20")
	id := env.accountID("Wallet")

	env.stdin = "n\n"
	out := env.mustRun("accounts", "delete", id)
	assert.Contains(t, out, "Deletion cancelled.")
	assert.Len(t, env.accounts(), 1)

	env.stdin = "y\n"
	env.mustRun("accounts", "delete", id)
	assert.Empty(t, env.accounts())
}

func TestAccountsAdd_UnknownType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("accounts", "add", "Mystery", "--type", "vault")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account type")
}

func TestCategoriesCommands(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("categories", "add", "Pets")
	out := env.mustRun("categories", "list")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "Pets")

	_, err := env.run("categories", "remove", "5")
	require.Error(t, err)

	env.mustRun("categories", "remove", "0")
	out = env.mustRun("categories", "list")
	assert.NotContains(t, out, "Pets")
}

func TestSnapshotExportImport(t *testing.T) {
	src := newTestEnv(t)
	src.mustRun("accounts", "add", "Savings", "--type", "savings", "--balance", "250.75")
	src.mustRun("categories", "add", "Gifts")

	path := filepath.Join(t.TempDir(), "snapshot.json")
	src.mustRun("snapshot", "export", "--output", path)

	dst := newTestEnv(t)
	dst.mustRun("accounts", "add", "Old", "--type", "cash")
	out := dst.mustRun("snapshot", "import", path, "--force")
	assert.Contains(t, out, "Imported 1 accounts, 0 transactions and 1 custom categories")

	accounts := dst.accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Savings", accounts[0].Name)
	assert.Equal(t, "250.75", accounts[0].Balance.String())
}

func TestSnapshotImport_InvalidKeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Keep", "--type", "cash")

	path := filepath.Join(t.TempDir(), "bad.json")
	doc := `{"accounts":[{"id":"a1","name":"New","type":"Cash","balance":0}],
		"transactions":[{"id":"t1","accountID":"missing","amount":5,"category":"Food","isCredit":false,"date":"2024-01-01T00:00:00Z"}],
		"customCategories":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	_, err := env.run("snapshot", "import", path, "--force")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)

	accounts := env.accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Keep", accounts[0].Name)
}

func TestInterestCheck(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Car Loan", "--type", "loan", "--balance", "12000", "--limit", "15000", "--rate", "12")

	out := env.mustRun("interest", "check", "--date", "2099-01-30")
	assert.Contains(t, out, "Posted $120.00 interest")
	assert.Contains(t, out, "1 posted, 0 skipped")

	// Already accrued this month.
	out = env.mustRun("interest", "check", "--date", "2099-01-31")
	assert.Contains(t, out, "0 posted, 1 skipped")

	assert.Equal(t, "12120", env.accounts()[0].Balance.String())
}

func TestInterestAdd_NotALoan(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Checking", "--type", "bank")

	_, err := env.run("interest", "add", env.accountID("Checking"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBackupCreateAndRestore(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Checking", "--type", "bank", "--balance", "10")

	out := env.mustRun("backup", "create")
	assert.Contains(t, out, "Backup created")
	assert.Contains(t, out, "tester")

	env.mustRun("accounts", "add", "Extra", "--type", "cash")
	require.Len(t, env.accounts(), 2)

	env.mustRun("backup", "restore", "--force")
	accounts := env.accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0].Name)
}

func TestReportSummary(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("accounts", "add", "Checking", "--type", "bank", "--balance", "1000")
	env.mustRun("accounts", "add", "Visa", "--type", "credit-card", "--balance", "300", "--limit", "2000")

	out := env.mustRun("report", "summary")
	assert.Contains(t, out, "Net worth")
	assert.Contains(t, out, "$700.00")
}

func TestReportPeriod_RejectsEmptyRange(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("report", "period", "--from", "2024-02-01", "--to", "2024-02-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMigrateCmd(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "schema version 0 of")

	out = env.mustRun("migrate")
	assert.Contains(t, out, "Migrated database from schema version 0")

	out = env.mustRun("migrate")
	assert.Contains(t, out, "already at schema version")
}

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		input string
		want  model.AccountType
	}{
		{input: "bank", want: model.AccountTypeBank},
		{input: "Bank Account", want: model.AccountTypeBank},
		{input: "credit-card", want: model.AccountTypeCreditCard},
		{input: "MUTUAL_FUND", want: model.AccountTypeMutualFund},
		{input: "personal loan given", want: model.AccountTypePersonalLoanGiven},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAccountType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseAccountType("vault")
	assert.Error(t, err)
}
