package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// ImportOption customizes ImportSnapshot.
type ImportOption func(*importOptions)

type importOptions struct {
	progress func(done, total int)
}

// WithProgress reports staging progress as records are validated.
func WithProgress(fn func(done, total int)) ImportOption {
	return func(o *importOptions) { o.progress = fn }
}

// ExportSnapshot returns every account, transaction and custom category.
func (l *Ledger) ExportSnapshot(ctx context.Context) (*model.Snapshot, error) {
	l.mu.RLock()
	state, err := l.store.LoadAll(ctx)
	l.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sortAccounts(state.Accounts)
	snapshot := &model.Snapshot{
		Accounts:         make([]model.SnapshotAccount, 0, len(state.Accounts)),
		Transactions:     make([]model.SnapshotTransaction, 0, len(state.Transactions)),
		CustomCategories: append([]string{}, state.CustomCategories...),
	}

	for _, a := range state.Accounts {
		a = a.Clone()
		snapshot.Accounts = append(snapshot.Accounts, model.SnapshotAccount{
			ID:          a.ID,
			Name:        a.Name,
			Type:        string(a.Type),
			Balance:     json.Number(a.Balance.String()),
			CreditLimit: json.Number(a.CreditLimit.String()),
			Metadata:    a.Metadata,
		})
	}

	for _, t := range state.Transactions {
		st := model.SnapshotTransaction{
			ID:        t.ID,
			Amount:    json.Number(t.Amount.String()),
			Category:  t.Category.Name(),
			IsCredit:  t.IsCredit,
			Date:      t.Date.UTC(),
			AccountID: t.AccountID,
		}
		if t.Notes != "" {
			notes := t.Notes
			st.Notes = &notes
		}
		snapshot.Transactions = append(snapshot.Transactions, st)
	}

	slog.Debug("exported snapshot",
		"accounts", len(snapshot.Accounts),
		"transactions", len(snapshot.Transactions))
	return snapshot, nil
}

// ImportSnapshot discards the current ledger and replaces it with snapshot.
// The whole document is validated before anything is written and the write
// is atomic: on any error the previous state is left untouched.
func (l *Ledger) ImportSnapshot(ctx context.Context, snapshot *model.Snapshot, opts ...ImportOption) error {
	var o importOptions
	for _, opt := range opts {
		opt(&o)
	}

	state, err := l.stageSnapshot(snapshot, o.progress)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	err = l.mutate(ctx, "import snapshot", func(tx service.Transaction) error {
		return tx.ReplaceAll(ctx, state)
	})
	if err != nil {
		return err
	}

	slog.Info("Imported snapshot",
		"accounts", len(state.Accounts),
		"transactions", len(state.Transactions),
		"custom_categories", len(state.CustomCategories))
	return nil
}

// stageSnapshot converts a snapshot into a validated entity set.
func (l *Ledger) stageSnapshot(snapshot *model.Snapshot, progress func(done, total int)) (*service.LedgerState, error) {
	if snapshot == nil {
		return nil, common.NewValidationError("snapshot", "is required")
	}

	total := len(snapshot.Accounts) + len(snapshot.Transactions)
	done := 0
	report := func() {
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	now := l.now()
	state := &service.LedgerState{
		Accounts:         make([]model.Account, 0, len(snapshot.Accounts)),
		Transactions:     make([]model.Transaction, 0, len(snapshot.Transactions)),
		CustomCategories: make([]string, 0, len(snapshot.CustomCategories)),
	}

	for i, name := range snapshot.CustomCategories {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, common.NewValidationError(fmt.Sprintf("customCategories[%d]", i), "missing name")
		}
		state.CustomCategories = append(state.CustomCategories, name)
	}

	accountTypes := make(map[string]model.AccountType, len(snapshot.Accounts))
	for i, sa := range snapshot.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)

		if strings.TrimSpace(sa.ID) == "" {
			return nil, common.NewValidationError(field, "missing id")
		}
		if _, dup := accountTypes[sa.ID]; dup {
			return nil, common.NewValidationError(field, "duplicate id %s", sa.ID)
		}
		if strings.TrimSpace(sa.Name) == "" {
			return nil, common.NewValidationError(field, "missing name")
		}
		accountType, ok := model.ParseAccountType(sa.Type)
		if !ok {
			return nil, common.NewValidationError(field, "unknown type %q", sa.Type)
		}
		balance, err := snapshotNumber(sa.Balance)
		if err != nil {
			return nil, common.NewValidationError(field, "balance %q is not a number", sa.Balance)
		}
		creditLimit, err := snapshotNumber(sa.CreditLimit)
		if err != nil {
			return nil, common.NewValidationError(field, "creditLimit %q is not a number", sa.CreditLimit)
		}

		account := model.Account{
			ID:          sa.ID,
			Name:        sa.Name,
			Type:        accountType,
			Balance:     balance,
			CreditLimit: creditLimit,
			CreatedAt:   now,
		}
		for k, v := range sa.Metadata {
			account.SetMeta(k, v)
		}

		accountTypes[sa.ID] = accountType
		state.Accounts = append(state.Accounts, account)
		report()
	}

	txnIDs := make(map[string]struct{}, len(snapshot.Transactions))
	for i, st := range snapshot.Transactions {
		field := fmt.Sprintf("transactions[%d]", i)

		if strings.TrimSpace(st.ID) == "" {
			return nil, common.NewValidationError(field, "missing id")
		}
		if _, dup := txnIDs[st.ID]; dup {
			return nil, common.NewValidationError(field, "duplicate id %s", st.ID)
		}
		if _, ok := accountTypes[st.AccountID]; !ok {
			return nil, common.NewValidationError(field, "unknown account id %q", st.AccountID)
		}
		amount, err := snapshotNumber(st.Amount)
		if err != nil {
			return nil, common.NewValidationError(field, "amount %q is not a number", st.Amount)
		}
		if amount.IsNegative() {
			return nil, common.NewValidationError(field, "amount %s is negative", amount)
		}
		if strings.TrimSpace(st.Category) == "" {
			return nil, common.NewValidationError(field, "missing category")
		}
		if st.Date.IsZero() {
			return nil, common.NewValidationError(field, "missing date")
		}

		txn := model.Transaction{
			ID:        st.ID,
			AccountID: st.AccountID,
			Amount:    amount,
			Category:  model.ParseCategory(st.Category),
			IsCredit:  st.IsCredit,
			Date:      st.Date,
			CreatedAt: now,
		}
		if st.Notes != nil {
			txn.Notes = *st.Notes
		}

		txnIDs[st.ID] = struct{}{}
		state.Transactions = append(state.Transactions, txn)
		report()
	}

	return state, nil
}

// EncodeSnapshot writes snapshot as indented JSON.
func EncodeSnapshot(w io.Writer, snapshot *model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot document. Malformed documents are
// validation errors.
func DecodeSnapshot(r io.Reader) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&snapshot); err != nil {
		return nil, common.NewValidationError("snapshot", "malformed document: %v", err)
	}
	return &snapshot, nil
}

// snapshotNumber parses a snapshot number. An absent number is zero.
func snapshotNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
