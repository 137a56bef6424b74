package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// NewTransaction describes a transaction to record. A zero Date means now.
type NewTransaction struct {
	Date      time.Time
	AccountID string
	Category  model.Category
	Notes     string
	Amount    decimal.Decimal
	IsCredit  bool
}

// TransactionUpdate describes the mutable fields of a transaction. The owning
// account and the date never change.
type TransactionUpdate struct {
	Category model.Category
	Notes    string
	Amount   decimal.Decimal
	IsCredit bool
}

// RecentTransactions returns the most recent transactions, newest first.
func (l *Ledger) RecentTransactions(ctx context.Context) ([]model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetTransactions(ctx, service.TransactionFilter{Limit: l.cfg.RecentLimit})
}

// TransactionsForAccount returns all transactions of one account, newest first.
func (l *Ledger) TransactionsForAccount(ctx context.Context, accountID string) ([]model.Transaction, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, common.NewValidationError("accountID", "is required")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.GetTransactions(ctx, service.TransactionFilter{AccountID: accountID})
}

// Transaction returns one transaction.
func (l *Ledger) Transaction(ctx context.Context, id string) (*model.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewValidationError("id", "is required")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetTransaction(ctx, id)
}

// AddTransaction records a transaction and applies its effect to the owning
// account's balance.
func (l *Ledger) AddTransaction(ctx context.Context, in NewTransaction) (*model.Transaction, error) {
	if strings.TrimSpace(in.AccountID) == "" {
		return nil, common.NewValidationError("accountID", "is required")
	}
	if err := validateFlow(in.Amount, in.Category); err != nil {
		return nil, err
	}

	now := l.now()
	txn := &model.Transaction{
		ID:        l.newID(),
		AccountID: in.AccountID,
		Amount:    in.Amount,
		Category:  model.ParseCategory(in.Category.Name()),
		IsCredit:  in.IsCredit,
		Notes:     in.Notes,
		Date:      in.Date,
		CreatedAt: now,
	}
	if txn.Date.IsZero() {
		txn.Date = now
	}

	var delta decimal.Decimal
	err := l.mutate(ctx, "add transaction", func(tx service.Transaction) error {
		var err error
		delta, err = postTransaction(ctx, tx, txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Added transaction",
		"transaction_id", txn.ID,
		"account_id", txn.AccountID,
		"delta", delta.String())
	return txn, nil
}

// UpdateTransaction changes a transaction. The old effect is always reverted
// and the new one applied, even when neither amount nor direction changed.
func (l *Ledger) UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) (*model.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewValidationError("id", "is required")
	}
	if err := validateFlow(upd.Amount, upd.Category); err != nil {
		return nil, err
	}

	var (
		updated *model.Transaction
		delta   decimal.Decimal
	)
	err := l.mutate(ctx, "update transaction", func(tx service.Transaction) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, txn.AccountID)
		if err != nil {
			return err
		}

		delta = revertTransaction(account, txn.Amount, txn.IsCredit)
		delta = delta.Add(applyTransaction(account, upd.Amount, upd.IsCredit))

		txn.Amount = upd.Amount
		txn.Category = model.ParseCategory(upd.Category.Name())
		txn.IsCredit = upd.IsCredit
		txn.Notes = upd.Notes

		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		if err := tx.SaveTransaction(ctx, txn); err != nil {
			return err
		}
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Updated transaction",
		"transaction_id", id,
		"account_id", updated.AccountID,
		"delta", delta.String())
	return updated, nil
}

// DeleteTransaction reverts a transaction's effect and removes it.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.NewValidationError("id", "is required")
	}

	var (
		accountID string
		delta     decimal.Decimal
	)
	err := l.mutate(ctx, "delete transaction", func(tx service.Transaction) error {
		txn, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		account, err := tx.GetAccount(ctx, txn.AccountID)
		if err != nil {
			return err
		}

		delta = revertTransaction(account, txn.Amount, txn.IsCredit)
		accountID = account.ID

		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("Deleted transaction",
		"transaction_id", id,
		"account_id", accountID,
		"delta", delta.String())
	return nil
}

// postTransaction applies txn to its account and stores both. It is shared by
// user-entered and interest transactions.
func postTransaction(ctx context.Context, tx service.Transaction, txn *model.Transaction) (decimal.Decimal, error) {
	account, err := tx.GetAccount(ctx, txn.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	delta := applyTransaction(account, txn.Amount, txn.IsCredit)
	if err := tx.SaveAccount(ctx, account); err != nil {
		return decimal.Zero, err
	}
	if err := tx.SaveTransaction(ctx, txn); err != nil {
		return decimal.Zero, err
	}
	return delta, nil
}

func validateFlow(amount decimal.Decimal, category model.Category) error {
	if amount.IsNegative() {
		return common.NewValidationError("amount", "must not be negative, got %s", amount)
	}
	if strings.TrimSpace(category.Name()) == "" {
		return common.NewValidationError("category", "is required")
	}
	return nil
}
