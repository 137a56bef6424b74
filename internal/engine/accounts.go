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

// NewAccount describes an account to create.
type NewAccount struct {
	Metadata    map[string]string
	Name        string
	Type        model.AccountType
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
}

// AccountUpdate describes the mutable fields of an account. A nil Balance or
// CreditLimit keeps the stored value. Metadata entries are merged; an empty value removes
// the key.
type AccountUpdate struct {
	Balance     *decimal.Decimal
	CreditLimit *decimal.Decimal
	Metadata    map[string]string
	Name        string
}

// ParseAmount parses a decimal typed by a user. Failures are validation errors.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, common.NewValidationError(field, "%q is not a number", s)
	}
	return d, nil
}

// Accounts returns every account sorted by name.
func (l *Ledger) Accounts(ctx context.Context) ([]model.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts, err := l.store.GetAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sortAccounts(accounts)
	return accounts, nil
}

// Account returns one account.
func (l *Ledger) Account(ctx context.Context, id string) (*model.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewValidationError("id", "is required")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetAccount(ctx, id)
}

// AddAccount creates an account. A loan created with an interest rate starts
// accruing from now unless the caller supplied lastInterestDate.
func (l *Ledger) AddAccount(ctx context.Context, in NewAccount) (*model.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.NewValidationError("name", "is required")
	}
	if !in.Type.IsValid() {
		return nil, common.NewValidationError("type", "unknown account type %q", in.Type)
	}

	now := l.now()
	account := &model.Account{
		ID:          l.newID(),
		Name:        name,
		Type:        in.Type,
		Balance:     in.Balance,
		CreditLimit: in.CreditLimit,
		CreatedAt:   now,
	}
	for k, v := range in.Metadata {
		account.SetMeta(k, v)
	}

	if err := validateInterestRate(account); err != nil {
		return nil, err
	}
	if account.Type == model.AccountTypeLoan {
		if _, hasRate := account.Meta(model.MetaInterestRate); hasRate {
			if _, hasDate := account.Meta(model.MetaLastInterestDate); !hasDate {
				account.SetMeta(model.MetaLastInterestDate, formatMetaTime(now))
			}
		}
	}

	err := l.mutate(ctx, "add account", func(tx service.Transaction) error {
		return tx.SaveAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Added account",
		"account_id", account.ID,
		"type", account.Type,
		"balance", account.Balance.String())
	return account, nil
}

// UpdateAccount changes an account's name and optionally its balance, credit
// limit and metadata. The type never changes.
func (l *Ledger) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*model.Account, error) {
	name := strings.TrimSpace(upd.Name)
	if name == "" {
		return nil, common.NewValidationError("name", "is required")
	}

	var updated *model.Account
	err := l.mutate(ctx, "update account", func(tx service.Transaction) error {
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}

		account.Name = name
		if upd.Balance != nil {
			account.Balance = *upd.Balance
		}
		if upd.CreditLimit != nil {
			account.CreditLimit = *upd.CreditLimit
		}
		for k, v := range upd.Metadata {
			if v == "" {
				delete(account.Metadata, k)
				continue
			}
			account.SetMeta(k, v)
		}
		if err := validateInterestRate(account); err != nil {
			return err
		}

		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Updated account", "account_id", id, "balance", updated.Balance.String())
	return updated, nil
}

// DeleteAccount removes an account and all of its transactions.
func (l *Ledger) DeleteAccount(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return common.NewValidationError("id", "is required")
	}

	err := l.mutate(ctx, "delete account", func(tx service.Transaction) error {
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Info("Deleted account", "account_id", id)
	return nil
}

// validateInterestRate rejects an interest rate that does not parse on the
// account types that use one.
func validateInterestRate(account *model.Account) error {
	if account.Type != model.AccountTypeLoan && account.Type != model.AccountTypePersonalLoanGiven {
		return nil
	}
	rate, ok := account.Meta(model.MetaInterestRate)
	if !ok {
		return nil
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(rate)); err != nil {
		return common.NewValidationError(model.MetaInterestRate, "%q is not a number", rate)
	}
	return nil
}

func formatMetaTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseMetaTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}
