package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validationErr tags a storage validation failure with common.ErrValidation.
func validationErr(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", common.ErrValidation, base, fmt.Sprintf(format, args...))
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return validationErr(ErrEmptyString, "%s", paramName)
	}
	return nil
}

// validateAccount validates a single account.
func validateAccount(account *model.Account) error {
	if account == nil {
		return validationErr(ErrNilParameter, "account")
	}
	if account.ID == "" {
		return validationErr(ErrInvalidAccount, "missing ID")
	}
	if strings.TrimSpace(account.Name) == "" {
		return validationErr(ErrInvalidAccount, "missing name")
	}
	if !account.Type.IsValid() {
		return validationErr(ErrInvalidAccount, "unknown type %q", account.Type)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return validationErr(ErrNilParameter, "transaction")
	}
	if txn.ID == "" {
		return validationErr(ErrInvalidTransaction, "missing ID")
	}
	if txn.AccountID == "" {
		return validationErr(ErrInvalidTransaction, "missing account ID")
	}
	if txn.Date.IsZero() {
		return validationErr(ErrInvalidTransaction, "missing date")
	}
	if txn.Amount.IsNegative() {
		return validationErr(ErrInvalidTransaction, "negative amount %s", txn.Amount)
	}
	return nil
}

// validateFilter validates transaction query options.
func validateFilter(filter service.TransactionFilter) error {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return validationErr(ErrInvalidDateRange, "end date %v is before start date %v", *filter.EndDate, *filter.StartDate)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return validationErr(ErrNilParameter, "limit and offset must not be negative")
	}
	return nil
}

// validateState validates a whole entity set before it replaces the store.
func validateState(state *service.LedgerState) error {
	if state == nil {
		return validationErr(ErrNilParameter, "state")
	}

	accounts := make(map[string]struct{}, len(state.Accounts))
	for i := range state.Accounts {
		if err := validateAccount(&state.Accounts[i]); err != nil {
			return fmt.Errorf("account at index %d: %w", i, err)
		}
		if _, dup := accounts[state.Accounts[i].ID]; dup {
			return fmt.Errorf("account at index %d: %w", i, validationErr(ErrInvalidAccount, "duplicate ID %s", state.Accounts[i].ID))
		}
		accounts[state.Accounts[i].ID] = struct{}{}
	}

	txns := make(map[string]struct{}, len(state.Transactions))
	for i := range state.Transactions {
		txn := &state.Transactions[i]
		if err := validateTransaction(txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
		if _, ok := accounts[txn.AccountID]; !ok {
			return fmt.Errorf("transaction at index %d: %w", i, validationErr(ErrInvalidTransaction, "unknown account ID %s", txn.AccountID))
		}
		if _, dup := txns[txn.ID]; dup {
			return fmt.Errorf("transaction at index %d: %w", i, validationErr(ErrInvalidTransaction, "duplicate ID %s", txn.ID))
		}
		txns[txn.ID] = struct{}{}
	}
	return nil
}
