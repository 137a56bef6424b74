package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/pocket-ledger/internal/service"
)

// LoadAll reads the full entity set in one consistent read.
func (s *SQLiteStorage) LoadAll(ctx context.Context) (*service.LedgerState, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return s.loadAllTx(ctx, tx)
}

func (s *SQLiteStorage) loadAllTx(ctx context.Context, q queryable) (*service.LedgerState, error) {
	accounts, err := s.getAccountsTx(ctx, q)
	if err != nil {
		return nil, err
	}
	transactions, err := s.getTransactionsTx(ctx, q, service.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	categories, err := s.getCustomCategoriesTx(ctx, q)
	if err != nil {
		return nil, err
	}
	return &service.LedgerState{
		Accounts:         accounts,
		Transactions:     transactions,
		CustomCategories: categories,
	}, nil
}

// ReplaceAll discards every account, transaction and custom category and
// writes state in their place. Nothing changes unless the whole write succeeds.
func (s *SQLiteStorage) ReplaceAll(ctx context.Context, state *service.LedgerState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateState(state); err != nil {
		return err
	}
	return s.withTx(ctx, "replace all", func(q queryable) error {
		return s.replaceAllTx(ctx, q, state)
	})
}

func (s *SQLiteStorage) replaceAllTx(ctx context.Context, q queryable, state *service.LedgerState) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", classifyError(err))
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", classifyError(err))
	}

	for i := range state.Accounts {
		if err := s.saveAccountTx(ctx, q, &state.Accounts[i]); err != nil {
			return err
		}
	}
	for i := range state.Transactions {
		if err := s.saveTransactionTx(ctx, q, &state.Transactions[i]); err != nil {
			return err
		}
	}
	if err := s.replaceCustomCategoriesTx(ctx, q, state.CustomCategories); err != nil {
		return err
	}

	slog.Info("replaced ledger contents",
		"accounts", len(state.Accounts),
		"transactions", len(state.Transactions),
		"custom_categories", len(state.CustomCategories))
	return nil
}
