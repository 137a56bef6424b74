package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, account_id, amount, category, is_credit, notes, date, created_at`

// GetTransaction returns the transaction with the given id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionTx(ctx context.Context, q queryable, id string) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get transaction", err)
	}
	return txn, nil
}

// GetTransactions retrieves transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.getTransactionsTx(ctx, s.db, filter)
}

func (s *SQLiteStorage) getTransactionsTx(ctx context.Context, q queryable, filter service.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)

	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "date < ?")
		args = append(args, formatTime(*filter.EndDate))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewPersistenceError("query transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, common.NewPersistenceError("scan transaction", scanErr)
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("iterate transactions", err)
	}

	return transactions, nil
}

// SaveTransaction inserts the transaction or updates it in place. The owning
// account of an existing transaction is never changed.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return s.withTx(ctx, "save transaction", func(q queryable) error {
		return s.saveTransactionTx(ctx, q, txn)
	})
}

func (s *SQLiteStorage) saveTransactionTx(ctx context.Context, q queryable, txn *model.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			category = excluded.category,
			is_credit = excluded.is_credit,
			notes = excluded.notes,
			date = excluded.date`,
		txn.ID,
		txn.AccountID,
		txn.Amount.String(),
		txn.Category.Name(),
		txn.IsCredit,
		nullString(txn.Notes),
		formatTime(txn.Date),
		formatTime(txn.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", txn.ID, classifyError(err))
	}
	return nil
}

// DeleteTransaction removes a transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.withTx(ctx, "delete transaction", func(q queryable) error {
		return s.deleteTransactionTx(ctx, q, id)
	})
}

func (s *SQLiteStorage) deleteTransactionTx(ctx context.Context, q queryable, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, classifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundf("transaction %s", id)
	}
	return nil
}

// GetTransactionCount returns the total number of transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.getTransactionCountTx(ctx, s.db)
}

func (s *SQLiteStorage) getTransactionCountTx(ctx context.Context, q queryable) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, common.NewPersistenceError("count transactions", err)
	}
	return count, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn       model.Transaction
		amount    string
		category  string
		notes     sql.NullString
		date      string
		createdAt string
	)
	if err := row.Scan(&txn.ID, &txn.AccountID, &amount, &category, &txn.IsCredit, &notes, &date, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: transaction %s amount %q", common.ErrDatabaseCorrupted, txn.ID, amount)
	}
	if txn.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if txn.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	txn.Category = model.ParseCategory(category)
	txn.Notes = notes.String
	return &txn, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
