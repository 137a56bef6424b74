package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, name, account_type, balance, credit_limit, metadata, created_at`

// GetAccounts returns all accounts sorted by name.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAccountsTx(ctx context.Context, q queryable) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, common.NewPersistenceError("query accounts", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, common.NewPersistenceError("scan account", scanErr)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("iterate accounts", err)
	}

	slog.Debug("retrieved accounts", "count", len(accounts))
	return accounts, nil
}

// GetAccount returns the account with the given id.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id string) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %s", id)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get account", err)
	}
	return account, nil
}

// SaveAccount inserts the account or updates it in place. The type of an
// existing account is never changed.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return s.withTx(ctx, "save account", func(q queryable) error {
		return s.saveAccountTx(ctx, q, account)
	})
}

func (s *SQLiteStorage) saveAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	metadata, err := marshalMetadata(account.Metadata)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			balance = excluded.balance,
			credit_limit = excluded.credit_limit,
			metadata = excluded.metadata`,
		account.ID,
		account.Name,
		string(account.Type),
		account.Balance.String(),
		account.CreditLimit.String(),
		metadata,
		formatTime(account.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.ID, classifyError(err))
	}
	return nil
}

// DeleteAccount removes an account together with all of its transactions.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.withTx(ctx, "delete account", func(q queryable) error {
		return s.deleteAccountTx(ctx, q, id)
	})
}

func (s *SQLiteStorage) deleteAccountTx(ctx context.Context, q queryable, id string) error {
	// The foreign key cascades too; deleting explicitly keeps the count for logging.
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transactions of account %s: %w", id, classifyError(err))
	}
	removed, _ := res.RowsAffected()

	res, err = q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, classifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundf("account %s", id)
	}

	slog.Debug("deleted account", "id", id, "transactions_removed", removed)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account     model.Account
		accountType string
		balance     string
		creditLimit string
		metadata    sql.NullString
		createdAt   string
	)
	if err := row.Scan(&account.ID, &account.Name, &accountType, &balance, &creditLimit, &metadata, &createdAt); err != nil {
		return nil, err
	}

	account.Type = model.AccountType(accountType)

	var err error
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("%w: account %s balance %q", common.ErrDatabaseCorrupted, account.ID, balance)
	}
	if account.CreditLimit, err = decimal.NewFromString(creditLimit); err != nil {
		return nil, fmt.Errorf("%w: account %s credit limit %q", common.ErrDatabaseCorrupted, account.ID, creditLimit)
	}
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &account.Metadata); err != nil {
			return nil, fmt.Errorf("%w: account %s metadata: %w", common.ErrDatabaseCorrupted, account.ID, err)
		}
	}
	return &account, nil
}

func marshalMetadata(metadata map[string]string) (sql.NullString, error) {
	if metadata == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
