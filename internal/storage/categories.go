package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/pocket-ledger/internal/common"
)

// GetCustomCategories returns custom category names in insertion order.
func (s *SQLiteStorage) GetCustomCategories(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCustomCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCustomCategoriesTx(ctx context.Context, q queryable) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM custom_categories ORDER BY position`)
	if err != nil {
		return nil, common.NewPersistenceError("query custom categories", err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.NewPersistenceError("scan custom category", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("iterate custom categories", err)
	}

	slog.Debug("retrieved custom categories", "count", len(names))
	return names, nil
}

// AddCustomCategory appends a custom category. Duplicates are allowed.
func (s *SQLiteStorage) AddCustomCategory(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	return s.withTx(ctx, "add custom category", func(q queryable) error {
		return s.addCustomCategoryTx(ctx, q, name)
	})
}

func (s *SQLiteStorage) addCustomCategoryTx(ctx context.Context, q queryable, name string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO custom_categories (position, name)
		SELECT COALESCE(MAX(position), -1) + 1, ? FROM custom_categories`, name)
	if err != nil {
		return fmt.Errorf("failed to add custom category %q: %w", name, classifyError(err))
	}
	return nil
}

// RemoveCustomCategory removes the custom category at the given ordinal index.
func (s *SQLiteStorage) RemoveCustomCategory(ctx context.Context, index int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, "remove custom category", func(q queryable) error {
		return s.removeCustomCategoryTx(ctx, q, index)
	})
}

func (s *SQLiteStorage) removeCustomCategoryTx(ctx context.Context, q queryable, index int) error {
	if index < 0 {
		return common.NotFoundf("custom category at index %d", index)
	}

	res, err := q.ExecContext(ctx, `
		DELETE FROM custom_categories WHERE position = (
			SELECT position FROM custom_categories ORDER BY position LIMIT 1 OFFSET ?
		)`, index)
	if err != nil {
		return fmt.Errorf("failed to remove custom category %d: %w", index, classifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NotFoundf("custom category at index %d", index)
	}
	return nil
}

func (s *SQLiteStorage) replaceCustomCategoriesTx(ctx context.Context, q queryable, names []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM custom_categories`); err != nil {
		return fmt.Errorf("failed to clear custom categories: %w", classifyError(err))
	}
	for i, name := range names {
		if _, err := q.ExecContext(ctx, `INSERT INTO custom_categories (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("failed to insert custom category %q: %w", name, classifyError(err))
		}
	}
	return nil
}
