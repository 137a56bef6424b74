package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
)

// CustomCategories returns the custom category names in insertion order.
func (l *Ledger) CustomCategories(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.GetCustomCategories(ctx)
}

// AllCategories returns the built-in categories followed by the custom ones.
func (l *Ledger) AllCategories(ctx context.Context) ([]string, error) {
	custom, err := l.CustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	return model.AllCategoryNames(custom), nil
}

// AddCustomCategory appends a custom category. Duplicates are kept.
func (l *Ledger) AddCustomCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.NewValidationError("name", "is required")
	}

	err := l.mutate(ctx, "add custom category", func(tx service.Transaction) error {
		return tx.AddCustomCategory(ctx, name)
	})
	if err != nil {
		return err
	}

	slog.Info("Added custom category", "name", name)
	return nil
}

// RemoveCustomCategory removes the custom category at index.
func (l *Ledger) RemoveCustomCategory(ctx context.Context, index int) error {
	err := l.mutate(ctx, "remove custom category", func(tx service.Transaction) error {
		return tx.RemoveCustomCategory(ctx, index)
	})
	if err != nil {
		return err
	}

	slog.Info("Removed custom category", "index", index)
	return nil
}
