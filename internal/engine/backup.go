package engine

import (
	"context"
	"errors"

	"github.com/Veraticus/pocket-ledger/internal/service"
)

// ErrNoBackupStore is returned by Backup and Restore when the ledger was
// created without a backup store.
var ErrNoBackupStore = errors.New("no backup store configured")

// Backup copies the durable store to the configured user's backup location.
// No mutation runs while the copy is taken.
func (l *Ledger) Backup(ctx context.Context) (*service.BackupInfo, error) {
	if l.backups == nil {
		return nil, ErrNoBackupStore
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backups.Backup(ctx, l.cfg.UserID)
}

// Restore replaces the ledger with the configured user's backup and notifies
// observers.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.backups == nil {
		return ErrNoBackupStore
	}

	l.mu.Lock()
	err := l.backups.Restore(ctx, l.cfg.UserID)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.notify(ctx)
	return nil
}
