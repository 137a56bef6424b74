package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBackupManager(t *testing.T, store *SQLiteStorage) *BackupManager {
	t.Helper()
	bm, err := store.NewBackupManager(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	bm.now = func() time.Time { return baseTime }
	return bm
}

func seedStore(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveAccount(ctx, testAccount("acc-1", "Checking", model.AccountTypeBank, "950")))
	require.NoError(t, store.SaveTransaction(ctx, testTransaction("t1", "acc-1", "50", false, baseTime)))
	require.NoError(t, store.AddCustomCategory(ctx, "Pets"))
}

func TestBackupManager_BackupAndRestore(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()
	seedStore(t, store)

	info, err := bm.Backup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserID)
	assert.Equal(t, 1, info.Accounts)
	assert.Equal(t, 1, info.Transactions)
	assert.Positive(t, info.FileSize)
	assert.Equal(t, filepath.Join(bm.rootDir, "alice", backupFileName), info.Path)
	assert.FileExists(t, info.Path)

	// Diverge from the backup.
	require.NoError(t, store.SaveAccount(ctx, testAccount("acc-2", "Wallet", model.AccountTypeCash, "5")))
	require.NoError(t, store.DeleteTransaction(ctx, "t1"))
	require.NoError(t, store.RemoveCustomCategory(ctx, 0))

	require.NoError(t, bm.Restore(ctx, "alice"))

	state, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, "acc-1", state.Accounts[0].ID)
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, "t1", state.Transactions[0].ID)
	assert.Equal(t, []string{"Pets"}, state.CustomCategories)
}

func TestBackupManager_BackupOverwrites(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()
	seedStore(t, store)

	_, err := bm.Backup(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, store.SaveAccount(ctx, testAccount("acc-2", "Wallet", model.AccountTypeCash, "5")))
	info, err := bm.Backup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Accounts)

	metadata, err := bm.Info(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, metadata.RowCounts["accounts"])
	assert.Equal(t, ExpectedSchemaVersion, metadata.SchemaVersion)
	assert.True(t, metadata.CreatedAt.Equal(baseTime))
}

func TestBackupManager_UsersAreIsolated(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()
	seedStore(t, store)

	_, err := bm.Backup(ctx, "alice")
	require.NoError(t, err)

	err = bm.Restore(ctx, "bob")
	assert.ErrorIs(t, err, ErrBackupNotFound)

	_, err = bm.Info(ctx, "bob")
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestBackupManager_InvalidUserID(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()

	for _, userID := range []string{"", "  ", "../escape", "a/b", `a\b`, "it's"} {
		t.Run(userID, func(t *testing.T) {
			_, err := bm.Backup(ctx, userID)
			assert.ErrorIs(t, err, ErrInvalidUserID)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestBackupManager_RestoreCorruptBackupKeepsData(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()
	seedStore(t, store)

	path, err := bm.BackupPath("alice")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("this is not a database file at all, just text"), 0600))

	require.Error(t, bm.Restore(ctx, "alice"))

	accounts, err := store.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestBackupManager_RestoreSchemaMismatch(t *testing.T) {
	store := createTestStorage(t)
	bm := createTestBackupManager(t, store)
	ctx := context.Background()
	seedStore(t, store)

	_, err := bm.Backup(ctx, "alice")
	require.NoError(t, err)

	path, err := bm.BackupPath("alice")
	require.NoError(t, err)

	old, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	_, err = old.db.ExecContext(ctx, "PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, old.Close())

	assert.ErrorIs(t, bm.Restore(ctx, "alice"), ErrBackupSchema)
}
