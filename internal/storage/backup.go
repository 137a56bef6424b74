package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/service"
)

const (
	backupFileName   = "ledger_backup.db"
	backupMetaSuffix = ".meta.json"
)

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupSchema    = errors.New("backup schema version does not match")
	ErrInvalidUserID   = errors.New("invalid user id")
)

// ledgerTables lists tables copied on restore, parents first.
var ledgerTables = []string{"accounts", "transactions", "custom_categories"}

// BackupMetadata is written next to each backup file.
type BackupMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	UserID        string         `json:"user_id"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// BackupManager writes and restores one backup per user under a root directory.
type BackupManager struct {
	db      *sql.DB
	rootDir string
	now     func() time.Time
}

// NewBackupManager creates a new backup manager.
func NewBackupManager(db *sql.DB, rootDir string) (*BackupManager, error) {
	if err := validateString(rootDir, "rootDir"); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &BackupManager{db: db, rootDir: abs, now: time.Now}, nil
}

// BackupPath returns where the backup for userID lives.
func (bm *BackupManager) BackupPath(userID string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}
	return filepath.Join(bm.rootDir, userID, backupFileName), nil
}

// Backup writes a consistent copy of the database for userID, replacing any
// earlier backup of that user.
func (bm *BackupManager) Backup(ctx context.Context, userID string) (*service.BackupInfo, error) {
	path, err := bm.BackupPath(userID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, common.NewPersistenceError("create backup directory", err)
	}

	var schemaVersion int
	if err := bm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, common.NewPersistenceError("read schema version", err)
	}

	rowCounts, err := bm.collectRowCounts(ctx)
	if err != nil {
		return nil, common.NewPersistenceError("count rows", err)
	}

	// VACUUM INTO refuses to overwrite, so stage next to the target and rename.
	tmpPath := path + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return nil, common.NewPersistenceError("remove stale backup", err)
	}
	if err := bm.vacuumInto(ctx, tmpPath); err != nil {
		return nil, common.NewPersistenceError("write backup", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, common.NewPersistenceError("replace backup", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, common.NewPersistenceError("stat backup", err)
	}

	metadata := BackupMetadata{
		CreatedAt:     bm.now().UTC(),
		RowCounts:     rowCounts,
		UserID:        userID,
		FileSize:      info.Size(),
		SchemaVersion: schemaVersion,
	}
	if err := saveMetadata(path+backupMetaSuffix, metadata); err != nil {
		// Non-fatal: the backup file itself is complete
		slog.Warn("failed to save backup metadata", "error", err, "path", path)
	}

	slog.Info("Backup created", "user_id", userID, "path", path, "size", info.Size())

	return &service.BackupInfo{
		CreatedAt:    metadata.CreatedAt,
		UserID:       userID,
		Path:         path,
		FileSize:     metadata.FileSize,
		Accounts:     rowCounts["accounts"],
		Transactions: rowCounts["transactions"],
	}, nil
}

// Info returns metadata about the stored backup for userID.
func (bm *BackupManager) Info(_ context.Context, userID string) (*BackupMetadata, error) {
	path, err := bm.BackupPath(userID)
	if err != nil {
		return nil, err
	}
	metadata, err := loadMetadata(path + backupMetaSuffix)
	if os.IsNotExist(err) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup metadata: %w", err)
	}
	return metadata, nil
}

// Restore replaces the ledger tables with the contents of userID's backup.
// The backup is verified first and the copy runs in one transaction, so a
// failed restore leaves the current data untouched.
func (bm *BackupManager) Restore(ctx context.Context, userID string) error {
	path, err := bm.BackupPath(userID)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return common.NewPersistenceError("access backup", err)
	}

	version, err := verifyBackup(path)
	if err != nil {
		return err
	}
	if version != ExpectedSchemaVersion {
		return fmt.Errorf("%w: backup is version %d, database expects %d", ErrBackupSchema, version, ExpectedSchemaVersion)
	}

	if err := bm.copyFromBackup(ctx, path); err != nil {
		return common.NewPersistenceError("restore backup", err)
	}

	slog.Info("Backup restored", "user_id", userID, "path", path)
	return nil
}

func (bm *BackupManager) copyFromBackup(ctx context.Context, path string) error {
	// ATTACH is per-connection and cannot run inside a transaction.
	conn, err := bm.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS backup`, path); err != nil {
		return fmt.Errorf("failed to attach backup: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `DETACH DATABASE backup`); err != nil {
			slog.Error("failed to detach backup database", "error", err)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := len(ledgerTables) - 1; i >= 0; i-- {
		// #nosec G202 - table names come from a fixed list
		if _, err := tx.ExecContext(ctx, "DELETE FROM main."+ledgerTables[i]); err != nil {
			return fmt.Errorf("failed to clear %s: %w", ledgerTables[i], err)
		}
	}
	for _, table := range ledgerTables {
		// #nosec G202 - table names come from a fixed list
		if _, err := tx.ExecContext(ctx, "INSERT INTO main."+table+" SELECT * FROM backup."+table); err != nil {
			return fmt.Errorf("failed to copy %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func (bm *BackupManager) vacuumInto(ctx context.Context, destPath string) error {
	if strings.Contains(destPath, "'") {
		return fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	if !filepath.IsAbs(destPath) {
		return fmt.Errorf("invalid destination path")
	}
	// #nosec G201 - destPath is validated above
	if _, err := bm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", destPath, err)
	}
	return nil
}

func (bm *BackupManager) collectRowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(ledgerTables))

	// Fixed queries per table keep user input out of SQL.
	tableQueries := map[string]string{
		"accounts":          "SELECT COUNT(*) FROM accounts",
		"transactions":      "SELECT COUNT(*) FROM transactions",
		"custom_categories": "SELECT COUNT(*) FROM custom_categories",
	}

	for table, query := range tableQueries {
		var count int
		if err := bm.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = count
	}

	return counts, nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: %w: empty", common.ErrValidation, ErrInvalidUserID)
	}
	if strings.ContainsAny(userID, `/\'`) || strings.Contains(userID, "..") {
		return fmt.Errorf("%w: %w: %q contains path separators", common.ErrValidation, ErrInvalidUserID, userID)
	}
	return nil
}

// verifyBackup runs an integrity check and returns the backup's schema version.
func verifyBackup(path string) (int, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close backup database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}
	if result != "ok" {
		return 0, fmt.Errorf("%w: %s", ErrBackupCorrupted, result)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}
	return version, nil
}

func saveMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

func loadMetadata(path string) (*BackupMetadata, error) {
	// #nosec G304 - path is built from a validated user id
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var metadata BackupMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}

	return &metadata, nil
}
