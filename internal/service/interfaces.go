// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Zero values mean "no constraint". Results are ordered by date descending.
type TransactionFilter struct {
	StartDate *time.Time // inclusive
	EndDate   *time.Time // exclusive
	AccountID string
	Limit     int
	Offset    int
}

// Storage defines the contract for the durable entity store.
type Storage interface {
	// Account operations
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	SaveAccount(ctx context.Context, account *model.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// Transaction operations
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionCount(ctx context.Context) (int, error)

	// Custom category operations
	GetCustomCategories(ctx context.Context) ([]string, error)
	AddCustomCategory(ctx context.Context, name string) error
	RemoveCustomCategory(ctx context.Context, index int) error

	// Whole-state operations
	LoadAll(ctx context.Context) (*LedgerState, error)
	ReplaceAll(ctx context.Context, state *LedgerState) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// BackupStore copies the durable store to and from a per-user location.
type BackupStore interface {
	Backup(ctx context.Context, userID string) (*BackupInfo, error)
	Restore(ctx context.Context, userID string) error
}

// LedgerState is the full entity set.
type LedgerState struct {
	Accounts         []model.Account
	Transactions     []model.Transaction
	CustomCategories []string
}

// BackupInfo describes a stored backup.
type BackupInfo struct {
	CreatedAt    time.Time
	UserID       string
	Path         string
	FileSize     int64
	Accounts     int
	Transactions int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
