// Package engine implements the ledger: serialized mutations over the entity
// store, the balance polarity rule, interest accrual and snapshots.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/common"
	"github.com/Veraticus/pocket-ledger/internal/model"
	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/google/uuid"
)

// Config holds configuration options for the ledger.
type Config struct {
	// UserID namespaces backups.
	UserID string
	// RecentLimit bounds the recent transactions list.
	RecentLimit int
	// InterestGateDay restricts automatic accrual to one day of the month.
	// Zero allows accrual on any day.
	InterestGateDay int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		UserID:          "local",
		RecentLimit:     50,
		InterestGateDay: 30,
	}
}

// View is the state handed to observers after every committed mutation.
type View struct {
	Accounts           []model.Account
	RecentTransactions []model.Transaction
	CustomCategories   []string
}

// Observer is called after each committed mutation with a fresh view.
type Observer func(View)

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock replaces the ledger's source of "now".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the generator used for new account and transaction ids.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// WithBackupStore enables Backup and Restore.
func WithBackupStore(backups service.BackupStore) Option {
	return func(l *Ledger) { l.backups = backups }
}

// Ledger is the single owner of ledger state. Mutations hold the write lock
// for the whole read-modify-write so the revert-then-apply sequence of the
// balance rule is never observed half done.
type Ledger struct {
	store     service.Storage
	backups   service.BackupStore
	now       func() time.Time
	newID     func() string
	observers map[int]Observer
	cfg       Config
	mu        sync.RWMutex
	obsMu     sync.Mutex
	nextObs   int
}

// New creates a ledger over store.
func New(store service.Storage, cfg Config, opts ...Option) *Ledger {
	defaults := DefaultConfig()
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = defaults.RecentLimit
	}
	if cfg.UserID == "" {
		cfg.UserID = defaults.UserID
	}
	if cfg.InterestGateDay < 0 {
		cfg.InterestGateDay = 0
	}

	l := &Ledger{
		store:     store,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the ledger configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Subscribe registers an observer and returns a function that removes it.
func (l *Ledger) Subscribe(obs Observer) (unsubscribe func()) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()

	id := l.nextObs
	l.nextObs++
	l.observers[id] = obs

	return func() {
		l.obsMu.Lock()
		defer l.obsMu.Unlock()
		delete(l.observers, id)
	}
}

// View returns the sorted accounts, the most recent transactions and the
// custom categories.
func (l *Ledger) View(ctx context.Context) (View, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.viewLocked(ctx)
}

func (l *Ledger) viewLocked(ctx context.Context) (View, error) {
	accounts, err := l.store.GetAccounts(ctx)
	if err != nil {
		return View{}, err
	}
	sortAccounts(accounts)

	recent, err := l.store.GetTransactions(ctx, service.TransactionFilter{Limit: l.cfg.RecentLimit})
	if err != nil {
		return View{}, err
	}

	categories, err := l.store.GetCustomCategories(ctx)
	if err != nil {
		return View{}, err
	}

	return View{
		Accounts:           accounts,
		RecentTransactions: recent,
		CustomCategories:   categories,
	}, nil
}

// mutate runs fn in one store transaction under the write lock and notifies
// observers once the lock is released. Nothing is committed if fn fails.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(tx service.Transaction) error) error {
	l.mu.Lock()
	err := l.inTx(ctx, fn)
	l.mu.Unlock()

	if err != nil {
		slog.Debug("mutation rolled back", "op", op, "error", err)
		return err
	}

	l.notify(ctx)
	return nil
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx service.Transaction) error) error {
	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to rollback transaction", "error", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (l *Ledger) notify(ctx context.Context) {
	l.obsMu.Lock()
	observers := make([]Observer, 0, len(l.observers))
	ids := make([]int, 0, len(l.observers))
	for id := range l.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, l.observers[id])
	}
	l.obsMu.Unlock()

	if len(observers) == 0 {
		return
	}

	view, err := l.View(ctx)
	if err != nil {
		common.LogError(err, "failed to refresh ledger view", nil)
		return
	}
	for _, obs := range observers {
		obs(view)
	}
}

// sortAccounts orders accounts by name, then id for equal names.
func sortAccounts(accounts []model.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})
}
