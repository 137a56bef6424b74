package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocket-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	version, err := db.Storage.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Positive(t, version)
	assert.FileExists(t, db.Path)
}

func TestSetupTestDBWithOptions_CustomSetup(t *testing.T) {
	db := SetupTestDBWithOptions(t, TestDBOptions{
		InMemory: true,
		CustomSetup: func(ctx context.Context, s service.Storage) error {
			return s.AddCustomCategory(ctx, "Pets")
		},
	})

	names, err := db.Storage.GetCustomCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Pets"}, names)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := SetupTestDB(t)
	ctx := context.Background()

	err := db.WithTransaction(func(tx service.Transaction) error {
		return tx.AddCustomCategory(ctx, "Temporary")
	})
	require.NoError(t, err)

	names, err := db.Storage.GetCustomCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC)
	c := NewClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSequentialIDs(t *testing.T) {
	next := SequentialIDs("acc")
	assert.Equal(t, "acc-1", next())
	assert.Equal(t, "acc-2", next())
}
