package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreSeedsDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	stage, err := store.Queries().GetStageCategory(ctx)
	require.NoError(t, err)
	assert.True(t, stage.IsStage)
	assert.Equal(t, "stage", stage.Title)
	assert.True(t, stage.AssignedAmount.IsZero())

	checking, err := store.Queries().GetCheckingAccount(ctx)
	require.NoError(t, err)
	assert.True(t, checking.IsChecking)
	assert.Equal(t, "checking", checking.Name)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	categories, err := second.Queries().ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1, "reopening must not duplicate seeded rows")
}

func TestTransactionRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	checking, err := store.Queries().GetCheckingAccount(ctx)
	require.NoError(t, err)
	stage, err := store.Queries().GetStageCategory(ctx)
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 10, 30, 45, 123456789, time.UTC)
	created, err := store.Queries().CreateTransaction(ctx, CreateTransactionParams{
		Payee:       "employer",
		CreatedAt:   now,
		UpdatedAt:   now,
		Date:        core.NewDate(2024, 3, 15),
		Description: "salary",
		Amount:      decimal.RequireFromString("1500.00"),
		CategoryID:  &stage.ID,
		AccountID:   checking.ID,
	})
	require.NoError(t, err)

	got, err := store.Queries().GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "employer", got.Payee)
	assert.Equal(t, "2024-03-15", got.Date.String())
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1500.00")), "amount = %s", got.Amount)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, stage.ID, *got.CategoryID)
	assert.Equal(t, now.Truncate(time.Second), got.CreatedAt, "datetimes keep second precision")
}

func TestGetTransactionNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Queries().GetTransaction(context.Background(), 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWithinTxRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(q *Queries) error {
		if _, err := q.CreateCategory(ctx, CreateCategoryParams{Title: "groceries"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	categories, err := store.Queries().ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1, "only the seeded stage category survives the rollback")
}

func TestAccountsWithoutIBANTailDoNotCollide(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Queries().CreateAccount(ctx, CreateAccountParams{Name: "savings"})
	require.NoError(t, err)
	_, err = store.Queries().CreateAccount(ctx, CreateAccountParams{Name: "cash"})
	require.NoError(t, err, "empty iban tails are stored as NULL, not as colliding empties")
}

func TestLatestBalanceBreaksTiesByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	checking, err := store.Queries().GetCheckingAccount(ctx)
	require.NoError(t, err)

	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	_, err = store.Queries().CreateBalanceEntry(ctx, CreateBalanceEntryParams{
		AccountID:    checking.ID,
		EntryTime:    at,
		AmountRecord: decimal.RequireFromString("100.00"),
		RunningTotal: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)
	second, err := store.Queries().CreateBalanceEntry(ctx, CreateBalanceEntryParams{
		AccountID:    checking.ID,
		EntryTime:    at,
		AmountRecord: decimal.RequireFromString("-40.00"),
		RunningTotal: decimal.RequireFromString("60.00"),
	})
	require.NoError(t, err)

	latest, err := store.Queries().GetLatestBalance(ctx, checking.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID, "same-second entries resolve by insertion order")
}

func TestDetachBalancesFromTransaction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	checking, err := store.Queries().GetCheckingAccount(ctx)
	require.NoError(t, err)

	now := time.Now()
	tx, err := store.Queries().CreateTransaction(ctx, CreateTransactionParams{
		Payee:       "shop",
		CreatedAt:   now,
		UpdatedAt:   now,
		Date:        core.NewDate(2024, 3, 15),
		Description: "weekly",
		Amount:      decimal.RequireFromString("20.00"),
		AccountID:   checking.ID,
	})
	require.NoError(t, err)

	entry, err := store.Queries().CreateBalanceEntry(ctx, CreateBalanceEntryParams{
		AccountID:     checking.ID,
		EntryTime:     now,
		AmountRecord:  tx.Amount,
		RunningTotal:  tx.Amount,
		IsCurrent:     true,
		TransactionID: &tx.ID,
	})
	require.NoError(t, err)

	require.NoError(t, store.Queries().DetachBalancesFromTransaction(ctx, tx.ID))

	got, err := store.Queries().GetBalanceEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TransactionID)
	assert.True(t, got.AmountRecord.Equal(tx.Amount), "audit record keeps the applied delta")
}
