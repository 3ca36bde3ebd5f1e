package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// The clock is pinned so date guards and stored timestamps are deterministic.
// Snapshot ordering within one instant falls back to row ids.
var (
	testNow   = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	testDay   = core.NewDate(2025, 6, 15)
	pastDay   = core.NewDate(2025, 6, 1)
	futureDay = core.NewDate(2025, 6, 16)
)

func setupService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	svc := NewService(store, nil, time.UTC)
	svc.now = func() time.Time { return testNow }
	t.Cleanup(func() { svc.Close() })
	return svc
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(amt(want)), "got %s, want %s", got, want)
}

// checkingAccount returns the seeded default account.
func checkingAccount(t *testing.T, svc *Service) core.Account {
	t.Helper()
	account, err := svc.store.Queries().GetCheckingAccount(context.Background())
	require.NoError(t, err)
	return account
}

func stageCategory(t *testing.T, svc *Service) core.Category {
	t.Helper()
	stage, err := svc.store.Queries().GetStageCategory(context.Background())
	require.NoError(t, err)
	return stage
}

// seedInflow stages funds on an account through the regular create path.
func seedInflow(t *testing.T, svc *Service, accountID int64, amount string) core.Transaction {
	t.Helper()
	tx, err := svc.CreateTransaction(context.Background(), NewTransaction{
		Payee:     "Employer",
		Date:      testDay,
		Amount:    amt(amount),
		AccountID: accountID,
	})
	require.NoError(t, err)
	return tx
}

// fundedCategory creates a category and moves funds into it from stage,
// backed by a real inflow so every view stays consistent.
func fundedCategory(t *testing.T, svc *Service, accountID int64, title, amount string) core.Category {
	t.Helper()
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, title, "")
	require.NoError(t, err)

	seedInflow(t, svc, accountID, amount)
	_, funded, err := svc.MoveCategoryAmount(ctx, stageCategory(t, svc).ID, category.ID, amt(amount))
	require.NoError(t, err)
	return funded
}

func TestServiceCloseWithoutAMQP(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	svc := NewService(store, nil, nil)
	require.NoError(t, svc.Ping(context.Background()))
	require.NoError(t, svc.Close())
}

func TestPublishEventToleratesMissingBroker(t *testing.T) {
	svc := setupService(t)

	// Crashes here would fail the mutation paths; the event layer must be
	// inert when no broker is configured.
	svc.publishEvent(context.Background(), "transaction.created", []int64{1}, []int64{1})
}

func TestTimestampIsSecondPrecisionUTC(t *testing.T) {
	svc := setupService(t)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 23, 30, 45, 123456789, time.FixedZone("CET", 3600))
	}

	ts := svc.timestamp()
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 0, ts.Nanosecond())
	assert.Equal(t, 22, ts.Hour(), "CET instant must convert to UTC")
}
