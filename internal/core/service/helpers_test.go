package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shopping-list/internal/adapter/storage"
	"github.com/rl1809/shopping-list/internal/core/domain"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

type testEnv struct {
	db      *storage.SQLAdapter
	catalog *CatalogService
	ledger  *LedgerService
	query   *QueryService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := NewCatalogService(db)
	ledger := NewLedgerService(db, storage.NewMemoryCache(0), fixedClock)
	return &testEnv{
		db:      db,
		catalog: catalog,
		ledger:  ledger,
		query:   NewQueryService(catalog, ledger),
	}
}

func (e *testEnv) item(t *testing.T, description string) int64 {
	t.Helper()
	id, err := e.catalog.EnsureItem(context.Background(), description)
	require.NoError(t, err)
	return id
}

func (e *testEnv) apply(t *testing.T, txID string, itemID int64, delta int) (domain.Outcome, error) {
	t.Helper()
	return e.ledger.Apply(context.Background(), domain.TransactionRequest{
		TransactionID:  txID,
		ItemID:         itemID,
		Delta:          delta,
		SubmittingUser: "joe",
	})
}

func (e *testEnv) count(t *testing.T, itemID int64) int {
	t.Helper()
	cc, err := e.ledger.CurrentCount(context.Background(), itemID)
	require.NoError(t, err)
	return cc.Count
}

func newTxID() string {
	return uuid.NewString()
}
