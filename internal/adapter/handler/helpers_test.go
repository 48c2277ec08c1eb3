package handler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/shopping-list/internal/adapter/storage"
	"github.com/rl1809/shopping-list/internal/core/service"
)

const testSecret = "test-secret"

type testEnv struct {
	db      *storage.SQLAdapter
	catalog *service.CatalogService
	ledger  *service.LedgerService
	query   *service.QueryService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	catalog := service.NewCatalogService(db)
	ledger := service.NewLedgerService(db, storage.NewMemoryCache(0), clock)
	return &testEnv{
		db:      db,
		catalog: catalog,
		ledger:  ledger,
		query:   service.NewQueryService(catalog, ledger),
	}
}

func (e *testEnv) item(t *testing.T, description string) int64 {
	t.Helper()
	id, err := e.catalog.EnsureItem(context.Background(), description)
	require.NoError(t, err)
	return id
}

func ptr[T any](v T) *T { return &v }

type downChecker struct{}

func (downChecker) Ping(context.Context) error {
	return errors.New("connection refused")
}
