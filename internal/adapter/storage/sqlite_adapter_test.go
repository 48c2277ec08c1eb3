package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

func createTestAdapter(t *testing.T) *SQLAdapter {
	t.Helper()
	a, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpenSQLite_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite3")

	a, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite3")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a, err := OpenSQLite(ctx, path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, a.Close())
	}

	a, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer a.Close()

	for _, table := range []string{"items", "current_counts", "stores", "store_item_order", "history"} {
		var name string
		err := a.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	var versions int
	require.NoError(t, a.DB().QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&versions))
	assert.Equal(t, 1, versions)
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "/nonexistent/dir/test.sqlite3")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "", 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestClose_NilDB(t *testing.T) {
	a := &SQLAdapter{}
	assert.NoError(t, a.Close())
}

func TestSchema_RejectsNegativeCount(t *testing.T) {
	a := createTestAdapter(t)
	ctx := context.Background()

	ids, err := a.EnsureItems(ctx, []string{"Milk"})
	require.NoError(t, err)

	_, err = a.DB().ExecContext(ctx,
		`INSERT INTO current_counts (item_id, item_count, last_edited_utc) VALUES (?, -1, 'x')`, ids["Milk"])
	assert.Error(t, err)
}

func TestSchema_EnforcesForeignKeys(t *testing.T) {
	a := createTestAdapter(t)

	_, err := a.DB().Exec(
		`INSERT INTO history (transaction_id, item_id, delta, submitting_user, processed_utc) VALUES ('x', 42, 1, 'joe', 'now')`)
	assert.Error(t, err)
}

func TestApplyTransaction(t *testing.T) {
	a := createTestAdapter(t)
	ctx := context.Background()

	ids, err := a.EnsureItems(ctx, []string{"Milk"})
	require.NoError(t, err)
	milk := ids["Milk"]

	tx := domain.Transaction{
		TransactionID:  "0d6f1e1c-7a51-4d52-9d6a-6f2f1c9b6a10",
		ItemID:         milk,
		Delta:          3,
		SubmittingUser: "joe",
		ProcessedAtUTC: "2026-01-02T03:04:05Z",
	}

	outcome, err := a.ApplyTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, domain.Applied(tx.TransactionID, 3), outcome)

	outcome, err = a.ApplyTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, domain.Discarded(tx.TransactionID, domain.ReasonDuplicate), outcome)

	cc, ok, err := a.CurrentCount(ctx, milk)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.CurrentCount{ItemID: milk, Count: 3, LastEditedUTC: "2026-01-02T03:04:05Z"}, cc)

	history, err := a.History(ctx, milk)
	require.NoError(t, err)
	assert.Equal(t, []domain.Transaction{tx}, history)
}

func TestApplyTransaction_InvariantViolationRollsBack(t *testing.T) {
	a := createTestAdapter(t)
	ctx := context.Background()

	ids, err := a.EnsureItems(ctx, []string{"Eggs"})
	require.NoError(t, err)

	_, err = a.ApplyTransaction(ctx, domain.Transaction{
		TransactionID:  "5b0f3c55-6d0e-4ad4-8d43-3bb8b0e9d1f2",
		ItemID:         ids["Eggs"],
		Delta:          -1,
		SubmittingUser: "joe",
		ProcessedAtUTC: "2026-01-02T03:04:05Z",
	})
	require.ErrorIs(t, err, domain.ErrInvariantViolation)

	_, ok, err := a.CurrentCount(ctx, ids["Eggs"])
	require.NoError(t, err)
	assert.False(t, ok)

	var historyRows int
	require.NoError(t, a.DB().QueryRow(`SELECT COUNT(*) FROM history`).Scan(&historyRows))
	assert.Zero(t, historyRows)
}

func TestHistory_ArrivalOrderWithinSecond(t *testing.T) {
	a := createTestAdapter(t)
	ctx := context.Background()

	ids, err := a.EnsureItems(ctx, []string{"Milk"})
	require.NoError(t, err)

	txIDs := []string{
		"f0000000-0000-4000-8000-000000000001",
		"a0000000-0000-4000-8000-000000000002",
		"c0000000-0000-4000-8000-000000000003",
	}
	for _, id := range txIDs {
		_, err := a.ApplyTransaction(ctx, domain.Transaction{
			TransactionID: id, ItemID: ids["Milk"], Delta: 1,
			SubmittingUser: "joe", ProcessedAtUTC: "2026-01-02T03:04:05Z",
		})
		require.NoError(t, err)
	}

	history, err := a.History(ctx, ids["Milk"])
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, h := range history {
		assert.Equal(t, txIDs[i], h.TransactionID)
	}
}

func TestReplaceStoreOrder(t *testing.T) {
	a := createTestAdapter(t)
	ctx := context.Background()

	store, err := a.EnsureStore(ctx, "Foo")
	require.NoError(t, err)
	ids, err := a.EnsureItems(ctx, []string{"Milk", "Eggs"})
	require.NoError(t, err)

	require.NoError(t, a.SetStoreOrder(ctx, store, map[int64]int{ids["Milk"]: 1, ids["Eggs"]: 2}))
	require.NoError(t, a.ReplaceStoreOrder(ctx, store, map[int64]int{ids["Eggs"]: 1}))

	stores, err := a.ListStores(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Store{
		"Foo": {ID: store, Order: map[int64]int{ids["Eggs"]: 1}},
	}, stores)
}
