package port

import (
	"context"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

type DatabaseRepository interface {
	// EnsureItems returns the id of every description, creating missing items in one transaction
	EnsureItems(ctx context.Context, descriptions []string) (map[string]int64, error)

	// ListItems returns the whole item catalog
	ListItems(ctx context.Context) (map[int64]string, error)

	// EnsureStore returns the id of the named store, creating it on first use
	EnsureStore(ctx context.Context, name string) (int64, error)

	// ResetStoreOrder deletes every ordering row of a store
	ResetStoreOrder(ctx context.Context, storeID int64) error

	// SetStoreOrder inserts ordering rows; it never updates existing ones
	SetStoreOrder(ctx context.Context, storeID int64, order map[int64]int) error

	// ReplaceStoreOrder resets and sets a store ordering in a single transaction
	ReplaceStoreOrder(ctx context.Context, storeID int64, order map[int64]int) error

	// ListStores returns every store keyed by name, with its ordering
	ListStores(ctx context.Context) (map[string]domain.Store, error)

	// ApplyTransaction records a nonzero delta and updates the running count atomically.
	// A transaction id already in history yields a duplicate outcome.
	ApplyTransaction(ctx context.Context, tx domain.Transaction) (domain.Outcome, error)

	// CurrentList returns the counts of all items with a positive count
	CurrentList(ctx context.Context) (map[int64]int, error)

	// CurrentCount returns the projection row of an item; ok is false if none exists
	CurrentCount(ctx context.Context, itemID int64) (count domain.CurrentCount, ok bool, err error)

	// History returns the transactions of an item in processing order
	History(ctx context.Context, itemID int64) ([]domain.Transaction, error)

	Ping(ctx context.Context) error
}
