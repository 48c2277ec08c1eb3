package port

import "context"

type CacheRepository interface {
	// LockItem serializes ledger writes for one item; the returned func releases the lock
	LockItem(ctx context.Context, itemID int64) (unlock func(), err error)

	// MarkSeen remembers a transaction id that is durably recorded
	MarkSeen(ctx context.Context, transactionID string) error

	// Seen reports whether a transaction id was marked; false may be stale, true is not
	Seen(ctx context.Context, transactionID string) (bool, error)
}
