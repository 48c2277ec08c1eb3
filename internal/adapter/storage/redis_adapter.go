package storage

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix   = "slist:lock:item:"
	seenKeyPrefix   = "slist:seen:"
	seenKeyTTL      = 24 * time.Hour
	defaultLockTTL  = 5 * time.Second
	lockRetryDelay  = 10 * time.Millisecond
	lockReleaseWait = time.Second
)

var ErrLockTimeout = errors.New("timed out waiting for item lock")

// releaseLockScript deletes the lock only if it is still held by the caller's token.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisAdapter shares item locks and seen transaction ids between server processes.
type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, lockTTL time.Duration) *RedisAdapter {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisAdapter{client: client, lockTTL: lockTTL}
}

// LockItem spins on SETNX until the lock is free, the context ends, or twice the
// lock TTL has passed. The TTL bounds how long a crashed holder can block others.
func (r *RedisAdapter) LockItem(ctx context.Context, itemID int64) (func(), error) {
	key := lockKeyPrefix + strconv.FormatInt(itemID, 10)
	token := uuid.NewString()
	deadline := time.Now().Add(2 * r.lockTTL)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), lockReleaseWait)
		defer cancel()

		if err := releaseLockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			slog.Warn("failed to release item lock", "item_id", itemID, "error", err)
		}
	}, nil
}

func (r *RedisAdapter) MarkSeen(ctx context.Context, transactionID string) error {
	return r.client.Set(ctx, seenKeyPrefix+transactionID, 1, seenKeyTTL).Err()
}

func (r *RedisAdapter) Seen(ctx context.Context, transactionID string) (bool, error) {
	n, err := r.client.Exists(ctx, seenKeyPrefix+transactionID).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
