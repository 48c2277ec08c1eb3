package storage

import (
	"context"
	"sync"
)

const defaultSeenCapacity = 4096

// MemoryCache is the single-process CacheRepository: a channel-based lock per item
// and a bounded ring of recently applied transaction ids.
type MemoryCache struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}

	seen     map[string]struct{}
	ring     []string
	next     int
	capacity int
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultSeenCapacity
	}
	return &MemoryCache{
		locks:    make(map[int64]chan struct{}),
		seen:     make(map[string]struct{}, capacity),
		ring:     make([]string, capacity),
		capacity: capacity,
	}
}

func (m *MemoryCache) lockFor(itemID int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[itemID]
	if !ok {
		lock = make(chan struct{}, 1)
		m.locks[itemID] = lock
	}
	return lock
}

func (m *MemoryCache) LockItem(ctx context.Context, itemID int64) (func(), error) {
	lock := m.lockFor(itemID)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-lock })
	}, nil
}

func (m *MemoryCache) MarkSeen(_ context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[transactionID]; ok {
		return nil
	}

	if evicted := m.ring[m.next]; evicted != "" {
		delete(m.seen, evicted)
	}
	m.ring[m.next] = transactionID
	m.next = (m.next + 1) % m.capacity
	m.seen[transactionID] = struct{}{}
	return nil
}

func (m *MemoryCache) Seen(_ context.Context, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.seen[transactionID]
	return ok, nil
}
