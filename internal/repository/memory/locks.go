package memory

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockTable holds one single-holder semaphore per account. Entries are never
// removed because accounts are never deleted.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*semaphore.Weighted
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[int64]*semaphore.Weighted)}
}

func (l *lockTable) get(id int64) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[id] = sem
	}
	return sem
}

// acquire blocks until the account lock is free or ctx is done.
func (l *lockTable) acquire(ctx context.Context, id int64) error {
	return l.get(id).Acquire(ctx, 1)
}

func (l *lockTable) release(id int64) {
	l.get(id).Release(1)
}
