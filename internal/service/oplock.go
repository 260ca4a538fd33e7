package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// opLocks serializes reconciliation per operation id, so two receipts for the
// same operation never read the principal total concurrently.
type opLocks struct {
	mu    sync.Mutex
	locks map[int64]*opLock
}

type opLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newOpLocks() *opLocks {
	return &opLocks{locks: make(map[int64]*opLock)}
}

// Lock blocks until the operation is free or ctx is done. The returned
// function releases it.
func (l *opLocks) Lock(ctx context.Context, id int64) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &opLock{sem: semaphore.NewWeighted(1)}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	if err := lk.sem.Acquire(ctx, 1); err != nil {
		l.drop(id, lk)
		return nil, err
	}
	return func() {
		lk.sem.Release(1)
		l.drop(id, lk)
	}, nil
}

func (l *opLocks) drop(id int64, lk *opLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}
