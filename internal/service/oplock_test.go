package service

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestOpLocks_SerializesSameID(t *testing.T) {
	locks := newOpLocks()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(ctx, 7)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder, saw %d", maxInside)
	}
	if len(locks.locks) != 0 {
		t.Errorf("expected lock table to be empty, has %d entries", len(locks.locks))
	}
}

func TestOpLocks_DifferentIDsDoNotBlock(t *testing.T) {
	locks := newOpLocks()
	unlockA, err := locks.Lock(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locks.Lock(ctx, 2)
	if err != nil {
		t.Fatalf("lock on another id should not block: %v", err)
	}
	unlockB()
}

func TestOpLocks_ContextCancel(t *testing.T) {
	locks := newOpLocks()
	unlock, err := locks.Lock(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, 1); err == nil {
		t.Fatal("expected context error while the lock is held")
	}

	unlock()
	if len(locks.locks) != 0 {
		t.Errorf("cancelled waiter must not leak an entry")
	}
}
