package store

import (
	"context"
	"sync"
)

// LocalLocker implements Locker with in-process mutual exclusion. Sufficient
// for a single service instance; multi-instance deployments need the Redis
// locker so permission-graph writes from different processes cannot
// interleave.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates a new in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]chan struct{}),
	}
}

// Acquire blocks until the named lock is held or the context is done
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	sem := l.semaphore(key)

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping always succeeds for the in-process locker
func (l *LocalLocker) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-process locker
func (l *LocalLocker) Close() error {
	return nil
}

// semaphore returns the buffered channel backing the named lock
func (l *LocalLocker) semaphore(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[key] = sem
	}
	return sem
}
