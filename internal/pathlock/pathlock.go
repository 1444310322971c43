// Package pathlock provides a keyed mutual-exclusion lock. Waiters for the
// same key are granted the lock strictly in arrival order.
package pathlock

import (
	"context"
	"sync"
)

type entry struct {
	// waiters holds the grant channels of goroutines queued behind the holder.
	waiters []chan struct{}
}

// Locker is a map of key to FIFO waiter queue guarded by one mutex.
// The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{}
}

// Lock blocks until the caller holds key or ctx is done. The returned
// unlock function must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*entry)
	}
	e, held := l.locks[key]
	if !held {
		l.locks[key] = &entry{}
		l.mu.Unlock()
		return l.unlocker(key), nil
	}
	grant := make(chan struct{})
	e.waiters = append(e.waiters, grant)
	l.mu.Unlock()

	select {
	case <-grant:
		return l.unlocker(key), nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range e.waiters {
			if w == grant {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				l.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		l.mu.Unlock()
		// Granted concurrently with cancellation: pass it on.
		l.release(key)
		return nil, ctx.Err()
	}
}

// Locked reports whether key is currently held.
func (l *Locker) Locked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.locks[key]
	return ok
}

// Waiting returns the number of goroutines queued for key.
func (l *Locker) Waiting(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.locks[key]; ok {
		return len(e.waiters)
	}
	return 0
}

func (l *Locker) unlocker(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key) })
	}
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		panic("pathlock: unlock of unlocked key " + key)
	}
	if len(e.waiters) == 0 {
		delete(l.locks, key)
		return
	}
	next := e.waiters[0]
	e.waiters = e.waiters[1:]
	close(next)
}
