package pathlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_MutualExclusion(t *testing.T) {
	l := New()
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "/a.js")
			if !assert.NoError(t, err) {
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

	assert.Equal(t, 1, maxInside)
	assert.False(t, l.Locked("/a.js"))
}

func TestLocker_IndependentKeys(t *testing.T) {
	l := New()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)

	assert.True(t, l.Locked("a"))
	assert.True(t, l.Locked("b"))
	unlockA()
	unlockB()
	assert.False(t, l.Locked("a"))
}

// waitQueued polls until n waiters are queued on key.
func waitQueued(t *testing.T, l *Locker, key string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return l.Waiting(key) == n }, time.Second, time.Millisecond)
}

func TestLocker_FIFO(t *testing.T) {
	l := New()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := l.Lock(ctx, "k")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			u()
		}(i)
		// Enqueue one at a time so arrival order is known.
		waitQueued(t, l, "k", i+1)
	}

	unlock()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLocker_CancelledWaiter(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := l.Lock(ctx, "k")
		errCh <- err
	}()
	waitQueued(t, l, "k", 1)

	got := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "k")
		if !assert.NoError(t, err) {
			return
		}
		close(got)
		u()
	}()
	waitQueued(t, l, "k", 2)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 1, l.Waiting("k"))

	unlock()
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("waiter behind a cancelled one was never granted the lock")
	}
	require.Eventually(t, func() bool { return !l.Locked("k") }, time.Second, time.Millisecond)
}

func TestLocker_UnlockIdempotent(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	assert.NotPanics(t, unlock)
}
