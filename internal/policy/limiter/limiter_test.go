package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	acquired atomic.Int64
	released atomic.Int64
}

func (c *countingObserver) PermitAcquired(time.Duration) { c.acquired.Add(1) }
func (c *countingObserver) PermitReleased()              { c.released.Add(1) }

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	_, err := New(0, nil)
	require.Error(t, err)
	_, err = New(-3, nil)
	require.Error(t, err)
}

func TestLimiterNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 3
	obs := &countingObserver{}
	l, err := New(capacity, obs)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		maxSeen atomic.Int64
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer p.Release()
			n := current.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int64(capacity))
	assert.LessOrEqual(t, l.Peak(), capacity)
	assert.Equal(t, 0, l.InUse())
	assert.Equal(t, int64(20), obs.acquired.Load())
	assert.Equal(t, int64(20), obs.released.Load())
}

func TestLimiterSingleSlotSerializes(t *testing.T) {
	t.Parallel()

	l, err := New(1, nil)
	require.NoError(t, err)

	first, err := l.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		p, err := l.Acquire(context.Background())
		if err == nil {
			p.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the only permit is held")
	case <-time.After(30 * time.Millisecond):
	}
	first.Release()
	require.Eventually(t, func() bool {
		select {
		case <-acquired:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, l.Peak())
}

func TestPermitReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	obs := &countingObserver{}
	l, err := New(1, obs)
	require.NoError(t, err)

	p, err := l.Acquire(context.Background())
	require.NoError(t, err)
	p.Release()
	p.Release()
	assert.Equal(t, 0, l.InUse())
	assert.Equal(t, int64(1), obs.released.Load())

	// The slot is free exactly once: a second holder fits, a third does not.
	p2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	p2.Release()

	var nilPermit *Permit
	nilPermit.Release()
}

func TestAcquireAfterCloseFails(t *testing.T) {
	t.Parallel()

	l, err := New(2, nil)
	require.NoError(t, err)
	l.Close()

	_, err = l.Acquire(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseWakesWaiters(t *testing.T) {
	t.Parallel()

	l, err := New(1, nil)
	require.NoError(t, err)
	held, err := l.Acquire(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	l.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Close")
	}
	held.Release()
	assert.Equal(t, 0, l.InUse())
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	l, err := New(1, nil)
	require.NoError(t, err)
	held, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Capacity())
}
