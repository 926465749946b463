// Package limiter provides the global concurrency ceiling shared by all fetch
// tasks of a run.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Acquire once the limiter has been torn down.
var ErrClosed = errors.New("limiter closed")

// Observer is notified about permit traffic.
type Observer interface {
	PermitAcquired(wait time.Duration)
	PermitReleased()
}

// Limiter hands out at most capacity permits at any instant. No fairness
// between waiters is guaranteed.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	obs      Observer

	ctx    context.Context
	cancel context.CancelFunc

	inUse atomic.Int64
	peak  atomic.Int64
}

// New creates a Limiter with the given capacity. obs may be nil.
func New(capacity int, obs Observer) (*Limiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("limiter capacity must be > 0, got %d", capacity)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		obs:      obs,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Acquire blocks until a permit is free. It fails with ErrClosed when the
// limiter is closed before or while waiting, and with the context error when
// ctx ends first.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if l.ctx.Err() != nil {
		return nil, ErrClosed
	}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.ctx, cancel)
	defer stop()

	start := time.Now()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if l.ctx.Err() != nil {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("acquire permit: %w", err)
	}
	if l.ctx.Err() != nil {
		l.sem.Release(1)
		return nil, ErrClosed
	}

	n := l.inUse.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if l.obs != nil {
		l.obs.PermitAcquired(time.Since(start))
	}
	return &Permit{l: l}, nil
}

// Close tears the limiter down. Pending and future Acquire calls fail with
// ErrClosed; permits already held can still be released.
func (l *Limiter) Close() {
	l.cancel()
}

// Capacity returns the configured ceiling.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InUse returns the number of permits currently held.
func (l *Limiter) InUse() int {
	return int(l.inUse.Load())
}

// Peak returns the highest number of permits held at once.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}

func (l *Limiter) release() {
	l.inUse.Add(-1)
	l.sem.Release(1)
	if l.obs != nil {
		l.obs.PermitReleased()
	}
}

// Permit is a held slot. Release is idempotent.
type Permit struct {
	l    *Limiter
	once sync.Once
}

// Release returns the permit to the limiter.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(p.l.release)
}
