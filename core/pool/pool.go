// Package pool implements a generic, thread-safe resource pool built from a
// counting admission gate and a concurrent slot store. Callers reserve opaque
// tokens, use them exclusively, and return them; the pool never inspects a
// token. Growth, best-effort shrink, and an orderly drain that releases all
// waiters are supported at runtime.
package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coachpo/respool/errs"
)

var (
	// ErrExhausted indicates no free token was available for a non-blocking attempt.
	ErrExhausted = errs.New("core/pool", errs.CodeExhausted, errs.WithMessage("no resources available"))
	// ErrTimeout indicates a blocking acquisition exceeded its deadline.
	ErrTimeout = errs.New("core/pool", errs.CodeTimeout, errs.WithMessage("timeout acquiring resource"), errs.WithRemediation("retry or raise the acquire deadline"))
	// ErrClosed indicates the pool has been drained; no further acquisitions will succeed.
	ErrClosed = errs.New("core/pool", errs.CodeClosed, errs.WithMessage("pool closed"))
)

// Pool hands out exclusive reservations of opaque tokens. The zero value is
// not usable; construct instances with New.
//
// Internally a granted gate permit is always redeemable for a stored token
// without blocking: release and add publish the token to the store before
// restoring the permit, and acquisition consumes the permit before popping.
type Pool[T any] struct {
	store   *slotStore[T]
	gate    *gate
	size    atomic.Int64
	pending atomic.Int64
}

// Stats is an eventually-consistent snapshot of pool counters. The three
// fields are sampled independently and must not be treated as a transactional
// unit under concurrent activity.
type Stats struct {
	Available int `json:"available"`
	Size      int `json:"size"`
	Pending   int `json:"pending"`
}

// New constructs a pool seeded with the provided tokens. The initial set may
// be empty; the pool imposes no upper bound on growth.
func New[T any](tokens []T) *Pool[T] {
	p := new(Pool[T])
	p.store = newSlotStore(tokens)
	p.gate = newGate(len(tokens))
	p.size.Store(int64(len(tokens)))
	return p
}

// TryAcquire reserves a token without blocking. It returns ErrExhausted when
// the pool is saturated and ErrClosed after Drain.
func (p *Pool[T]) TryAcquire() (T, error) {
	var zero T
	if err := p.gate.tryAcquire(); err != nil {
		return zero, err
	}
	return p.popToken()
}

// Acquire reserves a token, suspending the caller until one becomes free, the
// context ends, or the pool is drained. A context deadline surfaces as
// ErrTimeout; cancellation propagates the context error.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tok, err := p.TryAcquire()
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrExhausted) {
		var zero T
		return zero, err
	}

	p.pending.Add(1)
	err = p.gate.acquire(ctx)
	p.pending.Add(-1)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.popToken()
}

// AcquireTimeout reserves a token, waiting at most d. A non-positive d waits
// indefinitely (subject to the provided context).
func (p *Pool[T]) AcquireTimeout(ctx context.Context, d time.Duration) (T, error) {
	if d <= 0 {
		return p.Acquire(ctx)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return p.Acquire(ctx)
}

// Release returns a reserved token to the free set and wakes one waiter. The
// token is published to the store before the permit is restored so a woken
// waiter always finds it. Releasing into a drained pool is harmless: the
// permit restore is a no-op and the token simply sits unreachable.
//
// The pool does not track reservations; releasing a token the caller does not
// hold, or releasing twice, corrupts accounting and is the caller's bug.
func (p *Pool[T]) Release(tok T) {
	p.store.put(tok)
	p.gate.release(1)
}

// Add grows the pool by one token at runtime.
func (p *Pool[T]) Add(tok T) {
	p.store.put(tok)
	p.size.Add(1)
	p.gate.release(1)
}

// RemoveOne permanently withdraws one currently-free token. It is best-effort:
// when every token is reserved it returns ErrExhausted immediately rather than
// waiting, since a blocking withdraw could deadlock against a caller holding a
// reservation it intends to release.
func (p *Pool[T]) RemoveOne() (T, error) {
	var zero T
	if err := p.gate.tryAcquire(); err != nil {
		return zero, err
	}
	tok, err := p.popToken()
	if err != nil {
		return zero, err
	}
	saturatingSub(&p.size, 1)
	// The consumed permit is deliberately not restored; the slot is gone.
	return tok, nil
}

// Drain closes the pool: every suspended waiter fails with ErrClosed, future
// acquisitions fail with ErrClosed, and all currently-free tokens are returned
// to the caller for disposal. Tokens reserved at the time of the call remain
// with their holders until released. Drain is idempotent; later calls return
// whatever stragglers were released after the first.
func (p *Pool[T]) Drain() []T {
	p.gate.close()
	tokens := p.store.takeAll()
	if n := len(tokens); n > 0 {
		saturatingSub(&p.size, int64(n))
	}
	return tokens
}

// Available reports the number of permits currently grantable. Stale
// immediately under concurrent activity.
func (p *Pool[T]) Available() int { return p.gate.available() }

// Size reports the total number of tokens managed by the pool, free plus
// reserved.
func (p *Pool[T]) Size() int { return int(p.size.Load()) }

// Pending reports the number of callers currently suspended in Acquire.
func (p *Pool[T]) Pending() int { return int(p.pending.Load()) }

// Closed reports whether Drain has run.
func (p *Pool[T]) Closed() bool { return p.gate.isClosed() }

// Snapshot samples the three counters.
func (p *Pool[T]) Snapshot() Stats {
	return Stats{
		Available: p.Available(),
		Size:      p.Size(),
		Pending:   p.Pending(),
	}
}

// popToken redeems an already-consumed permit for a stored token. An empty
// store here means either a drain raced the grant (reported as ErrClosed) or
// the count-vs-storage invariant broke, which is a programming error and
// fails loud instead of masquerading as saturation.
func (p *Pool[T]) popToken() (T, error) {
	tok, ok := p.store.take()
	if ok {
		return tok, nil
	}
	var zero T
	if p.gate.isClosed() {
		return zero, ErrClosed
	}
	panic("core/pool: permit granted but slot store empty")
}

// saturatingSub decrements without underflowing past zero.
func saturatingSub(c *atomic.Int64, n int64) {
	for {
		cur := c.Load()
		next := cur - n
		if next < 0 {
			next = 0
		}
		if c.CompareAndSwap(cur, next) {
			return
		}
	}
}
