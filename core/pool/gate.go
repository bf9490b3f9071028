package pool

import (
	"container/list"
	"context"
	"errors"
	"sync"
)

// waiter is a parked acquirer. grantErr is written before ready is closed and
// must only be read after ready is observed closed (or under the gate lock).
type waiter struct {
	ready    chan struct{}
	grantErr error
}

// gate is the counting admission primitive guarding the slot store. A permit
// corresponds to exactly one token currently sitting free in the store.
// Waiters are resumed in FIFO order; release hands permits directly to the
// queue head so a late arrival can never starve a parked caller.
type gate struct {
	mu      sync.Mutex
	permits int
	closed  bool
	waiters list.List
}

func newGate(permits int) *gate {
	g := new(gate)
	g.permits = permits
	return g
}

// tryAcquire consumes one permit without blocking. It fails when the gate is
// closed, when no permits remain, or when parked waiters have priority.
func (g *gate) tryAcquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if g.permits > 0 && g.waiters.Len() == 0 {
		g.permits--
		return nil
	}
	return ErrExhausted
}

// acquire consumes one permit, parking the caller until a permit is handed
// over, the context ends, or the gate closes. A context deadline surfaces as
// ErrTimeout; plain cancellation propagates the context error.
func (g *gate) acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.permits > 0 && g.waiters.Len() == 0 {
		g.permits--
		g.mu.Unlock()
		return nil
	}
	w := &waiter{ready: make(chan struct{})}
	elem := g.waiters.PushBack(w)
	g.mu.Unlock()

	select {
	case <-w.ready:
		return w.grantErr
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-w.ready:
			// Resolved while we were cancelling. A grant that raced the
			// cancellation is returned to the queue rather than kept.
			if w.grantErr != nil {
				g.mu.Unlock()
				return w.grantErr
			}
			if !g.closed {
				g.releaseLocked(1)
			}
		default:
			g.waiters.Remove(elem)
		}
		g.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// release restores n permits, waking parked waiters front-first. Restoring a
// permit to a closed gate is a no-op.
func (g *gate) release(n int) {
	if n <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.releaseLocked(n)
}

func (g *gate) releaseLocked(n int) {
	g.permits += n
	for g.permits > 0 {
		front := g.waiters.Front()
		if front == nil {
			return
		}
		g.waiters.Remove(front)
		g.permits--
		w := front.Value.(*waiter)
		close(w.ready)
	}
}

// close transitions the gate to its terminal state: every parked waiter and
// every future attempt fails with ErrClosed.
func (g *gate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	for elem := g.waiters.Front(); elem != nil; elem = elem.Next() {
		w := elem.Value.(*waiter)
		w.grantErr = ErrClosed
		close(w.ready)
	}
	g.waiters.Init()
}

func (g *gate) available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.permits
}

func (g *gate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
