package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateTryAcquire(t *testing.T) {
	g := newGate(2)
	if err := g.tryAcquire(); err != nil {
		t.Fatalf("tryAcquire failed: %v", err)
	}
	if err := g.tryAcquire(); err != nil {
		t.Fatalf("tryAcquire failed: %v", err)
	}
	if err := g.tryAcquire(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	g.release(1)
	if got := g.available(); got != 1 {
		t.Fatalf("expected 1 permit, got %d", got)
	}
}

func TestGateTryAcquireYieldsToWaiters(t *testing.T) {
	g := newGate(0)

	acquired := make(chan error, 1)
	go func() {
		acquired <- g.acquire(context.Background())
	}()

	// Wait for the goroutine to park.
	deadline := time.Now().Add(time.Second)
	for g.waiterCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}

	g.release(1)

	// The permit went to the parked waiter, not to a fresh tryAcquire.
	if err := g.tryAcquire(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if err := <-acquired; err != nil {
		t.Fatalf("parked waiter failed: %v", err)
	}
}

func TestGateFIFOWakeup(t *testing.T) {
	g := newGate(0)

	const waiters = 4
	order := make(chan int, waiters)
	for i := 0; i < waiters; i++ {
		i := i
		go func() {
			if err := g.acquire(context.Background()); err == nil {
				order <- i
			}
		}()
		deadline := time.Now().Add(time.Second)
		for g.waiterCount() != i+1 {
			if time.Now().After(deadline) {
				t.Fatalf("waiter %d never parked", i)
			}
			time.Sleep(time.Millisecond)
		}
	}

	for i := 0; i < waiters; i++ {
		g.release(1)
		select {
		case got := <-order:
			if got != i {
				t.Fatalf("expected waiter %d to wake, got %d", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("waiter %d never woke", i)
		}
	}
}

func TestGateCloseWakesWaiters(t *testing.T) {
	g := newGate(0)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- g.acquire(context.Background())
		}()
	}
	deadline := time.Now().Add(time.Second)
	for g.waiterCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("waiters never parked")
		}
		time.Sleep(time.Millisecond)
	}

	g.close()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrClosed) {
				t.Fatalf("expected ErrClosed, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not woken by close")
		}
	}

	if err := g.tryAcquire(); !errors.Is(err, ErrClosed) {
		t.Fatalf("tryAcquire after close: expected ErrClosed, got %v", err)
	}
	if err := g.acquire(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("acquire after close: expected ErrClosed, got %v", err)
	}

	// Restoring permits to a closed gate is a no-op.
	g.release(3)
	if got := g.available(); got != 0 {
		t.Fatalf("closed gate accepted permits: %d", got)
	}
}

func TestGateAcquireDeadline(t *testing.T) {
	g := newGate(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.acquire(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if g.waiterCount() != 0 {
		t.Fatal("timed-out waiter left in queue")
	}
}

func TestGateAcquireCancellation(t *testing.T) {
	g := newGate(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGateCancelledGrantIsReturned(t *testing.T) {
	g := newGate(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.acquire(ctx)
	}()
	deadline := time.Now().Add(time.Second)
	for g.waiterCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never parked")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	g.release(1)
	err := <-done

	// Whichever way the race resolved, the permit must not be lost: either
	// the waiter kept it (acquired) or it was returned to the budget.
	if err == nil {
		g.release(1)
	}
	if got := g.available(); got != 1 {
		t.Fatalf("permit lost to cancellation race: available=%d err=%v", got, err)
	}
}

func (g *gate) waiterCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters.Len()
}
